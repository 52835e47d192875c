package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are issued by the identity service. EmployeeID links the user to
// the employee record whose leave they own; zero means none.
type Claims struct {
	UserID     string `json:"uid"`
	TenantID   string `json:"tid"`
	RoleName   string `json:"role"`
	EmployeeID int64  `json:"eid,omitempty"`
	jwt.RegisteredClaims
}

type UserContext struct {
	UserID     string
	TenantID   string
	RoleName   string
	EmployeeID int64
}

func GenerateToken(secret string, claims Claims, ttl time.Duration) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.TenantID == "" || claims.UserID == "" {
		return nil, errors.New("token missing tenant or user")
	}
	return claims, nil
}
