package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Addr                string
	DatabaseURL         string
	DBMaxConns          int32
	SQLitePath          string
	JWTSecret           string
	Environment         string
	LogLevel            string
	DayCounting         string
	TxRetries           int
	LowBalanceThreshold decimal.Decimal
	RunMigrations       bool
	MaxBodyBytes        int64
	RateLimitPerMinute  int
	CORSAllowedOrigins  []string
	TakenSweepInterval  time.Duration
	ProvisionInterval   time.Duration
	MetricsEnabled      bool
	Attachments         AttachmentConfig
}

// AttachmentConfig points at an S3-compatible bucket. An empty Bucket
// disables uploads.
type AttachmentConfig struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	PublicURL string
	MaxBytes  int64
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("app_addr", ":8080")
	v.SetDefault("database_url", "")
	v.SetDefault("db_max_conns", 10)
	v.SetDefault("sqlite_path", ".hrleave/leave.db")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("leave_day_counting", "calendar")
	v.SetDefault("leave_tx_retries", 3)
	v.SetDefault("leave_low_balance_threshold", "2")
	v.SetDefault("run_migrations", true)
	v.SetDefault("max_body_bytes", 1048576)
	v.SetDefault("rate_limit_per_minute", 60)
	v.SetDefault("cors_allowed_origins", "")
	v.SetDefault("taken_sweep_interval", "1h")
	v.SetDefault("provision_interval", "24h")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("attachment_bucket", "")
	v.SetDefault("attachment_endpoint", "")
	v.SetDefault("attachment_region", "auto")
	v.SetDefault("attachment_access_key", "")
	v.SetDefault("attachment_secret_key", "")
	v.SetDefault("attachment_public_url", "")
	v.SetDefault("attachment_max_bytes", 5242880)
}

// New returns a viper instance reading defaults and the environment. Keys
// are the lower-case form of the env variables (APP_ADDR -> app_addr).
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return v
}

func Load() Config {
	return FromViper(New())
}

func FromViper(v *viper.Viper) Config {
	threshold, err := decimal.NewFromString(strings.TrimSpace(v.GetString("leave_low_balance_threshold")))
	if err != nil {
		threshold = decimal.NewFromInt(2)
	}
	return Config{
		Addr:                v.GetString("app_addr"),
		DatabaseURL:         v.GetString("database_url"),
		DBMaxConns:          v.GetInt32("db_max_conns"),
		SQLitePath:          v.GetString("sqlite_path"),
		JWTSecret:           v.GetString("jwt_secret"),
		Environment:         v.GetString("app_env"),
		LogLevel:            strings.ToLower(v.GetString("log_level")),
		DayCounting:         strings.ToLower(v.GetString("leave_day_counting")),
		TxRetries:           v.GetInt("leave_tx_retries"),
		LowBalanceThreshold: threshold,
		RunMigrations:       v.GetBool("run_migrations"),
		MaxBodyBytes:        v.GetInt64("max_body_bytes"),
		RateLimitPerMinute:  v.GetInt("rate_limit_per_minute"),
		CORSAllowedOrigins:  splitList(v.GetString("cors_allowed_origins")),
		TakenSweepInterval:  v.GetDuration("taken_sweep_interval"),
		ProvisionInterval:   v.GetDuration("provision_interval"),
		MetricsEnabled:      v.GetBool("metrics_enabled"),
		Attachments: AttachmentConfig{
			Bucket:    v.GetString("attachment_bucket"),
			Endpoint:  v.GetString("attachment_endpoint"),
			Region:    v.GetString("attachment_region"),
			AccessKey: v.GetString("attachment_access_key"),
			SecretKey: v.GetString("attachment_secret_key"),
			PublicURL: v.GetString("attachment_public_url"),
			MaxBytes:  v.GetInt64("attachment_max_bytes"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.DayCounting != "calendar" && c.DayCounting != "business" {
		return fmt.Errorf("LEAVE_DAY_COUNTING must be calendar or business")
	}
	if c.TxRetries < 0 {
		return fmt.Errorf("LEAVE_TX_RETRIES must not be negative")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.Attachments.Bucket != "" && (c.Attachments.AccessKey == "" || c.Attachments.SecretKey == "") {
		return fmt.Errorf("ATTACHMENT_ACCESS_KEY and ATTACHMENT_SECRET_KEY must be set when ATTACHMENT_BUCKET is set")
	}
	return nil
}
