package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrleave/internal/platform/querier"
)

// Store is the Postgres unit of work. Every Do call runs in its own
// serializable transaction; serialization failures and deadlocks are retried with fresh
// reads up to MaxRetries times.
type Store struct {
	DB         *pgxpool.Pool
	MaxRetries int
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db, MaxRetries: 3}
}

func (s *Store) Do(ctx context.Context, tenantID string, fn func(Repositories) error) error {
	attempts := s.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = s.do(ctx, tenantID, fn)
		if err == nil || !retryable(err) {
			return err
		}
		slog.Warn("leave transaction retry", "attempt", attempt, "tenantId", tenantID, "err", err)
	}
	return err
}

func (s *Store) do(ctx context.Context, tenantID string, fn func(Repositories) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin leave tx: %w", err)
	}
	if err := fn(newPgRepositories(tx, tenantID)); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			slog.Warn("leave rollback failed", "err", rbErr)
		}
		return err
	}
	if err := tx.Commit(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("commit leave tx: %w", err)
	}
	return nil
}

// EnsureTenant returns the id of the tenant called name, creating it if
// missing.
func (s *Store) EnsureTenant(ctx context.Context, name string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `SELECT id::text FROM tenants WHERE name = $1`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO tenants (id, name) VALUES ($1, $2)
    ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
    RETURNING id::text
  `, uuid.NewString(), name).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListTenantIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, `SELECT id::text FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func newPgRepositories(db querier.Querier, tenantID string) Repositories {
	return Repositories{
		Leaves:     &pgLeaves{db: db, tenantID: tenantID},
		Employees:  &pgEmployees{db: db, tenantID: tenantID},
		LeaveTypes: &pgLeaveTypes{db: db, tenantID: tenantID},
		Balances:   &pgBalances{db: db, tenantID: tenantID},
		Holidays:   &pgHolidays{db: db, tenantID: tenantID},
	}
}

func notFoundOr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
