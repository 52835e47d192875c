// Package sqlite is an embedded leave store backed by modernc.org/sqlite. It
// serves the leavectl CLI and local development.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"hrleave/internal/domain/leave"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339Nano
)

// Store implements leave.UnitOfWork on a single SQLite file. One open
// connection serializes writers.
type Store struct {
	DB *sql.DB
}

// Open opens (creating if needed) the database at path with foreign keys on
// and applies the embedded migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	if err := Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &Store{DB: conn}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// Migrate applies embedded migrations in order.
func Migrate(db *sql.DB) error {
	files, err := fs.ReadDir(migrationsFS, "sql")
	if err != nil {
		return err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS schema_version(version INTEGER NOT NULL);`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}
	var current int
	err = tx.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := tx.Exec(`INSERT INTO schema_version(version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema_version: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}

	for _, f := range files {
		var v int
		if _, err := fmt.Sscanf(f.Name(), "%d_", &v); err != nil {
			return fmt.Errorf("invalid migration filename %s: %w", f.Name(), err)
		}
		if v <= current {
			continue
		}
		data, err := migrationsFS.ReadFile("sql/" + f.Name())
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(data)); err != nil {
			return fmt.Errorf("migration %s: %w", f.Name(), err)
		}
		if _, err := tx.Exec(`UPDATE schema_version SET version=?`, v); err != nil {
			return fmt.Errorf("update schema_version: %w", err)
		}
		current = v
	}
	return tx.Commit()
}

func (s *Store) Do(ctx context.Context, tenantID string, fn func(leave.Repositories) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin leave tx: %w", err)
	}
	if err := fn(repositories(tx, tenantID)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("leave rollback failed", "err", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit leave tx: %w", err)
	}
	return nil
}

// EnsureTenant returns the id of the tenant called name, creating it if
// missing.
func (s *Store) EnsureTenant(ctx context.Context, name string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `SELECT id FROM tenants WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	id = uuid.NewString()
	if _, err := s.DB.ExecContext(ctx, `INSERT INTO tenants (id, name, created_at) VALUES (?,?,?)`, id, name, fmtTime(time.Now())); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListTenantIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id FROM tenants ORDER BY created_at`)
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

func repositories(tx *sql.Tx, tenantID string) leave.Repositories {
	return leave.Repositories{
		Leaves:     &leaves{tx: tx, tenantID: tenantID},
		Employees:  &employees{tx: tx, tenantID: tenantID},
		LeaveTypes: &leaveTypes{tx: tx, tenantID: tenantID},
		Balances:   &balances{tx: tx, tenantID: tenantID},
		Holidays:   &holidays{tx: tx, tenantID: tenantID},
	}
}

func notFoundOr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return leave.ErrNotFound
	}
	return err
}

func fmtDate(t time.Time) string {
	return leave.DateOnly(t).Format(dateLayout)
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func fmtNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func fmtNullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtDate(*t)
}

func parseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, raw, time.UTC)
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(timeLayout, raw)
}

func parseNullTime(raw sql.NullString, layout string) (*time.Time, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(layout, raw.String, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullID(id sql.NullInt64) *int64 {
	if !id.Valid {
		return nil
	}
	v := id.Int64
	return &v
}
