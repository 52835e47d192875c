package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hrleave/internal/app/server"
	"hrleave/internal/domain/leave"
	"hrleave/internal/domain/leave/sqlite"
	"hrleave/internal/platform/config"
	"hrleave/internal/platform/db"
)

const (
	backendSQLite   = "sqlite"
	backendPostgres = "postgres"
)

// store is what the commands need from either backend.
type store interface {
	leave.UnitOfWork
	leave.TenantLister
	EnsureTenant(ctx context.Context, name string) (string, error)
}

type cli struct {
	v   *viper.Viper
	out io.Writer
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New(), out: os.Stdout}
	root := &cobra.Command{
		Use:           "leavectl",
		Short:         "Manage leave requests and balances",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.out = cmd.OutOrStdout()
		},
	}

	flags := root.PersistentFlags()
	flags.String("backend", backendSQLite, "store backend: sqlite or postgres")
	flags.String("db", "", "sqlite database path (default from SQLITE_PATH)")
	flags.String("database-url", "", "postgres url (default from DATABASE_URL)")
	flags.String("tenant", "default", "tenant name")
	flags.String("day-counting", "", "calendar or business (default from LEAVE_DAY_COUNTING)")
	flags.Bool("json", false, "output JSON")
	// Unset flags fall back to the environment and then the config defaults.
	_ = c.v.BindPFlag("backend", flags.Lookup("backend"))
	_ = c.v.BindPFlag("tenant", flags.Lookup("tenant"))
	_ = c.v.BindPFlag("json", flags.Lookup("json"))
	_ = c.v.BindPFlag("sqlite_path", flags.Lookup("db"))
	_ = c.v.BindPFlag("database_url", flags.Lookup("database-url"))
	_ = c.v.BindPFlag("leave_day_counting", flags.Lookup("day-counting"))

	root.AddCommand(c.migrateCmd())
	root.AddCommand(c.serveCmd())
	root.AddCommand(c.seedCmd())
	root.AddCommand(c.leaveCmd())
	root.AddCommand(c.balanceCmd())
	return root
}

func (c *cli) config() config.Config {
	return config.FromViper(c.v)
}

func (c *cli) openStore(ctx context.Context) (store, func(), error) {
	cfg := c.config()
	switch backend := c.v.GetString("backend"); backend {
	case backendSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return s, func() { _ = s.Close() }, nil
	case backendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		s := leave.NewStore(pool)
		s.MaxRetries = cfg.TxRetries
		return s, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

type session struct {
	store    store
	svc      *leave.Service
	tenantID string
}

// withSession opens the store, resolves the tenant and hands a configured
// leave service to fn.
func (c *cli) withSession(ctx context.Context, fn func(ctx context.Context, s session) error) error {
	st, closeStore, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	tenantID, err := st.EnsureTenant(ctx, c.v.GetString("tenant"))
	if err != nil {
		return fmt.Errorf("resolve tenant: %w", err)
	}
	cfg := c.config()
	svc := leave.NewService(st, nil)
	svc.DayCounting = cfg.DayCounting
	svc.LowBalanceThreshold = cfg.LowBalanceThreshold
	return fn(ctx, session{store: st, svc: svc, tenantID: tenantID})
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations to the selected backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.config()
			if c.v.GetString("backend") == backendPostgres {
				pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
				if err != nil {
					return fmt.Errorf("db connect: %w", err)
				}
				defer pool.Close()
				applied, err := db.Migrate(ctx, pool)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "applied %d migration(s)\n", applied)
				return nil
			}
			s, err := sqlite.Open(cfg.SQLitePath)
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintf(c.out, "sqlite schema ready at %s\n", cfg.SQLitePath)
			return nil
		},
	}
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs against Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			app, err := server.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Serve(ctx)
		},
	}
}

func (c *cli) seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load employees, leave types, holidays and balances from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := db.LoadSeedFile(file)
			if err != nil {
				return err
			}
			st, closeStore, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()
			summary, err := db.Seed(ctx, st, data)
			if err != nil {
				return err
			}
			if c.v.GetBool("json") {
				return c.printJSON(summary)
			}
			fmt.Fprintf(c.out, "tenant %s (%s): %d employees, %d leave types, %d holidays added, %d balances\n",
				data.Tenant, summary.TenantID, summary.Employees, summary.LeaveTypes, summary.Holidays, summary.Balances)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "seed file path")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
