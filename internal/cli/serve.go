package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visit-hub/internal/account"
	"github.com/evcraddock/visit-hub/internal/auth"
	"github.com/evcraddock/visit-hub/internal/config"
	"github.com/evcraddock/visit-hub/internal/db"
	"github.com/evcraddock/visit-hub/internal/logging"
	"github.com/evcraddock/visit-hub/internal/provision"
	"github.com/evcraddock/visit-hub/internal/purpose"
	"github.com/evcraddock/visit-hub/internal/store"
	"github.com/evcraddock/visit-hub/internal/visit"
	"github.com/evcraddock/visit-hub/internal/web"
)

const sessionCleanupInterval = time.Hour

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the HTTP server for the visit-hub JSON API. Settings come from VH_* environment variables, .env and vh.yaml.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (overrides VH_ADDR)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logging.Setup(cfg.DevMode, cfg.LogLevel)

	database, err := db.OpenDriver(cfg.DBDriver, cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeDB(database)

	slot, closeSlot, err := openSlot(cfg, database)
	if err != nil {
		return err
	}
	defer closeSlot()

	visits := visit.NewRepository(slot)
	purposes := purpose.NewStore(slot)
	accounts := account.NewStore(slot)

	if err := purposes.EnsureDefaults(ctx); err != nil {
		return fmt.Errorf("seeding purposes: %w", err)
	}
	if cfg.AdminUsername != "" {
		agent, created, err := accounts.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("ensuring admin account: %w", err)
		}
		if created {
			slog.Info("created admin account", "account_id", agent.ID, "username", agent.Username)
		}
	}

	sessions := auth.NewSessionStore(database, cfg.Auth())
	authn := auth.NewAuthenticator(accounts, sessions, auth.NewTokenIssuer([]byte(cfg.JWTSecret)))
	go cleanupSessions(ctx, sessions)

	srv := web.NewServer(web.Deps{
		Visits:          visits,
		Purposes:        purposes,
		Accounts:        accounts,
		Auth:            authn,
		Provision:       provision.NewService(accounts, authn, cfg.SetupToken),
		StorageCapacity: cfg.StorageCapacity,
	})

	slog.Info("visit-hub ready", "slot_backend", cfg.SlotBackend, "db_driver", cfg.DBDriver, "dev_mode", cfg.DevMode)
	return srv.ListenAndServe(ctx, cfg.Addr)
}

// openSlot selects the document storage backend. The returned close
// function is always safe to call.
func openSlot(cfg *config.Config, database *sql.DB) (store.Slot, func(), error) {
	switch cfg.SlotBackend {
	case config.BackendValkey:
		v, err := store.NewValkeySlot(cfg.ValkeyAddr)
		if err != nil {
			return nil, nil, err
		}
		return v, v.Close, nil
	case config.BackendMemory:
		slog.Warn("using in-memory storage, data is lost on restart")
		return store.NewMemorySlot(), func() {}, nil
	default:
		return store.NewSQLiteSlot(database), func() {}, nil
	}
}

// cleanupSessions deletes expired sessions until ctx is done.
func cleanupSessions(ctx context.Context, sessions *auth.SessionStore) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessions.Cleanup(ctx); err != nil {
				slog.Warn("cleaning up sessions", "error", err)
			}
		}
	}
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
