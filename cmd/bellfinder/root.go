package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/stwalsh4118/bellfinder/internal/config"
	"github.com/stwalsh4118/bellfinder/internal/database"
	"github.com/stwalsh4118/bellfinder/internal/logger"
	"github.com/stwalsh4118/bellfinder/internal/metrics"
	"github.com/stwalsh4118/bellfinder/internal/repository"
	"github.com/stwalsh4118/bellfinder/internal/services"
)

type rootOptions struct {
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "bellfinder",
		Short:        "Bell Finder maintenance commands",
		Long:         `Loads Dove feeds and backs up the visit log. Database settings come from the same DB_* environment variables as the server.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newValidateCmd(opts),
		newMigrateCmd(opts),
		newImportCmd(opts),
		newExportVisitsCmd(opts),
		newImportVisitsCmd(opts),
	)
	return root
}

// newLogger writes diagnostics to stderr so stdout stays clean for data.
func (o *rootOptions) newLogger(cmd *cobra.Command) *logger.Logger {
	return logger.NewWithOptions(logger.Options{
		Env:    "cli",
		Level:  o.logLevel,
		Output: cmd.ErrOrStderr(),
	})
}

// stack is the database and services a command works with.
type stack struct {
	db     *database.Database
	prefs  repository.PreferencesRepository
	towers services.TowerService
	visits services.VisitService
	log    *logger.Logger
}

func (s *stack) Close() {
	s.db.Close()
}

// openStack connects to the database and applies pending migrations.
func (o *rootOptions) openStack(ctx context.Context, cmd *cobra.Command) (*stack, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := o.newLogger(cmd)
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	applied, err := db.Migrate(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	if len(applied) > 0 {
		log.Info("Database migrations applied", map[string]interface{}{
			"migrations": applied,
		})
	}

	towerRepo := repository.NewTowerRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	prefsRepo := repository.NewPreferencesRepository(db)

	return &stack{
		db:     db,
		prefs:  prefsRepo,
		towers: services.NewTowerService(towerRepo, visitRepo, prefsRepo, metrics.New(nil), log, cfg.Nearby),
		visits: services.NewVisitService(visitRepo, towerRepo, nil, log),
		log:    log,
	}, nil
}

func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}
