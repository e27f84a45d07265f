// Package app wires configuration into the ledger's components. Both the
// HTTP server and the operator CLI start from Open.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/ledgersync/internal/backup"
	"github.com/JonMunkholm/ledgersync/internal/config"
	"github.com/JonMunkholm/ledgersync/internal/core"
	"github.com/JonMunkholm/ledgersync/internal/drive"
	"github.com/JonMunkholm/ledgersync/internal/store/postgres"
	"github.com/JonMunkholm/ledgersync/internal/workbook"
)

// App holds the wired components.
type App struct {
	Config   *config.Config
	Pool     *pgxpool.Pool
	Store    *postgres.Store
	Progress *core.ProgressTracker
	Importer *core.Importer
	Exporter *core.Exporter
	Codec    workbook.Codec
	Session  *backup.SessionStore
	Backup   *backup.Service
	Limiter  *core.OperationLimiter
}

// Open connects to the database, applies the schema when configured and
// builds every component. Close releases the pool.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	loc, err := cfg.Dates.LoadLocation()
	if err != nil {
		return nil, err
	}
	core.DateLocation = loc

	pool, err := postgres.Connect(ctx, cfg.Database.URL, postgres.PoolConfig{
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("connected to database", "name", databaseName(cfg.Database.URL))

	store := postgres.New(pool)
	if cfg.Database.Migrate {
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}

	session, err := backup.OpenSessionStore(cfg.Drive.SessionFile)
	if err != nil {
		pool.Close()
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Pool:     pool,
		Store:    store,
		Progress: core.NewProgressTracker(cfg.Import.ProgressResetDelay),
		Codec:    workbook.New(),
		Session:  session,
		Limiter:  core.NewOperationLimiter(cfg.Import.OperationWait),
	}
	a.Importer = core.NewImporter(store, core.WithProgress(a.Progress))
	a.Exporter = core.NewExporter(store, a.Codec, cfg.Import.DatasetName)

	transport := drive.New(drive.Config{
		APIURL:    cfg.Drive.APIURL,
		UploadURL: cfg.Drive.UploadURL,
		Timeout:   cfg.Drive.Timeout,
	}, session)
	a.Backup = backup.NewService(backup.Config{
		Session:   session,
		Transport: transport,
		Exporter:  a.Exporter,
		Decoder:   a.Codec,
		Restorer:  a.Importer,
		FolderID:  cfg.Drive.FolderID,
		MimeType:  workbook.ContentType,
	})

	return a, nil
}

// Scheduler returns the periodic backup scheduler. It is disabled when
// BACKUP_INTERVAL is zero.
func (a *App) Scheduler() *backup.Scheduler {
	return backup.NewScheduler(a.Backup, a.Session, a.Limiter, backup.SchedulerConfig{
		Interval: a.Config.Backup.Interval,
		Timeout:  a.Config.Backup.Timeout,
	})
}

// Close releases the database pool.
func (a *App) Close() {
	a.Pool.Close()
}

func databaseName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// String summarizes the wiring for startup logs.
func (a *App) String() string {
	return fmt.Sprintf("App{dataset: %q, backup connected: %v, scheduler interval: %s}",
		a.Exporter.DatasetName(), a.Session.Connected(), a.Config.Backup.Interval)
}
