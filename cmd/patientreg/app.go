package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/patientreg/internal/adapter/driven/broadcast"
	sqliteadapter "github.com/ericfisherdev/patientreg/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/patientreg/internal/application"
	"github.com/ericfisherdev/patientreg/internal/config"
)

// app is the wired object graph behind every command.
type app struct {
	db   *sqliteadapter.DB
	hub  *broadcast.Hub
	tabs *application.TabManager
}

// openApp opens the store, applies migrations and attaches a tab manager to
// the configured channel.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	mode, err := application.ParseGuardMode(cfg.GuardMode)
	if err != nil {
		return nil, err
	}
	policy := application.DefaultQueryPolicy()
	policy.Mode = mode

	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", cfg.DBPath, err)
	}

	store := sqliteadapter.NewPatientRepo(db)
	hub := broadcast.NewHub(cfg.SubscriberBuffer)
	tabs := application.NewTabManager(store, application.NewQueryGuard(policy), func() application.SyncEndpoint {
		return hub.Open(cfg.ChannelName)
	})

	return &app{db: db, hub: hub, tabs: tabs}, nil
}

// Close closes every tab and then the database.
func (a *app) Close() {
	if err := a.tabs.CloseAll(); err != nil {
		slog.Error("error closing tabs", "error", err)
	}
	if err := a.db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
