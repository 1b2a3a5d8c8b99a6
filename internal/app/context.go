// Package app wires the console's shared core from a workspace.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"qbadmin/internal/admin"
	"qbadmin/internal/authz"
	"qbadmin/internal/config"
	"qbadmin/internal/db"
	"qbadmin/internal/gateway"
	"qbadmin/internal/search"
	"qbadmin/internal/session"
)

// App is everything a front end needs. Both the CLI and the web console
// build one per process.
type App struct {
	Workspace string
	Config    *config.Config
	Logger    *zap.Logger
	DB        *sql.DB
	Session   session.Store
	Gateway   *gateway.Client
	Admin     *admin.Service
	Search    search.Resolver
}

// Open loads config (defaults when the workspace has none), opens the
// session database and builds the API client on top of the stored token.
func Open(ctx context.Context, workspace string, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		loaded, err := config.LoadOptional(workspace)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := db.Open(ctx, db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	store := session.Store{DB: conn}
	client := gateway.New(cfg.API.BaseURL, cfg.API.Timeout.Std(), store, logger.Named("gateway"))
	svc := admin.New(client)
	resolver, err := search.New(cfg.Search.Strategy, svc)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &App{
		Workspace: workspace,
		Config:    cfg,
		Logger:    logger,
		DB:        conn,
		Session:   store,
		Gateway:   client,
		Admin:     svc,
		Search:    resolver,
	}, nil
}

func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// Capabilities builds the capability object for the current session. With no
// session it returns ErrNoSession and an empty set.
func (a *App) Capabilities(ctx context.Context) (authz.Capabilities, error) {
	if _, err := a.Session.Get(ctx); err != nil {
		return authz.New(nil), err
	}
	perms, err := a.Session.Permissions(ctx)
	if err != nil {
		return authz.New(nil), err
	}
	return authz.New(perms), nil
}
