// Package app assembles the service: dataset, marker table, theme registry,
// stores, render service and the HTTP API, and owns their lifecycle.
package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"scview/internal/config"
	"scview/internal/logger"
	"scview/internal/render"
	"scview/internal/store/renderlog"
	apihttp "scview/internal/transport/http/api"
)

// App holds the built components, not yet started.
type App struct {
	cfg    *config.Config
	svc    *render.Service
	server *apihttp.Server
	audit  *renderlog.Log
}

// NewApp builds the application from configuration without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("✓ http api listening on %s", a.server.Addr())
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
		return nil
	})
	err := group.Wait()
	a.Close()
	return err
}

// Close releases the resources the app holds open.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			logger.Warnf("closing render log failed: %v", err)
		}
	}
}

// Service exposes the render service for testing and replay harnesses.
func (a *App) Service() *render.Service {
	if a == nil {
		return nil
	}
	return a.svc
}
