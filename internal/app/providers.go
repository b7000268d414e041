package app

import (
	"context"

	"scview/internal/config"
)

// Providers shared by the generated injector and the wire tool, so they stay
// visible under both the default and the wireinject build tags.

type appBuilderDeps interface {
	Build(context.Context) (*App, error)
}

func provideAppFromBuilder(b appBuilderDeps, ctx context.Context) (*App, error) {
	return b.Build(ctx)
}

func provideAppBuilder(cfg *config.Config) *AppBuilder {
	return NewAppBuilder(cfg)
}
