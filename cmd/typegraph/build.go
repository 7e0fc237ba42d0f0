package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hanpama/typegraph/internal/config"
	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/sdl"
	"github.com/hanpama/typegraph/internal/typegraph"
)

// registry loads every configured SDL source into a fresh registry and
// applies the configured attachments. The registry is not frozen yet.
func registry(ctx context.Context, cfg *config.Config, disc sdl.Discovery, logger *zap.Logger) (*typegraph.Registry, error) {
	doc, err := sdl.Parse(ctx, disc)
	if err != nil {
		return nil, err
	}
	logger.Debug("parsed schema sources", zap.Strings("sources", doc.Sources), zap.Int("types", len(doc.Types)))

	// Configured root types and description override the SDL schema definition.
	opts := append(doc.RegistryOptions(), cfg.RegistryOptions()...)
	opts = append(opts, typegraph.WithLogger(logger.Named("registry")))
	reg := typegraph.New(opts...)

	if err := doc.Register(reg); err != nil {
		return nil, fmt.Errorf("register definitions: %w", err)
	}
	if err := cfg.Attach(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// buildSchema runs the whole pipeline: parse, register, attach and build.
func buildSchema(ctx context.Context, cfg *config.Config, disc sdl.Discovery, logger *zap.Logger) (*schema.Schema, error) {
	reg, err := registry(ctx, cfg, disc, logger)
	if err != nil {
		return nil, err
	}
	return reg.Build()
}
