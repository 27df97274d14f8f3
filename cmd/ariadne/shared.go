package main

import (
	"context"
	"fmt"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/config"
	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/store"
)

func loadConfigAndStore(ctx context.Context, projectRoot string) (config.EngineConfig, *store.Store, error) {
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return config.EngineConfig{}, nil, fmt.Errorf("loading config: %w", err)
	}
	s, err := store.Open(ctx, cfg.AbsoluteIndexPath())
	if err != nil {
		return config.EngineConfig{}, nil, fmt.Errorf("opening index: %w", err)
	}
	return cfg, s, nil
}
