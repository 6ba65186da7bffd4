// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/internal/store"
	"github.com/pdiddy/deck-engine/pkg/types"
)

// newLogger builds the process logger. Log output goes to stderr so
// stdout stays clean for command output.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// openStore opens the configured record store backend.
func openStore(cfg types.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "memory":
		return store.NewMemory(), nil
	case "sqlite", "":
		return store.NewSQLite(cfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q (want sqlite or memory)", cfg.Backend)
	}
}
