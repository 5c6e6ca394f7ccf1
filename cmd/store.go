package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/vectoratlas/atlas-cli/internal/store"
)

// newStore constructs the configured store backend.
func newStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		st, err := store.NewSQLite(cfg.Store.Path, cfg.Ingest.BatchSize)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Ingest.BatchSize)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
