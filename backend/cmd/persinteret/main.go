// Command persinteret is the admin CLI for the persons-of-interest stores.
//
// Usage:
//
//	persinteret list [--filter prefix] [--limit n] [--with-image]
//	persinteret stats
//	persinteret delete <id>
//	persinteret purge --yes
//	persinteret schema
package main

import (
	"context"
	"fmt"
	"os"

	"persinteret/backend/internal/app"
	"persinteret/backend/pkg/config"
	"persinteret/backend/pkg/logger"
)

func main() {
	if err := execute(context.Background(), openBackend, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openBackend(ctx context.Context) (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		return nil, err
	}

	a, err := app.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &backend{
		dao:          a.DAO,
		ensureSchema: a.Graph.EnsureSchema,
		close: func() error {
			logger.Sync()
			return a.Close()
		},
	}, nil
}
