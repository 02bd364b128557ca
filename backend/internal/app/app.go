// Package app wires configuration into the stores and services shared by the
// server, the admin CLI and the seed script.
package app

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"persinteret/backend/internal/graph"
	"persinteret/backend/internal/people"
	"persinteret/backend/internal/photo"
	"persinteret/backend/pkg/config"
	apperrors "persinteret/backend/pkg/errors"
	"persinteret/backend/pkg/logger"
)

// App holds the opened stores and the services built on them
type App struct {
	Config  *config.Config
	Graph   *graph.Repository
	Photos  *photo.Store
	Service *people.Service
	DAO     *people.DAO
}

// Open connects to Neo4j, opens the photo store and builds the services.
// Everything opened so far is closed again when a later step fails.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.Get()

	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		return nil, apperrors.NewGraphConnectionFailed(cfg.Neo4jURI, err)
	}

	repo := graph.NewRepository(driver, cfg.Neo4jDatabase)

	verifyCtx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
	defer cancel()
	if err := repo.VerifyConnectivity(verifyCtx); err != nil {
		_ = repo.Close()
		return nil, apperrors.NewGraphConnectionFailed(cfg.Neo4jURI, err)
	}
	log.Info("Connected to Neo4j", zap.String("uri", cfg.Neo4jURI))

	photos, err := photo.Open(photo.Options{
		Dir:        cfg.PhotoDBDir,
		InMemory:   cfg.PhotoDBInMemory,
		SyncWrites: cfg.PhotoDBSyncWrites,
	})
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	svc := people.NewService(repo, photos, people.Options{
		QueryTimeout:     cfg.QueryTimeout,
		DefaultListLimit: cfg.DefaultListLimit,
	})

	return &App{
		Config:  cfg,
		Graph:   repo,
		Photos:  photos,
		Service: svc,
		DAO:     people.NewDAO(svc),
	}, nil
}

// Close releases both stores
func (a *App) Close() error {
	photoErr := a.Photos.Close()
	if err := a.Graph.Close(); err != nil {
		return err
	}
	return photoErr
}
