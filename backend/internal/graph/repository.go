package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"persinteret/backend/internal/constants"
	"persinteret/backend/pkg/logger"
)

// Repository handles all Neo4j database operations on person nodes
type Repository struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewRepository creates a new graph repository.
// An empty database selects the server's default database.
func NewRepository(driver neo4j.DriverWithContext, database string) *Repository {
	return &Repository{
		driver:   driver,
		database: database,
		logger:   logger.Component("graph"),
	}
}

// Close closes the Neo4j driver connection
func (r *Repository) Close() error {
	return r.driver.Close(context.Background())
}

// VerifyConnectivity checks that the server answers
func (r *Repository) VerifyConnectivity(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

func (r *Repository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: r.database,
	})
}

// EnsureSchema creates the uniqueness constraints person nodes rely on
func (r *Repository) EnsureSchema(ctx context.Context) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	statements := []string{
		fmt.Sprintf("CREATE CONSTRAINT person_id_unique IF NOT EXISTS FOR (p:%s) REQUIRE p.id IS UNIQUE", constants.PersonLabel),
		fmt.Sprintf("CREATE CONSTRAINT person_name_unique IF NOT EXISTS FOR (p:%s) REQUIRE p.name IS UNIQUE", constants.PersonLabel),
	}

	for _, stmt := range statements {
		result, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("failed to create constraint: %w", err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return fmt.Errorf("failed to create constraint: %w", err)
		}
	}

	r.logger.Info("Schema constraints ensured")
	return nil
}
