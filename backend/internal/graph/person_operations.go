package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"persinteret/backend/internal/state"
	apperrors "persinteret/backend/pkg/errors"
)

// ============================================================================
// Person Operations
// ============================================================================

// ListPeople returns persons ordered by name. filter is a case-insensitive
// name prefix; an empty filter matches everyone.
func (r *Repository) ListPeople(ctx context.Context, filter string, limit int) ([]state.Person, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := `
		MATCH (p:Person)
		WHERE $filter = '' OR toLower(p.name) STARTS WITH $filter
		RETURN` + personReturn + `
		ORDER BY p.name ASC
		LIMIT $limit
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"filter": strings.ToLower(strings.TrimSpace(filter)),
		"limit":  int64(limit),
	})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("list people", err)
	}

	people := make([]state.Person, 0)
	for result.Next(ctx) {
		people = append(people, personFromRecord(result.Record()))
	}
	if err := result.Err(); err != nil {
		return nil, apperrors.NewGraphQueryFailed("list people", err)
	}

	return people, nil
}

// GetPerson fetches a single person by id
func (r *Repository) GetPerson(ctx context.Context, id string) (*state.Person, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := `
		MATCH (p:Person {id: $id})
		RETURN` + personReturn

	result, err := session.Run(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("get person", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, apperrors.NewGraphQueryFailed("get person", err)
		}
		return nil, apperrors.NewPersonNotFound(id)
	}

	person := personFromRecord(result.Record())
	return &person, nil
}

// SavePerson creates the person when it has no id and updates it otherwise.
//
// Connections are written twice: as the connections property and as KNOWS
// edges. Both sides of every acquaintance are kept in sync within the same
// transaction, so when A lists B, B's connections also list A. On return the
// person carries its id and the connection list as stored.
func (r *Repository) SavePerson(ctx context.Context, person *state.Person) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	person.Normalize()
	connections := person.NormalizedConnections()
	creating := person.ID == ""
	id := person.ID
	if creating {
		id = uuid.New().String()
	}

	stored, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		oldName := ""
		if !creating {
			name, found, err := currentName(ctx, tx, id)
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, apperrors.NewPersonNotFound(id)
			}
			oldName = name
		}

		taken, err := nameTaken(ctx, tx, person.Name, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperrors.NewDuplicateName(person.Name)
		}

		params := map[string]interface{}{
			"id":          id,
			"name":        person.Name,
			"codeName":    person.CodeName,
			"status":      string(person.Status),
			"dateOfBirth": person.DateOfBirth,
			"connections": connections,
			"oldName":     oldName,
		}

		steps := []struct {
			name  string
			query string
		}{
			{"upsert person", upsertQuery(creating)},
			{"detach previous peers", detachPeersQuery},
			{"link connections", linkConnectionsQuery},
			{"adopt references", adoptReferencesQuery},
		}
		for _, step := range steps {
			if creating && step.name == "detach previous peers" {
				continue
			}
			if err := runConsumed(ctx, tx, step.query, params); err != nil {
				return nil, apperrors.NewGraphQueryFailed(step.name, err)
			}
		}

		result, err := tx.Run(ctx, `MATCH (p:Person {id: $id}) RETURN coalesce(p.connections, []) AS connections`, params)
		if err != nil {
			return nil, apperrors.NewGraphQueryFailed("read connections", err)
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, apperrors.NewGraphQueryFailed("read connections", err)
		}
		return getStringSliceFromRecord(record, "connections"), nil
	})
	if err != nil {
		return err
	}

	person.ID = id
	person.Connections = stored.([]string)

	r.logger.Info("Person saved",
		zap.String("person_id", id),
		zap.Bool("created", creating),
		zap.Int("connections", len(person.Connections)),
	)
	return nil
}

// DeletePerson removes a person, its KNOWS edges and its name from the
// connections of the persons it knew
func (r *Repository) DeletePerson(ctx context.Context, id string) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		name, found, err := currentName(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, apperrors.NewPersonNotFound(id)
		}

		query := `
			MATCH (p:Person {id: $id})
			OPTIONAL MATCH (p)-[:KNOWS]-(peer:Person)
			WITH p, collect(DISTINCT peer) AS peers
			FOREACH (peer IN peers |
				SET peer.connections = [n IN coalesce(peer.connections, []) WHERE n <> $name])
			DETACH DELETE p
		`
		if err := runConsumed(ctx, tx, query, map[string]interface{}{"id": id, "name": name}); err != nil {
			return nil, apperrors.NewGraphQueryFailed("delete person", err)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("Person deleted", zap.String("person_id", id))
	return nil
}

// DeleteAllPeople removes every person node and relationship
func (r *Repository) DeleteAllPeople(ctx context.Context) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `MATCH (p:Person) DETACH DELETE p`, nil)
	if err != nil {
		return apperrors.NewGraphQueryFailed("delete all people", err)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return apperrors.NewGraphQueryFailed("delete all people", err)
	}

	r.logger.Warn("All people deleted",
		zap.Int("nodes_deleted", summary.Counters().NodesDeleted()),
		zap.Int("relationships_deleted", summary.Counters().RelationshipsDeleted()),
	)
	return nil
}

// ============================================================================
// Write path queries
// ============================================================================

func upsertQuery(creating bool) string {
	if creating {
		return `
			CREATE (p:Person {
				id: $id,
				name: $name,
				codeName: $codeName,
				status: $status,
				dateOfBirth: $dateOfBirth,
				connections: $connections,
				createdAt: datetime(),
				updatedAt: datetime()
			})
		`
	}
	return `
		MATCH (p:Person {id: $id})
		SET p.name = $name,
		    p.codeName = $codeName,
		    p.status = $status,
		    p.dateOfBirth = $dateOfBirth,
		    p.connections = $connections,
		    p.updatedAt = datetime()
	`
}

// Former peers forget the old name; their edges are rebuilt by the next steps.
const detachPeersQuery = `
	MATCH (p:Person {id: $id})-[k:KNOWS]-(peer:Person)
	SET peer.connections = [n IN coalesce(peer.connections, []) WHERE n <> $oldName]
	DELETE k
`

const linkConnectionsQuery = `
	MATCH (p:Person {id: $id})
	UNWIND $connections AS peerName
	MATCH (peer:Person {name: peerName})
	WHERE peer.id <> p.id
	MERGE (p)-[:KNOWS]-(peer)
	SET peer.connections = CASE
		WHEN p.name IN coalesce(peer.connections, []) THEN peer.connections
		ELSE coalesce(peer.connections, []) + p.name
	END
`

// Persons that already listed this name before it existed get linked back.
const adoptReferencesQuery = `
	MATCH (p:Person {id: $id})
	MATCH (peer:Person)
	WHERE peer.id <> p.id AND p.name IN coalesce(peer.connections, [])
	MERGE (p)-[:KNOWS]-(peer)
	WITH p, collect(peer.name) AS adopted
	SET p.connections = coalesce(p.connections, []) +
		[n IN adopted WHERE NOT n IN coalesce(p.connections, [])]
`

func currentName(ctx context.Context, tx neo4j.ManagedTransaction, id string) (string, bool, error) {
	result, err := tx.Run(ctx, `MATCH (p:Person {id: $id}) RETURN p.name AS name`, map[string]interface{}{"id": id})
	if err != nil {
		return "", false, apperrors.NewGraphQueryFailed("lookup person", err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return "", false, apperrors.NewGraphQueryFailed("lookup person", err)
		}
		return "", false, nil
	}
	return getStringFromRecord(result.Record(), "name"), true, nil
}

func nameTaken(ctx context.Context, tx neo4j.ManagedTransaction, name, exceptID string) (bool, error) {
	result, err := tx.Run(ctx, `
		MATCH (p:Person {name: $name})
		WHERE p.id <> $id
		RETURN count(p) AS total
	`, map[string]interface{}{"name": name, "id": exceptID})
	if err != nil {
		return false, apperrors.NewGraphQueryFailed("check name", err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return false, apperrors.NewGraphQueryFailed("check name", err)
	}
	return getInt64FromRecord(record, "total") > 0, nil
}

func runConsumed(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]interface{}) error {
	result, err := tx.Run(ctx, query, params)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	_, err = result.Consume(ctx)
	return err
}
