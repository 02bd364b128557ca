package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"persinteret/backend/internal/state"
	apperrors "persinteret/backend/pkg/errors"
)

// ============================================================================
// Aggregate Operations
// ============================================================================

// CountPeople returns the number of person nodes
func (r *Repository) CountPeople(ctx context.Context) (int64, error) {
	record, err := r.single(ctx, "count people", `MATCH (p:Person) RETURN count(p) AS total`, nil)
	if err != nil {
		return 0, err
	}
	return getInt64FromRecord(record, "total"), nil
}

// CountByStatus returns the total number of persons and how many have the
// given status
func (r *Repository) CountByStatus(ctx context.Context, status state.Status) (total, matching int64, err error) {
	query := `
		MATCH (p:Person)
		RETURN count(p) AS total,
		       sum(CASE WHEN p.status = $status THEN 1 ELSE 0 END) AS matching
	`
	record, err := r.single(ctx, "count by status", query, map[string]interface{}{"status": string(status)})
	if err != nil {
		return 0, 0, err
	}
	return getInt64FromRecord(record, "total"), getInt64FromRecord(record, "matching"), nil
}

// YoungestPersonName returns the name of the person born last, or "" when
// there is nobody. Birth dates are ISO strings so they sort chronologically.
func (r *Repository) YoungestPersonName(ctx context.Context) (string, error) {
	query := `
		MATCH (p:Person)
		WHERE p.dateOfBirth IS NOT NULL
		RETURN p.name AS name
		ORDER BY p.dateOfBirth DESC, p.name ASC
		LIMIT 1
	`
	return r.optionalName(ctx, "youngest person", query, nil)
}

// NextTargetName returns the free person who knows the most persons with one
// of the flagged statuses, or "" when no free person knows any of them.
func (r *Repository) NextTargetName(ctx context.Context, free state.Status, flagged []state.Status) (string, error) {
	statuses := make([]string, 0, len(flagged))
	for _, s := range flagged {
		statuses = append(statuses, string(s))
	}

	query := `
		MATCH (p:Person {status: $free})-[:KNOWS]-(m:Person)
		WHERE m.status IN $statuses
		WITH p, count(DISTINCT m) AS hits
		RETURN p.name AS name
		ORDER BY hits DESC, p.name ASC
		LIMIT 1
	`
	return r.optionalName(ctx, "next target", query, map[string]interface{}{
		"free":     string(free),
		"statuses": statuses,
	})
}

// AverageAge returns the mean age in whole years, and false when nobody has
// a birth date
func (r *Repository) AverageAge(ctx context.Context) (float64, bool, error) {
	query := `
		MATCH (p:Person)
		WHERE p.dateOfBirth IS NOT NULL
		RETURN avg(duration.between(date(p.dateOfBirth), date()).years) AS average
	`
	record, err := r.single(ctx, "average age", query, nil)
	if err != nil {
		return 0, false, err
	}
	avg, ok := getFloat64FromRecord(record, "average")
	return avg, ok, nil
}

func (r *Repository) single(ctx context.Context, operation, query string, params map[string]interface{}) (*neo4j.Record, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed(operation, err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed(operation, err)
	}
	return record, nil
}

func (r *Repository) optionalName(ctx context.Context, operation, query string, params map[string]interface{}) (string, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return "", apperrors.NewGraphQueryFailed(operation, err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return "", apperrors.NewGraphQueryFailed(operation, err)
		}
		return "", nil
	}
	return getStringFromRecord(result.Record(), "name"), nil
}
