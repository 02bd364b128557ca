package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"persinteret/backend/internal/state"
)

// ============================================================================
// Helper Functions
// ============================================================================

// personReturn is the projection every person read shares
const personReturn = `
	p.id AS id,
	p.name AS name,
	p.codeName AS codeName,
	p.status AS status,
	p.dateOfBirth AS dateOfBirth,
	coalesce(p.connections, []) AS connections`

func personFromRecord(record *neo4j.Record) state.Person {
	return state.Person{
		ID:          getStringFromRecord(record, "id"),
		Name:        getStringFromRecord(record, "name"),
		CodeName:    getStringFromRecord(record, "codeName"),
		Status:      state.Status(getStringFromRecord(record, "status")),
		DateOfBirth: getStringFromRecord(record, "dateOfBirth"),
		Connections: getStringSliceFromRecord(record, "connections"),
	}
}

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getInt64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return i
	}
	if i, ok := val.(int); ok {
		return int64(i)
	}
	if f, ok := val.(float64); ok {
		return int64(f)
	}
	return 0
}

// getFloat64FromRecord reports false when the value is null, which is what
// Cypher aggregates such as avg() return over an empty match.
func getFloat64FromRecord(record *neo4j.Record, key string) (float64, bool) {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0, false
	}
	if f, ok := val.(float64); ok {
		return f, true
	}
	if i, ok := val.(int64); ok {
		return float64(i), true
	}
	return 0, false
}

func getStringSliceFromRecord(record *neo4j.Record, key string) []string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return []string{}
	}
	if slice, ok := val.([]interface{}); ok {
		result := make([]string, 0, len(slice))
		for _, v := range slice {
			if str, ok := v.(string); ok {
				result = append(result, str)
			}
		}
		return result
	}
	if slice, ok := val.([]string); ok {
		return append([]string{}, slice...)
	}
	return []string{}
}
