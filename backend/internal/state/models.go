package state

import (
	"strings"
	"time"

	"persinteret/backend/internal/constants"
	apperrors "persinteret/backend/pkg/errors"
)

// Status is the standing of a person of interest
type Status string

const (
	StatusFree    Status = "free"
	StatusMissing Status = "missing"
	StatusDead    Status = "dead"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusFree, StatusMissing, StatusDead:
		return true
	}
	return false
}

// Person is a person of interest.
// Connections hold acquaintance names; the relation is symmetric.
// Photo lives in the side store and is nil unless explicitly loaded.
type Person struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	CodeName    string   `json:"code_name,omitempty"`
	Status      Status   `json:"status"`
	DateOfBirth string   `json:"date_of_birth"`
	Connections []string `json:"connections"`
	Photo       []byte   `json:"photo,omitempty"`
}

// Stats groups every aggregate computed over the stores
type Stats struct {
	PeopleCount    int64  `json:"people_count"`
	PhotoCount     int64  `json:"photo_count"`
	FreeRatio      int    `json:"free_ratio"`
	AverageAge     int    `json:"average_age"`
	YoungestPerson string `json:"youngest_person"`
	NextTarget     string `json:"next_target"`
}

// Normalize trims the text fields that are matched by value, so that a name
// compares equal to the connection entries of its peers.
func (p *Person) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.CodeName = strings.TrimSpace(p.CodeName)
	p.DateOfBirth = strings.TrimSpace(p.DateOfBirth)
}

// Validate checks the required fields of a person before it is written
func (p *Person) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperrors.NewInvalidPerson("name", "is required")
	}
	if !p.Status.Valid() {
		return apperrors.NewInvalidPerson("status", "must be one of free, missing, dead")
	}
	if _, err := p.BirthDate(); err != nil {
		return apperrors.NewInvalidPerson("date_of_birth", "must be a YYYY-MM-DD date")
	}
	return nil
}

// BirthDate parses DateOfBirth
func (p *Person) BirthDate() (time.Time, error) {
	return time.Parse(constants.DateLayout, p.DateOfBirth)
}

// NormalizedConnections returns the connection names trimmed, deduplicated
// and without the person's own name, preserving the caller's order.
func (p *Person) NormalizedConnections() []string {
	self := strings.TrimSpace(p.Name)
	seen := make(map[string]struct{}, len(p.Connections))
	result := make([]string, 0, len(p.Connections))
	for _, name := range p.Connections {
		name = strings.TrimSpace(name)
		if name == "" || name == self {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	return result
}

// AgeAt returns the whole years between a birth date and now
func AgeAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}
