package people

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"persinteret/backend/internal/state"
	apperrors "persinteret/backend/pkg/errors"
)

// fakeGraph mirrors the write semantics of the Neo4j repository in memory.
type fakeGraph struct {
	mu     sync.Mutex
	people map[string]*state.Person
	nextID int
	err    error
	delay  time.Duration
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{people: make(map[string]*state.Person)}
}

func (f *fakeGraph) fail(ctx context.Context) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakeGraph) byName(name string) *state.Person {
	for _, p := range f.people {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func without(list []string, name string) []string {
	out := make([]string, 0, len(list))
	for _, n := range list {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

func with(list []string, name string) []string {
	for _, n := range list {
		if n == name {
			return list
		}
	}
	return append(list, name)
}

func (f *fakeGraph) ListPeople(ctx context.Context, filter string, limit int) ([]state.Person, error) {
	if err := f.fail(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := strings.ToLower(filter)
	result := make([]state.Person, 0)
	for _, p := range f.people {
		if strings.HasPrefix(strings.ToLower(p.Name), prefix) {
			cp := *p
			cp.Connections = append([]string{}, p.Connections...)
			result = append(result, cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeGraph) GetPerson(ctx context.Context, id string) (*state.Person, error) {
	if err := f.fail(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.people[id]
	if !ok {
		return nil, apperrors.NewPersonNotFound(id)
	}
	cp := *p
	cp.Connections = append([]string{}, p.Connections...)
	return &cp, nil
}

func (f *fakeGraph) SavePerson(ctx context.Context, person *state.Person) error {
	if err := f.fail(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	id := person.ID
	oldName := ""
	if id == "" {
		f.nextID++
		id = fmt.Sprintf("id-%d", f.nextID)
	} else {
		existing, ok := f.people[id]
		if !ok {
			return apperrors.NewPersonNotFound(id)
		}
		oldName = existing.Name
	}
	if other := f.byName(person.Name); other != nil && other.ID != id {
		return apperrors.NewDuplicateName(person.Name)
	}

	// Former peers forget the old name.
	if oldName != "" {
		for _, peer := range f.people {
			if peer.ID != id {
				peer.Connections = without(peer.Connections, oldName)
			}
		}
	}

	stored := &state.Person{
		ID:          id,
		Name:        person.Name,
		CodeName:    person.CodeName,
		Status:      person.Status,
		DateOfBirth: person.DateOfBirth,
		Connections: person.NormalizedConnections(),
	}
	f.people[id] = stored

	for _, name := range stored.Connections {
		if peer := f.byName(name); peer != nil && peer.ID != id {
			peer.Connections = with(peer.Connections, stored.Name)
		}
	}
	for _, peer := range f.people {
		if peer.ID == id {
			continue
		}
		for _, n := range peer.Connections {
			if n == stored.Name {
				stored.Connections = with(stored.Connections, peer.Name)
			}
		}
	}

	person.ID = id
	person.Connections = append([]string{}, stored.Connections...)
	return nil
}

func (f *fakeGraph) DeletePerson(ctx context.Context, id string) error {
	if err := f.fail(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.people[id]
	if !ok {
		return apperrors.NewPersonNotFound(id)
	}
	delete(f.people, id)
	for _, peer := range f.people {
		peer.Connections = without(peer.Connections, p.Name)
	}
	return nil
}

func (f *fakeGraph) DeleteAllPeople(ctx context.Context) error {
	if err := f.fail(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.people = make(map[string]*state.Person)
	return nil
}

func (f *fakeGraph) CountPeople(ctx context.Context) (int64, error) {
	if err := f.fail(ctx); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.people)), nil
}

func (f *fakeGraph) CountByStatus(ctx context.Context, status state.Status) (int64, int64, error) {
	if err := f.fail(ctx); err != nil {
		return 0, 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var matching int64
	for _, p := range f.people {
		if p.Status == status {
			matching++
		}
	}
	return int64(len(f.people)), matching, nil
}

func (f *fakeGraph) YoungestPersonName(ctx context.Context) (string, error) {
	if err := f.fail(ctx); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	best := ""
	bestDate := ""
	for _, p := range f.people {
		if p.DateOfBirth > bestDate || (p.DateOfBirth == bestDate && p.Name < best) {
			best, bestDate = p.Name, p.DateOfBirth
		}
	}
	return best, nil
}

func (f *fakeGraph) NextTargetName(ctx context.Context, free state.Status, flagged []state.Status) (string, error) {
	if err := f.fail(ctx); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	isFlagged := func(s state.Status) bool {
		for _, fl := range flagged {
			if s == fl {
				return true
			}
		}
		return false
	}

	best, bestHits := "", 0
	for _, p := range f.people {
		if p.Status != free {
			continue
		}
		hits := 0
		for _, name := range p.Connections {
			if peer := f.byName(name); peer != nil && isFlagged(peer.Status) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		if hits > bestHits || (hits == bestHits && p.Name < best) {
			best, bestHits = p.Name, hits
		}
	}
	return best, nil
}

func (f *fakeGraph) AverageAge(ctx context.Context) (float64, bool, error) {
	if err := f.fail(ctx); err != nil {
		return 0, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.people) == 0 {
		return 0, false, nil
	}
	now := time.Now()
	sum := 0
	for _, p := range f.people {
		birth, err := p.BirthDate()
		if err != nil {
			return math.NaN(), false, err
		}
		sum += state.AgeAt(birth, now)
	}
	return float64(sum) / float64(len(f.people)), true, nil
}

// brokenPhotos fails every call.
type brokenPhotos struct{ err error }

func (b brokenPhotos) Put(context.Context, string, []byte) error { return b.err }
func (b brokenPhotos) Get(context.Context, string) ([]byte, error) { return nil, b.err }
func (b brokenPhotos) Delete(context.Context, string) error { return b.err }
func (b brokenPhotos) DeleteAll(context.Context) error { return b.err }
func (b brokenPhotos) Count(context.Context) (int64, error) { return 0, b.err }
