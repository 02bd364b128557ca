// Package people composes the graph store and the photo side store into the
// person-of-interest data-access operations.
package people

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"persinteret/backend/internal/constants"
	"persinteret/backend/internal/observability"
	"persinteret/backend/internal/state"
	apperrors "persinteret/backend/pkg/errors"
	"persinteret/backend/pkg/logger"
)

// photoLoadConcurrency bounds parallel side store reads while listing
const photoLoadConcurrency = 8

// PersonGraph is the graph store as seen by the service.
// *graph.Repository implements it.
type PersonGraph interface {
	ListPeople(ctx context.Context, filter string, limit int) ([]state.Person, error)
	GetPerson(ctx context.Context, id string) (*state.Person, error)
	SavePerson(ctx context.Context, person *state.Person) error
	DeletePerson(ctx context.Context, id string) error
	DeleteAllPeople(ctx context.Context) error
	CountPeople(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status state.Status) (total, matching int64, err error)
	YoungestPersonName(ctx context.Context) (string, error)
	NextTargetName(ctx context.Context, free state.Status, flagged []state.Status) (string, error)
	AverageAge(ctx context.Context) (float64, bool, error)
}

// PhotoStore is the key-value side store. *photo.Store implements it.
type PhotoStore interface {
	Put(ctx context.Context, personID string, data []byte) error
	Get(ctx context.Context, personID string) ([]byte, error)
	Delete(ctx context.Context, personID string) error
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// Options tunes the service
type Options struct {
	// QueryTimeout bounds every operation. Zero disables the bound.
	QueryTimeout time.Duration
	// DefaultListLimit applies when List is called with a non-positive limit.
	DefaultListLimit int
}

// Service runs the person operations and reports failures as errors
type Service struct {
	graph     PersonGraph
	photos    PhotoStore
	timeout   time.Duration
	listLimit int
	logger    *zap.Logger
}

// NewService creates a new person service
func NewService(graph PersonGraph, photos PhotoStore, opts Options) *Service {
	limit := opts.DefaultListLimit
	if limit <= 0 {
		limit = constants.DefaultListLimit
	}
	return &Service{
		graph:     graph,
		photos:    photos,
		timeout:   opts.QueryTimeout,
		listLimit: limit,
		logger:    logger.Component("people"),
	}
}

// run applies the timeout, records metrics and turns deadline overruns into
// ErrContextTimeout.
func (s *Service) run(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	err := fn(ctx)
	observability.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		err = apperrors.NewContextTimeout(operation, s.timeout, err)
	}
	observability.OperationErrorsTotal.WithLabelValues(operation, errorLabel(err)).Inc()
	return err
}

func errorLabel(err error) string {
	for _, t := range []apperrors.ErrorType{
		apperrors.ErrorTypeValidation,
		apperrors.ErrorTypeContext,
		apperrors.ErrorTypeGraph,
		apperrors.ErrorTypePhoto,
	} {
		if apperrors.IsErrorType(err, t) {
			return string(t)
		}
	}
	return "unknown"
}

// List returns persons ordered by name whose name starts with filter
// (case-insensitive). Photos are loaded only when withImage is set.
func (s *Service) List(ctx context.Context, filter string, withImage bool, limit int) ([]state.Person, error) {
	if limit <= 0 {
		limit = s.listLimit
	}

	var people []state.Person
	err := s.run(ctx, "list", func(ctx context.Context) error {
		var err error
		people, err = s.graph.ListPeople(ctx, filter, limit)
		if err != nil || !withImage {
			return err
		}
		return s.loadPhotos(ctx, people)
	})
	if err != nil {
		return nil, err
	}
	return people, nil
}

func (s *Service) loadPhotos(ctx context.Context, people []state.Person) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(photoLoadConcurrency)
	for i := range people {
		p := &people[i]
		g.Go(func() error {
			data, err := s.photos.Get(ctx, p.ID)
			if err != nil {
				return err
			}
			p.Photo = data
			return nil
		})
	}
	return g.Wait()
}

// Get returns a single person, with its photo when withImage is set
func (s *Service) Get(ctx context.Context, id string, withImage bool) (*state.Person, error) {
	if id == "" {
		return nil, apperrors.ErrMissingID
	}

	var person *state.Person
	err := s.run(ctx, "get", func(ctx context.Context) error {
		var err error
		person, err = s.graph.GetPerson(ctx, id)
		if err != nil || !withImage {
			return err
		}
		person.Photo, err = s.photos.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return person, nil
}

// Photo returns the stored photo of a person, or nil
func (s *Service) Photo(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.run(ctx, "photo", func(ctx context.Context) error {
		var err error
		data, err = s.photos.Get(ctx, id)
		return err
	})
	return data, err
}

// Save inserts the person when it has no id and updates it otherwise.
// A non-empty photo replaces the stored one; an empty photo leaves it as is.
// On success person.ID is set.
func (s *Service) Save(ctx context.Context, person *state.Person) error {
	person.Normalize()
	if err := person.Validate(); err != nil {
		return err
	}

	return s.run(ctx, "save", func(ctx context.Context) error {
		if err := s.graph.SavePerson(ctx, person); err != nil {
			return err
		}
		if len(person.Photo) == 0 {
			return nil
		}
		if err := s.photos.Put(ctx, person.ID, person.Photo); err != nil {
			return err
		}
		observability.PhotoBytesWritten.Add(float64(len(person.Photo)))
		return nil
	})
}

// Delete removes a person and its photo. Once the person is gone the photo
// removal is best effort: a failure is logged and counted, not returned.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.ErrMissingID
	}

	return s.run(ctx, "delete", func(ctx context.Context) error {
		if err := s.graph.DeletePerson(ctx, id); err != nil {
			return err
		}
		if err := s.photos.Delete(ctx, id); err != nil {
			observability.OperationErrorsTotal.WithLabelValues("delete_photo", errorLabel(err)).Inc()
			s.logger.Warn("Photo left orphaned after person delete",
				zap.String("person_id", id),
				zap.Error(err),
			)
		}
		return nil
	})
}

// DeleteAll wipes both stores. Both are attempted even if one fails.
func (s *Service) DeleteAll(ctx context.Context) error {
	return s.run(ctx, "delete_all", func(ctx context.Context) error {
		var g errgroup.Group
		g.Go(func() error { return s.photos.DeleteAll(ctx) })
		g.Go(func() error { return s.graph.DeleteAllPeople(ctx) })
		return g.Wait()
	})
}

// FreeRatio returns the percentage (0-100, rounded) of persons who are free
func (s *Service) FreeRatio(ctx context.Context) (int, error) {
	var ratio int
	err := s.run(ctx, "free_ratio", func(ctx context.Context) error {
		total, free, err := s.graph.CountByStatus(ctx, state.StatusFree)
		if err != nil {
			return err
		}
		ratio = percentage(free, total)
		return nil
	})
	return ratio, err
}

func percentage(part, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}

// PhotoCount returns the number of photos in the side store
func (s *Service) PhotoCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.run(ctx, "photo_count", func(ctx context.Context) error {
		var err error
		count, err = s.photos.Count(ctx)
		return err
	})
	return count, err
}

// PeopleCount returns the number of persons
func (s *Service) PeopleCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.run(ctx, "people_count", func(ctx context.Context) error {
		var err error
		count, err = s.graph.CountPeople(ctx)
		return err
	})
	return count, err
}

// YoungestPerson returns the name of the most recently born person, or "--"
func (s *Service) YoungestPerson(ctx context.Context) (string, error) {
	name := constants.NoName
	err := s.run(ctx, "youngest_person", func(ctx context.Context) error {
		found, err := s.graph.YoungestPersonName(ctx)
		if err != nil {
			return err
		}
		if found != "" {
			name = found
		}
		return nil
	})
	return name, err
}

// NextTargetName returns the free person connected to the most missing or
// dead persons, or "--"
func (s *Service) NextTargetName(ctx context.Context) (string, error) {
	name := constants.NoName
	err := s.run(ctx, "next_target", func(ctx context.Context) error {
		found, err := s.graph.NextTargetName(ctx, state.StatusFree, []state.Status{state.StatusMissing, state.StatusDead})
		if err != nil {
			return err
		}
		if found != "" {
			name = found
		}
		return nil
	})
	return name, err
}

// AverageAge returns the mean age rounded to whole years, 0 when nobody exists
func (s *Service) AverageAge(ctx context.Context) (int, error) {
	var age int
	err := s.run(ctx, "average_age", func(ctx context.Context) error {
		avg, ok, err := s.graph.AverageAge(ctx)
		if err != nil {
			return err
		}
		if ok {
			age = int(math.Round(avg))
		}
		return nil
	})
	return age, err
}

// Stats computes every aggregate concurrently
func (s *Service) Stats(ctx context.Context) (*state.Stats, error) {
	stats := &state.Stats{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) { stats.PeopleCount, err = s.PeopleCount(ctx); return })
	g.Go(func() (err error) { stats.PhotoCount, err = s.PhotoCount(ctx); return })
	g.Go(func() (err error) { stats.FreeRatio, err = s.FreeRatio(ctx); return })
	g.Go(func() (err error) { stats.AverageAge, err = s.AverageAge(ctx); return })
	g.Go(func() (err error) { stats.YoungestPerson, err = s.YoungestPerson(ctx); return })
	g.Go(func() (err error) { stats.NextTarget, err = s.NextTargetName(ctx); return })

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
