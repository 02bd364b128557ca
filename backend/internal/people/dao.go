package people

import (
	"context"

	"go.uber.org/zap"

	"persinteret/backend/internal/constants"
	"persinteret/backend/internal/observability"
	"persinteret/backend/internal/state"
	apperrors "persinteret/backend/pkg/errors"
	"persinteret/backend/pkg/logger"
)

// DAO is the fail-soft facade over Service used by the admin tooling.
// Every failure is logged and answered with a default: an empty list,
// false, zero or "--".
type DAO struct {
	svc    *Service
	logger *zap.Logger
}

// NewDAO creates a new DAO over svc
func NewDAO(svc *Service) *DAO {
	return &DAO{
		svc:    svc,
		logger: logger.Component("dao"),
	}
}

func (d *DAO) fallback(operation string, err error, fields ...zap.Field) {
	observability.FallbacksTotal.WithLabelValues(operation).Inc()
	d.logger.Error("Operation failed, returning default",
		append([]zap.Field{
			zap.String("operation", operation),
			zap.Bool("retryable", apperrors.IsRetryable(err)),
			zap.Error(err),
		}, fields...)...,
	)
}

// GetPeopleList returns up to limit persons sorted by name, filtered on a
// case-insensitive name prefix. Photos are included only when withImage is set.
func (d *DAO) GetPeopleList(ctx context.Context, filterText string, withImage bool, limit int) []state.Person {
	people, err := d.svc.List(ctx, filterText, withImage, limit)
	if err != nil {
		d.fallback("get_people_list", err, zap.String("filter", filterText))
		return []state.Person{}
	}
	return people
}

// Save inserts or updates person and reports success
func (d *DAO) Save(ctx context.Context, person *state.Person) bool {
	if err := d.svc.Save(ctx, person); err != nil {
		d.fallback("save", err, zap.String("person_id", person.ID), zap.String("name", person.Name))
		return false
	}
	return true
}

// Delete removes person and its photo and reports success
func (d *DAO) Delete(ctx context.Context, person *state.Person) bool {
	if err := d.svc.Delete(ctx, person.ID); err != nil {
		d.fallback("delete", err, zap.String("person_id", person.ID))
		return false
	}
	return true
}

// DeleteAll wipes every person and photo and reports success
func (d *DAO) DeleteAll(ctx context.Context) bool {
	if err := d.svc.DeleteAll(ctx); err != nil {
		d.fallback("delete_all", err)
		return false
	}
	return true
}

// GetFreeRatio returns the share of free persons, between 0 and 100
func (d *DAO) GetFreeRatio(ctx context.Context) int {
	ratio, err := d.svc.FreeRatio(ctx)
	if err != nil {
		d.fallback("get_free_ratio", err)
		return 0
	}
	return ratio
}

// GetPhotoCount returns the number of stored photos
func (d *DAO) GetPhotoCount(ctx context.Context) int64 {
	count, err := d.svc.PhotoCount(ctx)
	if err != nil {
		d.fallback("get_photo_count", err)
		return 0
	}
	return count
}

// GetPeopleCount returns the number of persons
func (d *DAO) GetPeopleCount(ctx context.Context) int64 {
	count, err := d.svc.PeopleCount(ctx)
	if err != nil {
		d.fallback("get_people_count", err)
		return 0
	}
	return count
}

// GetYoungestPerson returns the youngest person's name
func (d *DAO) GetYoungestPerson(ctx context.Context) string {
	name, err := d.svc.YoungestPerson(ctx)
	if err != nil {
		d.fallback("get_youngest_person", err)
		return constants.NoName
	}
	return name
}

// GetNextTargetName returns the name of the next person to investigate
func (d *DAO) GetNextTargetName(ctx context.Context) string {
	name, err := d.svc.NextTargetName(ctx)
	if err != nil {
		d.fallback("get_next_target_name", err)
		return constants.NoName
	}
	return name
}

// GetAverageAge returns the rounded mean age
func (d *DAO) GetAverageAge(ctx context.Context) int {
	age, err := d.svc.AverageAge(ctx)
	if err != nil {
		d.fallback("get_average_age", err)
		return 0
	}
	return age
}
