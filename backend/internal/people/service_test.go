package people

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persinteret/backend/internal/constants"
	"persinteret/backend/internal/observability"
	"persinteret/backend/internal/photo"
	"persinteret/backend/internal/state"
	apperrors "persinteret/backend/pkg/errors"
)

func newTestService(t *testing.T) (*Service, *fakeGraph, *photo.Store) {
	t.Helper()
	photos, err := photo.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = photos.Close() })

	graph := newFakeGraph()
	return NewService(graph, photos, Options{QueryTimeout: time.Second}), graph, photos
}

func person(name string, status state.Status, dob string, connections ...string) *state.Person {
	return &state.Person{Name: name, Status: status, DateOfBirth: dob, Connections: connections}
}

func mustSave(t *testing.T, svc *Service, p *state.Person) *state.Person {
	t.Helper()
	require.NoError(t, svc.Save(context.Background(), p))
	require.NotEmpty(t, p.ID)
	return p
}

func TestService_SaveAssignsIDAndStoresPhoto(t *testing.T) {
	svc, _, photos := newTestService(t)
	ctx := context.Background()

	p := person("John Reese", state.StatusFree, "1970-05-12")
	p.Photo = []byte("jpeg-bytes")
	mustSave(t, svc, p)

	stored, err := photos.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), stored)

	count, err := svc.PhotoCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestService_UpdateWithoutPhotoKeepsPhoto(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	p := person("Root", state.StatusMissing, "1985-01-01")
	p.Photo = []byte("png")
	mustSave(t, svc, p)

	update := &state.Person{ID: p.ID, Name: "Root", CodeName: "Samantha", Status: state.StatusFree, DateOfBirth: "1985-01-01"}
	require.NoError(t, svc.Save(ctx, update))
	assert.Equal(t, p.ID, update.ID)

	got, err := svc.Get(ctx, p.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "Samantha", got.CodeName)
	assert.Equal(t, state.StatusFree, got.Status)
	assert.Equal(t, []byte("png"), got.Photo)
}

func TestService_SaveRejectsInvalidAndDuplicates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Save(ctx, person("", state.StatusFree, "1970-01-01"))
	assert.True(t, apperrors.IsValidation(err))

	mustSave(t, svc, person("Shaw", state.StatusFree, "1982-03-01"))
	err = svc.Save(ctx, person("Shaw", state.StatusDead, "1990-01-01"))
	var dup *apperrors.ErrDuplicateName
	assert.ErrorAs(t, err, &dup)

	err = svc.Save(ctx, &state.Person{ID: "ghost", Name: "Ghost", Status: state.StatusFree, DateOfBirth: "1990-01-01"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestService_ConnectionsAreBidirectional(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	reese := mustSave(t, svc, person("John Reese", state.StatusFree, "1970-05-12"))
	finch := mustSave(t, svc, person("Harold Finch", state.StatusFree, "1960-01-01", "John Reese"))

	got, err := svc.Get(ctx, reese.ID, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Harold Finch"}, got.Connections)

	finch.Connections = nil
	require.NoError(t, svc.Save(ctx, finch))
	got, err = svc.Get(ctx, reese.ID, false)
	require.NoError(t, err)
	assert.Empty(t, got.Connections)
}

func TestService_SaveTrimsNameBeforeLinking(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	shaw := mustSave(t, svc, person("Sameen Shaw", state.StatusFree, "1982-03-01", "Root"))
	root := mustSave(t, svc, person(" Root ", state.StatusMissing, "1985-01-01", "Root", "Sameen Shaw"))

	assert.Equal(t, "Root", root.Name)
	assert.Equal(t, []string{"Sameen Shaw"}, root.Connections)

	got, err := svc.Get(ctx, shaw.ID, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Root"}, got.Connections)

	err = svc.Save(ctx, person("Root\t", state.StatusFree, "1990-01-01"))
	var dup *apperrors.ErrDuplicateName
	assert.ErrorAs(t, err, &dup)
}

func TestService_List(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	withPhoto := person("Harold Finch", state.StatusFree, "1960-01-01")
	withPhoto.Photo = []byte("finch")
	mustSave(t, svc, withPhoto)
	mustSave(t, svc, person("John Reese", state.StatusFree, "1970-05-12"))
	mustSave(t, svc, person("hersh", state.StatusDead, "1965-07-07"))

	all, err := svc.List(ctx, "", false, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Harold Finch", all[0].Name)
	for _, p := range all {
		assert.Nil(t, p.Photo)
		assert.NotEmpty(t, p.ID)
	}

	filtered, err := svc.List(ctx, "h", true, 10)
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, []byte("finch"), filtered[0].Photo)
	assert.Nil(t, filtered[1].Photo)

	limited, err := svc.List(ctx, "", false, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestService_DeleteRemovesPhoto(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	p := person("Carter", state.StatusDead, "1975-09-09")
	p.Photo = []byte("x")
	mustSave(t, svc, p)

	require.NoError(t, svc.Delete(ctx, p.ID))

	count, err := svc.PhotoCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	assert.ErrorIs(t, svc.Delete(ctx, ""), apperrors.ErrMissingID)
	assert.True(t, apperrors.IsNotFound(svc.Delete(ctx, p.ID)))
}

func TestService_DeleteAll(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		p := person(name, state.StatusFree, "1990-01-01")
		p.Photo = []byte(name)
		mustSave(t, svc, p)
	}

	require.NoError(t, svc.DeleteAll(ctx))

	people, err := svc.PeopleCount(ctx)
	require.NoError(t, err)
	photos, err := svc.PhotoCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, people)
	assert.Zero(t, photos)
}

func TestService_EmptyAggregates(t *testing.T) {
	svc, _, _ := newTestService(t)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &state.Stats{
		YoungestPerson: constants.NoName,
		NextTarget:     constants.NoName,
	}, stats)
}

func TestService_Aggregates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	mustSave(t, svc, person("Dead One", state.StatusDead, "1950-01-01"))
	mustSave(t, svc, person("Missing One", state.StatusMissing, "1960-01-01"))
	mustSave(t, svc, person("Free A", state.StatusFree, "2000-01-01", "Dead One", "Missing One"))
	mustSave(t, svc, person("Free B", state.StatusFree, "1990-01-01", "Dead One"))
	mustSave(t, svc, person("Free C", state.StatusFree, "1980-01-01"))
	mustSave(t, svc, person("Dead Two", state.StatusDead, "1940-01-01"))

	ratio, err := svc.FreeRatio(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, ratio)

	youngest, err := svc.YoungestPerson(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Free A", youngest)

	target, err := svc.NextTargetName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Free A", target)

	now := time.Now()
	sum := 0
	for _, dob := range []string{"1950-01-01", "1960-01-01", "2000-01-01", "1990-01-01", "1980-01-01", "1940-01-01"} {
		birth, _ := time.Parse(constants.DateLayout, dob)
		sum += state.AgeAt(birth, now)
	}
	age, err := svc.AverageAge(ctx)
	require.NoError(t, err)
	assert.InDelta(t, float64(sum)/6, float64(age), 0.5)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.PeopleCount)
	assert.Equal(t, 50, stats.FreeRatio)
	assert.Equal(t, "Free A", stats.NextTarget)
}

func TestService_AggregateTiesBreakByName(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	mustSave(t, svc, person("Dead One", state.StatusDead, "1950-01-01"))
	mustSave(t, svc, person("Dead Two", state.StatusDead, "1951-01-01"))
	mustSave(t, svc, person("Zoe Morgan", state.StatusFree, "1990-06-06", "Dead One"))
	mustSave(t, svc, person("Bear", state.StatusFree, "1990-06-06", "Dead Two"))

	target, err := svc.NextTargetName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bear", target)

	youngest, err := svc.YoungestPerson(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bear", youngest)
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, percentage(0, 0))
	assert.Equal(t, 33, percentage(1, 3))
	assert.Equal(t, 67, percentage(2, 3))
	assert.Equal(t, 100, percentage(4, 4))
}

func TestService_Timeout(t *testing.T) {
	photos, err := photo.OpenInMemory()
	require.NoError(t, err)
	defer photos.Close()

	graph := newFakeGraph()
	graph.delay = time.Second
	svc := NewService(graph, photos, Options{QueryTimeout: 20 * time.Millisecond})

	_, err = svc.PeopleCount(context.Background())
	var timeout *apperrors.ErrContextTimeout
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "people_count", timeout.Operation)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestService_PhotoFailureSurfaces(t *testing.T) {
	boom := apperrors.NewPhotoStoreFailed("get", "", errors.New("disk gone"))
	svc := NewService(newFakeGraph(), brokenPhotos{err: boom}, Options{})
	ctx := context.Background()

	p := person("Fusco", state.StatusFree, "1968-04-04")
	p.Photo = []byte("x")
	err := svc.Save(ctx, p)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypePhoto))

	_, err = svc.List(ctx, "", true, 10)
	assert.ErrorIs(t, err, boom)

	_, err = svc.List(ctx, "", false, 10)
	assert.NoError(t, err)
}

func TestService_DeleteSucceedsWhenPhotoCleanupFails(t *testing.T) {
	graph := newFakeGraph()
	boom := apperrors.NewPhotoStoreFailed("delete", "", errors.New("disk gone"))
	svc := NewService(graph, brokenPhotos{err: boom}, Options{})
	ctx := context.Background()

	p := mustSave(t, svc, person("Fusco", state.StatusFree, "1968-04-04"))
	before := testutil.ToFloat64(observability.OperationErrorsTotal.WithLabelValues("delete_photo", "photo"))

	require.NoError(t, svc.Delete(ctx, p.ID))

	_, err := graph.GetPerson(ctx, p.ID)
	assert.True(t, apperrors.IsNotFound(err))
	after := testutil.ToFloat64(observability.OperationErrorsTotal.WithLabelValues("delete_photo", "photo"))
	assert.Equal(t, before+1, after)
}
