package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangtv090103/flex-track/internal/domain"
	"github.com/hoangtv090103/flex-track/internal/persistence/sqlite"
)

// stubStore is a WorkoutStore whose probe outcome is fixed.
type stubStore struct {
	probeOK bool
}

func (s *stubStore) Create(context.Context, domain.Workout) (string, error) { return "id", nil }
func (s *stubStore) GetByID(context.Context, string) (*domain.Workout, error) {
	return nil, nil
}
func (s *stubStore) GetByUser(context.Context, string) ([]domain.Workout, error) {
	return nil, nil
}
func (s *stubStore) Update(context.Context, string, domain.WorkoutPatch) error { return nil }
func (s *stubStore) Delete(context.Context, string) error                      { return nil }
func (s *stubStore) GetByUserAndDateRange(context.Context, string, time.Time, time.Time) ([]domain.Workout, error) {
	return nil, nil
}
func (s *stubStore) Probe(context.Context) bool { return s.probeOK }

func okFactory(store domain.WorkoutStore) StoreFactory {
	return func(context.Context) (domain.WorkoutStore, error) { return store, nil }
}

func TestSelectorPrefersHealthyRemote(t *testing.T) {
	remote := &stubStore{probeOK: true}
	fallback := &stubStore{probeOK: true}

	selector := NewSelector(okFactory(remote), okFactory(fallback))
	store, err := selector.Store(context.Background())

	require.NoError(t, err)
	assert.Same(t, remote, store)
	assert.Equal(t, RepositoryTypePostgres, selector.ActiveRepositoryType())
}

func TestSelectorFallsBackWhenProbeFails(t *testing.T) {
	remote := &stubStore{probeOK: false}
	fallback := &stubStore{probeOK: true}

	selector := NewSelector(okFactory(remote), okFactory(fallback))
	store, err := selector.Store(context.Background())

	require.NoError(t, err)
	assert.Same(t, fallback, store)
	assert.Equal(t, RepositoryTypeSQLite, selector.ActiveRepositoryType())
}

func TestSelectorFallsBackWhenRemoteFactoryFails(t *testing.T) {
	fallback := &stubStore{probeOK: true}
	remoteErr := func(context.Context) (domain.WorkoutStore, error) {
		return nil, errors.New("bad connection string")
	}

	selector := NewSelector(remoteErr, okFactory(fallback))
	store, err := selector.Store(context.Background())

	require.NoError(t, err)
	assert.Same(t, fallback, store)
}

func TestSelectorSwallowsProbePanics(t *testing.T) {
	fallback := &stubStore{probeOK: true}
	remotePanics := func(context.Context) (domain.WorkoutStore, error) {
		panic("driver blew up")
	}

	selector := NewSelector(remotePanics, okFactory(fallback))
	store, err := selector.Store(context.Background())

	require.NoError(t, err)
	assert.Same(t, fallback, store)
}

func TestSelectorSelectionIsSticky(t *testing.T) {
	remoteCalls := 0
	remote := &stubStore{probeOK: true}
	countingRemote := func(context.Context) (domain.WorkoutStore, error) {
		remoteCalls++
		return remote, nil
	}

	selector := NewSelector(countingRemote, okFactory(&stubStore{}))
	_, err := selector.Store(context.Background())
	require.NoError(t, err)
	_, err = selector.Store(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, remoteCalls, "remote must be probed exactly once")
}

func TestSelectorResetForcesReselection(t *testing.T) {
	remoteCalls := 0
	countingRemote := func(context.Context) (domain.WorkoutStore, error) {
		remoteCalls++
		return &stubStore{probeOK: true}, nil
	}

	selector := NewSelector(countingRemote, okFactory(&stubStore{}))
	_, err := selector.Store(context.Background())
	require.NoError(t, err)

	selector.Reset()
	assert.Equal(t, RepositoryType(""), selector.ActiveRepositoryType())

	_, err = selector.Store(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, remoteCalls)
}

// Forcing the probe to fail must leave a fully working store: every CRUD
// operation keeps succeeding against the local fallback.
func TestSelectorFallbackServesFullCRUD(t *testing.T) {
	ctx := context.Background()
	remote := &stubStore{probeOK: false}
	fallbackFactory := func(context.Context) (domain.WorkoutStore, error) {
		return sqlite.Open(":memory:")
	}

	selector := NewSelector(okFactory(remote), fallbackFactory)
	store, err := selector.Store(ctx)
	require.NoError(t, err)
	require.Equal(t, RepositoryTypeSQLite, selector.ActiveRepositoryType())

	now := time.Date(2025, time.March, 3, 18, 0, 0, 0, time.UTC)
	id, err := store.Create(ctx, domain.Workout{
		UserID: "user-1",
		Date:   now,
		Exercises: []domain.Exercise{
			{Name: "Squat", Type: domain.WorkoutTypeStrength, Sets: []domain.Set{{Reps: 5, WeightKg: 80}}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)

	got, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)

	notes := "pr day"
	require.NoError(t, store.Update(ctx, id, domain.WorkoutPatch{Notes: &notes, UpdatedAt: now.Add(time.Minute)}))

	listed, err := store.GetByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "pr day", listed[0].Notes)

	require.NoError(t, store.Delete(ctx, id))
	gone, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
