package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangtv090103/flex-track/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleWorkout(userID string, date time.Time) domain.Workout {
	return domain.Workout{
		UserID: userID,
		Date:   date,
		Exercises: []domain.Exercise{
			{
				ID:   "ex-1",
				Name: "Bench Press",
				Type: domain.WorkoutTypeStrength,
				Sets: []domain.Set{
					{ID: "set-1", Reps: 10, WeightKg: 50, Completed: true},
					{ID: "set-2", Reps: 8, WeightKg: 55},
				},
			},
		},
		DurationMin: 45,
		Notes:       "morning session",
		CreatedAt:   date,
		UpdatedAt:   date,
	}
}

func TestCreateThenGetByIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	date := time.Date(2025, time.February, 1, 7, 30, 0, 0, time.UTC)
	input := sampleWorkout("user-1", date)

	id, err := store.Create(ctx, input)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)

	want := input
	want.ID = id
	assert.Equal(t, want, *got)
}

func TestGetByIDUnknownIDIsAbsentNotError(t *testing.T) {
	store := openTestStore(t)

	got, err := store.GetByID(context.Background(), "no-such-id")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetByUserOrdersByDateDescending(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Date(2025, time.February, 1, 7, 30, 0, 0, time.UTC)

	// Insert out of order on purpose.
	for _, offset := range []int{3, 1, 5} {
		_, err := store.Create(ctx, sampleWorkout("user-1", base.AddDate(0, 0, offset)))
		require.NoError(t, err)
	}

	workouts, err := store.GetByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, workouts, 3)
	assert.True(t, workouts[0].Date.After(workouts[1].Date))
	assert.True(t, workouts[1].Date.After(workouts[2].Date))
}

func TestGetByUserIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	date := time.Date(2025, time.February, 1, 7, 30, 0, 0, time.UTC)

	_, err := store.Create(ctx, sampleWorkout("user-1", date))
	require.NoError(t, err)
	_, err = store.Create(ctx, sampleWorkout("user-2", date))
	require.NoError(t, err)

	workouts, err := store.GetByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, workouts, 1)
	assert.Equal(t, "user-1", workouts[0].UserID)
}

func TestDateRangeBoundsAreInclusive(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Date(2025, time.February, 1, 12, 0, 0, 0, time.UTC)

	for _, offset := range []int{0, 1, 2, 3} {
		_, err := store.Create(ctx, sampleWorkout("user-1", base.AddDate(0, 0, offset)))
		require.NoError(t, err)
	}

	workouts, err := store.GetByUserAndDateRange(ctx, "user-1", base.AddDate(0, 0, 1), base.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, workouts, 2)
	assert.Equal(t, base.AddDate(0, 0, 2), workouts[0].Date)
	assert.Equal(t, base.AddDate(0, 0, 1), workouts[1].Date)
}

// Update and Delete receive only a workout id; the owning partition must be
// resolved through the id index, not skipped.
func TestUpdateByIDAloneResolvesOwner(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	date := time.Date(2025, time.February, 1, 7, 30, 0, 0, time.UTC)

	id, err := store.Create(ctx, sampleWorkout("user-1", date))
	require.NoError(t, err)

	notes := "rewritten"
	duration := 60
	err = store.Update(ctx, id, domain.WorkoutPatch{
		Notes:       &notes,
		DurationMin: &duration,
		UpdatedAt:   date.Add(time.Hour),
	})
	require.NoError(t, err)

	got, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "rewritten", got.Notes)
	assert.Equal(t, 60, got.DurationMin)
	assert.Equal(t, date.Add(time.Hour), got.UpdatedAt)
	// Untouched fields survive the merge.
	assert.Equal(t, date, got.Date)
	assert.Len(t, got.Exercises, 1)
}

func TestUpdateUnknownIDReturnsNotFound(t *testing.T) {
	store := openTestStore(t)

	notes := "x"
	err := store.Update(context.Background(), "missing", domain.WorkoutPatch{Notes: &notes})

	assert.True(t, errors.Is(err, domain.ErrWorkoutNotFound))
}

func TestDeleteRemovesWorkoutAndIndexEntry(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	date := time.Date(2025, time.February, 1, 7, 30, 0, 0, time.UTC)

	id, err := store.Create(ctx, sampleWorkout("user-1", date))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, id))

	got, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.True(t, errors.Is(store.Delete(ctx, id), domain.ErrWorkoutNotFound))
}

func TestProbeRoundTrip(t *testing.T) {
	store := openTestStore(t)

	assert.True(t, store.Probe(context.Background()))
}

func TestProbeAfterCloseReturnsFalse(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.False(t, store.Probe(context.Background()))
}
