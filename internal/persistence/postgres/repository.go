// Package postgres provides the remote, Postgres-backed workout store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoangtv090103/flex-track/internal/domain"
	"github.com/hoangtv090103/flex-track/internal/observability"
)

const workoutColumns = `id, user_id, date, exercises, duration_min, notes, created_at, updated_at`

// Repository implements domain.WorkoutStore on top of a pgx pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a workout and returns the database-assigned id.
func (r *Repository) Create(ctx context.Context, w domain.Workout) (string, error) {
	payload, err := json.Marshal(w.Exercises)
	if err != nil {
		return "", domain.NewStorageError("encode exercises", err)
	}

	const stmt = `INSERT INTO workouts (user_id, date, exercises, duration_min, notes, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`

	var id string
	err = r.pool.QueryRow(ctx, stmt,
		w.UserID,
		w.Date,
		payload,
		nullIfZero(w.DurationMin),
		nullIfEmpty(w.Notes),
		w.CreatedAt,
		w.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return "", domain.NewStorageError("insert workout", err)
	}

	observability.RecordWorkoutPersisted(w.UpdatedAt)
	return id, nil
}

// GetByID fetches one workout, (nil, nil) when the id is unknown. An id that
// is not even a UUID cannot name a row, so it reads as absent rather than as
// a backend type error.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Workout, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM workouts WHERE id=$1`, workoutColumns)

	row := r.pool.QueryRow(ctx, query, id)
	w, err := scanWorkout(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.NewStorageError("select workout", err)
	}
	return w, nil
}

// GetByUser returns every workout for a user, newest first. The ordering is
// pushed to the database.
func (r *Repository) GetByUser(ctx context.Context, userID string) ([]domain.Workout, error) {
	query := fmt.Sprintf(`SELECT %s FROM workouts WHERE user_id=$1 ORDER BY date DESC, id DESC`, workoutColumns)

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, domain.NewStorageError("select workouts by user", err)
	}
	defer rows.Close()

	return collectWorkouts(rows)
}

// GetByUserAndDateRange returns the user's workouts with date in
// [start, end], newest first.
func (r *Repository) GetByUserAndDateRange(ctx context.Context, userID string, start, end time.Time) ([]domain.Workout, error) {
	query := fmt.Sprintf(`SELECT %s FROM workouts
        WHERE user_id=$1 AND date >= $2 AND date <= $3
        ORDER BY date DESC, id DESC`, workoutColumns)

	rows, err := r.pool.Query(ctx, query, userID, start, end)
	if err != nil {
		return nil, domain.NewStorageError("select workouts by date range", err)
	}
	defer rows.Close()

	return collectWorkouts(rows)
}

// Update merges the supplied fields into the stored row. Only fields present
// in the patch appear in the SET list; updated_at is always refreshed.
func (r *Repository) Update(ctx context.Context, id string, patch domain.WorkoutPatch) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrWorkoutNotFound
	}

	set := []string{"updated_at=$1"}
	args := []interface{}{patch.UpdatedAt}

	if patch.Date != nil {
		args = append(args, *patch.Date)
		set = append(set, fmt.Sprintf("date=$%d", len(args)))
	}
	if patch.Exercises != nil {
		payload, err := json.Marshal(patch.Exercises)
		if err != nil {
			return domain.NewStorageError("encode exercises", err)
		}
		args = append(args, payload)
		set = append(set, fmt.Sprintf("exercises=$%d", len(args)))
	}
	if patch.DurationMin != nil {
		args = append(args, nullIfZero(*patch.DurationMin))
		set = append(set, fmt.Sprintf("duration_min=$%d", len(args)))
	}
	if patch.Notes != nil {
		args = append(args, nullIfEmpty(*patch.Notes))
		set = append(set, fmt.Sprintf("notes=$%d", len(args)))
	}

	args = append(args, id)
	stmt := fmt.Sprintf("UPDATE workouts SET %s WHERE id=$%d", strings.Join(set, ", "), len(args))

	tag, err := r.pool.Exec(ctx, stmt, args...)
	if err != nil {
		return domain.NewStorageError("update workout", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWorkoutNotFound
	}
	observability.RecordWorkoutPersisted(patch.UpdatedAt)
	return nil
}

// Delete removes a workout by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrWorkoutNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM workouts WHERE id=$1`, id)
	if err != nil {
		return domain.NewStorageError("delete workout", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWorkoutNotFound
	}
	return nil
}

// Probe runs a minimal query against the workouts table. An empty table is a
// healthy table; only a real backend error reads as failure.
func (r *Repository) Probe(ctx context.Context) bool {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM workouts LIMIT 1`).Scan(&count)
	return err == nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkout(row rowScanner) (*domain.Workout, error) {
	var (
		w        domain.Workout
		payload  []byte
		duration *int
		notes    *string
	)
	if err := row.Scan(&w.ID, &w.UserID, &w.Date, &payload, &duration, &notes, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &w.Exercises); err != nil {
		return nil, fmt.Errorf("decode exercises: %w", err)
	}
	if duration != nil {
		w.DurationMin = *duration
	}
	if notes != nil {
		w.Notes = *notes
	}
	return &w, nil
}

func collectWorkouts(rows pgx.Rows) ([]domain.Workout, error) {
	workouts := make([]domain.Workout, 0)
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, domain.NewStorageError("scan workout", err)
		}
		workouts = append(workouts, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("iterate workouts", err)
	}
	return workouts, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func nullIfZero(value int) interface{} {
	if value == 0 {
		return nil
	}
	return value
}
