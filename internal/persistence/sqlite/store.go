// Package sqlite provides the local fallback workout store. Data lives in a
// single SQLite file: one row per user holding that user's workouts as a
// serialized JSON list, plus an id index so lookups that only carry a workout
// id can resolve the owning partition without scanning.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hoangtv090103/flex-track/internal/domain"
	"github.com/hoangtv090103/flex-track/internal/observability"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS workout_lists (
		user_id TEXT PRIMARY KEY,
		payload TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS workout_index (
		workout_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS probe_scratch (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL
	)`,
}

// Store implements domain.WorkoutStore on an embedded SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the database at path and prepares the
// schema. Path ":memory:" yields an in-memory database for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("preparing schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create appends the workout to its owner's list and records the id in the
// index. The store assigns the id.
func (s *Store) Create(ctx context.Context, w domain.Workout) (string, error) {
	w.ID = uuid.NewString()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		workouts, err := loadList(ctx, tx, w.UserID)
		if err != nil {
			return err
		}
		workouts = append(workouts, w)
		if err := saveList(ctx, tx, w.UserID, workouts); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO workout_index (workout_id, user_id) VALUES (?, ?)`,
			w.ID, w.UserID)
		return err
	})
	if err != nil {
		return "", domain.NewStorageError("insert workout", err)
	}

	observability.RecordWorkoutPersisted(w.UpdatedAt)
	return w.ID, nil
}

// GetByID resolves the owner through the index, then scans that user's list.
// Returns (nil, nil) for an unknown id.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.Workout, error) {
	var found *domain.Workout
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		userID, err := ownerOf(ctx, tx, id)
		if err != nil || userID == "" {
			return err
		}
		workouts, err := loadList(ctx, tx, userID)
		if err != nil {
			return err
		}
		for i := range workouts {
			if workouts[i].ID == id {
				found = &workouts[i]
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewStorageError("select workout", err)
	}
	return found, nil
}

// GetByUser returns the user's workouts, newest first.
func (s *Store) GetByUser(ctx context.Context, userID string) ([]domain.Workout, error) {
	var workouts []domain.Workout
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		workouts, err = loadList(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, domain.NewStorageError("select workouts by user", err)
	}

	sortByDateDesc(workouts)
	return workouts, nil
}

// GetByUserAndDateRange filters GetByUser to dates within [start, end].
func (s *Store) GetByUserAndDateRange(ctx context.Context, userID string, start, end time.Time) ([]domain.Workout, error) {
	workouts, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	filtered := workouts[:0]
	for _, w := range workouts {
		if w.Date.Before(start) || w.Date.After(end) {
			continue
		}
		filtered = append(filtered, w)
	}
	return filtered, nil
}

// Update merges the patch into the stored workout. The id alone is enough:
// the owner comes from the index.
func (s *Store) Update(ctx context.Context, id string, patch domain.WorkoutPatch) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		userID, err := ownerOf(ctx, tx, id)
		if err != nil {
			return err
		}
		if userID == "" {
			return domain.ErrWorkoutNotFound
		}
		workouts, err := loadList(ctx, tx, userID)
		if err != nil {
			return err
		}
		idx := indexOf(workouts, id)
		if idx < 0 {
			return domain.ErrWorkoutNotFound
		}
		applyPatch(&workouts[idx], patch)
		return saveList(ctx, tx, userID, workouts)
	})
	if err != nil {
		if errors.Is(err, domain.ErrWorkoutNotFound) {
			return domain.ErrWorkoutNotFound
		}
		return domain.NewStorageError("update workout", err)
	}

	observability.RecordWorkoutPersisted(patch.UpdatedAt)
	return nil
}

// Delete removes the workout from its owner's list and drops the index row.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		userID, err := ownerOf(ctx, tx, id)
		if err != nil {
			return err
		}
		if userID == "" {
			return domain.ErrWorkoutNotFound
		}
		workouts, err := loadList(ctx, tx, userID)
		if err != nil {
			return err
		}
		idx := indexOf(workouts, id)
		if idx < 0 {
			return domain.ErrWorkoutNotFound
		}
		workouts = append(workouts[:idx], workouts[idx+1:]...)
		if err := saveList(ctx, tx, userID, workouts); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM workout_index WHERE workout_id = ?`, id)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrWorkoutNotFound) {
			return domain.ErrWorkoutNotFound
		}
		return domain.NewStorageError("delete workout", err)
	}
	return nil
}

// Probe confirms the storage medium is writable with a write-then-delete
// round trip. It never panics and never returns an error.
func (s *Store) Probe(ctx context.Context) bool {
	key := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO probe_scratch (k, v) VALUES (?, ?)`, key, "ok"); err != nil {
		return false
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM probe_scratch WHERE k = ?`, key)
	return err == nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func ownerOf(ctx context.Context, tx *sql.Tx, id string) (string, error) {
	var userID string
	err := tx.QueryRowContext(ctx,
		`SELECT user_id FROM workout_index WHERE workout_id = ?`, id).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolving workout owner: %w", err)
	}
	return userID, nil
}

func loadList(ctx context.Context, tx *sql.Tx, userID string) ([]domain.Workout, error) {
	var payload string
	err := tx.QueryRowContext(ctx,
		`SELECT payload FROM workout_lists WHERE user_id = ?`, userID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading workout list: %w", err)
	}

	var workouts []domain.Workout
	if err := json.Unmarshal([]byte(payload), &workouts); err != nil {
		return nil, fmt.Errorf("decoding workout list: %w", err)
	}
	return workouts, nil
}

func saveList(ctx context.Context, tx *sql.Tx, userID string, workouts []domain.Workout) error {
	payload, err := json.Marshal(workouts)
	if err != nil {
		return fmt.Errorf("encoding workout list: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO workout_lists (user_id, payload) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET payload = excluded.payload`,
		userID, string(payload))
	if err != nil {
		return fmt.Errorf("writing workout list: %w", err)
	}
	return nil
}

func indexOf(workouts []domain.Workout, id string) int {
	for i := range workouts {
		if workouts[i].ID == id {
			return i
		}
	}
	return -1
}

func applyPatch(w *domain.Workout, patch domain.WorkoutPatch) {
	if patch.Date != nil {
		w.Date = *patch.Date
	}
	if patch.Exercises != nil {
		w.Exercises = patch.Exercises
	}
	if patch.DurationMin != nil {
		w.DurationMin = *patch.DurationMin
	}
	if patch.Notes != nil {
		w.Notes = *patch.Notes
	}
	w.UpdatedAt = patch.UpdatedAt
}

func sortByDateDesc(workouts []domain.Workout) {
	sort.SliceStable(workouts, func(i, j int) bool {
		return workouts[i].Date.After(workouts[j].Date)
	})
}
