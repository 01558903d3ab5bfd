package domain

import (
	"context"
	"time"
)

// WorkoutStore captures the persistence operations the service depends on.
// GetByID returns (nil, nil) when the id is unknown; a missing record is a
// result, not an error, at this level.
type WorkoutStore interface {
	Create(ctx context.Context, w Workout) (string, error)
	GetByID(ctx context.Context, id string) (*Workout, error)
	GetByUser(ctx context.Context, userID string) ([]Workout, error)
	Update(ctx context.Context, id string, patch WorkoutPatch) error
	Delete(ctx context.Context, id string) error
	GetByUserAndDateRange(ctx context.Context, userID string, start, end time.Time) ([]Workout, error)
	Probe(ctx context.Context) bool
}

// AuthProvider exposes the identity of the calling user. Credential and
// session handling live entirely outside this module.
type AuthProvider interface {
	CurrentUserID(ctx context.Context) (string, bool)
	IsAuthenticated(ctx context.Context) bool
}

// Service orchestrates workout workflows: validation, ownership and
// timestamping around the selected store.
type Service struct {
	store WorkoutStore
	auth  AuthProvider
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(store WorkoutStore, auth AuthProvider) *Service {
	return &Service{store: store, auth: auth, now: time.Now}
}

// CreateWorkoutInput carries the payload for SaveWorkout. CreatedAt may be
// supplied by importers replaying history; when zero it is stamped to now.
type CreateWorkoutInput struct {
	Date        time.Time
	Exercises   []Exercise
	DurationMin int
	Notes       string
	CreatedAt   time.Time
}

// SaveWorkout validates the payload, stamps ownership and timestamps, and
// persists the workout. Returns the store-assigned id.
func (s *Service) SaveWorkout(ctx context.Context, input CreateWorkoutInput) (string, error) {
	userID, ok := s.auth.CurrentUserID(ctx)
	if !ok {
		return "", ErrNotAuthenticated
	}
	if len(input.Exercises) == 0 {
		return "", NewValidationError("workout must have at least one exercise")
	}
	for i, ex := range input.Exercises {
		if err := ValidateExercise(i, ex); err != nil {
			return "", err
		}
	}
	if input.DurationMin < 0 {
		return "", NewValidationError("duration must be non-negative")
	}

	now := s.now().UTC()
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	date := input.Date
	if date.IsZero() {
		date = now
	}

	workout := Workout{
		UserID:      userID,
		Date:        date.UTC(),
		Exercises:   input.Exercises,
		DurationMin: input.DurationMin,
		Notes:       input.Notes,
		CreatedAt:   createdAt,
		UpdatedAt:   now,
	}
	return s.store.Create(ctx, workout)
}

// UserWorkouts returns the user's full history, newest first.
func (s *Service) UserWorkouts(ctx context.Context, userID string) ([]Workout, error) {
	if userID == "" {
		return nil, NewValidationError("user id is required")
	}
	return s.store.GetByUser(ctx, userID)
}

// WorkoutByID fetches a single workout. Ownership is enforced here, not left
// to callers: a workout owned by someone else reads as ErrForbidden.
func (s *Service) WorkoutByID(ctx context.Context, id string) (*Workout, error) {
	if id == "" {
		return nil, NewValidationError("workout id is required")
	}
	return s.ownedWorkout(ctx, id)
}

// UpdateWorkout merges the supplied fields into the stored workout after the
// ownership check. UpdatedAt is always refreshed.
func (s *Service) UpdateWorkout(ctx context.Context, id string, patch WorkoutPatch) error {
	if id == "" {
		return NewValidationError("workout id is required")
	}
	if patch.Exercises != nil {
		if len(patch.Exercises) == 0 {
			return NewValidationError("workout must have at least one exercise")
		}
		for i, ex := range patch.Exercises {
			if err := ValidateExercise(i, ex); err != nil {
				return err
			}
		}
	}
	if patch.DurationMin != nil && *patch.DurationMin < 0 {
		return NewValidationError("duration must be non-negative")
	}
	if _, err := s.ownedWorkout(ctx, id); err != nil {
		return err
	}
	patch.UpdatedAt = s.now().UTC()
	return s.store.Update(ctx, id, patch)
}

// DeleteWorkout removes a workout after the ownership check.
func (s *Service) DeleteWorkout(ctx context.Context, id string) error {
	if id == "" {
		return NewValidationError("workout id is required")
	}
	if _, err := s.ownedWorkout(ctx, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// WorkoutsByDateRange returns the user's workouts with Date in [start, end],
// newest first.
func (s *Service) WorkoutsByDateRange(ctx context.Context, userID string, start, end time.Time) ([]Workout, error) {
	if userID == "" {
		return nil, NewValidationError("user id is required")
	}
	if start.After(end) {
		return nil, NewValidationError("start date must not be after end date")
	}
	return s.store.GetByUserAndDateRange(ctx, userID, start, end)
}

// Stats aggregates the user's full history into a WorkoutStats.
func (s *Service) Stats(ctx context.Context, userID string) (WorkoutStats, error) {
	workouts, err := s.UserWorkouts(ctx, userID)
	if err != nil {
		return WorkoutStats{}, err
	}
	return ComputeStats(workouts, s.now()), nil
}

// Progress returns the chronological progression series for one exercise.
func (s *Service) Progress(ctx context.Context, userID, exercise string) ([]ProgressPoint, error) {
	if exercise == "" {
		return nil, NewValidationError("exercise name is required")
	}
	workouts, err := s.UserWorkouts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ComputeProgress(workouts, exercise), nil
}

// TestConnection reports whether the backing store answers its probe.
func (s *Service) TestConnection(ctx context.Context) bool {
	return s.store.Probe(ctx)
}

func (s *Service) ownedWorkout(ctx context.Context, id string) (*Workout, error) {
	userID, ok := s.auth.CurrentUserID(ctx)
	if !ok {
		return nil, ErrNotAuthenticated
	}
	workout, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if workout == nil {
		return nil, ErrWorkoutNotFound
	}
	if workout.UserID != userID {
		return nil, ErrForbidden
	}
	return workout, nil
}
