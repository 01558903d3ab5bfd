// Package domain defines the workout model and the business logic around it.
package domain

import (
	"fmt"
	"time"
)

// WorkoutType tags an exercise with the kind of training it belongs to.
// The set is closed; ValidType rejects anything else at the boundary.
type WorkoutType string

const (
	WorkoutTypeStrength    WorkoutType = "strength"
	WorkoutTypeCardio      WorkoutType = "cardio"
	WorkoutTypeHIIT        WorkoutType = "hiit"
	WorkoutTypeFlexibility WorkoutType = "flexibility"
	WorkoutTypeSports      WorkoutType = "sports"
	WorkoutTypeOther       WorkoutType = "other"
)

// ValidType reports whether t is one of the known workout types.
func ValidType(t WorkoutType) bool {
	switch t {
	case WorkoutTypeStrength, WorkoutTypeCardio, WorkoutTypeHIIT,
		WorkoutTypeFlexibility, WorkoutTypeSports, WorkoutTypeOther:
		return true
	}
	return false
}

// Intensity grades a set's effort level.
type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// Set is one repetition unit within an exercise. Which numeric fields carry
// meaning depends on the owning exercise's WorkoutType; fields left at zero
// contribute zero to aggregation.
type Set struct {
	ID          string    `json:"id"`
	Completed   bool      `json:"completed"`
	Reps        int       `json:"reps,omitempty"`
	WeightKg    float64   `json:"weight,omitempty"`
	DurationSec int       `json:"duration,omitempty"`
	DistanceM   float64   `json:"distance,omitempty"`
	RestSec     int       `json:"rest_time,omitempty"`
	Intensity   Intensity `json:"intensity,omitempty"`
}

// Exercise is one named activity inside a workout.
type Exercise struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Type  WorkoutType `json:"type"`
	Sets  []Set       `json:"sets"`
	Notes string      `json:"notes,omitempty"`
}

// Workout is a single logged session. UserID is immutable after creation and
// UpdatedAt never precedes CreatedAt.
type Workout struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Date        time.Time  `json:"date"`
	Exercises   []Exercise `json:"exercises"`
	DurationMin int        `json:"duration,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// WorkoutPatch carries a partial update. Nil fields are left untouched;
// Exercises replaces the whole sequence when non-nil.
type WorkoutPatch struct {
	Date        *time.Time
	Exercises   []Exercise
	DurationMin *int
	Notes       *string
	UpdatedAt   time.Time
}

// WorkoutStats is the derived aggregate over a user's full history. It is
// never persisted.
type WorkoutStats struct {
	TotalWorkouts          int     `json:"total_workouts"`
	TotalSets              int     `json:"total_sets"`
	TotalReps              int     `json:"total_reps"`
	TotalWeight            float64 `json:"total_weight"`
	AverageWorkoutDuration float64 `json:"average_workout_duration"`
	ThisWeekWorkouts       int     `json:"this_week_workouts"`
	MaxWeight              float64 `json:"max_weight"`
}

// ProgressPoint is one sample of an exercise's progression: the heaviest set
// and the highest rep count logged for that exercise in a single workout.
type ProgressPoint struct {
	Date     time.Time `json:"date"`
	WeightKg float64   `json:"weight"`
	Reps     int       `json:"reps"`
	Exercise string    `json:"exercise"`
}

func validateSet(t WorkoutType, idx int, s Set) error {
	if s.Reps < 0 || s.WeightKg < 0 || s.DurationSec < 0 || s.DistanceM < 0 || s.RestSec < 0 {
		return NewValidationError(fmt.Sprintf("set %d: numeric fields must be non-negative", idx))
	}
	switch s.Intensity {
	case "", IntensityLow, IntensityMedium, IntensityHigh:
	default:
		return NewValidationError(fmt.Sprintf("set %d: unknown intensity %q", idx, s.Intensity))
	}
	// Exhaustive over the closed type set so a new workout type cannot be
	// added without deciding which fields it carries.
	switch t {
	case WorkoutTypeStrength:
	case WorkoutTypeCardio, WorkoutTypeHIIT:
	case WorkoutTypeFlexibility, WorkoutTypeSports, WorkoutTypeOther:
	default:
		return NewValidationError(fmt.Sprintf("set %d: unknown workout type %q", idx, t))
	}
	return nil
}

// ValidateExercise checks an exercise's type, name and sets.
func ValidateExercise(idx int, ex Exercise) error {
	if ex.Name == "" {
		return NewValidationError(fmt.Sprintf("exercise %d: name is required", idx))
	}
	if !ValidType(ex.Type) {
		return NewValidationError(fmt.Sprintf("exercise %d: unknown workout type %q", idx, ex.Type))
	}
	for i, s := range ex.Sets {
		if err := validateSet(ex.Type, i, s); err != nil {
			return err
		}
	}
	return nil
}
