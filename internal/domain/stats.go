package domain

import (
	"sort"
	"strings"
	"time"
)

// ComputeStats folds a user's workout history into a WorkoutStats in a single
// pass. It is pure: no I/O, no mutation of the input.
func ComputeStats(workouts []Workout, now time.Time) WorkoutStats {
	stats := WorkoutStats{TotalWorkouts: len(workouts)}

	oneWeekAgo := now.AddDate(0, 0, -7)
	totalDuration := 0

	for _, w := range workouts {
		if w.DurationMin > 0 {
			totalDuration += w.DurationMin
		}
		if !w.Date.Before(oneWeekAgo) {
			stats.ThisWeekWorkouts++
		}
		for _, ex := range w.Exercises {
			stats.TotalSets += len(ex.Sets)
			for _, s := range ex.Sets {
				stats.TotalReps += s.Reps
				stats.TotalWeight += float64(s.Reps) * s.WeightKg
				if s.WeightKg > stats.MaxWeight {
					stats.MaxWeight = s.WeightKg
				}
			}
		}
	}

	if len(workouts) > 0 {
		stats.AverageWorkoutDuration = float64(totalDuration) / float64(len(workouts))
	}
	return stats
}

// ComputeProgress builds the progression series for one exercise. For each
// workout the first exercise whose name contains the target
// (case-insensitive) contributes one point with that workout's best weight
// and best rep count. Points are ordered oldest first so the series reads
// chronologically, the opposite of the store's newest-first listing.
func ComputeProgress(workouts []Workout, exercise string) []ProgressPoint {
	target := strings.ToLower(exercise)
	points := make([]ProgressPoint, 0, len(workouts))

	for _, w := range workouts {
		ex, ok := firstMatch(w.Exercises, target)
		if !ok || len(ex.Sets) == 0 {
			continue
		}

		var maxWeight float64
		var maxReps int
		for _, s := range ex.Sets {
			if s.WeightKg > maxWeight {
				maxWeight = s.WeightKg
			}
			if s.Reps > maxReps {
				maxReps = s.Reps
			}
		}

		points = append(points, ProgressPoint{
			Date:     w.Date,
			WeightKg: maxWeight,
			Reps:     maxReps,
			Exercise: ex.Name,
		})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}

func firstMatch(exercises []Exercise, target string) (Exercise, bool) {
	for _, ex := range exercises {
		if strings.Contains(strings.ToLower(ex.Name), target) {
			return ex, true
		}
	}
	return Exercise{}, false
}
