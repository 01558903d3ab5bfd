// Package api exposes the HTTP surface of the workout service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hoangtv090103/flex-track/internal/auth"
	"github.com/hoangtv090103/flex-track/internal/domain"
	"github.com/hoangtv090103/flex-track/internal/persistence"
)

// Handler coordinates HTTP requests with the workout service.
type Handler struct {
	service  *domain.Service
	selector *persistence.Selector
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, selector *persistence.Selector) *Handler {
	return &Handler{service: service, selector: selector}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/workouts", h.workouts)
	mux.HandleFunc("/v1/workouts/", h.workoutByID)
	mux.HandleFunc("/v1/workouts/stats", h.workoutStats)
	mux.HandleFunc("/v1/workouts/progress", h.workoutProgress)
	mux.HandleFunc("/v1/storage", h.storageStatus)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) workouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createWorkout(w, r)
	case http.MethodGet:
		h.listWorkouts(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) workoutByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/workouts/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing workout id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getWorkout(w, r, id)
	case http.MethodPut:
		h.updateWorkout(w, r, id)
	case http.MethodDelete:
		h.deleteWorkout(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createWorkout(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireScope(w, r, auth.ScopeWorkoutsWrite); !ok {
		return
	}

	var req SaveWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	id, err := h.service.SaveWorkout(r.Context(), domain.CreateWorkoutInput{
		Date:        req.Date,
		Exercises:   req.Exercises,
		DurationMin: req.DurationMin,
		Notes:       req.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SaveWorkoutResponse{WorkoutID: id})
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeWorkoutsRead, auth.ScopeWorkoutsWrite)
	if !ok {
		return
	}

	var (
		workouts []domain.Workout
		err      error
	)
	from, to, rangeErr := parseDateRange(r)
	if rangeErr != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", rangeErr.Error())
		return
	}
	if from != nil && to != nil {
		workouts, err = h.service.WorkoutsByDateRange(r.Context(), claims.Subject, *from, *to)
	} else {
		workouts, err = h.service.UserWorkouts(r.Context(), claims.Subject)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ListWorkoutsResponse{Items: workouts})
}

func (h *Handler) getWorkout(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := requireScope(w, r, auth.ScopeWorkoutsRead, auth.ScopeWorkoutsWrite); !ok {
		return
	}

	workout, err := h.service.WorkoutByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

func (h *Handler) updateWorkout(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := requireScope(w, r, auth.ScopeWorkoutsWrite); !ok {
		return
	}

	var req UpdateWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	err := h.service.UpdateWorkout(r.Context(), id, domain.WorkoutPatch{
		Date:        req.Date,
		Exercises:   req.Exercises,
		DurationMin: req.DurationMin,
		Notes:       req.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteWorkout(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := requireScope(w, r, auth.ScopeWorkoutsWrite); !ok {
		return
	}

	if err := h.service.DeleteWorkout(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) workoutStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeWorkoutsRead, auth.ScopeWorkoutsWrite)
	if !ok {
		return
	}

	stats, err := h.service.Stats(r.Context(), claims.Subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) workoutProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeWorkoutsRead, auth.ScopeWorkoutsWrite)
	if !ok {
		return
	}

	exercise := r.URL.Query().Get("exercise")
	points, err := h.service.Progress(r.Context(), claims.Subject, exercise)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProgressResponse{Points: points})
}

// storageStatus reports which backend is active and whether it currently
// answers its probe.
func (h *Handler) storageStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if _, ok := requireScope(w, r, auth.ScopeWorkoutsRead, auth.ScopeWorkoutsWrite); !ok {
		return
	}

	writeJSON(w, http.StatusOK, StorageStatusResponse{
		Backend:   string(h.selector.ActiveRepositoryType()),
		Connected: h.service.TestConnection(r.Context()),
	})
}

func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return claims, true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "insufficient scope")
	return nil, false
}

func parseDateRange(r *http.Request) (*time.Time, *time.Time, error) {
	fromRaw := r.URL.Query().Get("from")
	toRaw := r.URL.Query().Get("to")
	if fromRaw == "" && toRaw == "" {
		return nil, nil, nil
	}
	if fromRaw == "" || toRaw == "" {
		return nil, nil, errors.New("from and to must be supplied together")
	}
	from, err := time.Parse(time.RFC3339, fromRaw)
	if err != nil {
		return nil, nil, errors.New("from must be an RFC 3339 timestamp")
	}
	to, err := time.Parse(time.RFC3339, toRaw)
	if err != nil {
		return nil, nil, errors.New("to must be an RFC 3339 timestamp")
	}
	return &from, &to, nil
}

// SaveWorkoutRequest is the payload for POST /v1/workouts.
type SaveWorkoutRequest struct {
	Date        time.Time         `json:"date"`
	Exercises   []domain.Exercise `json:"exercises"`
	DurationMin int               `json:"duration,omitempty"`
	Notes       string            `json:"notes,omitempty"`
}

// SaveWorkoutResponse describes the response body for create.
type SaveWorkoutResponse struct {
	WorkoutID string `json:"workout_id"`
}

// UpdateWorkoutRequest is the payload for PUT /v1/workouts/{id}. Absent
// fields are left untouched.
type UpdateWorkoutRequest struct {
	Date        *time.Time        `json:"date,omitempty"`
	Exercises   []domain.Exercise `json:"exercises,omitempty"`
	DurationMin *int              `json:"duration,omitempty"`
	Notes       *string           `json:"notes,omitempty"`
}

// ListWorkoutsResponse packages list results, newest first.
type ListWorkoutsResponse struct {
	Items []domain.Workout `json:"items"`
}

// ProgressResponse packages the progression series, oldest first.
type ProgressResponse struct {
	Points []domain.ProgressPoint `json:"points"`
}

// StorageStatusResponse reports persistence diagnostics.
type StorageStatusResponse struct {
	Backend   string `json:"backend"`
	Connected bool   `json:"connected"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "workout belongs to another user")
	case errors.Is(err, domain.ErrWorkoutNotFound):
		writeError(w, http.StatusNotFound, "not_found", "workout not found")
	case domain.IsStorage(err):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
