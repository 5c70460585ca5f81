// Package api provides HTTP handlers for workout history.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/repcoach/internal/store"
)

// DefaultListLimit caps GET /api/workouts when no limit is given.
const DefaultListLimit = 50

// WorkoutHandler serves recorded workouts and their sets.
type WorkoutHandler struct {
	store *store.Store
}

// NewWorkoutHandler creates a new WorkoutHandler with the given store.
func NewWorkoutHandler(s *store.Store) *WorkoutHandler {
	return &WorkoutHandler{store: s}
}

// Routes mounts the handler on r. Expected paths are relative to
// /api/workouts.
func (h *WorkoutHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/sets", h.sets)
	r.Delete("/{id}", h.delete)
}

type listWorkoutsResponse struct {
	Workouts []*store.Workout `json:"workouts"`
}

type workoutDetailResponse struct {
	*store.Workout
	Sets []store.SetRecord `json:"sets"`
}

type listSetsResponse struct {
	Sets []store.SetRecord `json:"sets"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/workouts?limit=N, newest first.
func (h *WorkoutHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	workouts, err := h.store.Workouts().List(limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list workouts")
		return
	}
	if workouts == nil {
		workouts = []*store.Workout{}
	}

	WriteJSON(w, http.StatusOK, listWorkoutsResponse{Workouts: workouts})
}

// get handles GET /api/workouts/{id} and includes the completed sets.
func (h *WorkoutHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	workout, err := h.store.Workouts().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Workout not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to get workout")
		return
	}

	sets, err := h.store.Sets().ListByWorkout(id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to get sets")
		return
	}
	if sets == nil {
		sets = []store.SetRecord{}
	}

	WriteJSON(w, http.StatusOK, workoutDetailResponse{Workout: workout, Sets: sets})
}

// sets handles GET /api/workouts/{id}/sets.
func (h *WorkoutHandler) sets(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.store.Workouts().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Workout not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to get workout")
		return
	}

	sets, err := h.store.Sets().ListByWorkout(id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to get sets")
		return
	}
	if sets == nil {
		sets = []store.SetRecord{}
	}

	WriteJSON(w, http.StatusOK, listSetsResponse{Sets: sets})
}

// delete handles DELETE /api/workouts/{id}.
func (h *WorkoutHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.Workouts().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Workout not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to delete workout")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
