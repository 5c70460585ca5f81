package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ayusman/repcoach/internal/app"
	"github.com/ayusman/repcoach/internal/server/api"
	"github.com/ayusman/repcoach/internal/workout"
)

// startWorkoutRequest accepts sets and reps as JSON numbers or strings, so
// form input can be posted as typed.
type startWorkoutRequest struct {
	Sets json.RawMessage `json:"sets"`
	Reps json.RawMessage `json:"reps_per_set"`
}

type actionResponse struct {
	Status  app.Snapshot `json:"status"`
	Message string       `json:"message,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, s.config.Coach.Snapshot())
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.config.Coach.Calibrate(r.Context()))
}

func (s *Server) handleCancelCalibration(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.config.Coach.CancelCalibration(r.Context()))
}

// handleStartWorkout starts a workout. An empty body uses the current plan.
func (s *Server) handleStartWorkout(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		plan := s.config.Coach.Snapshot().Plan
		s.respond(w, s.config.Coach.StartWorkout(r.Context(), plan))
		return
	}

	var req startWorkoutRequest
	if err := json.Unmarshal(body, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	s.respond(w, s.config.Coach.StartWorkoutInput(r.Context(), rawText(req.Sets), rawText(req.Reps)))
}

func (s *Server) handleSetPlan(w http.ResponseWriter, r *http.Request) {
	var plan workout.Plan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	s.respond(w, s.config.Coach.SetPlan(r.Context(), plan))
}

// rawText turns a JSON string or number into the text a user would type.
func rawText(raw json.RawMessage) string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return strings.TrimSpace(string(raw))
}

// respond writes the outcome of a control action with the latest status.
func (s *Server) respond(w http.ResponseWriter, err error) {
	resp := actionResponse{Status: s.config.Coach.Snapshot()}
	if err == nil {
		api.WriteJSON(w, http.StatusOK, resp)
		return
	}

	resp.Message = workout.Feedback(err)
	if resp.Message == "" {
		resp.Message = err.Error()
	}
	api.WriteJSON(w, statusFor(err), resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, workout.ErrInvalidNumber), errors.Is(err, workout.ErrNonPositive):
		return http.StatusBadRequest
	case errors.Is(err, workout.ErrNotCalibrated), errors.Is(err, workout.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, app.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
