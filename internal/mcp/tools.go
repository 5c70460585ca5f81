package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ayusman/repcoach/internal/store"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// --- Tool definitions ---

var toolGetStatus = mcp.NewTool("get_status",
	mcp.WithDescription("Current coaching status: state (idle, calibrating, ready, active, resting, complete), knee angle, squat depth threshold, current set, rep count, rest countdown and the latest form feedback."),
)

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List recent workouts, newest first, with plan, status, completed sets and total reps."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of workouts to return (1-100). Defaults to 10.")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get one workout and every set completed in it."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout ID as returned by list_workouts")),
)

// --- Handlers ---

func (h *handlers) getStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(h.src.Snapshot())
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

type workoutList struct {
	Workouts []*store.Workout `json:"workouts"`
	Count    int              `json:"count"`
}

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		return mcp.NewToolResultError("limit must be between 1 and 100"), nil
	}

	workouts, err := h.st.Workouts().List(limit)
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if workouts == nil {
		workouts = []*store.Workout{}
	}

	result, err := mcp.NewToolResultJSON(workoutList{Workouts: workouts, Count: len(workouts)})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

type workoutDetail struct {
	*store.Workout
	Sets []store.SetRecord `json:"sets"`
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	w, err := h.st.Workouts().GetByID(id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError("workout not found: " + id), nil
	}
	if err != nil {
		h.log.Error("mcp get_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	sets, err := h.st.Sets().ListByWorkout(id)
	if err != nil {
		h.log.Error("mcp get_workout sets", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if sets == nil {
		sets = []store.SetRecord{}
	}

	result, err := mcp.NewToolResultJSON(workoutDetail{Workout: w, Sets: sets})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
