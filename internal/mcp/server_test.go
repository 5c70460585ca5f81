package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ayusman/repcoach/internal/app"
	"github.com/ayusman/repcoach/internal/store"
	"github.com/ayusman/repcoach/internal/workout"
)

type fixedStatus struct {
	snap app.Snapshot
}

func (f fixedStatus) Snapshot() app.Snapshot { return f.snap }

func newHandlers(t *testing.T) *handlers {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	src := fixedStatus{snap: app.Snapshot{
		Status: workout.Status{
			State:      workout.StateActive,
			Plan:       workout.Plan{Sets: 3, RepsPerSet: 5},
			CurrentSet: 2,
			RepCount:   1,
			Info:       "Set 2 of 3 | Reps: 1/5",
		},
		PoseDetected: true,
	}}
	return &handlers{src: src, st: st, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want mcp.TextContent", res.Content[0])
	}
	return text.Text
}

// TestGetStatus verifies the live snapshot is returned as JSON.
func TestGetStatus(t *testing.T) {
	h := newHandlers(t)

	res, err := h.getStatus(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("getStatus() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("getStatus() returned tool error: %s", resultText(t, res))
	}

	var snap app.Snapshot
	if err := json.Unmarshal([]byte(resultText(t, res)), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if snap.State != workout.StateActive || snap.CurrentSet != 2 || !snap.PoseDetected {
		t.Errorf("snapshot = %+v", snap)
	}
}

// TestListWorkouts verifies workouts are listed newest first and the limit
// is validated.
func TestListWorkouts(t *testing.T) {
	h := newHandlers(t)

	for i := 0; i < 3; i++ {
		if err := h.st.Workouts().Create(&store.Workout{TotalSets: i + 1, RepsPerSet: 5, Threshold: 85}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	res, err := h.listWorkouts(context.Background(), callRequest(map[string]any{"limit": float64(2)}))
	if err != nil {
		t.Fatalf("listWorkouts() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("listWorkouts() returned tool error: %s", resultText(t, res))
	}

	var list workoutList
	if err := json.Unmarshal([]byte(resultText(t, res)), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if list.Count != 2 || len(list.Workouts) != 2 {
		t.Errorf("got %d workouts, want 2", list.Count)
	}

	res, _ = h.listWorkouts(context.Background(), callRequest(map[string]any{"limit": float64(500)}))
	if !res.IsError {
		t.Error("limit 500 should be rejected")
	}
}

// TestListWorkoutsEmpty verifies an empty history is an empty list, not null.
func TestListWorkoutsEmpty(t *testing.T) {
	h := newHandlers(t)

	res, err := h.listWorkouts(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("listWorkouts() error = %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, `"workouts":[]`) {
		t.Errorf("result = %s, want empty workouts array", text)
	}
}

// TestGetWorkout verifies a workout is returned with its sets, and that
// missing or unknown IDs are tool errors.
func TestGetWorkout(t *testing.T) {
	h := newHandlers(t)

	w := &store.Workout{TotalSets: 2, RepsPerSet: 3, Threshold: 80}
	if err := h.st.Workouts().Create(w); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for n := 1; n <= 2; n++ {
		if err := h.st.Sets().Create(&store.SetRecord{WorkoutID: w.ID, SetNumber: n, Reps: 3}); err != nil {
			t.Fatalf("Sets().Create() error = %v", err)
		}
	}

	res, err := h.getWorkout(context.Background(), callRequest(map[string]any{"id": w.ID}))
	if err != nil {
		t.Fatalf("getWorkout() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("getWorkout() returned tool error: %s", resultText(t, res))
	}

	var detail struct {
		ID        string            `json:"id"`
		TotalReps int               `json:"total_reps"`
		Sets      []store.SetRecord `json:"sets"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &detail); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if detail.ID != w.ID || detail.TotalReps != 6 || len(detail.Sets) != 2 {
		t.Errorf("detail = %+v", detail)
	}

	res, _ = h.getWorkout(context.Background(), callRequest(nil))
	if !res.IsError {
		t.Error("missing id should be a tool error")
	}

	res, _ = h.getWorkout(context.Background(), callRequest(map[string]any{"id": "nope"}))
	if !res.IsError || !strings.Contains(resultText(t, res), "not found") {
		t.Error("unknown id should be a not-found tool error")
	}
}

// TestNewRegistersTools verifies the server builds with and without a store.
func TestNewRegistersTools(t *testing.T) {
	h := newHandlers(t)
	if New(h.src, h.st, "test", nil) == nil {
		t.Fatal("New() returned nil")
	}
	if New(h.src, nil, "test", nil) == nil {
		t.Fatal("New() without store returned nil")
	}
}
