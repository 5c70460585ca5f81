package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/repcoach/internal/capture"
	"github.com/ayusman/repcoach/internal/pose"
	"github.com/ayusman/repcoach/internal/speech"
	"github.com/ayusman/repcoach/internal/store"
	"github.com/ayusman/repcoach/internal/workout"
)

const (
	frameW = 640
	frameH = 480
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 5, 1, 7, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sinkRecorder struct {
	mu     sync.Mutex
	events []workout.Event
	closed bool
}

func (s *sinkRecorder) Emit(ev workout.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *sinkRecorder) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *sinkRecorder) count(kind workout.EventKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

type harness struct {
	app    *App
	camera *capture.MockCamera
	det    *pose.MockDetector
	synth  *speech.RecordingSynthesizer
	clock  *fakeClock
	sink   *sinkRecorder
	dbPath string
}

func newHarness(t *testing.T, withStore bool) *harness {
	t.Helper()

	h := &harness{
		camera: capture.NewBlankCamera(frameW, frameH),
		det:    pose.NewMockDetector(),
		synth:  speech.NewRecordingSynthesizer(),
		clock:  newFakeClock(),
		sink:   &sinkRecorder{},
	}
	h.camera.Open()

	var s *store.Store
	if withStore {
		h.dbPath = filepath.Join(t.TempDir(), "repcoach.db")
		var err error
		s, err = store.New(h.dbPath)
		if err != nil {
			t.Fatalf("store.New() error = %v", err)
		}
	}

	h.app = New(Config{
		Camera:   h.camera,
		Detector: h.det,
		Speaker:  speech.NewChannel(h.synth, nil),
		Store:    s,
		Sinks:    []EventSink{h.sink},
		Settings: workout.DefaultSettings(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:      h.clock.Now,
	})
	t.Cleanup(func() { h.app.Close() })
	return h
}

func (h *harness) pose(angle float64) {
	h.det.SetLandmarks(pose.PoseWithKneeAngle(angle, frameW, frameH))
}

func (h *harness) step(d time.Duration) {
	h.clock.Add(d)
	h.app.Step()
}

func (h *harness) calibrate(t *testing.T, angle float64) {
	t.Helper()
	if err := h.app.Calibrate(context.Background()); err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	h.pose(angle)
	for i := 0; i < 10; i++ {
		h.step(time.Second)
	}
	if got := h.app.Snapshot().State; got != workout.StateReady {
		t.Fatalf("state after calibration = %s, want ready", got)
	}
}

func (h *harness) squat() {
	h.pose(65)
	h.step(1300 * time.Millisecond)
	h.pose(130)
	h.step(1300 * time.Millisecond)
}

func spoke(texts []string, want string) bool {
	for _, s := range texts {
		if s == want {
			return true
		}
	}
	return false
}

func TestApp_FullWorkoutRecordsHistory(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	h.calibrate(t, 80)
	snap := h.app.Snapshot()
	if !snap.Calibrated || math.Abs(snap.Threshold-80) > 1 {
		t.Fatalf("calibration = %+v, want threshold near 80", snap.Status)
	}

	if err := h.app.StartWorkout(ctx, workout.Plan{Sets: 2, RepsPerSet: 2}); err != nil {
		t.Fatalf("StartWorkout() error = %v", err)
	}

	h.squat()
	h.squat()
	if got := h.app.Snapshot().State; got != workout.StateResting {
		t.Fatalf("state after first set = %s, want resting", got)
	}

	for i := 0; i < 45; i++ {
		h.step(time.Second)
	}
	if got := h.app.Snapshot().State; got != workout.StateActive {
		t.Fatalf("state after rest = %s, want active", got)
	}

	h.squat()
	h.squat()
	if got := h.app.Snapshot().State; got != workout.StateComplete {
		t.Fatalf("state = %s, want complete", got)
	}

	workouts, err := h.app.Store().Workouts().List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(workouts) != 1 {
		t.Fatalf("recorded %d workouts, want 1", len(workouts))
	}
	w := workouts[0]
	if w.Status != store.WorkoutCompleted || w.CompletedSets != 2 || w.TotalReps != 4 {
		t.Errorf("workout = %+v, want completed with 2 sets and 4 reps", w)
	}

	cal, err := h.app.Store().Calibrations().Latest()
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if !cal.Detected {
		t.Error("calibration should be recorded as detected")
	}

	if n := h.sink.count(workout.EventRepCounted); n != 4 {
		t.Errorf("sink saw %d rep events, want 4", n)
	}

	if err := h.app.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	texts := h.synth.Texts()
	for _, want := range []string{
		workout.MsgCalibrationStarted,
		"Set 1 complete. Take a break.",
		workout.MsgGetReady,
		workout.MsgWorkoutComplete,
	} {
		if !spoke(texts, want) {
			t.Errorf("never spoke %q; spoke %v", want, texts)
		}
	}
	if !h.sink.closed {
		t.Error("sink should be closed with the app")
	}
}

func TestApp_RejectsInvalidInput(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	err := h.app.StartWorkoutInput(ctx, "three", "5")
	if !errors.Is(err, workout.ErrInvalidNumber) {
		t.Errorf("StartWorkoutInput() error = %v, want ErrInvalidNumber", err)
	}
	err = h.app.StartWorkoutInput(ctx, "0", "5")
	if !errors.Is(err, workout.ErrNonPositive) {
		t.Errorf("StartWorkoutInput() error = %v, want ErrNonPositive", err)
	}
	err = h.app.StartWorkout(ctx, workout.DefaultPlan)
	if !errors.Is(err, workout.ErrNotCalibrated) {
		t.Errorf("StartWorkout() error = %v, want ErrNotCalibrated", err)
	}
	if got := h.app.Snapshot().State; got != workout.StateIdle {
		t.Errorf("state = %s, want idle", got)
	}

	h.app.Close()
	texts := h.synth.Texts()
	for _, want := range []string{workout.MsgInvalidNumber, workout.MsgNonPositive, workout.MsgNotCalibrated} {
		if !spoke(texts, want) {
			t.Errorf("rejection %q was not spoken", want)
		}
	}
}

func TestApp_CameraFailureSkipsTick(t *testing.T) {
	h := newHarness(t, false)

	if err := h.app.Calibrate(context.Background()); err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	h.camera.SetError(errors.New("device unplugged"))
	h.pose(80)

	for i := 0; i < 12; i++ {
		h.step(time.Second)
	}
	if got := h.app.Snapshot().State; got != workout.StateCalibrating {
		t.Errorf("state = %s, want calibrating while frames fail", got)
	}
	if h.det.Calls() != 0 {
		t.Errorf("detector called %d times without frames", h.det.Calls())
	}
}

func TestApp_RestContinuesWithoutCamera(t *testing.T) {
	h := newHarness(t, false)
	h.calibrate(t, 80)
	if err := h.app.StartWorkout(context.Background(), workout.Plan{Sets: 2, RepsPerSet: 1}); err != nil {
		t.Fatalf("StartWorkout() error = %v", err)
	}
	h.squat()
	if got := h.app.Snapshot().State; got != workout.StateResting {
		t.Fatalf("state = %s, want resting", got)
	}

	h.camera.SetError(errors.New("device unplugged"))
	for i := 0; i < 45; i++ {
		h.step(time.Second)
	}
	if got := h.app.Snapshot().State; got != workout.StateActive {
		t.Errorf("state = %s, want active after rest", got)
	}
}

func TestApp_DetectorErrorCountsAsNoPose(t *testing.T) {
	h := newHarness(t, false)
	h.det.SetError(errors.New("pose service crashed"))

	if err := h.app.Calibrate(context.Background()); err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	for i := 0; i < 12; i++ {
		h.step(time.Second)
	}

	snap := h.app.Snapshot()
	if snap.State != workout.StateReady || snap.Threshold != 90 {
		t.Fatalf("after failing calibration: state=%s threshold=%v, want ready and 90", snap.State, snap.Threshold)
	}
	var finished *workout.Event
	h.sink.mu.Lock()
	for i := range h.sink.events {
		if h.sink.events[i].Kind == workout.EventCalibrationFinished {
			finished = &h.sink.events[i]
		}
	}
	h.sink.mu.Unlock()
	if finished == nil || finished.Detected {
		t.Fatalf("calibration_finished event = %+v, want Detected=false", finished)
	}

	if err := h.app.StartWorkout(context.Background(), workout.DefaultPlan); err != nil {
		t.Fatalf("StartWorkout() error = %v", err)
	}
	for i := 0; i < 6; i++ {
		h.step(time.Second)
	}
	if got := h.app.Snapshot(); got.State != workout.StateActive || got.RepCount != 0 {
		t.Errorf("workout changed on detector errors: %+v", got.Status)
	}

	h.app.Close()
	if !spoke(h.synth.Texts(), workout.MsgNoPoseSpoken) {
		t.Errorf("no-pose prompt not spoken while detection fails, spoke %v", h.synth.Texts())
	}
}

func TestApp_NoPoseDoesNotPollDetectorWhenIdle(t *testing.T) {
	h := newHarness(t, false)
	for i := 0; i < 5; i++ {
		h.step(100 * time.Millisecond)
	}
	if h.det.Calls() != 0 {
		t.Errorf("detector called %d times while idle", h.det.Calls())
	}
}

func TestApp_Subscribe(t *testing.T) {
	h := newHarness(t, false)

	ch, cancel := h.app.Subscribe()
	first := <-ch
	if first.State != workout.StateIdle {
		t.Errorf("initial snapshot state = %s, want idle", first.State)
	}

	if err := h.app.Calibrate(context.Background()); err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	select {
	case snap := <-ch:
		if snap.State != workout.StateCalibrating {
			t.Errorf("snapshot state = %s, want calibrating", snap.State)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot after calibrate")
	}

	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	cancel()
}

func TestApp_LatestFrame(t *testing.T) {
	h := newHarness(t, false)

	if _, ok := h.app.LatestFrame(); ok {
		t.Fatal("no frame should exist before the first step")
	}
	h.step(10 * time.Millisecond)

	data, ok := h.app.LatestFrame()
	if !ok {
		t.Fatal("frame should be encoded once someone asked for it")
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Error("LatestFrame() should return a JPEG")
	}
}

func TestApp_PlanPersists(t *testing.T) {
	h := newHarness(t, true)
	plan := workout.Plan{Sets: 4, RepsPerSet: 8}
	if err := h.app.SetPlan(context.Background(), plan); err != nil {
		t.Fatalf("SetPlan() error = %v", err)
	}
	if err := h.app.SetPlan(context.Background(), workout.Plan{Sets: 0, RepsPerSet: 1}); !errors.Is(err, workout.ErrNonPositive) {
		t.Errorf("SetPlan(invalid) error = %v, want ErrNonPositive", err)
	}
	h.app.Close()

	s, err := store.New(h.dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	a := New(Config{
		Camera:   capture.NewBlankCamera(frameW, frameH),
		Detector: pose.NewMockDetector(),
		Speaker:  speech.NewChannel(speech.NewRecordingSynthesizer(), nil),
		Store:    s,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	defer a.Close()

	if got := a.Snapshot().Plan; got != plan {
		t.Errorf("restored plan = %+v, want %+v", got, plan)
	}
}

func TestApp_CloseAbandonsWorkout(t *testing.T) {
	h := newHarness(t, true)
	h.calibrate(t, 80)
	if err := h.app.StartWorkout(context.Background(), workout.DefaultPlan); err != nil {
		t.Fatalf("StartWorkout() error = %v", err)
	}
	h.squat()
	h.app.Close()

	s, err := store.New(h.dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer s.Close()

	workouts, err := s.Workouts().List(0)
	if err != nil || len(workouts) != 1 {
		t.Fatalf("List() = %v, %v", workouts, err)
	}
	if workouts[0].Status != store.WorkoutAbandoned || workouts[0].EndedAt == nil {
		t.Errorf("workout = %+v, want abandoned with an end time", workouts[0])
	}

	if err := h.app.Calibrate(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Calibrate() after Close error = %v, want ErrClosed", err)
	}
}

func TestApp_RunServicesCommands(t *testing.T) {
	h := newHarness(t, false)
	h.app.config.Now = time.Now
	h.app.now = time.Now
	h.app.config.TickInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- h.app.Run(ctx) }()

	// Wait for the loop to take over commands.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.app.mu.RLock()
		running := h.app.running
		h.app.mu.RUnlock()
		if running {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := h.app.Calibrate(ctx); err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	if got := h.app.Snapshot().State; got != workout.StateCalibrating {
		t.Errorf("state = %s, want calibrating", got)
	}
	if err := h.app.CancelCalibration(ctx); err != nil {
		t.Fatalf("CancelCalibration() error = %v", err)
	}
	snap := h.app.Snapshot()
	if snap.State != workout.StateReady || snap.Threshold != 90 {
		t.Errorf("after cancel without pose: state %s threshold %v, want ready and 90", snap.State, snap.Threshold)
	}

	if err := h.app.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	select {
	case err := <-runErr:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
