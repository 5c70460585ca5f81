package workout

import "time"

// EventKind names something that happened during a session.
type EventKind string

const (
	EventCalibrationStarted  EventKind = "calibration_started"
	EventCalibrationFinished EventKind = "calibration_finished"
	EventWorkoutStarted      EventKind = "workout_started"
	EventStageChanged        EventKind = "stage_changed"
	EventRepCounted          EventKind = "rep_counted"
	EventSetCompleted        EventKind = "set_completed"
	EventRestTick            EventKind = "rest_tick"
	EventRestFinished        EventKind = "rest_finished"
	EventWorkoutCompleted    EventKind = "workout_completed"
	EventPoseLost            EventKind = "pose_lost"
	EventBodyHidden          EventKind = "body_hidden"
)

// Event is a single session occurrence. Only the fields relevant to Kind
// are set.
type Event struct {
	Kind      EventKind `json:"kind"`
	At        time.Time `json:"at"`
	Set       int       `json:"set,omitempty"`
	Reps      int       `json:"reps,omitempty"`
	Stage     Stage     `json:"stage,omitempty"`
	Angle     float64   `json:"angle,omitempty"`
	Posture   string    `json:"posture,omitempty"`
	Remaining int       `json:"remaining,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Detected  bool      `json:"detected,omitempty"`
	Cancelled bool      `json:"cancelled,omitempty"`
	Plan      Plan      `json:"plan,omitempty"`
}

// Status is a read-only view of a session.
type Status struct {
	State                State   `json:"state"`
	Feedback             string  `json:"feedback"`
	Info                 string  `json:"info"`
	Angle                float64 `json:"angle"`
	HasAngle             bool    `json:"has_angle"`
	Stage                Stage   `json:"stage"`
	Calibrated           bool    `json:"calibrated"`
	Threshold            float64 `json:"threshold"`
	CalibrationRemaining int     `json:"calibration_remaining"`
	Plan                 Plan    `json:"plan"`
	CurrentSet           int     `json:"current_set"`
	RepCount             int     `json:"rep_count"`
	Ratio                float64 `json:"ratio"`
	RestRemaining        int     `json:"rest_remaining"`
	CanCalibrate         bool    `json:"can_calibrate"`
	CanStart             bool    `json:"can_start"`
}
