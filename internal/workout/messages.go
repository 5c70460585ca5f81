package workout

import (
	"errors"
	"fmt"
)

// Spoken prompts and on-screen labels.
const (
	MsgCalibrationStarted = "Calibration mode started. Get into your lowest squat position."
	MsgCalibrationLabel   = "Calibration mode: Get into lowest squat position."
	MsgCalibrationFailed  = "Calibration failed. Using default squat depth of 90 degrees."
	MsgPressStart         = "Press 'Start Workout' to begin."

	MsgWorkoutStarted  = "Workout started. Squat down!"
	MsgWorkoutComplete = "Workout Complete! Good job!"
	MsgGetReady        = "Get ready for next set."
	MsgResume          = "Start your squat!"

	MsgBodyHidden       = "Full body not visible. Move back or adjust camera."
	MsgBodyHiddenSpoken = "Please ensure your full body is visible to the camera."
	MsgNoPose           = "No pose detected. Make sure you're in view."
	MsgNoPoseSpoken     = "I can't see you. Please stay in the camera frame."

	MsgInvalidNumber = "Please enter valid numbers for sets and reps."
	MsgNonPositive   = "Sets and reps must be greater than zero."
	MsgNotCalibrated = "Please calibrate before starting the workout."
)

func calibrationCompleteMsg(threshold float64) string {
	return fmt.Sprintf("Calibration complete. Squat depth set to %d degrees.", int(threshold))
}

func calibrationDoneLabel(threshold float64) string {
	return fmt.Sprintf("Calibration done! Threshold angle: %d", int(threshold))
}

func setCompleteMsg(set int) string {
	return fmt.Sprintf("Set %d complete. Take a break.", set)
}

func restingLabel(remaining int) string {
	return fmt.Sprintf("Resting... Next set starts in %d seconds", remaining)
}

func infoLabel(set, sets, reps, repsPerSet int) string {
	return fmt.Sprintf("Set %d of %d | Reps: %d/%d", set, sets, reps, repsPerSet)
}

var (
	// ErrInvalidNumber is returned when sets or reps are not integers.
	ErrInvalidNumber = errors.New("sets and reps must be numbers")
	// ErrNonPositive is returned when sets or reps are zero or negative.
	ErrNonPositive = errors.New("sets and reps must be greater than zero")
	// ErrNotCalibrated is returned when a workout is started without a fresh calibration.
	ErrNotCalibrated = errors.New("calibration required before starting a workout")
	// ErrBusy is returned when an action conflicts with a calibration or workout in progress.
	ErrBusy = errors.New("a calibration or workout is already in progress")
)

// Feedback returns the user-facing text for a rejected action, or "" when
// err carries no message for the user.
func Feedback(err error) string {
	switch {
	case errors.Is(err, ErrInvalidNumber):
		return MsgInvalidNumber
	case errors.Is(err, ErrNonPositive):
		return MsgNonPositive
	case errors.Is(err, ErrNotCalibrated):
		return MsgNotCalibrated
	}
	return ""
}
