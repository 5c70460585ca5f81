package pose

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for body pose detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the landmarks of the
	// most prominent person. Returns nil landmarks if no pose is found.
	Detect(frame *gocv.Mat) (*Landmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// Python is the interpreter used to run the pose service. Empty means
	// a project virtualenv if one exists, otherwise python3.
	Python string

	// Script is the path to the pose service script. Empty means search
	// the usual locations.
	Script string

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// IdleTimeout stops the service after this long without a frame.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.5,
		IdleTimeout:   30 * time.Second,
	}
}
