package pose

import (
	"math"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu        sync.Mutex
	landmarks *Landmarks
	err       error
	calls     int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetLandmarks sets the landmarks that will be returned by Detect.
// Nil simulates an empty scene.
func (m *MockDetector) SetLandmarks(lm *Landmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.landmarks = lm
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured landmarks or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Landmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.landmarks, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// SquatSimulator is a Detector that ignores the frame and reports a person
// squatting continuously, cycling the knee angle between Standing and Bottom.
type SquatSimulator struct {
	Period   time.Duration
	Standing float64
	Bottom   float64
	Width    int
	Height   int

	start time.Time
	now   func() time.Time
}

// NewSquatSimulator returns a simulator doing one squat per period on a
// frame of the given size.
func NewSquatSimulator(period time.Duration, width, height int) *SquatSimulator {
	return &SquatSimulator{
		Period:   period,
		Standing: 170,
		Bottom:   70,
		Width:    width,
		Height:   height,
		start:    time.Now(),
		now:      time.Now,
	}
}

// AngleAt returns the simulated knee angle after elapsed time.
func (s *SquatSimulator) AngleAt(elapsed time.Duration) float64 {
	if s.Period <= 0 {
		return s.Standing
	}
	phase := 2 * math.Pi * float64(elapsed) / float64(s.Period)
	mid := (s.Standing + s.Bottom) / 2
	amp := (s.Standing - s.Bottom) / 2
	return mid + amp*math.Cos(phase)
}

// Detect returns a fully visible pose at the current simulated angle.
func (s *SquatSimulator) Detect(frame *gocv.Mat) (*Landmarks, error) {
	angle := s.AngleAt(s.now().Sub(s.start))
	return PoseWithKneeAngle(angle, s.Width, s.Height), nil
}

// Close is a no-op for the simulator.
func (s *SquatSimulator) Close() error {
	return nil
}

// PoseWithKneeAngle builds a side-on standing figure whose right
// hip-knee-ankle angle, measured on a width x height frame, is angle
// degrees. Every landmark has visibility 0.95.
func PoseWithKneeAngle(angle float64, width, height int) *Landmarks {
	w, h := float64(width), float64(height)
	// Centre each point inside its pixel so Pixel truncates back to it.
	norm := func(px, py float64) Landmark {
		return Landmark{
			X:          (math.Round(px) + 0.5) / w,
			Y:          (math.Round(py) + 0.5) / h,
			Visibility: 0.95,
		}
	}

	// Work in pixels so the angle survives projection onto a non-square frame.
	segment := 0.25 * h
	kneeX, kneeY := 0.5*w, 0.65*h
	ankleX, ankleY := kneeX, kneeY+segment

	theta := angle * math.Pi / 180.0
	hipX := kneeX + segment*math.Sin(theta)
	hipY := kneeY + segment*math.Cos(theta)

	lm := &Landmarks{}
	for i := range lm.Points {
		lm.Points[i] = norm(kneeX, kneeY)
	}

	lm.Points[Nose] = norm(hipX, hipY-0.35*h)
	lm.Points[LeftShoulder] = norm(hipX+4, hipY-0.25*h)
	lm.Points[RightShoulder] = norm(hipX, hipY-0.25*h)
	lm.Points[LeftHip] = norm(hipX+4, hipY)
	lm.Points[RightHip] = norm(hipX, hipY)
	lm.Points[LeftKnee] = norm(kneeX+4, kneeY)
	lm.Points[RightKnee] = norm(kneeX, kneeY)
	lm.Points[LeftAnkle] = norm(ankleX+4, ankleY)
	lm.Points[RightAnkle] = norm(ankleX, ankleY)
	lm.Points[LeftHeel] = norm(ankleX-6, ankleY+4)
	lm.Points[RightHeel] = norm(ankleX-10, ankleY+4)
	lm.Points[LeftFootIndex] = norm(ankleX+20, ankleY+6)
	lm.Points[RightFootIndex] = norm(ankleX+16, ankleY+6)

	return lm
}
