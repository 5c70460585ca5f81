package workout

import "time"

// CalibrationResult is the squat depth chosen by one calibration run.
type CalibrationResult struct {
	Threshold float64   `json:"threshold"`
	Detected  bool      `json:"detected"`
	Cancelled bool      `json:"cancelled"`
	At        time.Time `json:"at"`
}

// Calibrator samples the knee angle for a fixed number of one-second steps
// and keeps the last value it saw.
type Calibrator struct {
	remaining int
	stepStart time.Time
	fallback  float64

	lastAngle  float64
	seen       bool
	done       bool
	cancelled  bool
	finishedAt time.Time
}

// NewCalibrator begins a countdown of steps seconds at now. fallback is
// used when no pose is observed before the countdown ends.
func NewCalibrator(steps int, fallback float64, now time.Time) *Calibrator {
	return &Calibrator{
		remaining: steps,
		stepStart: now,
		fallback:  fallback,
	}
}

// Observe records a knee angle measured on the current frame.
func (c *Calibrator) Observe(angle float64) {
	if c.done {
		return
	}
	c.lastAngle = angle
	c.seen = true
}

// Advance moves the countdown forward and reports whether calibration has
// finished.
func (c *Calibrator) Advance(now time.Time) bool {
	if c.done {
		return true
	}
	if now.Sub(c.stepStart) >= time.Second && c.remaining > 0 {
		c.remaining--
		c.stepStart = now
	}
	if c.remaining <= 0 {
		c.done = true
		c.finishedAt = now
	}
	return c.done
}

// Cancel ends calibration early. The result uses whatever was observed.
func (c *Calibrator) Cancel(now time.Time) {
	if c.done {
		return
	}
	c.done = true
	c.cancelled = true
	c.finishedAt = now
}

// Remaining returns the seconds left in the countdown.
func (c *Calibrator) Remaining() int { return c.remaining }

// Done reports whether the countdown expired or was cancelled.
func (c *Calibrator) Done() bool { return c.done }

// Result returns the calibration outcome. Only meaningful once Done.
func (c *Calibrator) Result() CalibrationResult {
	r := CalibrationResult{
		Threshold: c.fallback,
		Detected:  c.seen,
		Cancelled: c.cancelled,
		At:        c.finishedAt,
	}
	if c.seen {
		r.Threshold = c.lastAngle
	}
	return r
}
