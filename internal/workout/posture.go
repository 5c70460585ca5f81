package workout

// Posture is the form assessment for one frame.
type Posture int

const (
	PostureGood Posture = iota
	PostureTooHigh
	PostureTooLow
)

// Deviation bounds around the calibrated threshold, in degrees.
const (
	TooHighDeviation = 25.0
	TooLowDeviation  = -20.0
)

// ClassifyPosture grades the difference between the current knee angle
// and the calibrated threshold.
func ClassifyPosture(deviation float64) Posture {
	switch {
	case deviation > TooHighDeviation:
		return PostureTooHigh
	case deviation < TooLowDeviation:
		return PostureTooLow
	default:
		return PostureGood
	}
}

// Message returns the coaching line for p.
func (p Posture) Message() string {
	switch p {
	case PostureTooHigh:
		return "Try to go a little deeper."
	case PostureTooLow:
		return "Careful! You're going too low."
	default:
		return "Nice form, keep going!"
	}
}

func (p Posture) String() string {
	switch p {
	case PostureTooHigh:
		return "too_high"
	case PostureTooLow:
		return "too_low"
	default:
		return "good"
	}
}
