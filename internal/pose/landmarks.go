// Package pose provides body pose detection interfaces and joint geometry for squat tracking.
package pose

// Body landmark indices following MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// SquatLandmarks are the landmarks that must be visible before a frame
// counts toward rep detection: nose, shoulders, hips, knees, ankles, heels.
var SquatLandmarks = []int{
	Nose,
	LeftShoulder, RightShoulder,
	LeftHip, RightHip,
	LeftKnee, RightKnee,
	LeftAnkle, RightAnkle,
	LeftHeel, RightHeel,
}

// Landmark is a single body point in normalized image coordinates.
// X and Y are in [0,1] relative to frame width and height.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Pixel projects the landmark onto a frame of the given size,
// truncated to whole pixels.
func (l Landmark) Pixel(width, height int) Point2D {
	return Point2D{
		X: float64(int(l.X * float64(width))),
		Y: float64(int(l.Y * float64(height))),
	}
}

// Landmarks represents the 33 body landmarks detected for a single person.
type Landmarks struct {
	Points [NumLandmarks]Landmark `json:"points"`
}

// Visible reports whether every listed landmark has a visibility score
// strictly above min. Out-of-range indices count as not visible.
func (l *Landmarks) Visible(indices []int, min float64) bool {
	if l == nil {
		return false
	}
	for _, i := range indices {
		if i < 0 || i >= NumLandmarks {
			return false
		}
		if l.Points[i].Visibility <= min {
			return false
		}
	}
	return true
}

// KneeAngle returns the right hip-knee-ankle angle in degrees, measured
// in pixel space for a frame of the given size.
func (l *Landmarks) KneeAngle(width, height int) float64 {
	return Angle(
		l.Points[RightHip].Pixel(width, height),
		l.Points[RightKnee].Pixel(width, height),
		l.Points[RightAnkle].Pixel(width, height),
	)
}
