package pose

import "math"

// Point2D is a point in pixel space.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Angle returns the interior angle at vertex b formed by the rays b->a
// and b->c, in degrees within [0, 180].
func Angle(a, b, c Point2D) float64 {
	radians := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	angle := math.Abs(radians * 180.0 / math.Pi)
	if angle > 180.0 {
		angle = 360.0 - angle
	}
	return angle
}
