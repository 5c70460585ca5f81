package capture

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ayusman/repcoach/internal/pose"
	"github.com/ayusman/repcoach/internal/workout"
	"gocv.io/x/gocv"
)

var (
	colorBone      = color.RGBA{245, 117, 66, 0}
	colorJoint     = color.RGBA{245, 66, 230, 0}
	colorText      = color.RGBA{255, 255, 255, 0}
	colorBar       = color.RGBA{0, 200, 0, 0}
	colorBarFrame  = color.RGBA{200, 200, 200, 0}
	colorCountdown = color.RGBA{255, 215, 0, 0}
)

// skeleton lists the landmark pairs drawn as bones.
var skeleton = [][2]int{
	{pose.LeftShoulder, pose.RightShoulder},
	{pose.LeftShoulder, pose.LeftHip},
	{pose.RightShoulder, pose.RightHip},
	{pose.LeftHip, pose.RightHip},
	{pose.LeftHip, pose.LeftKnee},
	{pose.LeftKnee, pose.LeftAnkle},
	{pose.LeftAnkle, pose.LeftHeel},
	{pose.RightHip, pose.RightKnee},
	{pose.RightKnee, pose.RightAnkle},
	{pose.RightAnkle, pose.RightHeel},
}

// minDrawVisibility hides landmarks the model is unsure about.
const minDrawVisibility = 0.5

// Overlay is what gets drawn on top of a camera frame.
type Overlay struct {
	Landmarks *pose.Landmarks
	Status    workout.Status
}

// Annotate draws the skeleton, knee angle, calibration countdown, feedback
// text and set progress bar onto frame in place.
func Annotate(frame *gocv.Mat, o Overlay) {
	if frame == nil || frame.Empty() {
		return
	}
	w, h := frame.Cols(), frame.Rows()

	if o.Landmarks != nil {
		drawSkeleton(frame, o.Landmarks, w, h)
		if o.Status.HasAngle {
			knee := o.Landmarks.Points[pose.RightKnee].Pixel(w, h)
			gocv.PutText(frame, fmt.Sprintf("%d", int(o.Status.Angle)),
				image.Pt(int(knee.X)+10, int(knee.Y)), gocv.FontHersheySimplex, 0.7, colorText, 2)
		}
	}

	if o.Status.Feedback != "" {
		gocv.PutText(frame, o.Status.Feedback, image.Pt(10, 25), gocv.FontHersheySimplex, 0.6, colorText, 2)
	}
	if o.Status.Info != "" {
		gocv.PutText(frame, o.Status.Info, image.Pt(10, 50), gocv.FontHersheySimplex, 0.6, colorText, 2)
	}

	if o.Status.State == workout.StateCalibrating {
		label := fmt.Sprintf("%d", o.Status.CalibrationRemaining)
		gocv.PutText(frame, label, image.Pt(w/2-20, h/2), gocv.FontHersheySimplex, 2.5, colorCountdown, 5)
	}

	if o.Status.Plan.RepsPerSet > 0 && (o.Status.State == workout.StateActive ||
		o.Status.State == workout.StateResting || o.Status.State == workout.StateComplete) {
		drawProgress(frame, o.Status.Ratio, w, h)
	}
}

func drawSkeleton(frame *gocv.Mat, lm *pose.Landmarks, w, h int) {
	for _, bone := range skeleton {
		a, b := lm.Points[bone[0]], lm.Points[bone[1]]
		if a.Visibility < minDrawVisibility || b.Visibility < minDrawVisibility {
			continue
		}
		pa, pb := a.Pixel(w, h), b.Pixel(w, h)
		gocv.Line(frame, toPoint(pa), toPoint(pb), colorBone, 2)
	}
	for _, idx := range pose.SquatLandmarks {
		p := lm.Points[idx]
		if p.Visibility < minDrawVisibility {
			continue
		}
		px := p.Pixel(w, h)
		gocv.Circle(frame, toPoint(px), 4, colorJoint, -1)
	}
}

func toPoint(p pose.Point2D) image.Point {
	return image.Pt(int(p.X), int(p.Y))
}

// drawProgress fills a bar along the bottom edge in proportion to ratio.
func drawProgress(frame *gocv.Mat, ratio float64, w, h int) {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	const margin, height = 10, 16
	outer := image.Rect(margin, h-margin-height, w-margin, h-margin)
	filled := outer
	filled.Max.X = outer.Min.X + int(float64(outer.Dx())*ratio)

	if filled.Dx() > 0 {
		gocv.Rectangle(frame, filled, colorBar, -1)
	}
	gocv.Rectangle(frame, outer, colorBarFrame, 1)
}

// EncodeJPEG compresses frame for streaming.
func EncodeJPEG(frame *gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
