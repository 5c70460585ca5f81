package pose

import (
	"errors"
	"math"
	"testing"
	"time"
)

const epsilon = 1e-9

func TestAngle(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c Point2D
		want    float64
	}{
		{
			name: "straight leg",
			a:    Point2D{X: 0, Y: 0},
			b:    Point2D{X: 0, Y: 100},
			c:    Point2D{X: 0, Y: 200},
			want: 180,
		},
		{
			name: "right angle",
			a:    Point2D{X: 100, Y: 0},
			b:    Point2D{X: 0, Y: 0},
			c:    Point2D{X: 0, Y: 100},
			want: 90,
		},
		{
			name: "folded back on itself",
			a:    Point2D{X: 100, Y: 0},
			b:    Point2D{X: 0, Y: 0},
			c:    Point2D{X: 50, Y: 0},
			want: 0,
		},
		{
			name: "reflex wraps to interior",
			a:    Point2D{X: 100, Y: 0},
			b:    Point2D{X: 0, Y: 0},
			c:    Point2D{X: 0, Y: -100},
			want: 90,
		},
		{
			name: "forty five degrees",
			a:    Point2D{X: 10, Y: 10},
			b:    Point2D{X: 0, Y: 0},
			c:    Point2D{X: 10, Y: 0},
			want: 45,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Angle(tt.a, tt.b, tt.c)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Angle() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestAngle_SymmetricAndBounded(t *testing.T) {
	points := []Point2D{
		{X: 0, Y: 0}, {X: 320, Y: 240}, {X: 10, Y: 470},
		{X: 639, Y: 1}, {X: 200, Y: 200}, {X: 500, Y: 100},
	}

	for _, a := range points {
		for _, b := range points {
			for _, c := range points {
				ab := Angle(a, b, c)
				cb := Angle(c, b, a)
				if math.Abs(ab-cb) > epsilon {
					t.Fatalf("Angle(%v,%v,%v) = %f but reversed = %f", a, b, c, ab, cb)
				}
				if ab < 0 || ab > 180 {
					t.Fatalf("Angle(%v,%v,%v) = %f, outside [0,180]", a, b, c, ab)
				}
			}
		}
	}
}

func TestLandmark_Pixel(t *testing.T) {
	lm := Landmark{X: 0.5, Y: 0.25}
	got := lm.Pixel(640, 480)
	if got.X != 320 || got.Y != 120 {
		t.Errorf("Pixel() = %+v, want {320 120}", got)
	}

	// Truncates toward zero like an integer pixel index.
	lm = Landmark{X: 0.0999, Y: 0.0999}
	got = lm.Pixel(100, 100)
	if got.X != 9 || got.Y != 9 {
		t.Errorf("Pixel() = %+v, want {9 9}", got)
	}
}

func TestLandmarks_Visible(t *testing.T) {
	full := PoseWithKneeAngle(170, 640, 480)

	t.Run("all visible", func(t *testing.T) {
		if !full.Visible(SquatLandmarks, 0.6) {
			t.Error("expected full pose to be visible")
		}
	})

	t.Run("one heel hidden", func(t *testing.T) {
		lm := *full
		lm.Points[RightHeel].Visibility = 0.3
		if lm.Visible(SquatLandmarks, 0.6) {
			t.Error("expected pose with hidden heel to fail visibility")
		}
	})

	t.Run("exactly at threshold is not enough", func(t *testing.T) {
		lm := *full
		lm.Points[Nose].Visibility = 0.6
		if lm.Visible(SquatLandmarks, 0.6) {
			t.Error("visibility equal to the minimum should not pass")
		}
	})

	t.Run("unlisted landmark ignored", func(t *testing.T) {
		lm := *full
		lm.Points[LeftWrist].Visibility = 0
		if !lm.Visible(SquatLandmarks, 0.6) {
			t.Error("wrist visibility should not matter")
		}
	})

	t.Run("nil landmarks", func(t *testing.T) {
		var lm *Landmarks
		if lm.Visible(SquatLandmarks, 0.6) {
			t.Error("nil landmarks should never be visible")
		}
	})

	t.Run("bad index", func(t *testing.T) {
		if full.Visible([]int{NumLandmarks}, 0.6) {
			t.Error("out-of-range index should fail")
		}
	})
}

func TestPoseWithKneeAngle(t *testing.T) {
	sizes := [][2]int{{640, 480}, {1280, 720}, {480, 640}}
	angles := []float64{60, 90, 120, 170, 180}

	for _, size := range sizes {
		for _, want := range angles {
			lm := PoseWithKneeAngle(want, size[0], size[1])
			got := lm.KneeAngle(size[0], size[1])
			if math.Abs(got-want) > 1.0 {
				t.Errorf("%dx%d: KneeAngle() = %.2f, want %.0f", size[0], size[1], got, want)
			}
		}
	}
}

func TestMockDetector(t *testing.T) {
	m := NewMockDetector()

	lm, err := m.Detect(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lm != nil {
		t.Error("expected nil landmarks from empty mock")
	}

	want := PoseWithKneeAngle(90, 640, 480)
	m.SetLandmarks(want)
	lm, err = m.Detect(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lm != want {
		t.Error("expected configured landmarks")
	}

	wantErr := errors.New("boom")
	m.SetError(wantErr)
	if _, err := m.Detect(nil); !errors.Is(err, wantErr) {
		t.Errorf("Detect() error = %v, want %v", err, wantErr)
	}

	if m.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", m.Calls())
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestSquatSimulator(t *testing.T) {
	s := NewSquatSimulator(4*time.Second, 640, 480)

	if got := s.AngleAt(0); math.Abs(got-170) > epsilon {
		t.Errorf("AngleAt(0) = %f, want 170", got)
	}
	if got := s.AngleAt(2 * time.Second); math.Abs(got-70) > 1e-6 {
		t.Errorf("AngleAt(half period) = %f, want 70", got)
	}
	if got := s.AngleAt(4 * time.Second); math.Abs(got-170) > 1e-6 {
		t.Errorf("AngleAt(period) = %f, want 170", got)
	}

	base := time.Now()
	s.start = base
	s.now = func() time.Time { return base.Add(2 * time.Second) }
	lm, err := s.Detect(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !lm.Visible(SquatLandmarks, 0.6) {
		t.Error("simulated pose should be fully visible")
	}
	if got := lm.KneeAngle(640, 480); math.Abs(got-70) > 1.0 {
		t.Errorf("simulated knee angle = %f, want ~70", got)
	}
}

func TestParseResponse(t *testing.T) {
	t.Run("no person", func(t *testing.T) {
		lm, err := parseResponse([]byte(`{"landmarks":[]}` + "\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lm != nil {
			t.Error("expected nil landmarks")
		}
	})

	t.Run("landmarks copied in order", func(t *testing.T) {
		line := `{"landmarks":[{"x":0.1,"y":0.2,"z":-0.1,"visibility":0.99},{"x":0.3,"y":0.4,"z":0,"visibility":0.5}]}`
		lm, err := parseResponse([]byte(line))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lm == nil {
			t.Fatal("expected landmarks")
		}
		if lm.Points[0].X != 0.1 || lm.Points[0].Visibility != 0.99 {
			t.Errorf("point 0 = %+v", lm.Points[0])
		}
		if lm.Points[1].Y != 0.4 || lm.Points[1].Visibility != 0.5 {
			t.Errorf("point 1 = %+v", lm.Points[1])
		}
		// Missing points are zero and therefore invisible.
		if lm.Points[RightHeel].Visibility != 0 {
			t.Errorf("missing point visibility = %f, want 0", lm.Points[RightHeel].Visibility)
		}
	})

	t.Run("service error", func(t *testing.T) {
		_, err := parseResponse([]byte(`{"error":"decode failed"}`))
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseResponse([]byte("not json"))
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestNewMediaPipeDetector_MissingScript(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Script = "/nonexistent/pose_service.py"
	if _, err := NewMediaPipeDetector(cfg, nil); err == nil {
		t.Error("expected error for missing script")
	}
}
