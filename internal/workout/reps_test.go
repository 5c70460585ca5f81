package workout

import (
	"testing"
	"time"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time { return epoch.Add(d) }

func TestRepCounter_Sequence(t *testing.T) {
	rc := NewRepCounter(90, 1200*time.Millisecond)

	angles := []float64{120, 95, 60, 55, 95, 130}
	wantStages := []Stage{StageUp, StageUp, StageDown, StageDown, StageUp, StageUp}
	wantReps := []int{0, 0, 0, 0, 1, 1}

	for i, angle := range angles {
		now := at(time.Duration(i) * 1300 * time.Millisecond)
		u := rc.Update(angle, now)
		if u.Stage != wantStages[i] {
			t.Errorf("sample %d (%.0f): stage = %s, want %s", i, angle, u.Stage, wantStages[i])
		}
		if rc.Reps() != wantReps[i] {
			t.Errorf("sample %d (%.0f): reps = %d, want %d", i, angle, rc.Reps(), wantReps[i])
		}
	}
}

func TestRepCounter_Transitions(t *testing.T) {
	tests := []struct {
		name        string
		angle       float64
		start       Stage
		sinceLast   time.Duration
		wantStage   Stage
		wantChanged bool
		wantCounted bool
	}{
		{"up stays up above threshold", 150, StageUp, 5 * time.Second, StageUp, false, false},
		{"up goes down below threshold", 70, StageUp, 5 * time.Second, StageDown, true, false},
		{"down goes up and counts", 150, StageDown, 5 * time.Second, StageUp, true, true},
		{"down stays down below threshold", 70, StageDown, 5 * time.Second, StageDown, false, false},
		{"equal to threshold never moves up", 90, StageDown, 5 * time.Second, StageDown, false, false},
		{"equal to threshold never moves down", 90, StageUp, 5 * time.Second, StageUp, false, false},
		{"inside debounce blocks descent", 70, StageUp, time.Second, StageUp, false, false},
		{"inside debounce blocks ascent", 150, StageDown, time.Second, StageDown, false, false},
		{"exactly debounce still blocks", 150, StageDown, 1200 * time.Millisecond, StageDown, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := NewRepCounter(90, 1200*time.Millisecond)
			rc.stage = tt.start
			rc.lastTransition = epoch

			u := rc.Update(tt.angle, epoch.Add(tt.sinceLast))
			if u.Stage != tt.wantStage {
				t.Errorf("stage = %s, want %s", u.Stage, tt.wantStage)
			}
			if u.Changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", u.Changed, tt.wantChanged)
			}
			if u.Counted != tt.wantCounted {
				t.Errorf("counted = %v, want %v", u.Counted, tt.wantCounted)
			}
		})
	}
}

func TestRepCounter_DebounceNeverDoubleCounts(t *testing.T) {
	debounce := 1200 * time.Millisecond
	rc := NewRepCounter(90, debounce)

	var lastChange time.Time
	for k := 0; k <= 50; k++ {
		angle := 60.0
		if k%2 == 1 {
			angle = 120
		}
		now := at(time.Duration(k) * 100 * time.Millisecond)
		u := rc.Update(angle, now)
		if u.Changed {
			if !lastChange.IsZero() && now.Sub(lastChange) <= debounce {
				t.Fatalf("transition at %v only %v after previous", now.Sub(epoch), now.Sub(lastChange))
			}
			lastChange = now
		}
	}

	// Down at 0s, up at 1.3s, down at 2.6s, up at 3.9s.
	if rc.Reps() != 2 {
		t.Errorf("reps = %d, want 2", rc.Reps())
	}
}

func TestRepCounter_FirstTransitionImmediate(t *testing.T) {
	rc := NewRepCounter(100, 1200*time.Millisecond)
	u := rc.Update(80, epoch)
	if !u.Changed || u.Stage != StageDown {
		t.Errorf("first descent should be immediate, got %+v", u)
	}
	if rc.Threshold() != 100 {
		t.Errorf("Threshold() = %f, want 100", rc.Threshold())
	}
}
