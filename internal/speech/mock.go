package speech

import (
	"context"
	"sync"
	"time"
)

// RecordingSynthesizer is a test Synthesizer that remembers what it was
// asked to say.
type RecordingSynthesizer struct {
	mu     sync.Mutex
	texts  []string
	delay  time.Duration
	err    error
	gate   chan struct{}
	active int
	peak   int
}

// NewRecordingSynthesizer creates an empty recorder.
func NewRecordingSynthesizer() *RecordingSynthesizer {
	return &RecordingSynthesizer{}
}

// SetDelay makes each Speak take d.
func (r *RecordingSynthesizer) SetDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delay = d
}

// SetError makes each Speak fail with err after recording the text.
func (r *RecordingSynthesizer) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Hold blocks every Speak until Release is called.
func (r *RecordingSynthesizer) Hold() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = make(chan struct{})
}

// Release unblocks Speak calls held by Hold.
func (r *RecordingSynthesizer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gate != nil {
		close(r.gate)
		r.gate = nil
	}
}

func (r *RecordingSynthesizer) Speak(ctx context.Context, text string) error {
	r.mu.Lock()
	r.active++
	if r.active > r.peak {
		r.peak = r.active
	}
	gate, delay := r.gate, r.delay
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.active--
		r.mu.Unlock()
	}()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return r.err
}

// Texts returns everything spoken so far, in order.
func (r *RecordingSynthesizer) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.texts))
	copy(out, r.texts)
	return out
}

// MaxConcurrent returns the highest number of overlapping Speak calls seen.
func (r *RecordingSynthesizer) MaxConcurrent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}
