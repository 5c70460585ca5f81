package plugin

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ayusman/repcoach/internal/workout"
)

const runnerQueueSize = 64

// Runner delivers workout events to subscribed plugins. Emit never blocks;
// plugins run one at a time on a background goroutine, in event order.
type Runner struct {
	manager  *Manager
	executor *Executor
	logger   *slog.Logger

	qmu       sync.RWMutex
	queue     chan workout.Event
	closed    bool
	wg        sync.WaitGroup
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc

	mu      sync.Mutex
	runs    int
	failed  int
	dropped int
}

// NewRunner starts a runner over the plugins known to manager.
func NewRunner(manager *Manager, executor *Executor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		manager:  manager,
		executor: executor,
		logger:   logger,
		queue:    make(chan workout.Event, runnerQueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Emit queues ev for delivery. Events nobody subscribed to are ignored
// and a full queue drops the event.
func (r *Runner) Emit(ev workout.Event) {
	if len(r.manager.ForEvent(ev.Kind)) == 0 {
		return
	}

	r.qmu.RLock()
	defer r.qmu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- ev:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
		r.logger.Warn("plugin queue full, event dropped", "event", ev.Kind)
	}
}

func (r *Runner) run() {
	defer r.wg.Done()
	for ev := range r.queue {
		for _, p := range r.manager.ForEvent(ev.Kind) {
			r.deliver(p, ev)
		}
	}
}

func (r *Runner) deliver(p *Plugin, ev workout.Event) {
	resp, err := r.executor.Execute(r.ctx, p, &Request{
		Event:  ev.Kind,
		Data:   ev,
		Config: p.Manifest.Config,
	})

	r.mu.Lock()
	r.runs++
	if err != nil || !resp.Success {
		r.failed++
	}
	r.mu.Unlock()

	switch {
	case err != nil:
		r.logger.Warn("plugin failed", "plugin", p.Manifest.Name, "event", ev.Kind, "error", err)
	case !resp.Success:
		r.logger.Warn("plugin reported error", "plugin", p.Manifest.Name, "event", ev.Kind, "error", resp.Error)
	default:
		r.logger.Debug("plugin ran", "plugin", p.Manifest.Name, "event", ev.Kind)
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (r *Runner) Close() error {
	r.closeOnce.Do(func() {
		r.qmu.Lock()
		r.closed = true
		close(r.queue)
		r.qmu.Unlock()
		r.wg.Wait()
		r.cancel()
	})
	return nil
}

// Stats reports plugin runs, how many of them failed and how many events
// were dropped.
func (r *Runner) Stats() (runs, failed, dropped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs, r.failed, r.dropped
}
