package speech

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// item is one queued utterance. stop marks the shutdown sentinel.
type item struct {
	text string
	stop bool
}

// Channel speaks messages one at a time in the order they were submitted.
// Say never blocks; a single worker goroutine drains the queue.
type Channel struct {
	synth  Synthesizer
	logger *slog.Logger

	mu     sync.Mutex
	queue  []item
	closed bool
	wake   chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	statsMu sync.Mutex
	spoken  int
	failed  int
}

// NewChannel starts the worker for synth.
func NewChannel(synth Synthesizer, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		synth:  synth,
		logger: logger,
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}

	c.wg.Add(1)
	go c.run()

	return c
}

// Say queues text for speaking and returns immediately. It reports false
// if the channel is closed or text is empty.
func (c *Channel) Say(text string) bool {
	if text == "" {
		return false
	}
	return c.enqueue(item{text: text})
}

func (c *Channel) enqueue(it item) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	if it.stop {
		c.closed = true
	}
	c.queue = append(c.queue, it)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return true
}

// Pending returns the number of messages waiting to be spoken.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.queue {
		if !it.stop {
			n++
		}
	}
	return n
}

// Close enqueues the shutdown sentinel and waits for every message queued
// before it to be spoken. Later calls to Say are ignored.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.logger.Debug("speech channel closing", "pending", c.Pending())
		c.enqueue(item{stop: true})
		c.wg.Wait()
		c.cancel()
	})
	return nil
}

// Abort stops the utterance in progress and closes without draining.
func (c *Channel) Abort() {
	c.mu.Lock()
	c.queue = nil
	c.mu.Unlock()
	c.cancel()
	c.Close()
}

func (c *Channel) next() item {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			it := c.queue[0]
			c.queue = c.queue[1:]
			c.mu.Unlock()
			return it
		}
		closed := c.closed
		c.mu.Unlock()

		if closed {
			// Sentinel was dropped by Abort.
			return item{stop: true}
		}
		<-c.wake
	}
}

func (c *Channel) run() {
	defer c.wg.Done()

	for {
		it := c.next()
		if it.stop {
			c.logger.Debug("speech worker stopped")
			return
		}

		start := time.Now()
		err := c.synth.Speak(c.ctx, it.text)

		c.statsMu.Lock()
		if err != nil {
			c.failed++
		} else {
			c.spoken++
		}
		c.statsMu.Unlock()

		if err != nil {
			c.logger.Warn("speech failed", "text", it.text, "error", err)
			continue
		}
		c.logger.Debug("spoke", "text", it.text, "duration_ms", time.Since(start).Milliseconds())
	}
}

// Stats reports how many messages were spoken and how many failed.
func (c *Channel) Stats() (spoken, failed int) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.spoken, c.failed
}
