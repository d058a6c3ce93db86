package watcher

import (
	"sync"
	"time"
)

// debouncer coalesces bursts of file events. Events are keyed by path so a
// save that fires several notifications collapses into one, and a batch is
// flushed when the window elapses without new events or the batch cap is hit.
type debouncer struct {
	window   time.Duration
	maxBatch int
	onFlush  func([]FileEvent)

	mu      sync.Mutex
	pending map[string]FileEvent
	timer   *time.Timer
	stopped bool
}

func newDebouncer(window time.Duration, maxBatch int, onFlush func([]FileEvent)) *debouncer {
	return &debouncer{
		window:   window,
		maxBatch: maxBatch,
		pending:  make(map[string]FileEvent),
		onFlush:  onFlush,
	}
}

func (d *debouncer) Add(ev FileEvent) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending[ev.Path] = ev

	if len(d.pending) >= d.maxBatch {
		batch := d.take()
		d.mu.Unlock()
		d.onFlush(batch)
		return
	}

	d.timer = time.AfterFunc(d.window, d.flush)
	d.mu.Unlock()
}

func (d *debouncer) flush() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	batch := d.take()
	d.mu.Unlock()

	if len(batch) > 0 {
		d.onFlush(batch)
	}
}

// take drains pending and clears the timer. Callers hold mu.
func (d *debouncer) take() []FileEvent {
	batch := make([]FileEvent, 0, len(d.pending))
	for _, ev := range d.pending {
		batch = append(batch, ev)
	}
	d.pending = make(map[string]FileEvent)
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return batch
}

// Stop flushes whatever is pending and rejects further events.
func (d *debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	batch := d.take()
	d.mu.Unlock()

	if len(batch) > 0 {
		d.onFlush(batch)
	}
}
