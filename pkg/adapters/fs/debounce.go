package fs

import (
	"sync"
	"time"
)

// debouncer coalesces rapid triggers into a single callback invocation.
type debouncer struct {
	window   time.Duration
	callback func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer(window time.Duration, callback func()) *debouncer {
	return &debouncer{window: window, callback: callback}
}

// trigger resets the timer. The callback fires once the window elapses with
// no further triggers.
func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}
	d.wg.Add(1)
	d.timer = time.AfterFunc(d.window, func() {
		defer d.wg.Done()
		d.callback()
	})
}

// stopAndWait cancels any pending callback and waits up to timeout for a
// running one to return.
func (d *debouncer) stopAndWait(timeout time.Duration) bool {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
