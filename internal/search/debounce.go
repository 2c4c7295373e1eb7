// Package search debounces search-as-you-type lookups.
package search

import (
	"context"
	"errors"
	"sync"
	"time"
)

const DefaultDelay = 300 * time.Millisecond

// ErrSuperseded is returned to a caller whose request was overtaken by a newer
// one, either before it was issued or after its result came back.
var ErrSuperseded = errors.New("search superseded by a newer request")

// Debouncer lets only the most recent call through. Each call waits for the
// delay; if another call arrives meanwhile the waiting one gives up without
// issuing its request, and a result that resolves after a newer call was made
// is discarded.
type Debouncer[T any] struct {
	delay time.Duration

	mu   sync.Mutex
	seq  uint64
	wake chan struct{}
}

func NewDebouncer[T any](delay time.Duration) *Debouncer[T] {
	if delay < 0 {
		delay = 0
	}
	return &Debouncer[T]{delay: delay}
}

func (d *Debouncer[T]) Do(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	d.mu.Lock()
	d.seq++
	ticket := d.seq
	if d.wake != nil {
		close(d.wake)
	}
	wake := make(chan struct{})
	d.wake = wake
	d.mu.Unlock()

	if d.delay > 0 {
		timer := time.NewTimer(d.delay)
		defer timer.Stop()
		select {
		case <-wake:
			return zero, ErrSuperseded
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	if !d.current(ticket) {
		return zero, ErrSuperseded
	}

	result, err := fn(ctx)
	if !d.current(ticket) {
		return zero, ErrSuperseded
	}
	return result, err
}

func (d *Debouncer[T]) current(ticket uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq == ticket
}
