package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerOnlyLastCallIssuesRequest(t *testing.T) {
	d := NewDebouncer[string](150 * time.Millisecond)
	var issued atomic.Int32

	lookup := func(term string) func(context.Context) (string, error) {
		return func(context.Context) (string, error) {
			issued.Add(1)
			return term, nil
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, term := range []string{"b", "be"} {
		wg.Add(1)
		go func(i int, term string) {
			defer wg.Done()
			_, errs[i] = d.Do(context.Background(), lookup(term))
		}(i, term)
		time.Sleep(15 * time.Millisecond)
	}

	got, err := d.Do(context.Background(), lookup("ber"))
	wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, "ber", got)
	assert.Equal(t, int32(1), issued.Load())
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrSuperseded)
	}
}

func TestDebouncerDiscardsStaleResult(t *testing.T) {
	d := NewDebouncer[string](0)
	started := make(chan struct{})
	release := make(chan struct{})

	var (
		stale    string
		staleErr error
		done     = make(chan struct{})
	)
	go func() {
		defer close(done)
		stale, staleErr = d.Do(context.Background(), func(context.Context) (string, error) {
			close(started)
			<-release
			return "old", nil
		})
	}()
	<-started

	fresh, err := d.Do(context.Background(), func(context.Context) (string, error) {
		return "new", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "new", fresh)

	close(release)
	<-done
	assert.ErrorIs(t, staleErr, ErrSuperseded)
	assert.Empty(t, stale)
}

func TestDebouncerPassesThroughErrors(t *testing.T) {
	d := NewDebouncer[int](0)
	boom := errors.New("boom")

	_, err := d.Do(context.Background(), func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestDebouncerHonoursContext(t *testing.T) {
	d := NewDebouncer[int](time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Do(ctx, func(context.Context) (int, error) {
		t.Fatal("request must not be issued")
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
