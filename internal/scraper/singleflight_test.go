package scraper

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCoalescer_SingleExecution(t *testing.T) {
	t.Parallel()
	var c Coalescer
	var execCount atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			v, _, err := c.Do(context.Background(), "k", func() (any, error) {
				execCount.Add(1)
				<-release
				return "result", nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "result", v)
		})
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), execCount.Load())
}

func TestCoalescer_CallerContextCanceled(t *testing.T) {
	t.Parallel()
	var c Coalescer
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	done := make(chan error, 1)
	go func() {
		_, _, err := c.Do(ctx, "slow", func() (any, error) {
			<-release
			return nil, nil
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}
