package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitResolvesValue(t *testing.T) {
	q := New(slog.Default(), nil)

	p := q.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return true, nil
	})

	v, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestStrictSubmissionOrder(t *testing.T) {
	q := New(slog.Default(), nil)

	var mu sync.Mutex
	var order []string

	// A is slow, B is fast. B must not start before A completes.
	aStarted := make(chan struct{})
	pa := q.Submit(context.Background(), func(ctx context.Context) (any, error) {
		close(aStarted)
		time.Sleep(50 * time.Millisecond)
		mu.Lock()
		order = append(order, "a-done")
		mu.Unlock()
		return "a", nil
	})
	<-aStarted
	pb := q.Submit(context.Background(), func(ctx context.Context) (any, error) {
		mu.Lock()
		order = append(order, "b-start")
		mu.Unlock()
		return "b", nil
	})

	va, err := pa.Wait(context.Background())
	require.NoError(t, err)
	vb, err := pb.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "a", va)
	assert.Equal(t, "b", vb)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a-done", "b-start"}, order)
}

func TestFailureIsolation(t *testing.T) {
	q := New(slog.Default(), nil)

	boom := errors.New("boom")
	p1 := q.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return nil, boom
	})
	p2 := q.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return 7, nil
	})

	_, err := p1.Wait(context.Background())
	assert.ErrorIs(t, err, boom)

	// The failure of unit 1 must not block or fail unit 2.
	v, err := p2.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestLoopRestartsAfterDrain(t *testing.T) {
	q := New(slog.Default(), nil)

	p := q.Submit(context.Background(), func(ctx context.Context) (any, error) { return 1, nil })
	_, err := p.Wait(context.Background())
	require.NoError(t, err)

	// Wait for the loop to observe the empty sequence and stop.
	require.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return !q.running
	}, time.Second, time.Millisecond)

	p = q.Submit(context.Background(), func(ctx context.Context) (any, error) { return 2, nil })
	v, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestHookFiresBeforeCallerObservesFailure(t *testing.T) {
	var mu sync.Mutex
	var seen []any
	q := New(slog.Default(), func(failure any, hash string) {
		mu.Lock()
		seen = append(seen, failure)
		mu.Unlock()
	})

	boom := errors.New("engine down")
	p := q.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return nil, boom
	})

	_, err := p.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.ErrorIs(t, seen[0].(error), boom)
}

func TestPanicBecomesError(t *testing.T) {
	q := New(slog.Default(), nil)

	p := q.Submit(context.Background(), func(ctx context.Context) (any, error) {
		panic("render engine exploded")
	})
	p2 := q.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return "still alive", nil
	})

	_, err := p.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render engine exploded")

	v, err := p2.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "still alive", v)
}

func TestWaitContextCancelAbandonsWaitOnly(t *testing.T) {
	q := New(slog.Default(), nil)

	release := make(chan struct{})
	executed := make(chan struct{})
	p := q.Submit(context.Background(), func(ctx context.Context) (any, error) {
		<-release
		close(executed)
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// The unit still executes even though the waiter gave up.
	close(release)
	select {
	case <-executed:
	case <-time.After(time.Second):
		t.Fatal("unit never executed after Wait was abandoned")
	}
}

func TestConcurrentSubmittersAllResolve(t *testing.T) {
	q := New(slog.Default(), nil)

	const n = 50
	results := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := q.Submit(context.Background(), func(ctx context.Context) (any, error) {
				return i, nil
			})
			v, err := p.Wait(context.Background())
			if assert.NoError(t, err) {
				results[i] = v.(int)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.Equal(t, i, results[i])
	}
}
