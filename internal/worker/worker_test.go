package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// monthSlot mirrors how the fetcher uses the pool: one job per calendar
// month, each writing only its own slot.
type monthSlot struct {
	month  int
	events int
	err    error
}

var errUpstream = errors.New("upstream unavailable")

func TestWorkerPool_FillsEveryMonthSlot(t *testing.T) {
	const months = 72 // 2020..2025
	slots := make([]monthSlot, months)

	pool := NewWorkerPool(4, months, func(ctx context.Context, i int) error {
		slots[i] = monthSlot{month: i%12 + 1, events: i * 10}
		return nil
	})
	pool.Start(context.Background())
	for i := range slots {
		pool.Submit(i)
	}
	pool.Stop()

	for i, s := range slots {
		if s.month != i%12+1 || s.events != i*10 {
			t.Errorf("slot %d holds %+v", i, s)
		}
	}
}

func TestWorkerPool_FailedJobDoesNotStopOthers(t *testing.T) {
	slots := make([]monthSlot, 12)

	pool := NewWorkerPool(3, len(slots), func(ctx context.Context, i int) error {
		if i == 5 {
			slots[i] = monthSlot{month: 6, err: errUpstream}
			return errUpstream
		}
		slots[i] = monthSlot{month: i + 1, events: 1}
		return nil
	})
	pool.Start(context.Background())
	for i := range slots {
		pool.Submit(i)
	}
	pool.Stop()

	failed := 0
	for i, s := range slots {
		if s.err != nil {
			failed++
			continue
		}
		if s.events != 1 {
			t.Errorf("month %d was not processed", i+1)
		}
	}
	if failed != 1 || !errors.Is(slots[5].err, errUpstream) {
		t.Errorf("expected only June to fail, got %d failures", failed)
	}
}

func TestWorkerPool_StopWaitsForQueuedMonths(t *testing.T) {
	var done atomic.Int64
	pool := NewWorkerPool(2, 12, func(ctx context.Context, i int) error {
		time.Sleep(2 * time.Millisecond)
		done.Add(1)
		return nil
	})
	pool.Start(context.Background())
	for i := 0; i < 12; i++ {
		pool.Submit(i)
	}
	pool.Stop()

	if done.Load() != 12 {
		t.Errorf("expected all 12 months before Stop returned, got %d", done.Load())
	}
}

func TestWorkerPool_BoundsParallelism(t *testing.T) {
	var inFlight, peak atomic.Int64
	pool := NewWorkerPool(3, 24, func(ctx context.Context, i int) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return nil
	})
	pool.Start(context.Background())
	for i := 0; i < 24; i++ {
		pool.Submit(i)
	}
	pool.Stop()

	if peak.Load() > 3 {
		t.Errorf("expected at most 3 months in flight, saw %d", peak.Load())
	}
}

func TestWorkerPool_NonPositiveConcurrencyRunsOneWorker(t *testing.T) {
	var order []int
	var mu sync.Mutex
	pool := NewWorkerPool(0, 3, func(ctx context.Context, i int) error {
		mu.Lock()
		order = append(order, i)
		mu.Unlock()
		return nil
	})
	pool.Start(context.Background())
	for i := 0; i < 3; i++ {
		pool.Submit(i)
	}
	pool.Stop()

	if len(order) != 3 || order[0] != 0 || order[2] != 2 {
		t.Errorf("expected months in submit order with one worker, got %v", order)
	}
}

func TestWorkerPool_CancelLeavesUnstartedSlotsUntouched(t *testing.T) {
	slots := make([]monthSlot, 12)
	for i := range slots {
		slots[i].err = errors.New("not fetched")
	}

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	pool := NewWorkerPool(1, len(slots), func(ctx context.Context, i int) error {
		if i == 0 {
			cancel()
			<-release
		} else if ctx.Err() != nil {
			// a cancelled request never fills its slot
			return ctx.Err()
		}
		slots[i] = monthSlot{month: i + 1}
		return nil
	})
	pool.Start(ctx)
	for i := range slots {
		pool.Submit(i)
	}
	close(release)

	finished := make(chan struct{})
	go func() {
		pool.Stop()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after cancel")
	}

	if slots[0].err != nil {
		t.Errorf("the running month should complete, got %v", slots[0].err)
	}
	untouched := 0
	for _, s := range slots[1:] {
		if s.err != nil {
			untouched++
		}
	}
	if untouched != len(slots)-1 {
		t.Errorf("expected %d months skipped after cancel, got %d", len(slots)-1, untouched)
	}
}
