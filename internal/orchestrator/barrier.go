package orchestrator

import (
	"context"
	"sync"
	"time"
)

// BarrierResult says how a barrier wait ended
type BarrierResult string

const (
	BarrierAcknowledged BarrierResult = "acknowledged"
	BarrierTimedOut     BarrierResult = "timed_out"
	BarrierCancelled    BarrierResult = "cancelled"
)

// Barrier holds the loop until whoever presents a seat's speech reports that
// it has finished. At most one seat holds the barrier at a time.
type Barrier struct {
	mu   sync.Mutex
	seat string
	done chan struct{}
}

// Arm makes seat the holder, replacing any previous holder.
func (b *Barrier) Arm(seat string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seat = seat
	b.done = make(chan struct{})
}

// Acknowledge releases the barrier if seat is the current holder. Anything
// else, including a late acknowledgement for an earlier seat, is ignored.
func (b *Barrier) Acknowledge(seat string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done == nil || seat == "" || seat != b.seat {
		return false
	}
	close(b.done)
	b.seat = ""
	b.done = nil
	return true
}

// Holder returns the seat the barrier is waiting on.
func (b *Barrier) Holder() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seat, b.done != nil
}

// Wait blocks until the armed seat is acknowledged, timeout elapses or ctx is
// done. A non-positive timeout waits without limit. The barrier is disarmed
// on return.
func (b *Barrier) Wait(ctx context.Context, timeout time.Duration) BarrierResult {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()
	if done == nil {
		return BarrierAcknowledged
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	result := BarrierAcknowledged
	select {
	case <-done:
	case <-expired:
		result = BarrierTimedOut
	case <-ctx.Done():
		result = BarrierCancelled
	}

	b.mu.Lock()
	if b.done == done {
		b.seat = ""
		b.done = nil
	}
	b.mu.Unlock()
	return result
}
