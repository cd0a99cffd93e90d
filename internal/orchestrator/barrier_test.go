package orchestrator

import (
	"context"
	"testing"
	"time"
)

func TestBarrierIgnoresOtherSeats(t *testing.T) {
	t.Parallel()

	var b Barrier
	if b.Acknowledge("ana") {
		t.Fatalf("acknowledged an unarmed barrier")
	}
	b.Arm("ana")
	if b.Acknowledge("bo") {
		t.Fatalf("acknowledged the wrong seat")
	}
	if seat, waiting := b.Holder(); seat != "ana" || !waiting {
		t.Fatalf("unexpected holder: %q %v", seat, waiting)
	}

	result := make(chan BarrierResult, 1)
	go func() { result <- b.Wait(context.Background(), 0) }()
	time.Sleep(10 * time.Millisecond)
	if !b.Acknowledge("ana") {
		t.Fatalf("holder acknowledgement rejected")
	}
	select {
	case got := <-result:
		if got != BarrierAcknowledged {
			t.Fatalf("unexpected result: got=%s want=%s", got, BarrierAcknowledged)
		}
	case <-time.After(time.Second):
		t.Fatalf("wait did not return after acknowledgement")
	}
	if b.Acknowledge("ana") {
		t.Fatalf("second acknowledgement accepted")
	}
}

func TestBarrierTimeoutDisarms(t *testing.T) {
	t.Parallel()

	var b Barrier
	b.Arm("ana")
	if got := b.Wait(context.Background(), 10*time.Millisecond); got != BarrierTimedOut {
		t.Fatalf("unexpected result: got=%s want=%s", got, BarrierTimedOut)
	}
	if _, waiting := b.Holder(); waiting {
		t.Fatalf("barrier still armed after timeout")
	}
	if b.Acknowledge("ana") {
		t.Fatalf("stale acknowledgement accepted")
	}
}

func TestBarrierCancel(t *testing.T) {
	t.Parallel()

	var b Barrier
	b.Arm("ana")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := b.Wait(ctx, time.Hour); got != BarrierCancelled {
		t.Fatalf("unexpected result: got=%s want=%s", got, BarrierCancelled)
	}
}
