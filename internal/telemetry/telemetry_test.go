package telemetry

import (
	"context"
	"testing"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	t.Parallel()

	shutdown, err := Setup(context.Background(), "avalon", "  ")
	if err != nil {
		t.Fatalf("unexpected setup error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
	if Tracer() == nil {
		t.Fatalf("expected a tracer")
	}
}
