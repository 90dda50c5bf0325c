package application

import (
	"context"
	"testing"
	"time"

	"edge-gateway/middleware/edge/infra"
)

func TestAcquireSlot_NilPoolAlwaysGrants(t *testing.T) {
	release, ok := AcquireSlot(context.Background(), nil, time.Millisecond)
	if !ok {
		t.Fatalf("expected slot")
	}
	release()
}

func TestAcquireSlot_WaitsUpToTimeout(t *testing.T) {
	pool := infra.NewSemaphorePool(1)

	release, ok := AcquireSlot(context.Background(), pool, 0)
	if !ok {
		t.Fatalf("expected first slot")
	}

	start := time.Now()
	if _, ok := AcquireSlot(context.Background(), pool, 20*time.Millisecond); ok {
		t.Fatalf("expected pool to be full")
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatalf("expected to wait for the timeout")
	}
	if pool.Rejected() != 1 {
		t.Fatalf("expected 1 rejected acquisition, got %d", pool.Rejected())
	}

	release()
	release()
	if pool.InFlight() != 0 {
		t.Fatalf("expected double release to free a single slot, got %d in flight", pool.InFlight())
	}

	r2, ok := AcquireSlot(context.Background(), pool, 20*time.Millisecond)
	if !ok {
		t.Fatalf("expected slot after release")
	}
	r2()
}

func TestAcquireSlot_CanceledContext(t *testing.T) {
	pool := infra.NewSemaphorePool(1)
	release, _ := AcquireSlot(context.Background(), pool, 0)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := AcquireSlot(ctx, pool, 0); ok {
		t.Fatalf("expected canceled context to fail")
	}
}
