package application

import (
	"context"
	"time"

	"edge-gateway/middleware/edge/domain"
)

// AcquireSlot pega uma vaga do pool esperando no máximo wait (wait <= 0 espera
// até o ctx encerrar). Pool nil sempre concede.
func AcquireSlot(ctx context.Context, pool domain.SlotPool, wait time.Duration) (func(), bool) {
	if pool == nil {
		return func() {}, true
	}
	if wait <= 0 {
		return pool.Acquire(ctx)
	}

	acqCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	return pool.Acquire(acqCtx)
}
