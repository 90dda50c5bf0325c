package infra

import (
	"context"
	"sync/atomic"

	"edge-gateway/middleware/edge/domain"
)

// SemaphorePool é um domain.SlotPool sobre um channel com capacidade fixa.
type SemaphorePool struct {
	sem      chan struct{}
	rejected atomic.Int64
}

var _ domain.SlotPool = (*SemaphorePool)(nil)

func NewSemaphorePool(capacity int) *SemaphorePool {
	return &SemaphorePool{sem: make(chan struct{}, capacity)}
}

func (p *SemaphorePool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.sem <- struct{}{}:
		var once atomic.Bool
		return func() {
			if once.CompareAndSwap(false, true) {
				<-p.sem
			}
		}, true
	case <-ctx.Done():
		p.rejected.Add(1)
		return nil, false
	}
}

// InFlight devolve quantas vagas estão ocupadas agora.
func (p *SemaphorePool) InFlight() int { return len(p.sem) }

func (p *SemaphorePool) Capacity() int { return cap(p.sem) }

// Rejected conta as aquisições que desistiram por ctx encerrado.
func (p *SemaphorePool) Rejected() int64 { return p.rejected.Load() }
