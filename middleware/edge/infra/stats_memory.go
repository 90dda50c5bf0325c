package infra

import (
	"context"
	"sync"

	"edge-gateway/middleware/edge/domain"
)

type Counters struct {
	Allowed        int64
	OriginRejected int64
	Blocked        int64
	RateLimited    int64
}

func (c *Counters) add(o domain.Outcome) {
	switch o {
	case domain.Allow:
		c.Allowed++
	case domain.RejectOrigin:
		c.OriginRejected++
	case domain.RejectBlockedIP:
		c.Blocked++
	case domain.RejectRateLimited:
		c.RateLimited++
	}
}

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes e desenvolvimento.
//
// Não faz expiração. Rotas e identidades são limitadas por maxKeys; o que
// passar disso é somado em domain.OtherLabel.
type MemoryStatsStore struct {
	mu         sync.Mutex
	total      Counters
	byRoute    map[string]Counters
	byIdentity map[domain.Identity]Counters

	trackIdentities bool
	maxKeys         int
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackIdentities(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackIdentities = track }
}

// WithMaxStatsKeys limita as entradas de cada mapa (rotas e identidades).
// n <= 0 usa o padrão (1000).
func WithMaxStatsKeys(n int) MemoryStatsOption {
	return func(s *MemoryStatsStore) {
		if n > 0 {
			s.maxKeys = n
		}
	}
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byRoute:    make(map[string]Counters),
		byIdentity: make(map[domain.Identity]Counters),
		maxKeys:    1000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	route := domain.StatsMethod(ev.Method) + " " + ev.Path

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Outcome)

	if _, ok := s.byRoute[route]; !ok && len(s.byRoute) >= s.maxKeys {
		route = domain.OtherLabel
	}
	c := s.byRoute[route]
	c.add(ev.Outcome)
	s.byRoute[route] = c

	if s.trackIdentities {
		id := ev.Identity
		if _, ok := s.byIdentity[id]; !ok && len(s.byIdentity) >= s.maxKeys {
			id = domain.OtherLabel
		}
		k := s.byIdentity[id]
		k.add(ev.Outcome)
		s.byIdentity[id] = k
	}
	return nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) ByRoute() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byRoute))
	for k, v := range s.byRoute {
		out[k] = v
	}
	return out
}

func (s *MemoryStatsStore) ByIdentity() map[domain.Identity]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Identity]Counters, len(s.byIdentity))
	for k, v := range s.byIdentity {
		out[k] = v
	}
	return out
}
