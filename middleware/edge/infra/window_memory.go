package infra

import (
	"container/list"
	"context"
	"sync"
	"time"

	"edge-gateway/middleware/edge/domain"
)

// MemoryWindowStore é uma implementação de janela fixa por identidade em memória,
// com limpeza periódica de entradas ociosas e um teto de entradas (LRU).
//
// Todo Hit acontece sob o mesmo mutex, então incremento e comparação são
// atômicos por identidade.
type MemoryWindowStore struct {
	mu      sync.Mutex
	entries map[domain.Identity]*list.Element
	lru     *list.List // frente = usado mais recentemente

	window       time.Duration
	max          int64
	idleTTL      time.Duration
	cleanupEvery time.Duration
	maxEntries   int
	clock        domain.Clock
}

type windowEntry struct {
	id       domain.Identity
	start    time.Time
	count    int64
	lastSeen time.Time
}

type MemoryWindowOption func(*MemoryWindowStore)

// WithIdleTTL define por quanto tempo uma identidade sem tráfego é mantida.
// Entradas cuja janela ainda não expirou nunca são removidas pela limpeza.
func WithIdleTTL(d time.Duration) MemoryWindowOption {
	return func(s *MemoryWindowStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) MemoryWindowOption {
	return func(s *MemoryWindowStore) { s.cleanupEvery = d }
}

// WithMaxEntries limita o número de identidades; ao passar do limite a menos
// usada recentemente é descartada. 0 desliga o limite.
func WithMaxEntries(n int) MemoryWindowOption {
	return func(s *MemoryWindowStore) { s.maxEntries = n }
}

func WithClock(c domain.Clock) MemoryWindowOption {
	return func(s *MemoryWindowStore) { s.clock = c }
}

func NewMemoryWindowStore(window time.Duration, max int64, opts ...MemoryWindowOption) *MemoryWindowStore {
	s := &MemoryWindowStore{
		entries:      make(map[domain.Identity]*list.Element),
		lru:          list.New(),
		window:       window,
		max:          max,
		idleTTL:      window,
		cleanupEvery: 2 * time.Minute,
		maxEntries:   100_000,
		clock:        domain.SystemClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryWindowStore) Window() time.Duration       { return s.window }
func (s *MemoryWindowStore) Max() int64                  { return s.max }
func (s *MemoryWindowStore) CleanupEvery() time.Duration { return s.cleanupEvery }

// Hit implementa domain.WindowStore.
func (s *MemoryWindowStore) Hit(_ context.Context, id domain.Identity, now time.Time) (domain.WindowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ent *windowEntry
	if el, ok := s.entries[id]; ok {
		ent = el.Value.(*windowEntry)
		s.lru.MoveToFront(el)
		if !now.Before(ent.start.Add(s.window)) {
			ent.start = now
			ent.count = 0
		}
	} else {
		ent = &windowEntry{id: id, start: now}
		s.entries[id] = s.lru.PushFront(ent)
		s.evictLocked()
	}

	ent.count++
	ent.lastSeen = now
	return s.stateLocked(ent), nil
}

// Snapshot devolve o estado atual da janela sem incrementar.
func (s *MemoryWindowStore) Snapshot(id domain.Identity) (domain.WindowState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[id]
	if !ok {
		return domain.WindowState{}, false
	}
	return s.stateLocked(el.Value.(*windowEntry)), true
}

func (s *MemoryWindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup remove identidades ociosas há mais de idleTTL cuja janela já expirou.
func (s *MemoryWindowStore) Cleanup() int {
	now := s.clock.Now()
	cutoff := now.Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for el := s.lru.Back(); el != nil; {
		ent := el.Value.(*windowEntry)
		if !ent.lastSeen.Before(cutoff) {
			// daqui pra frente todas foram vistas depois do cutoff
			break
		}
		prev := el.Prev()
		if !now.Before(ent.start.Add(s.window)) {
			s.lru.Remove(el)
			delete(s.entries, ent.id)
			removed++
		}
		el = prev
	}
	return removed
}

// StartJanitor inicia uma goroutine que limpa identidades inativas periodicamente.
// Pare cancelando o contexto.
func (s *MemoryWindowStore) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context no janitor.
type DoneContext interface {
	Done() <-chan struct{}
}

func (s *MemoryWindowStore) evictLocked() {
	if s.maxEntries <= 0 {
		return
	}
	for len(s.entries) > s.maxEntries {
		el := s.lru.Back()
		if el == nil {
			return
		}
		s.lru.Remove(el)
		delete(s.entries, el.Value.(*windowEntry).id)
	}
}

func (s *MemoryWindowStore) stateLocked(ent *windowEntry) domain.WindowState {
	return domain.WindowState{
		Start:    ent.start,
		Count:    ent.count,
		Max:      s.max,
		Duration: s.window,
	}
}
