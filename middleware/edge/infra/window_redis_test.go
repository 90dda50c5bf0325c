package infra

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisWindowStore_CountsAndExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisWindowStore(rdb, time.Minute, 2, WithWindowPrefix("test:win:"))
	ctx := context.Background()
	now := time.Now()

	for i := int64(1); i <= 3; i++ {
		st, err := s.Hit(ctx, "1.2.3.4", now)
		if err != nil {
			t.Fatalf("hit %d: %v", i, err)
		}
		if st.Count != i {
			t.Fatalf("hit %d: expected count %d, got %d", i, i, st.Count)
		}
	}

	if ttl := mr.TTL("test:win:1.2.3.4"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected key ttl within the window, got %s", ttl)
	}

	mr.FastForward(time.Minute)

	st, err := s.Hit(ctx, "1.2.3.4", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("hit after expiry: %v", err)
	}
	if st.Count != 1 || st.Exceeded() {
		t.Fatalf("expected fresh window after expiry, got %+v", st)
	}
}

func TestRedisWindowStore_StartDerivedFromTTL(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewRedisWindowStore(rdb, time.Minute, 10)
	now := time.Now()

	st, err := s.Hit(context.Background(), "k", now)
	if err != nil {
		t.Fatalf("hit: %v", err)
	}
	if d := st.ResetAt().Sub(now); d <= 0 || d > time.Minute {
		t.Fatalf("expected reset within one window, got %s", d)
	}
}

func TestRedisWindowStore_IdentitiesAreIndependent(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewRedisWindowStore(rdb, time.Minute, 1)
	ctx := context.Background()

	a, _ := s.Hit(ctx, "a", time.Now())
	b, _ := s.Hit(ctx, "b", time.Now())
	if a.Count != 1 || b.Count != 1 {
		t.Fatalf("expected independent counters, got a=%d b=%d", a.Count, b.Count)
	}
}

func TestRedisWindowStore_ReturnsErrorWhenRedisIsDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisWindowStore(rdb, time.Minute, 1)
	mr.Close()

	if _, err := s.Hit(context.Background(), "k", time.Now()); err == nil {
		t.Fatalf("expected error with redis down")
	}
}
