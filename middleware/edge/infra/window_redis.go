package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"edge-gateway/middleware/edge/domain"

	"github.com/redis/go-redis/v9"
)

// hitScript incrementa o contador da janela e, no primeiro hit, define a expiração.
// Retorna {contagem, ttl em ms}. Roda atômico no servidor.
var hitScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisWindowStore guarda as janelas no Redis, compartilhadas entre instâncias.
// A expiração da chave encerra a janela, então não há crescimento sem limite.
type RedisWindowStore struct {
	rdb    redis.Scripter
	prefix string
	window time.Duration
	max    int64
}

type RedisWindowOption func(*RedisWindowStore)

func WithWindowPrefix(prefix string) RedisWindowOption {
	return func(s *RedisWindowStore) { s.prefix = strings.Trim(prefix, ":") }
}

func NewRedisWindowStore(rdb redis.Scripter, window time.Duration, max int64, opts ...RedisWindowOption) *RedisWindowStore {
	s := &RedisWindowStore{
		rdb:    rdb,
		prefix: "edge:window",
		window: window,
		max:    max,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisWindowStore) Window() time.Duration { return s.window }
func (s *RedisWindowStore) Max() int64            { return s.max }

// Hit implementa domain.WindowStore. O início da janela é inferido pelo TTL
// restante, já que quem controla a expiração é o Redis.
func (s *RedisWindowStore) Hit(ctx context.Context, id domain.Identity, now time.Time) (domain.WindowState, error) {
	ms := s.window.Milliseconds()
	if ms <= 0 {
		ms = 1
	}

	res, err := hitScript.Run(ctx, s.rdb, []string{s.key(id)}, ms).Int64Slice()
	if err != nil {
		return domain.WindowState{}, fmt.Errorf("redis window hit: %w", err)
	}
	if len(res) != 2 {
		return domain.WindowState{}, fmt.Errorf("redis window hit: unexpected reply %v", res)
	}

	ttl := time.Duration(res[1]) * time.Millisecond
	return domain.WindowState{
		Start:    now.Add(ttl - s.window),
		Count:    res[0],
		Max:      s.max,
		Duration: s.window,
	}, nil
}

func (s *RedisWindowStore) key(id domain.Identity) string {
	return s.prefix + ":" + string(id)
}
