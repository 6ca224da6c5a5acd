package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"edge-proxy/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// slideScript aplica a janela deslizante sobre a lista da chave dentro do
// Redis. Devolve {admitido, entradas na janela, timestamp mais antigo}.
// Entradas que não são inteiros fazem o script falhar.
var slideScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local size = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local kept = {}
local oldest = nil
for _, v in ipairs(redis.call('LRANGE', KEYS[1], 0, -1)) do
  local ts = tonumber(v)
  if ts == nil then
    return redis.error_reply('corrupt window entry: ' .. v)
  end
  if now - ts < size then
    kept[#kept + 1] = v
    if oldest == nil or ts < oldest then
      oldest = ts
    end
  end
end

if #kept >= limit then
  return {0, #kept, oldest}
end

kept[#kept + 1] = ARGV[1]
redis.call('DEL', KEYS[1])
for _, v in ipairs(kept) do
  redis.call('RPUSH', KEYS[1], v)
end
if ttl > 0 then
  redis.call('PEXPIRE', KEYS[1], ttl)
end
return {1, #kept, 0}
`)

// RedisWindowStore guarda o log de cada chave em uma lista Redis. A janela é
// aplicada por um script Lua, então várias instâncias do gateway dividem o
// mesmo limite sem corrida entre leitura e escrita.
type RedisWindowStore struct {
	rdb redis.UniversalClient

	prefix string
	ttl    time.Duration
}

type RedisStoreOption func(*RedisWindowStore)

func WithStorePrefix(prefix string) RedisStoreOption {
	return func(s *RedisWindowStore) { s.prefix = strings.Trim(prefix, ":") }
}

// WithStoreTTL define a expiração da chave a cada escrita. Sem ela, usa o
// tamanho da janela: depois disso nenhuma entrada ainda contaria.
func WithStoreTTL(d time.Duration) RedisStoreOption {
	return func(s *RedisWindowStore) { s.ttl = d }
}

func NewRedisWindowStore(rdb redis.UniversalClient, opts ...RedisStoreOption) *RedisWindowStore {
	s := &RedisWindowStore{
		rdb:    rdb,
		prefix: "ratelimit:window",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisWindowStore) key(k domain.Key) string { return s.prefix + ":" + string(k) }

// Apply implementa domain.WindowStore.
func (s *RedisWindowStore) Apply(ctx context.Context, key domain.Key, at time.Time, w domain.Window) (domain.Decision, error) {
	size := w.Size.Milliseconds()
	ttl := s.ttl
	if ttl <= 0 {
		ttl = w.Size
	}

	rk := s.key(key)
	res, err := slideScript.Run(ctx, s.rdb, []string{rk},
		at.UnixMilli(), size, w.Limit, ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return domain.Decision{}, fmt.Errorf("sliding window %q: %w", rk, err)
	}
	if len(res) < 2 {
		return domain.Decision{}, fmt.Errorf("sliding window %q: unexpected reply %v", rk, res)
	}

	dec := domain.Decision{Limit: w.Limit}
	if res[0] == 1 {
		dec.Allowed = true
		dec.Remaining = w.Limit - int(res[1])
		return dec, nil
	}
	if len(res) > 2 {
		dec.ResetAt = time.UnixMilli(res[2] + size).UTC()
	}
	return dec, nil
}
