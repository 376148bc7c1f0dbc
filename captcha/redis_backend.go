package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const getDelScript = `local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v`

// RedisBackend shares challenges between instances behind a load balancer.
// Expiry is left to Redis key TTLs.
type RedisBackend struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client, prefix: "captcha:", timeout: 2 * time.Second}
}

func (r *RedisBackend) key(id string) string {
	return r.prefix + id
}

// Save uses c.TTL as the key lifetime and falls back to ExpiresAt for
// challenges built outside a Store.
func (r *RedisBackend) Save(ctx context.Context, c Challenge) error {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = time.Until(c.ExpiresAt)
	}
	if ttl <= 0 {
		return ErrAlreadyExpired
	}
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.Set(ctx, r.key(c.ID), b, ttl).Err()
}

func (r *RedisBackend) Take(ctx context.Context, id string) (Challenge, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	key := r.key(id)

	raw, err := r.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return Challenge{}, false, nil
	}
	if err != nil {
		// GETDEL needs Redis >= 6.2
		res, evalErr := r.client.Eval(ctx, getDelScript, []string{key}).Result()
		if errors.Is(evalErr, redis.Nil) || (evalErr == nil && res == nil) {
			return Challenge{}, false, nil
		}
		if evalErr != nil {
			return Challenge{}, false, evalErr
		}
		s, ok := res.(string)
		if !ok {
			return Challenge{}, false, nil
		}
		raw = s
	}

	var c Challenge
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Challenge{}, false, err
	}
	c.ID = id
	return c, true, nil
}

func (r *RedisBackend) Sweep(context.Context, time.Time) error {
	return nil
}
