package distlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when the caller's ownership value
// still matches, so a holder whose TTL already lapsed cannot delete a lock
// that a newer holder has since taken.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// RedisLock is a single-use distributed lock over Redis SET NX. The TTL
// bounds how long a crashed holder can block the next run.
type RedisLock struct {
	client *redis.Client
	key    string
	owner  string
	ttl    time.Duration
}

// NewRedisLock creates a lock on key. Each instance carries its own random
// ownership value; build a fresh one per acquisition.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	buf := make([]byte, 16)
	rand.Read(buf)
	return &RedisLock{
		client: client,
		key:    "lock:" + key,
		owner:  hex.EncodeToString(buf),
		ttl:    ttl,
	}
}

// Acquire attempts to take the lock. It returns false without error when
// another holder has it.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	return ok, nil
}

// Release drops the lock if this instance still owns it. Releasing a lock
// that expired or was taken over is a no-op.
func (l *RedisLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.owner).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}
