package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another worker already runs the client.
var ErrLockHeld = errors.New("matching run already in progress")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock guarantees at most one matching run per client across workers.
type RunLock struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRunLock(rdb redis.UniversalClient, ttl time.Duration) *RunLock {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RunLock{rdb: rdb, ttl: ttl}
}

func lockKey(clientID string) string {
	return "matching:run:" + clientID
}

// Acquire takes the lock for clientID. The returned release func is safe to
// call after the lock expired.
func (l *RunLock) Acquire(ctx context.Context, clientID string) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, lockKey(clientID), token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.rdb, []string{lockKey(clientID)}, token).Err(); err != nil {
			return fmt.Errorf("release run lock: %w", err)
		}
		return nil
	}, nil
}
