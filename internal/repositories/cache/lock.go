package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const (
	lockExpiration = 30 * time.Second
	lockTries      = 1
)

// Locker hands out distributed locks keyed by name.
type Locker struct {
	rs *redsync.Redsync
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{rs: redsync.New(goredis.NewPool(client))}
}

// Acquire takes the lock once, without waiting. The returned function
// releases it.
func (l *Locker) Acquire(ctx context.Context, name string) (func(context.Context) error, error) {
	mutex := l.rs.NewMutex(
		"lock:"+name,
		redsync.WithExpiry(lockExpiration),
		redsync.WithTries(lockTries),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	return func(ctx context.Context) error {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			return fmt.Errorf("failed to release lock %s: %w", name, err)
		}
		return nil
	}, nil
}
