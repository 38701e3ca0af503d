// Package lock serialises sheet events. A single process uses Local; several
// replicas sharing one store use Redis.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/Foxglovery/BA-google-sheet-magic/pkg/logger"
	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Locker grants exclusive access until the returned unlock func is called.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// Local is an in-process Locker that honours context cancellation.
type Local struct {
	ch chan struct{}
}

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{ch: make(chan struct{}, 1)}
}

func (l *Local) Lock(ctx context.Context) (func(), error) {
	select {
	case l.ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-l.ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Redis is a Locker backed by a single Redis key.
type Redis struct {
	client *redislock.Client
	key    string
	ttl    time.Duration
	retry  time.Duration
	log    *logger.Logger
}

// NewRedis creates a locker on key. Each hold expires after ttl if it is
// never released; waiters poll every retry until ctx is done, or for at
// most ttl when ctx has no deadline.
func NewRedis(rdb *redis.Client, key string, ttl, retry time.Duration, log *logger.Logger) *Redis {
	if log == nil {
		log = logger.Nop()
	}
	return &Redis{
		client: redislock.New(rdb),
		key:    key,
		ttl:    ttl,
		retry:  retry,
		log:    log,
	}
}

func (r *Redis) Lock(ctx context.Context) (func(), error) {
	l, err := r.client.Obtain(ctx, r.key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(r.retry),
	})
	if err != nil {
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := l.Release(ctx); err != nil && err != redislock.ErrLockNotHeld {
				r.log.Warn().Err(err).Str("key", r.key).Msg("failed to release lock")
			}
		})
	}, nil
}

// IsNotObtained reports whether err means the lock stayed busy until the
// caller gave up.
func IsNotObtained(err error) bool {
	return err == redislock.ErrNotObtained
}
