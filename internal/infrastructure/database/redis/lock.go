package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/patentdb/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/patentdb/pkg/errors"
)

const (
	keyPrefix      = "patentdb:lock:"
	releaseTimeout = 3 * time.Second
	// MinLockTTL is the shortest TTL a Locker uses; PEXPIRE works in whole
	// milliseconds and the watchdog ticks at a third of the TTL.
	MinLockTTL = 30 * time.Millisecond
)

var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Locker is a Redis mutex per key.  Each acquisition stores a random token
// under the key with a TTL; a watchdog keeps extending the TTL while the
// holder runs, so a crashed holder frees the key after at most one TTL.
type Locker struct {
	client *Client
	ttl    time.Duration
	wait   time.Duration
	logger logging.Logger
}

// NewLocker returns a Locker.  ttl bounds how long a dead holder blocks
// others; wait is the polling delay while the key is held.  A zero ttl
// means 30s and anything shorter than MinLockTTL is raised to it.
func NewLocker(client *Client, ttl, wait time.Duration, log logging.Logger) *Locker {
	switch {
	case ttl <= 0:
		ttl = 30 * time.Second
	case ttl < MinLockTTL:
		ttl = MinLockTTL
	}
	if wait <= 0 {
		wait = 100 * time.Millisecond
	}
	return &Locker{client: client, ttl: ttl, wait: wait, logger: log}
}

// Lock blocks until key is acquired or ctx is done.  The returned function
// releases the key; calling it more than once is harmless.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	if l.client.isClosed() {
		return nil, ErrClientClosed
	}
	rkey := buildLockKey(key)
	token := uuid.New().String()
	rdb := l.client.GetUnderlyingClient()

	for {
		ok, err := rdb.SetNX(ctx, rkey, token, l.ttl).Result()
		if err != nil && err != redis.Nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.Wrap(err, errors.CodeCacheError, "failed to set lock").WithDetail("key=" + rkey)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.wait):
		}
	}

	wdCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go l.watchdog(wdCtx, rkey, token, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			l.release(rkey, token)
		})
	}, nil
}

func (l *Locker) release(rkey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	res, err := unlockScript.Run(ctx, l.client.GetUnderlyingClient(), []string{rkey}, token).Int64()
	if err != nil {
		l.logger.Error("Failed to release lock", logging.String("key", rkey), logging.Err(err))
		return
	}
	if res == 0 {
		l.logger.Warn("Lock expired before release", logging.String("key", rkey))
	}
}

func (l *Locker) watchdog(ctx context.Context, rkey, token string, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := extendScript.Run(ctx, l.client.GetUnderlyingClient(), []string{rkey}, token, l.ttl.Milliseconds()).Int64()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Watchdog failed to extend lock", logging.String("key", rkey), logging.Err(err))
				return
			}
			if res == 0 {
				l.logger.Warn("Watchdog lost lock", logging.String("key", rkey))
				return
			}
		}
	}
}

func buildLockKey(name string) string {
	return keyPrefix + name
}

//Personal.AI order the ending
