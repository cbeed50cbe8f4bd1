package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"github.com/redis/go-redis/v9"
)

// Only the holder's token may release the key.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Only the holder's token may push the expiry forward.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

var errNotHolder = errors.New("key is no longer held by this token")

// Redis is a SET NX PX lock for deployments with more than one engine replica.
// The TTL bounds how long a crashed holder blocks others. While the lock is held
// it is extended every TTL/3.
type Redis struct {
	rdb   *redis.Client
	key   string
	ttl   time.Duration
	retry time.Duration
}

func NewRedis(rdb *redis.Client, key string, ttl time.Duration) *Redis {
	if key == "" {
		key = "nhsjobs:cycle-lock"
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Redis{rdb: rdb, key: key, ttl: ttl, retry: 250 * time.Millisecond}
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (r *Redis) Lock(ctx context.Context) (context.Context, func(), error) {
	token := uuid.NewString()
	t := time.NewTicker(r.retry)
	defer t.Stop()

	for {
		ok, err := r.rdb.SetNX(ctx, r.key, token, r.ttl).Result()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrNotAcquired, err)
		}
		if ok {
			held, unlock := r.hold(ctx, token)
			return held, unlock, nil
		}

		select {
		case <-ctx.Done():
			return nil, nil, fmt.Errorf("%w: %v", ErrNotAcquired, ctx.Err())
		case <-t.C:
		}
	}
}

func (r *Redis) hold(ctx context.Context, token string) (context.Context, func()) {
	held, lost := context.WithCancelCause(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})

	extend := func(ctx context.Context) error {
		n, err := extendScript.Run(ctx, r.rdb, []string{r.key}, token, r.ttl.Milliseconds()).Int()
		if err != nil {
			return err
		}
		if n == 0 {
			return errNotHolder
		}
		return nil
	}
	go func() {
		defer close(done)
		keepAlive(stop, max(r.ttl/3, time.Millisecond), extend, lost)
	}()

	return held, func() {
		close(stop)
		<-done
		lost(nil)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, r.rdb, []string{r.key}, token).Err()
	}
}

// keepAlive calls extend every interval until stop is closed. The first failed
// extend cancels the held context with ErrLockLost and ends the loop.
func keepAlive(stop <-chan struct{}, every time.Duration, extend func(context.Context) error, lost context.CancelCauseFunc) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), every)
		err := extend(ctx)
		cancel()
		if err != nil {
			log.Warn().Str("component", "runlock").Err(err).Msg("run lock extend failed")
			lost(fmt.Errorf("%w: %v", ErrLockLost, err))
			return
		}
	}
}
