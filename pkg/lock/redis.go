package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/snackpack/pkg/observability"
)

const (
	defaultPrefix  = "snackpack:lock:"
	defaultTTL     = 10 * time.Minute
	minPoll        = 50 * time.Millisecond
	maxPoll        = 2 * time.Second
	releaseTimeout = 5 * time.Second
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lease never removes a lock someone else has since taken.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisConfig configures a [Redis] locker.
type RedisConfig struct {
	URL     string        // redis://[:password@]host:port/db
	Prefix  string        // Key prefix (default: "snackpack:lock:")
	TTL     time.Duration // Lease expiry if the holder dies (default: 10m)
	Timeout time.Duration // Max wait in Acquire (default: DefaultTimeout)
}

// Redis is a Locker shared by every instance talking to the same server.
type Redis struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// NewRedis connects to cfg.URL and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return newRedis(client, cfg), nil
}

func newRedis(client *redis.Client, cfg RedisConfig) *Redis {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Redis{client: client, prefix: cfg.Prefix, ttl: cfg.TTL, timeout: cfg.Timeout}
}

func (r *Redis) Acquire(ctx context.Context, key string) (Lease, error) {
	start := time.Now()
	wait, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rkey := r.prefix + key
	token := uuid.NewString()
	poll := minPoll

	for {
		ok, err := r.client.SetNX(wait, rkey, token, r.ttl).Result()
		if err == nil && ok {
			observability.Lock().OnLockAcquired(ctx, key, time.Since(start))
			return &redisLease{client: r.client, key: rkey, token: token}, nil
		}
		if err != nil && wait.Err() == nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}

		select {
		case <-time.After(poll):
			poll = min(poll*2, maxPoll)
		case <-wait.Done():
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			waited := time.Since(start)
			observability.Lock().OnLockTimeout(ctx, key, waited)
			return nil, timeoutError(key, waited)
		}
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}

type redisLease struct {
	client *redis.Client
	key    string
	token  string
}

// Release runs even when ctx is already done, so a cancelled request still
// frees its lock.
func (l *redisLease) Release(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}

var _ Locker = (*Redis)(nil)
