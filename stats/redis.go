package stats

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRecorder is a Redis-backed Recorder. Counts are kept in hashes so a
// fleet of replicas reports into a single place:
//
//	{prefix}:total                     -> allowed / denied
//	{prefix}:op:{operation}            -> allowed / denied
//	{prefix}:client:{operation}|{ip}   -> allowed / denied (expiring)
//
// Per-client keys carry a TTL to keep high-cardinality client sets from
// growing without bound; the total and per-operation hashes are cumulative.
type RedisRecorder struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisRecorder.
type RedisOption func(*RedisRecorder)

// WithPrefix sets the key prefix (default "ratelimit:stats").
func WithPrefix(prefix string) RedisOption {
	return func(r *RedisRecorder) { r.prefix = prefix }
}

// WithTTL sets the expiry on per-client hashes (default 24h).
func WithTTL(d time.Duration) RedisOption {
	return func(r *RedisRecorder) { r.ttl = d }
}

// NewRedis creates a recorder on top of an existing Redis client.
func NewRedis(client *redis.Client, opts ...RedisOption) *RedisRecorder {
	r := &RedisRecorder{
		client: client,
		prefix: "ratelimit:stats",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record implements Recorder using a single pipelined round trip.
func (r *RedisRecorder) Record(ctx context.Context, ev Event) error {
	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	pipe := r.client.Pipeline()
	pipe.HIncrBy(ctx, r.prefix+":total", field, 1)

	if ev.Operation != "" {
		pipe.HIncrBy(ctx, r.prefix+":op:"+ev.Operation, field, 1)
	}
	if ev.Client != "" {
		key := r.prefix + ":client:" + ev.Operation + "|" + ev.Client
		pipe.HIncrBy(ctx, key, field, 1)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}
