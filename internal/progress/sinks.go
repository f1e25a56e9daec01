package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProgressStore is the database side of the Postgres sink.
type ProgressStore interface {
	UpdateProgress(ctx context.Context, searchID, step string) error
}

// PostgresSink writes the step onto the search row.
type PostgresSink struct {
	store ProgressStore
}

// NewPostgresSink creates a PostgresSink.
func NewPostgresSink(store ProgressStore) *PostgresSink {
	return &PostgresSink{store: store}
}

// Record implements Sink.
func (s *PostgresSink) Record(ctx context.Context, ev Event) error {
	if err := s.store.UpdateProgress(ctx, ev.SearchID, string(ev.Step)); err != nil {
		return fmt.Errorf("postgres progress: %w", err)
	}
	return nil
}

// RedisKey is the hash holding the progress of a search.
func RedisKey(searchID string) string {
	return "research:progress:" + searchID
}

// RedisSink mirrors progress into a Redis hash that expires after ttl.
type RedisSink struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisSink creates a RedisSink.
func NewRedisSink(client redis.UniversalClient, ttl time.Duration) *RedisSink {
	return &RedisSink{client: client, ttl: ttl}
}

// Record implements Sink.
func (s *RedisSink) Record(ctx context.Context, ev Event) error {
	key := RedisKey(ev.SearchID)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"step", string(ev.Step),
			"message", ev.Message,
			"updated_at", ev.At.Format(time.RFC3339Nano))
		p.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis progress: %w", err)
	}
	return nil
}

// Get reads the progress of a search back from Redis. ok is false when the key
// is missing or expired.
func (s *RedisSink) Get(ctx context.Context, searchID string) (ev Event, ok bool, err error) {
	vals, err := s.client.HGetAll(ctx, RedisKey(searchID)).Result()
	if err != nil {
		return Event{}, false, fmt.Errorf("redis progress: %w", err)
	}
	if len(vals) == 0 {
		return Event{}, false, nil
	}
	ev = Event{SearchID: searchID, Step: Step(vals["step"]), Message: vals["message"]}
	if at, perr := time.Parse(time.RFC3339Nano, vals["updated_at"]); perr == nil {
		ev.At = at
	}
	return ev, true, nil
}
