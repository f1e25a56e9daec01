package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProgressStore struct {
	steps map[string]string
	err   error
}

func (f *fakeProgressStore) UpdateProgress(ctx context.Context, searchID, step string) error {
	if f.err != nil {
		return f.err
	}
	f.steps[searchID] = step
	return nil
}

func TestPostgresSink(t *testing.T) {
	store := &fakeProgressStore{steps: map[string]string{}}
	sink := NewPostgresSink(store)

	require.NoError(t, sink.Record(context.Background(), Event{SearchID: "s1", Step: StepAISynthesisStart}))
	assert.Equal(t, "ai_synthesis_start", store.steps["s1"])

	store.err = errors.New("conn refused")
	err := sink.Record(context.Background(), Event{SearchID: "s1", Step: StepCompleted})
	assert.ErrorContains(t, err, "postgres progress: conn refused")
}

func newRedisSink(t *testing.T, ttl time.Duration) (*RedisSink, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSink(client, ttl), mr
}

func TestRedisSink_RecordAndGet(t *testing.T) {
	sink, mr := newRedisSink(t, time.Hour)
	ctx := context.Background()
	at := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)

	require.NoError(t, sink.Record(ctx, Event{SearchID: "s1", Step: StepFailed, Message: "boom", At: at}))

	assert.Equal(t, "failed", mr.HGet(RedisKey("s1"), "step"))
	assert.Equal(t, "boom", mr.HGet(RedisKey("s1"), "message"))
	assert.Equal(t, time.Hour, mr.TTL(RedisKey("s1")))

	ev, ok, err := sink.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Event{SearchID: "s1", Step: StepFailed, Message: "boom", At: at}, ev)
}

func TestRedisSink_Expiry(t *testing.T) {
	sink, mr := newRedisSink(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, sink.Record(ctx, Event{SearchID: "s1", Step: StepDataGatheringStart, At: time.Now()}))
	mr.FastForward(2 * time.Minute)

	_, ok, err := sink.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSink_Unavailable(t *testing.T) {
	sink, mr := newRedisSink(t, time.Minute)
	mr.Close()

	err := sink.Record(context.Background(), Event{SearchID: "s1", Step: StepCompleted})
	assert.ErrorContains(t, err, "redis progress")
}

func TestTrackerWithRedisSink(t *testing.T) {
	sink, mr := newRedisSink(t, time.Hour)
	tr := NewTracker(sink)

	require.NoError(t, tr.Advance(context.Background(), "s9", StepDataGatheringStart))
	require.NoError(t, tr.Advance(context.Background(), "s9", StepAISynthesisStart))
	assert.Equal(t, "ai_synthesis_start", mr.HGet(RedisKey("s9"), "step"))
}
