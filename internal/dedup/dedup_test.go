package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobharvest/internal/normalizer"
	"jobharvest/pkg/models"
)

func record(title, company, source string) models.JobRecord {
	return models.JobRecord{
		IdentityKey: normalizer.IdentityKey(title, company),
		Title:       title,
		Company:     company,
		Source:      source,
	}
}

func TestDedupFirstSeenWins(t *testing.T) {
	in := []models.JobRecord{
		record("Actuary", "Acme", "a"),
		record("actuary", " ACME ", "b"),
		record("Analyst", "Acme", "b"),
		record("Analyst", "acme", "c"),
	}

	out := Dedup(in)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Source)
	assert.Equal(t, "Actuary", out[0].Title)
	assert.Equal(t, "b", out[1].Source)
	assert.Equal(t, "Analyst", out[1].Title)

	// input untouched
	assert.Len(t, in, 4)
	assert.Equal(t, "b", in[1].Source)
}

func TestDedupIsDeterministic(t *testing.T) {
	in := []models.JobRecord{
		record("B", "x", "1"),
		record("A", "x", "1"),
		record("b", "X", "2"),
	}
	assert.Equal(t, Dedup(in), Dedup(in))
	assert.Empty(t, Dedup(nil))
}

func TestFilterSeenAcrossRuns(t *testing.T) {
	seen := NewMemorySeen()
	ctx := context.Background()

	first, err := FilterSeen(ctx, seen, []models.JobRecord{record("Actuary", "Acme", "a")})
	require.NoError(t, err)
	assert.Len(t, first, 1)
	assert.Zero(t, seen.Len())
	require.NoError(t, MarkSeen(ctx, seen, first))

	second, err := FilterSeen(ctx, seen, []models.JobRecord{
		record("Actuary", "Acme", "a"),
		record("Analyst", "Acme", "a"),
	})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "Analyst", second[0].Title)
	assert.Equal(t, 1, seen.Len())
}

func TestUnmarkedRecordsStayFresh(t *testing.T) {
	seen := NewMemorySeen()
	ctx := context.Background()
	in := []models.JobRecord{record("Actuary", "Acme", "a")}

	first, err := FilterSeen(ctx, seen, in)
	require.NoError(t, err)
	second, err := FilterSeen(ctx, seen, in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

type fakeRedis struct {
	keys map[string]interface{}
	ttls map[string]time.Duration
	err  error
}

func (f *fakeRedis) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = value
	f.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func TestRedisSeenUsesPrefixAndTTL(t *testing.T) {
	fake := &fakeRedis{keys: map[string]interface{}{}, ttls: map[string]time.Duration{}}
	seen := &RedisSeen{client: fake, prefix: "jobharvest:seen:", ttl: time.Hour, now: time.Now}
	ctx := context.Background()

	found, err := seen.Contains(ctx, "actuary|acme")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, seen.Mark(ctx, "actuary|acme"))
	assert.Contains(t, fake.keys, "jobharvest:seen:actuary|acme")
	assert.Equal(t, time.Hour, fake.ttls["jobharvest:seen:actuary|acme"])

	found, err = seen.Contains(ctx, "actuary|acme")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestFilterSeenKeepsRecordsOnStoreError(t *testing.T) {
	fake := &fakeRedis{err: errors.New("connection refused")}
	seen := &RedisSeen{client: fake, prefix: "p:", ttl: time.Hour, now: time.Now}

	in := []models.JobRecord{record("Actuary", "Acme", "a"), record("Analyst", "Acme", "a")}
	out, err := FilterSeen(context.Background(), seen, in)
	assert.Error(t, err)
	assert.Equal(t, in, out)
	assert.Error(t, MarkSeen(context.Background(), seen, in))
}
