package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Amount string `json:"amount"`
}

func newTestCache(t *testing.T) (*Versioned, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVersioned(client, "test", time.Minute), mr
}

func TestFetchJSONCachesUntilBump(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return payload{Amount: "8.75"}, nil
	}

	key, err := c.BuildKey(ctx, "balance", "abc")
	require.NoError(t, err)
	assert.Equal(t, "balance:abc:1", key)

	var got payload
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	assert.Equal(t, "8.75", got.Amount)
	assert.Equal(t, 1, calls)

	require.NoError(t, c.Bump(ctx))
	key, err = c.BuildKey(ctx, "balance", "abc")
	require.NoError(t, err)
	assert.Equal(t, "balance:abc:2", key)
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	assert.Equal(t, 2, calls)
}

func TestFetchJSONPropagatesLoaderError(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("boom")
	var got payload
	err := c.FetchJSON(context.Background(), "k", &got, func(context.Context) (any, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("k"))

	require.Error(t, c.FetchJSON(context.Background(), "k", &got, nil))
}

func TestStoreOverwrites(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Store(ctx, "k", payload{Amount: "1"}))

	var got payload
	require.NoError(t, c.FetchJSON(ctx, "k", &got, func(context.Context) (any, error) {
		t.Fatal("loader should not run")
		return nil, nil
	}))
	assert.Equal(t, "1", got.Amount)
}

func TestNilCacheCallsLoader(t *testing.T) {
	var c *Versioned
	ctx := context.Background()
	key, err := c.BuildKey(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "a:b", key)

	var got payload
	require.NoError(t, c.FetchJSON(ctx, key, &got, func(context.Context) (any, error) {
		return payload{Amount: "2"}, nil
	}))
	assert.Equal(t, "2", got.Amount)
	require.NoError(t, c.Bump(ctx))
	require.NoError(t, c.Store(ctx, key, got))
}

func TestFetchJSONFallsBackWhenRedisDown(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	var got payload
	err := c.FetchJSON(context.Background(), "k", &got, func(context.Context) (any, error) {
		return payload{Amount: "3"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "3", got.Amount)

	_, err = c.BuildKey(context.Background(), "a")
	require.Error(t, err)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	addr := mr.Addr()
	mr.Close()
	down, err := Connect(context.Background(), addr)
	require.ErrorContains(t, err, "platform/cache: ping")
	require.NotNil(t, down)
	_ = down.Close()
}
