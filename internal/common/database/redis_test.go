package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opportunity-workers/internal/common/config"
)

type cachedValue struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func TestRedisClient_JSONRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx))

	var miss cachedValue
	found, err := client.GetJSON(ctx, "analysis:missing", &miss)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, client.SetJSON(ctx, "analysis:1", cachedValue{Name: "acme", Score: 85}, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("analysis:1"))

	var hit cachedValue
	found, err = client.GetJSON(ctx, "analysis:1", &hit)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cachedValue{Name: "acme", Score: 85}, hit)

	mr.FastForward(2 * time.Minute)
	found, err = client.GetJSON(ctx, "analysis:1", &hit)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisClient_GetJSON_Errors(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	client := NewRedisFromClient(rdb)
	ctx := context.Background()

	mock.ExpectGet("k1").SetErr(errors.New("READONLY"))
	_, err := client.GetJSON(ctx, "k1", &cachedValue{})
	assert.EqualError(t, err, "READONLY")

	mock.ExpectGet("k2").SetVal("not-json")
	_, err = client.GetJSON(ctx, "k2", &cachedValue{})
	assert.ErrorContains(t, err, "decode cached value")

	mock.ExpectPing().SetErr(redis.ErrClosed)
	assert.ErrorContains(t, client.Ping(ctx), "redis ping failed")

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, client.Close())
}
