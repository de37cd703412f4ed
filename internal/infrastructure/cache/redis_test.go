package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type entry struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

func TestRedisCacheGet(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewRedisCache(rdb, "aflo:", zap.NewNop())
	ctx := context.Background()

	mock.ExpectGet("aflo:pattern:p-1").SetVal(`{"id":"p-1","code":"approval"}`)
	var hit entry
	ok, err := c.Get(ctx, "pattern:p-1", &hit)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entry{ID: "p-1", Code: "approval"}, hit)

	mock.ExpectGet("aflo:pattern:p-2").RedisNil()
	var miss entry
	ok, err = c.Get(ctx, "pattern:p-2", &miss)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectGet("aflo:pattern:p-3").SetVal(`not json`)
	ok, err = c.Get(ctx, "pattern:p-3", &miss)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectGet("aflo:pattern:p-4").SetErr(errors.New("connection reset"))
	_, err = c.Get(ctx, "pattern:p-4", &miss)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheSetAndDelete(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewRedisCache(rdb, "aflo:", zap.NewNop())
	ctx := context.Background()

	mock.ExpectSet("aflo:template:t-1", `{"id":"t-1","code":"purchase"}`, time.Minute).SetVal("OK")
	require.NoError(t, c.Set(ctx, "template:t-1", entry{ID: "t-1", Code: "purchase"}, time.Minute))

	mock.ExpectDel("aflo:template:t-1", "aflo:pattern:p-1").SetVal(2)
	require.NoError(t, c.Delete(ctx, "template:t-1", "pattern:p-1"))

	assert.NoError(t, c.Delete(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNopCacheAlwaysMisses(t *testing.T) {
	var c Nop
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", entry{ID: "x"}, time.Minute))
	ok, err := c.Get(ctx, "k", &entry{})
	require.NoError(t, err)
	assert.False(t, ok)
}
