package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	values map[string]string
	ttls   map[string]time.Duration
	closed bool
}

func newStubClient() *stubClient {
	return &stubClient{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *stubClient) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := c.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (c *stubClient) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	c.values[key] = value.(string)
	c.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (c *stubClient) Close() error {
	c.closed = true
	return nil
}

func TestShortCodeRoundTrip(t *testing.T) {
	client := newStubClient()
	db := NewDBWithClient(client)
	ctx := context.Background()

	_, ok, err := db.GetShortCode(ctx, "tenant-1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, db.SetShortCode(ctx, "tenant-1", "!abc12", time.Hour))
	require.Equal(t, time.Hour, client.ttls[KeyPrefixShortCode+"tenant-1"])

	code, ok, err := db.GetShortCode(ctx, "tenant-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "!abc12", code)
}

func TestClose(t *testing.T) {
	client := newStubClient()
	require.NoError(t, NewDBWithClient(client).Close())
	require.True(t, client.closed)
}
