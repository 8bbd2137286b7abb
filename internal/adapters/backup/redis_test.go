package backup

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisMirror(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	client, err := NewRedisClient(ctx, RedisConfig{Addr: srv.Addr()})
	require.NoError(t, err)
	defer client.Close()
	m := NewRedisMirror(client, "")

	got, err := m.Pull(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, m.Push(ctx, []byte(`["1"]`)))
	stored, err := srv.Get(DefaultStateKey)
	require.NoError(t, err)
	assert.Equal(t, `["1"]`, stored)

	got, err = m.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, `["1"]`, string(got))
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := NewRedisClient(context.Background(), RedisConfig{Addr: addr})
	assert.ErrorContains(t, err, "ping failed")
}
