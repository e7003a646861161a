package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/espalier/pkg/adapters/redis"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunSceneStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "scene-ttl", &domain.SceneRecord{}))

	scenes, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, scenes, "scene-ttl")

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "scene-ttl")
	assert.ErrorIs(t, err, domain.ErrSceneNotFound)

	// The index is pruned against wall-clock time, which FastForward does not move.
	time.Sleep(1200 * time.Millisecond)

	scenes, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, scenes)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "my-scene", &domain.SceneRecord{}))

	assert.True(t, mr.Exists("custom:app:my-scene"))
	assert.True(t, mr.Exists("custom:app:index"))

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"my-scene"}, list)
}
