package persist_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiinpocket/n3n/editor/internal/persist"
	"github.com/aiinpocket/n3n/editor/pkg/api"
)

func newRedisStore(t *testing.T) *persist.RedisStore {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	store := persist.NewRedisStore(persist.RedisConfig{
		Addr:   server.Addr(),
		Prefix: "test",
	})
	t.Cleanup(func() {
		_ = store.Close()
	})
	require.NoError(t, store.Ping(context.Background()))
	return store
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)

	v := makeVersion("flow-1", "0.1.0", api.VersionDraft)
	require.NoError(t, store.Put(ctx, v))

	got, err := store.Get(ctx, "flow-1", "0.1.0")
	require.NoError(t, err)
	assert.Equal(t, v.FlowID, got.FlowID)
	assert.Equal(t, v.Version, got.Version)
	assert.Equal(t, v.Status, got.Status)
	require.NotNil(t, got.Definition)
	assert.Len(t, got.Definition.Nodes, len(v.Definition.Nodes))
	assert.Len(t, got.Definition.Edges, len(v.Definition.Edges))
}

func TestRedisStoreListSortsByCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, label := range []string{"0.1.0", "0.2.0", "1.0.0"} {
		v := makeVersion("flow-1", label, api.VersionDraft)
		v.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Put(ctx, v))
	}

	versions, err := store.List(ctx, "flow-1")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, "1.0.0", versions[0].Version)
	assert.Equal(t, "0.2.0", versions[1].Version)
	assert.Equal(t, "0.1.0", versions[2].Version)
}

func TestRedisStoreUpsert(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)

	v := makeVersion("flow-1", "0.1.0", api.VersionDraft)
	require.NoError(t, store.Put(ctx, v))

	v.Status = api.VersionPublished
	require.NoError(t, store.Put(ctx, v))

	versions, err := store.List(ctx, "flow-1")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, api.VersionPublished, versions[0].Status)
}

func TestRedisStoreGetUnknown(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)

	_, err := store.Get(ctx, "flow-1", "9.9.9")
	assert.ErrorIs(t, err, persist.ErrVersionNotFound)
}

func TestRedisStoreGetPublished(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)

	require.NoError(t,
		store.Put(ctx, makeVersion("flow-1", "0.1.0", api.VersionDraft)),
	)
	_, err := store.GetPublished(ctx, "flow-1")
	assert.ErrorIs(t, err, persist.ErrNoPublishedVersion)

	require.NoError(t,
		store.Put(ctx, makeVersion("flow-1", "0.2.0", api.VersionPublished)),
	)
	published, err := store.GetPublished(ctx, "flow-1")
	require.NoError(t, err)
	assert.Equal(t, "0.2.0", published.Version)
}

func TestRedisStoreIsolatesFlows(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)

	require.NoError(t,
		store.Put(ctx, makeVersion("flow-1", "0.1.0", api.VersionDraft)),
	)
	require.NoError(t,
		store.Put(ctx, makeVersion("flow-2", "0.9.0", api.VersionDraft)),
	)

	versions, err := store.List(ctx, "flow-1")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "0.1.0", versions[0].Version)

	_, err = store.Get(ctx, "flow-1", "0.9.0")
	assert.ErrorIs(t, err, persist.ErrVersionNotFound)
}
