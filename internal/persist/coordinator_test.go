package persist_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiinpocket/n3n/editor/internal/assert/helpers"
	"github.com/aiinpocket/n3n/editor/internal/persist"
	"github.com/aiinpocket/n3n/editor/pkg/api"
)

type (
	testCoordEnv struct {
		Coord  *persist.Coordinator
		Store  *countingStore
		Clock  *helpers.FakeClock
		Timer  *helpers.FakeTimer
		saved  atomic.Int64
		def    *api.FlowDefinition
	}

	// countingStore wraps the memory store and counts writes
	countingStore struct {
		*persist.MemoryStore
		puts atomic.Int64
	}
)

func (s *countingStore) Put(ctx context.Context, v *api.FlowVersion) error {
	s.puts.Add(1)
	return s.MemoryStore.Put(ctx, v)
}

func newCoordEnv(t *testing.T) *testCoordEnv {
	t.Helper()

	env := &testCoordEnv{
		Store: &countingStore{MemoryStore: persist.NewMemoryStore()},
		Clock: helpers.NewFakeClock(),
		Timer: helpers.NewFakeTimer(),
		def:   helpers.LinearDefinition(),
	}
	env.Coord = persist.NewCoordinator(
		"flow-1", env.Store,
		func() *api.FlowDefinition { return env.def.Clone() },
		func() { env.saved.Add(1) },
		persist.WithClock(env.Clock.Now, env.Timer.Constructor()),
	)
	t.Cleanup(env.Coord.Close)
	return env
}

func (env *testCoordEnv) waitClean(t *testing.T) {
	t.Helper()
	helpers.WaitFor(t, func() bool {
		return env.Coord.State() == persist.StateClean
	})
}

func TestRapidEditsProduceOneAutosave(t *testing.T) {
	env := newCoordEnv(t)

	for range 5 {
		env.Coord.NotifyEdit()
	}
	assert.Equal(t, persist.StateDirty, env.Coord.State())
	assert.Equal(t, 5, env.Timer.Resets())

	require.True(t, env.Timer.Fire())
	env.waitClean(t)

	assert.Equal(t, int64(1), env.Store.puts.Load())
	assert.Equal(t, int64(1), env.saved.Load())
}

func TestAutoSaveTargetsDraftSlot(t *testing.T) {
	env := newCoordEnv(t)

	env.Coord.NotifyEdit()
	require.NoError(t, env.Coord.AutoSaveDraft(context.Background()))

	v, err := env.Store.Get(
		context.Background(), "flow-1", persist.InitialDraftVersion,
	)
	require.NoError(t, err)
	assert.Equal(t, api.VersionDraft, v.Status)
	assert.Len(t, v.Definition.Nodes, 3)
	assert.Equal(t, env.Clock.Now(), v.UpdatedAt)
}

func TestAutoSaveCleanIsNoOp(t *testing.T) {
	env := newCoordEnv(t)

	require.NoError(t, env.Coord.AutoSaveDraft(context.Background()))
	assert.Equal(t, int64(0), env.Store.puts.Load())
}

func TestAutoSaveRefusesPublishedSlot(t *testing.T) {
	env := newCoordEnv(t)

	now := env.Clock.Now()
	require.NoError(t, env.Store.Put(context.Background(), &api.FlowVersion{
		CreatedAt:  now,
		UpdatedAt:  now,
		Definition: &api.FlowDefinition{},
		FlowID:     "flow-1",
		Version:    persist.InitialDraftVersion,
		Status:     api.VersionPublished,
	}))
	env.Store.puts.Store(0)

	env.Coord.NotifyEdit()
	err := env.Coord.AutoSaveDraft(context.Background())
	assert.ErrorIs(t, err, persist.ErrVersionNotDraft)
	assert.Equal(t, persist.StateDirty, env.Coord.State())
	assert.Equal(t, int64(0), env.Store.puts.Load())
}

func TestEditDuringSaveKeepsDirty(t *testing.T) {
	store := &countingStore{MemoryStore: persist.NewMemoryStore()}
	clock := helpers.NewFakeClock()
	timer := helpers.NewFakeTimer()
	var saved atomic.Int64

	var coord *persist.Coordinator
	coord = persist.NewCoordinator(
		"flow-1", store,
		func() *api.FlowDefinition {
			// An edit lands while the snapshot is being taken, so the
			// write cannot capture it
			coord.NotifyEdit()
			return helpers.LinearDefinition()
		},
		func() { saved.Add(1) },
		persist.WithClock(clock.Now, timer.Constructor()),
	)
	t.Cleanup(coord.Close)

	coord.NotifyEdit()
	require.NoError(t, coord.AutoSaveDraft(context.Background()))

	// The write happened, but the dirty flag survives and another
	// autosave is armed for the uncaptured edit
	assert.Equal(t, int64(1), store.puts.Load())
	assert.Equal(t, int64(0), saved.Load())
	assert.Equal(t, persist.StateDirty, coord.State())
	assert.True(t, timer.IsArmed())
}

func TestSaveVersion(t *testing.T) {
	env := newCoordEnv(t)
	env.Coord.NotifyEdit()

	v, err := env.Coord.SaveVersion(context.Background(), "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.Version)
	assert.Equal(t, api.VersionDraft, v.Status)
	assert.Equal(t, persist.StateClean, env.Coord.State())
	assert.Equal(t, int64(1), env.saved.Load())

	// Autosave now targets the newly saved label
	assert.Equal(t, "1.0.0", env.Coord.DraftVersion())
}

func TestSaveVersionInvalidLabel(t *testing.T) {
	env := newCoordEnv(t)

	for _, label := range []string{"", "banana", "1.0", "v1.0.0 beta"} {
		_, err := env.Coord.SaveVersion(context.Background(), label)
		assert.ErrorIs(t, err, api.ErrInvalidVersionLabel, label)
	}
	assert.Equal(t, int64(0), env.Store.puts.Load())
}

func TestSaveVersionDuplicateLabel(t *testing.T) {
	env := newCoordEnv(t)

	_, err := env.Coord.SaveVersion(context.Background(), "1.0.0")
	require.NoError(t, err)

	env.Coord.NotifyEdit()
	_, err = env.Coord.SaveVersion(context.Background(), "1.0.0")
	assert.ErrorIs(t, err, persist.ErrVersionExists)

	// The failed save did not clear the dirty state
	assert.Equal(t, persist.StateDirty, env.Coord.State())
}

func TestPublishVersion(t *testing.T) {
	env := newCoordEnv(t)

	_, err := env.Coord.SaveVersion(context.Background(), "1.0.0")
	require.NoError(t, err)

	v, err := env.Coord.PublishVersion(context.Background(), "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, api.VersionPublished, v.Status)

	pub, err := env.Store.GetPublished(context.Background(), "flow-1")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", pub.Version)
}

func TestPublishDemotesPrevious(t *testing.T) {
	env := newCoordEnv(t)
	ctx := context.Background()

	_, err := env.Coord.SaveVersion(ctx, "1.0.0")
	require.NoError(t, err)
	_, err = env.Coord.PublishVersion(ctx, "1.0.0")
	require.NoError(t, err)

	env.Coord.NotifyEdit()
	_, err = env.Coord.SaveVersion(ctx, "1.1.0")
	require.NoError(t, err)
	_, err = env.Coord.PublishVersion(ctx, "1.1.0")
	require.NoError(t, err)

	old, err := env.Store.Get(ctx, "flow-1", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, api.VersionDeprecated, old.Status)

	pub, err := env.Store.GetPublished(ctx, "flow-1")
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", pub.Version)
}

func TestPublishAlreadyPublished(t *testing.T) {
	env := newCoordEnv(t)
	ctx := context.Background()

	_, err := env.Coord.SaveVersion(ctx, "1.0.0")
	require.NoError(t, err)
	_, err = env.Coord.PublishVersion(ctx, "1.0.0")
	require.NoError(t, err)

	_, err = env.Coord.PublishVersion(ctx, "1.0.0")
	assert.ErrorIs(t, err, persist.ErrAlreadyPublished)
}

func TestPublishUnknownVersion(t *testing.T) {
	env := newCoordEnv(t)

	_, err := env.Coord.PublishVersion(context.Background(), "9.9.9")
	assert.ErrorIs(t, err, persist.ErrVersionNotFound)
}

func TestCloseCancelsPendingAutosave(t *testing.T) {
	env := newCoordEnv(t)

	env.Coord.NotifyEdit()
	env.Coord.Close()

	err := env.Coord.AutoSaveDraft(context.Background())
	assert.ErrorIs(t, err, persist.ErrCoordinatorClosed)
	assert.Equal(t, int64(0), env.Store.puts.Load())

	_, err = env.Coord.SaveVersion(context.Background(), "1.0.0")
	assert.ErrorIs(t, err, persist.ErrCoordinatorClosed)
}

func TestSaveStampsClockTime(t *testing.T) {
	env := newCoordEnv(t)

	start := env.Clock.Now()
	env.Clock.Advance(42 * time.Minute)

	v, err := env.Coord.SaveVersion(context.Background(), "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, start.Add(42*time.Minute), v.CreatedAt)
}
