package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aiinpocket/n3n/editor/pkg/api"
	"github.com/aiinpocket/n3n/editor/pkg/log"
)

type (
	// State is the coordinator's persistence state
	State string

	// SnapshotFunc supplies a deep copy of the current graph for a write
	SnapshotFunc func() *api.FlowDefinition

	// SavedFunc is invoked after a successful write that captured every
	// edit made so far, so the graph's dirty flag can be cleared
	SavedFunc func()

	// Coordinator reconciles manual save, publishing, and debounced
	// autosave against the graph's dirty state. It is the single writer
	// to the version store for its flow. Edits are reported through
	// NotifyEdit, which arms a trailing debounce timer; the timer resets
	// on every further edit, so a save happens no more often than the
	// delay and never drops the final state
	Coordinator struct {
		store     VersionStore
		snapshot  SnapshotFunc
		onSaved   SavedFunc
		now       Clock
		makeTimer TimerConstructor
		timer     Timer
		stop      chan struct{}
		flowID    api.FlowID
		draft     string
		state     State
		delay     time.Duration
		editGen   uint64
		closed    bool
		mu        sync.Mutex
		saveMu    sync.Mutex
		wg        sync.WaitGroup
	}

	// Option configures a Coordinator
	Option func(*Coordinator)
)

const (
	StateClean  State = "clean"
	StateDirty  State = "dirty"
	StateSaving State = "saving"
)

const (
	// DefaultAutoSaveDelay is the trailing-debounce window for autosave
	DefaultAutoSaveDelay = 3 * time.Second

	// InitialDraftVersion is the draft slot used by autosave before any
	// version has been saved explicitly
	InitialDraftVersion = "0.1.0"
)

var (
	ErrVersionExists     = errors.New("version already exists")
	ErrVersionNotDraft   = errors.New("version is not a draft")
	ErrAlreadyPublished  = errors.New("version already published")
	ErrCoordinatorClosed = errors.New("coordinator closed")
)

// WithAutoSaveDelay overrides the debounce window
func WithAutoSaveDelay(delay time.Duration) Option {
	return func(c *Coordinator) {
		c.delay = delay
	}
}

// WithClock overrides the coordinator's clock and timer constructor,
// primarily for deterministic tests
func WithClock(now Clock, makeTimer TimerConstructor) Option {
	return func(c *Coordinator) {
		c.now = now
		c.makeTimer = makeTimer
	}
}

// WithDraftVersion sets the draft slot targeted by autosave, typically
// the version the editor session loaded
func WithDraftVersion(version string) Option {
	return func(c *Coordinator) {
		c.draft = version
	}
}

// NewCoordinator creates a persistence coordinator for one flow and
// starts its autosave loop
func NewCoordinator(
	flowID api.FlowID, store VersionStore, snapshot SnapshotFunc,
	onSaved SavedFunc, opts ...Option,
) *Coordinator {
	c := &Coordinator{
		store:     store,
		snapshot:  snapshot,
		onSaved:   onSaved,
		now:       time.Now,
		makeTimer: NewTimer,
		stop:      make(chan struct{}),
		flowID:    flowID,
		draft:     InitialDraftVersion,
		state:     StateClean,
		delay:     DefaultAutoSaveDelay,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.timer = c.makeTimer(c.delay)
	c.timer.Stop()
	c.wg.Go(c.run)
	return c
}

// State returns the coordinator's current persistence state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DraftVersion returns the label of the draft slot autosave targets
func (c *Coordinator) DraftVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// NotifyEdit records that the graph was mutated and (re)arms the
// debounce timer. Each edit before the timer fires pushes the autosave
// back by the full delay
func (c *Coordinator) NotifyEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.editGen++
	if c.state == StateClean {
		c.state = StateDirty
	}
	c.timer.Reset(c.delay)
}

// AutoSaveDraft writes the current graph into the draft slot without
// changing its version label. Safe to call repeatedly; yields without
// writing when a manual save or publish is in flight
func (c *Coordinator) AutoSaveDraft(ctx context.Context) error {
	if !c.saveMu.TryLock() {
		// A manual save or publish is in flight; autosave yields and
		// the timer is re-armed so the final state is not dropped
		c.mu.Lock()
		if !c.closed && c.state != StateClean {
			c.timer.Reset(c.delay)
		}
		c.mu.Unlock()
		return nil
	}
	defer c.saveMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrCoordinatorClosed
	}
	if c.state == StateClean {
		c.mu.Unlock()
		return nil
	}
	gen := c.editGen
	draft := c.draft
	c.state = StateSaving
	c.mu.Unlock()

	def := c.snapshot()
	err := c.writeDraft(ctx, draft, def)
	c.settle(gen, err)
	if err != nil {
		slog.Warn("Autosave failed; will retry on next edit",
			log.FlowID(c.flowID),
			log.Version(draft),
			log.Error(err))
		return err
	}

	slog.Debug("Draft autosaved",
		log.FlowID(c.flowID),
		log.Version(draft))
	return nil
}

// SaveVersion creates a new draft version with the given label and the
// current graph snapshot. The label must be a well-formed semantic
// version that does not already exist for this flow
func (c *Coordinator) SaveVersion(
	ctx context.Context, label string,
) (*api.FlowVersion, error) {
	if err := api.ValidateVersionLabel(label); err != nil {
		return nil, fmt.Errorf("%w: %s", err, label)
	}

	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrCoordinatorClosed
	}
	gen := c.editGen
	c.state = StateSaving
	c.mu.Unlock()

	if _, err := c.store.Get(ctx, c.flowID, label); err == nil {
		c.revert()
		return nil, fmt.Errorf("%w: %s", ErrVersionExists, label)
	} else if !errors.Is(err, ErrVersionNotFound) {
		c.revert()
		return nil, err
	}

	now := c.now()
	version := &api.FlowVersion{
		CreatedAt:  now,
		UpdatedAt:  now,
		Definition: c.snapshot(),
		FlowID:     c.flowID,
		Version:    label,
		Status:     api.VersionDraft,
	}
	if err := c.store.Put(ctx, version); err != nil {
		c.settle(gen, err)
		return nil, err
	}

	c.mu.Lock()
	c.draft = label
	c.mu.Unlock()
	c.settle(gen, nil)

	slog.Info("Flow version saved",
		log.FlowID(c.flowID),
		log.Version(label))
	return version, nil
}

// PublishVersion promotes an existing draft version to published status,
// demoting any previously published version to deprecated. At most one
// version is published per flow at any time
func (c *Coordinator) PublishVersion(
	ctx context.Context, label string,
) (*api.FlowVersion, error) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	version, err := c.store.Get(ctx, c.flowID, label)
	if err != nil {
		return nil, err
	}
	if version.Status == api.VersionPublished {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyPublished, label)
	}

	if current, err := c.store.GetPublished(ctx, c.flowID); err == nil {
		current.Status = api.VersionDeprecated
		current.UpdatedAt = c.now()
		if err := c.store.Put(ctx, current); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, ErrNoPublishedVersion) {
		return nil, err
	}

	version.Status = api.VersionPublished
	version.UpdatedAt = c.now()
	if err := c.store.Put(ctx, version); err != nil {
		return nil, err
	}

	slog.Info("Flow version published",
		log.FlowID(c.flowID),
		log.Version(label))
	return version, nil
}

// Close cancels any pending autosave and stops the coordinator
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.timer.Stop()
	close(c.stop)
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Coordinator) run() {
	for {
		select {
		case <-c.stop:
			return
		case <-c.timer.Channel():
			_ = c.AutoSaveDraft(context.Background())
		}
	}
}

// writeDraft upserts the draft slot, refusing to touch a record that has
// been published or deprecated; autosave never overwrites an immutable
// snapshot
func (c *Coordinator) writeDraft(
	ctx context.Context, label string, def *api.FlowDefinition,
) error {
	now := c.now()
	version, err := c.store.Get(ctx, c.flowID, label)
	switch {
	case errors.Is(err, ErrVersionNotFound):
		version = &api.FlowVersion{
			CreatedAt: now,
			FlowID:    c.flowID,
			Version:   label,
			Status:    api.VersionDraft,
		}
	case err != nil:
		return err
	case !version.IsDraft():
		return fmt.Errorf("%w: %s", ErrVersionNotDraft, label)
	}

	version.Definition = def
	version.UpdatedAt = now
	return c.store.Put(ctx, version)
}

// revert leaves StateSaving without a completed write, restoring the
// dirty state so a retry can succeed
func (c *Coordinator) revert() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSaving {
		c.state = StateDirty
	}
}

// settle transitions out of StateSaving once a write attempt finishes.
// The dirty flag is only cleared when the write succeeded and no edit
// arrived while it was in flight
func (c *Coordinator) settle(gen uint64, err error) {
	c.mu.Lock()
	if err != nil {
		if c.state == StateSaving {
			c.state = StateDirty
		}
		c.mu.Unlock()
		return
	}
	if c.editGen != gen {
		c.state = StateDirty
		if !c.closed {
			c.timer.Reset(c.delay)
		}
		c.mu.Unlock()
		return
	}
	c.state = StateClean
	c.timer.Stop()
	c.mu.Unlock()
	if c.onSaved != nil {
		c.onSaved()
	}
}
