package persist

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/aiinpocket/n3n/editor/pkg/api"
)

type (
	// VersionStore persists flow version records. Implementations must
	// treat Put as an upsert keyed by (flow ID, version label)
	VersionStore interface {
		List(context.Context, api.FlowID) ([]*api.FlowVersion, error)
		Get(context.Context, api.FlowID, string) (*api.FlowVersion, error)
		GetPublished(context.Context, api.FlowID) (*api.FlowVersion, error)
		Put(context.Context, *api.FlowVersion) error
	}

	// MemoryStore is an in-process VersionStore used in tests and for
	// ephemeral editor sessions
	MemoryStore struct {
		flows map[api.FlowID]map[string]*api.FlowVersion
		order map[api.FlowID][]string
		mu    sync.RWMutex
	}
)

var (
	ErrVersionNotFound    = errors.New("version not found")
	ErrNoPublishedVersion = errors.New("no published version")
)

var _ VersionStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory version store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flows: map[api.FlowID]map[string]*api.FlowVersion{},
		order: map[api.FlowID][]string{},
	}
}

// List returns a flow's versions, newest first
func (s *MemoryStore) List(
	_ context.Context, flowID api.FlowID,
) ([]*api.FlowVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	labels := s.order[flowID]
	res := make([]*api.FlowVersion, 0, len(labels))
	for i := len(labels) - 1; i >= 0; i-- {
		res = append(res, s.flows[flowID][labels[i]].Clone())
	}
	return res, nil
}

// Get returns the version with the given label
func (s *MemoryStore) Get(
	_ context.Context, flowID api.FlowID, version string,
) (*api.FlowVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.flows[flowID][version]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, version)
	}
	return v.Clone(), nil
}

// GetPublished returns the flow's published version, if any
func (s *MemoryStore) GetPublished(
	_ context.Context, flowID api.FlowID,
) (*api.FlowVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.flows[flowID] {
		if v.Status == api.VersionPublished {
			return v.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoPublishedVersion, flowID)
}

// Put creates or replaces a version record
func (s *MemoryStore) Put(_ context.Context, v *api.FlowVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byLabel, ok := s.flows[v.FlowID]
	if !ok {
		byLabel = map[string]*api.FlowVersion{}
		s.flows[v.FlowID] = byLabel
	}
	if _, exists := byLabel[v.Version]; !exists {
		s.order[v.FlowID] = append(s.order[v.FlowID], v.Version)
	}
	byLabel[v.Version] = v.Clone()
	return nil
}

// Delete removes a version record, primarily for tests
func (s *MemoryStore) Delete(
	_ context.Context, flowID api.FlowID, version string,
) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.flows[flowID], version)
	s.order[flowID] = slices.DeleteFunc(
		s.order[flowID], func(label string) bool {
			return label == version
		},
	)
}
