package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/aiinpocket/n3n/editor/pkg/api"
)

type (
	// RedisStore persists flow versions in Redis. Each flow keeps a hash
	// of version label to record JSON; listing orders records by their
	// creation timestamps
	RedisStore struct {
		client *redis.Client
		prefix string
	}

	// RedisConfig holds connection settings for the version store
	RedisConfig struct {
		Addr     string
		Password string
		Prefix   string
		DB       int
	}
)

var _ VersionStore = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed version store
func NewRedisStore(cfg RedisConfig) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: cfg.Prefix,
	}
}

// Ping verifies connectivity to the Redis backend
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// List returns a flow's versions, newest first
func (s *RedisStore) List(
	ctx context.Context, flowID api.FlowID,
) ([]*api.FlowVersion, error) {
	raw, err := s.client.HGetAll(ctx, s.versionsKey(flowID)).Result()
	if err != nil {
		return nil, err
	}

	res := make([]*api.FlowVersion, 0, len(raw))
	for _, data := range raw {
		var v api.FlowVersion
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, err
		}
		res = append(res, &v)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

// Get returns the version with the given label
func (s *RedisStore) Get(
	ctx context.Context, flowID api.FlowID, version string,
) (*api.FlowVersion, error) {
	data, err := s.client.HGet(ctx, s.versionsKey(flowID), version).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, version)
	}
	if err != nil {
		return nil, err
	}

	var v api.FlowVersion
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetPublished returns the flow's published version, if any
func (s *RedisStore) GetPublished(
	ctx context.Context, flowID api.FlowID,
) (*api.FlowVersion, error) {
	versions, err := s.List(ctx, flowID)
	if err != nil {
		return nil, err
	}
	for _, v := range versions {
		if v.Status == api.VersionPublished {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoPublishedVersion, flowID)
}

// Put creates or replaces a version record
func (s *RedisStore) Put(ctx context.Context, v *api.FlowVersion) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.HSet(
		ctx, s.versionsKey(v.FlowID), v.Version, data,
	).Err()
}

func (s *RedisStore) versionsKey(flowID api.FlowID) string {
	return fmt.Sprintf("%s:flow:%s:versions", s.prefix, flowID)
}
