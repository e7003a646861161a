package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store and the locker.
const DefaultPrefix = "espalier:scene:"

// noExpiry is the index score of scenes saved without TTL (2100-01-01).
const noExpiry = 4102444800

// Store implements ports.SceneStore using Redis.
// Each scene is a JSON string; a ZSET index scored by expiry backs List.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration of saved scenes.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New connects to a Redis server.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a store on an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client { return s.client }

func (s *Store) key(sceneID string) string {
	return s.prefix + sceneID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save writes the scene and refreshes its index entry in one pipeline.
func (s *Store) Save(ctx context.Context, sceneID string, scene *domain.SceneRecord) error {
	data, err := json.Marshal(scene)
	if err != nil {
		return fmt.Errorf("failed to marshal scene: %w", err)
	}

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = noExpiry
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(sceneID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: sceneID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves a scene.
func (s *Store) Load(ctx context.Context, sceneID string) (*domain.SceneRecord, error) {
	val, err := s.client.Get(ctx, s.key(sceneID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSceneNotFound, sceneID)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var scene domain.SceneRecord
	if err := json.Unmarshal(val, &scene); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scene %s: %w", sceneID, err)
	}
	return &scene, nil
}

// Delete removes the scene and its index entry.
func (s *Store) Delete(ctx context.Context, sceneID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(sceneID))
	pipe.ZRem(ctx, s.indexKey(), sceneID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// List prunes expired index entries, then returns the remaining scene ids.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired scenes: %w", err)
	}

	scenes, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}
	return scenes, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
