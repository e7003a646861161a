package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/registry"
	"github.com/aretw0/espalier/pkg/scene"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates scene access. Unused lock entries are reference counted
// away so the map does not grow with every scene ever touched.
type Manager struct {
	store ports.SceneStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker   ports.DistributedLocker
	lockTTL  time.Duration
	registry *registry.Registry
	sceneOpt []scene.Option
	logger   *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithSceneOptions adds options applied to every scene the Manager builds.
func WithSceneOptions(opts ...scene.Option) Option {
	return func(m *Manager) {
		m.sceneOpt = append(m.sceneOpt, opts...)
	}
}

// NewManager creates a Manager on store. reg recreates models on restore.
func NewManager(store ports.SceneStore, reg *registry.Registry, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		locks:    make(map[string]*lockEntry),
		lockTTL:  DefaultLockTTL,
		registry: reg,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sceneID) after unlocking.
func (m *Manager) acquire(sceneID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sceneID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sceneID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sceneID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sceneID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sceneID)
	}
}

// NewScene builds an empty scene configured like the ones the Manager restores.
func (m *Manager) NewScene() *scene.Scene {
	opts := append([]scene.Option{
		scene.WithRegistry(m.registry),
		scene.WithLogger(m.logger),
	}, m.sceneOpt...)
	return scene.New(opts...)
}

func (m *Manager) restore(rec *domain.SceneRecord) (*scene.Scene, error) {
	s := m.NewScene()
	if err := s.Restore(rec); err != nil {
		return nil, err
	}
	return s, nil
}

// Open restores a stored scene.
func (m *Manager) Open(ctx context.Context, sceneID string) (*scene.Scene, error) {
	var s *scene.Scene
	err := m.WithLock(ctx, sceneID, func(ctx context.Context) error {
		rec, err := m.store.Load(ctx, sceneID)
		if err != nil {
			return err
		}
		s, err = m.restore(rec)
		if err != nil {
			return fmt.Errorf("failed to restore scene %s: %w", sceneID, err)
		}
		return nil
	})
	return s, err
}

// OpenOrCreate restores a scene, or stores and returns an empty one.
func (m *Manager) OpenOrCreate(ctx context.Context, sceneID string) (*scene.Scene, error) {
	var s *scene.Scene
	err := m.WithLock(ctx, sceneID, func(ctx context.Context) error {
		rec, err := m.store.Load(ctx, sceneID)
		if err == nil {
			s, err = m.restore(rec)
			if err != nil {
				return fmt.Errorf("failed to restore scene %s: %w", sceneID, err)
			}
			return nil
		}
		if !errors.Is(err, domain.ErrSceneNotFound) {
			return fmt.Errorf("failed to check scene existence: %w", err)
		}

		s = m.NewScene()
		// Persist immediately to reserve the ID
		if err := m.store.Save(ctx, sceneID, s.Save()); err != nil {
			return fmt.Errorf("failed to initialize scene: %w", err)
		}
		m.logger.Info("scene created", "scene_id", sceneID)
		return nil
	})
	return s, err
}

// Commit saves a scene, logging what changed since the stored version.
func (m *Manager) Commit(ctx context.Context, sceneID string, s *scene.Scene) error {
	return m.WithLock(ctx, sceneID, func(ctx context.Context) error {
		return m.commit(ctx, sceneID, s.Save())
	})
}

func (m *Manager) commit(ctx context.Context, sceneID string, rec *domain.SceneRecord) error {
	prev, err := m.store.Load(ctx, sceneID)
	if err != nil && !errors.Is(err, domain.ErrSceneNotFound) {
		return fmt.Errorf("failed to load previous scene: %w", err)
	}
	if err := m.store.Save(ctx, sceneID, rec); err != nil {
		return fmt.Errorf("failed to save scene %s: %w", sceneID, err)
	}
	if diff := domain.DiffScenes(sceneID, prev, rec); diff != nil {
		m.logger.Debug("scene committed",
			"scene_id", sceneID,
			"added_nodes", len(diff.AddedNodes),
			"removed_nodes", len(diff.RemovedNodes),
			"moved_nodes", len(diff.MovedNodes),
			"changed_models", len(diff.ChangedModels),
			"added_connections", len(diff.AddedConnections),
			"removed_connections", len(diff.RemovedConnections),
		)
	}
	return nil
}

// Update runs fn on a freshly restored scene and commits the result when fn
// succeeds, all under the scene lock. The scene is created if missing. It
// returns the diff that was committed, or nil when fn changed nothing.
func (m *Manager) Update(ctx context.Context, sceneID string, fn func(*scene.Scene) error) (*domain.SceneDiff, error) {
	var diff *domain.SceneDiff
	err := m.WithLock(ctx, sceneID, func(ctx context.Context) error {
		prev, err := m.store.Load(ctx, sceneID)
		if err != nil && !errors.Is(err, domain.ErrSceneNotFound) {
			return err
		}
		s, err := m.restore(prev)
		if err != nil {
			return fmt.Errorf("failed to restore scene %s: %w", sceneID, err)
		}
		if err := fn(s); err != nil {
			return err
		}

		rec := s.Save()
		diff = domain.DiffScenes(sceneID, prev, rec)
		if diff == nil && prev != nil {
			return nil
		}
		if err := m.store.Save(ctx, sceneID, rec); err != nil {
			return fmt.Errorf("failed to save scene %s: %w", sceneID, err)
		}
		return nil
	})
	return diff, err
}

// Delete removes the scene from the store.
func (m *Manager) Delete(ctx context.Context, sceneID string) error {
	return m.WithLock(ctx, sceneID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sceneID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Registry returns the model registry scenes are restored with.
func (m *Manager) Registry() *registry.Registry {
	return m.registry
}

// Store returns the underlying scene store.
func (m *Manager) Store() ports.SceneStore {
	return m.store
}

// WithLock executes fn while holding the lock for the scene.
func (m *Manager) WithLock(ctx context.Context, sceneID string, fn func(context.Context) error) error {
	entry := m.acquire(sceneID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sceneID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sceneID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"scene_id", sceneID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
