package espalier

import (
	"context"
	"log/slog"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/models"
	"github.com/aretw0/espalier/pkg/node"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/registry"
	"github.com/aretw0/espalier/pkg/scene"
	"github.com/aretw0/espalier/pkg/session"
)

// Editor is the high-level entry point of the library. It ties a model
// registry, a scene store and a session manager together.
type Editor struct {
	registry *registry.Registry
	sessions *session.Manager
	store    ports.SceneStore
	locker   ports.DistributedLocker
	hooks    domain.NodeHooks
	geometry *node.GeometryConfig
	models   []func(*registry.Registry)
	logger   *slog.Logger
}

// Option defines a functional option for configuring the Editor.
type Option func(*Editor)

// WithStore persists scenes in store instead of memory.
func WithStore(store ports.SceneStore) Option {
	return func(e *Editor) {
		e.store = store
	}
}

// WithLocker serialises scene updates across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Editor) {
		e.locker = locker
	}
}

// WithNodeHooks registers observability hooks on every node.
func WithNodeHooks(hooks domain.NodeHooks) Option {
	return func(e *Editor) {
		e.hooks = hooks
	}
}

// WithGeometryConfig overrides the node layout tunables.
func WithGeometryConfig(cfg node.GeometryConfig) Option {
	return func(e *Editor) {
		e.geometry = &cfg
	}
}

// WithModels registers additional data models next to the reference ones.
func WithModels(register func(*registry.Registry)) Option {
	return func(e *Editor) {
		e.models = append(e.models, register)
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// New creates an Editor. Without options scenes live in memory and only the
// reference models (number, sum, display) are registered.
func New(opts ...Option) (*Editor, error) {
	e := &Editor{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}

	e.registry = registry.NewRegistry()
	models.Register(e.registry)
	for _, register := range e.models {
		register(e.registry)
	}

	sceneOpts := []scene.Option{scene.WithHooks(e.hooks)}
	if e.geometry != nil {
		sceneOpts = append(sceneOpts, scene.WithGeometryConfig(*e.geometry))
	}
	mgrOpts := []session.Option{
		session.WithLogger(e.logger),
		session.WithSceneOptions(sceneOpts...),
	}
	if e.locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.store, e.registry, mgrOpts...)
	return e, nil
}

// Registry returns the model registry.
func (e *Editor) Registry() *registry.Registry { return e.registry }

// Sessions returns the session manager guarding the store.
func (e *Editor) Sessions() *session.Manager { return e.sessions }

// NewScene builds an empty scene wired to the editor's registry and hooks.
func (e *Editor) NewScene() *scene.Scene { return e.sessions.NewScene() }

// Open restores a stored scene.
func (e *Editor) Open(ctx context.Context, sceneID string) (*scene.Scene, error) {
	return e.sessions.Open(ctx, sceneID)
}

// Update loads, modifies and commits a scene under its lock.
func (e *Editor) Update(ctx context.Context, sceneID string, fn func(*scene.Scene) error) (*domain.SceneDiff, error) {
	return e.sessions.Update(ctx, sceneID, fn)
}
