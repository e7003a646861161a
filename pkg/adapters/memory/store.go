package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
)

// Store implements ports.SceneStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.SceneRecord
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.SceneRecord),
	}
}

// Save keeps a deep copy of the record.
func (s *Store) Save(ctx context.Context, sceneID string, scene *domain.SceneRecord) error {
	if sceneID == "" {
		return fmt.Errorf("sceneID cannot be empty")
	}
	copied := scene.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sceneID] = copied
	return nil
}

// Load returns a copy so callers cannot mutate the stored record.
func (s *Store) Load(ctx context.Context, sceneID string) (*domain.SceneRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scene, ok := s.data[sceneID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSceneNotFound, sceneID)
	}
	return scene.Clone(), nil
}

// Delete removes the scene. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, sceneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sceneID)
	return nil
}

// List returns the stored scene ids, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scenes := make([]string, 0, len(s.data))
	for id := range s.data {
		scenes = append(scenes, id)
	}
	sort.Strings(scenes)
	return scenes, nil
}
