package ports_test

import (
	"context"
	"testing"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// MockStore is an in-memory implementation of SceneStore for testing purposes.
type MockStore struct {
	data map[string]*domain.SceneRecord
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.SceneRecord),
	}
}

func (m *MockStore) Save(ctx context.Context, sceneID string, scene *domain.SceneRecord) error {
	m.data[sceneID] = scene.Clone()
	return nil
}

func (m *MockStore) Load(ctx context.Context, sceneID string) (*domain.SceneRecord, error) {
	scene, ok := m.data[sceneID]
	if !ok {
		return nil, domain.ErrSceneNotFound
	}
	return scene.Clone(), nil
}

func (m *MockStore) Delete(ctx context.Context, sceneID string) error {
	delete(m.data, sceneID)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestSceneStore_Contract(t *testing.T) {
	// The mock doubles as a reference implementation for adapters.
	ports.RunSceneStoreContract(t, NewMockStore())
}
