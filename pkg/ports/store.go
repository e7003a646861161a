package ports

import (
	"context"

	"github.com/aretw0/espalier/pkg/domain"
)

// SceneStore defines the interface for persisting scene records.
type SceneStore interface {
	// Save persists the record for a given scene ID.
	Save(ctx context.Context, sceneID string, scene *domain.SceneRecord) error

	// Load retrieves the record for a given scene ID.
	// Returns domain.ErrSceneNotFound if the scene does not exist.
	Load(ctx context.Context, sceneID string) (*domain.SceneRecord, error)

	// Delete removes the record for a given scene ID.
	Delete(ctx context.Context, sceneID string) error

	// List returns the IDs of all stored scenes.
	List(ctx context.Context) ([]string, error)
}
