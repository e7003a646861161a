// Package loam stores scenes as documents of a loam repository, so they can be
// versioned and browsed next to the rest of a project's content.
package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/loam"
)

// Store implements ports.SceneStore on a typed loam repository.
type Store struct {
	Repo *loam.TypedRepository[SceneMetadata]
}

// New wraps an existing typed repository.
func New(repo *loam.TypedRepository[SceneMetadata]) *Store {
	return &Store{Repo: repo}
}

// Open initialises a loam repository at path.
func Open(path string, opts ...loam.Option) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve loam path: %w", err)
	}
	repo, err := loam.Init(absPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init loam repository: %w", err)
	}
	return New(loam.NewTypedRepository[SceneMetadata](repo)), nil
}

// Save writes the scene as one document.
func (s *Store) Save(ctx context.Context, sceneID string, scene *domain.SceneRecord) error {
	if sceneID == "" {
		return fmt.Errorf("sceneID cannot be empty")
	}
	body, err := json.MarshalIndent(scene, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scene: %w", err)
	}

	err = s.Repo.Save(ctx, &loam.DocumentModel[SceneMetadata]{
		ID:      sceneID,
		Content: string(body),
		Data: SceneMetadata{
			ID:          sceneID,
			Kind:        SceneKind,
			Nodes:       len(scene.Nodes),
			Connections: len(scene.Connections),
		},
	})
	if err != nil {
		return fmt.Errorf("loam save failed for %s: %w", sceneID, err)
	}
	return nil
}

// Load reads a scene document.
func (s *Store) Load(ctx context.Context, sceneID string) (*domain.SceneRecord, error) {
	doc, err := s.Repo.Get(ctx, sceneID)
	if err != nil {
		// loam does not expose a not-found sentinel; tell it apart by listing.
		if ok, listErr := s.exists(ctx, sceneID); listErr == nil && !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrSceneNotFound, sceneID)
		}
		return nil, fmt.Errorf("loam get failed for %s: %w", sceneID, err)
	}
	if doc.Data.Kind != SceneKind {
		return nil, fmt.Errorf("%w: %s is not a scene document", domain.ErrSceneNotFound, sceneID)
	}

	var scene domain.SceneRecord
	if err := json.Unmarshal([]byte(doc.Content), &scene); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scene %s: %w", sceneID, err)
	}
	return &scene, nil
}

// Delete removes the scene document. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, sceneID string) error {
	ok, err := s.exists(ctx, sceneID)
	if err != nil || !ok {
		return err
	}
	if err := s.Repo.Delete(ctx, sceneID); err != nil {
		return fmt.Errorf("loam delete failed for %s: %w", sceneID, err)
	}
	return nil
}

// List returns the ids of scene documents, sorted. Other documents in the
// repository are skipped.
func (s *Store) List(ctx context.Context) ([]string, error) {
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.Data.Kind != SceneKind {
			continue
		}
		id := doc.Data.ID
		if id == "" {
			id = trimExtension(doc.ID)
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) exists(ctx context.Context, sceneID string) (bool, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == sceneID {
			return true, nil
		}
	}
	return false, nil
}

func trimExtension(id string) string {
	return filepath.ToSlash(strings.TrimSuffix(id, filepath.Ext(id)))
}
