package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Format is the on-disk encoding of a scene file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Store implements ports.SceneStore on the local filesystem, one file per scene.
type Store struct {
	BasePath string
	format   Format
}

// Option configures a Store.
type Option func(*Store)

// WithFormat selects JSON (default) or YAML files.
func WithFormat(f Format) Option {
	return func(s *Store) {
		s.format = f
	}
}

// New creates a Store rooted at basePath.
// If basePath is empty, it defaults to ".espalier/scenes".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".espalier", "scenes")
	}
	s := &Store{BasePath: basePath, format: FormatJSON}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ext() string {
	return "." + string(s.format)
}

func (s *Store) path(sceneID string) string {
	return filepath.Join(s.BasePath, sceneID+s.ext())
}

func (s *Store) marshal(scene *domain.SceneRecord) ([]byte, error) {
	if s.format == FormatYAML {
		return yaml.Marshal(scene)
	}
	return json.MarshalIndent(scene, "", "  ")
}

func (s *Store) unmarshal(data []byte, scene *domain.SceneRecord) error {
	if s.format == FormatYAML {
		return yaml.Unmarshal(data, scene)
	}
	return json.Unmarshal(data, scene)
}

func checkID(sceneID string) error {
	if sceneID == "" {
		return fmt.Errorf("sceneID cannot be empty")
	}
	if strings.ContainsAny(sceneID, `/\`) || sceneID == "." || sceneID == ".." {
		return fmt.Errorf("invalid sceneID %q", sceneID)
	}
	return nil
}

// Save writes the scene atomically: temp file in the same directory, fsync, rename.
func (s *Store) Save(ctx context.Context, sceneID string, scene *domain.SceneRecord) error {
	if err := checkID(sceneID); err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure scene directory: %w", err)
	}

	data, err := s.marshal(scene)
	if err != nil {
		return fmt.Errorf("failed to marshal scene: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+sceneID+"-*"+s.ext())
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Windows refuses to rename over an existing file.
	destPath := s.path(sceneID)
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to replace scene file: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load reads a scene file.
func (s *Store) Load(ctx context.Context, sceneID string) (*domain.SceneRecord, error) {
	if err := checkID(sceneID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(sceneID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSceneNotFound, sceneID)
		}
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}

	var scene domain.SceneRecord
	if err := s.unmarshal(data, &scene); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scene %s: %w", sceneID, err)
	}
	return &scene, nil
}

// Delete removes the scene file. Missing files are ignored.
func (s *Store) Delete(ctx context.Context, sceneID string) error {
	if err := checkID(sceneID); err != nil {
		return err
	}
	err := os.Remove(s.path(sceneID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete scene file: %w", err)
	}
	return nil
}

// List returns the ids of the scene files, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}

	scenes := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != s.ext() || strings.HasPrefix(name, "tmp-") {
			continue
		}
		scenes = append(scenes, strings.TrimSuffix(name, s.ext()))
	}
	sort.Strings(scenes)
	return scenes, nil
}
