package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contractScene builds a small two-node scene used by the contract suite.
func contractScene() *domain.SceneRecord {
	return &domain.SceneRecord{
		Nodes: []domain.NodeRecord{
			{
				ID:       "node-a",
				Model:    map[string]any{"name": "number", "number": 4.5},
				Position: domain.PositionRecord{X: 10.25, Y: -3},
			},
			{
				ID:       "node-b",
				Model:    map[string]any{"name": "display"},
				Position: domain.PositionRecord{X: 200, Y: 40},
			},
		},
		Connections: []domain.ConnectionRecord{
			{ID: "conn-1", OutID: "node-a", OutIndex: 0, InID: "node-b", InIndex: 0},
		},
	}
}

// RunSceneStoreContract runs a suite of tests to verify that a SceneStore implementation
// adheres to the defined interface contract.
func RunSceneStoreContract(t *testing.T, store SceneStore) {
	ctx := context.Background()
	sceneID := "contract-test-scene-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		scene := contractScene()

		err := store.Save(ctx, sceneID, scene)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sceneID)
		require.NoError(t, err, "Load should not return error")
		require.Len(t, loaded.Nodes, 2)
		assert.Equal(t, "node-a", loaded.Nodes[0].ID)
		assert.Equal(t, scene.Nodes[0].Position, loaded.Nodes[0].Position)
		assert.Equal(t, "number", loaded.Nodes[0].ModelName())
		// JSON persistence turns numbers into float64, which is what the models expect.
		assert.EqualValues(t, 4.5, loaded.Nodes[0].Model["number"])
		assert.Equal(t, scene.Connections, loaded.Connections)
	})

	t.Run("Load Is Isolated", func(t *testing.T) {
		scene := contractScene()
		require.NoError(t, store.Save(ctx, sceneID, scene))

		scene.Nodes[0].Position.X = 999
		loaded, err := store.Load(ctx, sceneID)
		require.NoError(t, err)
		assert.Equal(t, 10.25, loaded.Nodes[0].Position.X, "mutating the saved record must not leak into the store")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sceneID)
		assert.ErrorIs(t, err, domain.ErrSceneNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sceneID, contractScene())
		require.NoError(t, err)

		err = store.Delete(ctx, sceneID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sceneID)
		assert.ErrorIs(t, err, domain.ErrSceneNotFound, "Load after Delete should return ErrSceneNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sceneID + "-1"
		id2 := sceneID + "-2"
		_ = store.Save(ctx, id1, contractScene())
		_ = store.Save(ctx, id2, contractScene())

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		scenes, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, scenes, id1)
		assert.Contains(t, scenes, id2)
	})
}
