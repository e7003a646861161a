package domain

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
)

// SceneDiff represents the changes between two scene records.
// It is designed to be serialized to JSON so clients can patch their view.
type SceneDiff struct {
	// SceneID is always present to identify the target.
	SceneID string `json:"scene_id"`

	AddedNodes   []string `json:"added_nodes,omitempty"`
	RemovedNodes []string `json:"removed_nodes,omitempty"`

	// MovedNodes maps node IDs to their new position.
	MovedNodes map[string]PositionRecord `json:"moved_nodes,omitempty"`

	// ChangedModels lists nodes whose model state differs.
	ChangedModels []string `json:"changed_models,omitempty"`

	AddedConnections   []ConnectionRecord `json:"added_connections,omitempty"`
	RemovedConnections []string           `json:"removed_connections,omitempty"`
}

// DiffScenes calculates the difference between oldScene and newScene.
// If oldScene is nil, the diff describes the entire newScene (initial load).
// Returns nil when nothing changed.
func DiffScenes(sceneID string, oldScene, newScene *SceneRecord) *SceneDiff {
	if newScene == nil {
		return nil
	}
	if oldScene == nil {
		oldScene = &SceneRecord{}
	}

	diff := &SceneDiff{SceneID: sceneID}

	oldNodes := make(map[string]NodeRecord, len(oldScene.Nodes))
	for _, n := range oldScene.Nodes {
		oldNodes[n.ID] = n
	}
	newNodes := make(map[string]struct{}, len(newScene.Nodes))

	for _, n := range newScene.Nodes {
		newNodes[n.ID] = struct{}{}
		prev, exists := oldNodes[n.ID]
		if !exists {
			diff.AddedNodes = append(diff.AddedNodes, n.ID)
			continue
		}
		if prev.Position != n.Position {
			if diff.MovedNodes == nil {
				diff.MovedNodes = make(map[string]PositionRecord)
			}
			diff.MovedNodes[n.ID] = n.Position
		}
		if !sameModel(prev.Model, n.Model) {
			diff.ChangedModels = append(diff.ChangedModels, n.ID)
		}
	}
	for id := range oldNodes {
		if _, exists := newNodes[id]; !exists {
			diff.RemovedNodes = append(diff.RemovedNodes, id)
		}
	}
	sort.Strings(diff.RemovedNodes)

	oldConns := make(map[string]ConnectionRecord, len(oldScene.Connections))
	for _, c := range oldScene.Connections {
		oldConns[c.ID] = c
	}
	newConns := make(map[string]struct{}, len(newScene.Connections))
	for _, c := range newScene.Connections {
		newConns[c.ID] = struct{}{}
		prev, exists := oldConns[c.ID]
		if !exists {
			diff.AddedConnections = append(diff.AddedConnections, c)
			continue
		}
		// A rewired connection is reported as removed + added.
		if prev != c {
			diff.RemovedConnections = append(diff.RemovedConnections, c.ID)
			diff.AddedConnections = append(diff.AddedConnections, c)
		}
	}
	for id := range oldConns {
		if _, exists := newConns[id]; !exists {
			diff.RemovedConnections = append(diff.RemovedConnections, id)
		}
	}
	sort.Strings(diff.RemovedConnections)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// sameModel compares model states by their encoded form, so a state decoded
// from a store (numbers as float64) equals the one a model just saved.
func sameModel(a, b map[string]any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SceneDiff) IsEmpty() bool {
	return len(d.AddedNodes) == 0 &&
		len(d.RemovedNodes) == 0 &&
		len(d.MovedNodes) == 0 &&
		len(d.ChangedModels) == 0 &&
		len(d.AddedConnections) == 0 &&
		len(d.RemovedConnections) == 0
}
