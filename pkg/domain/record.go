package domain

// PositionRecord is the persisted scene position of a node.
type PositionRecord struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NodeRecord is the persisted shape of a node:
//
//	{ "id": "...", "model": { ... }, "position": { "x": 0, "y": 0 } }
type NodeRecord struct {
	ID       string         `json:"id" yaml:"id"`
	Model    map[string]any `json:"model" yaml:"model"`
	Position PositionRecord `json:"position" yaml:"position"`
}

// ModelName returns the registry name stored in the model state, if any.
func (r NodeRecord) ModelName() string {
	if r.Model == nil {
		return ""
	}
	name, _ := r.Model["name"].(string)
	return name
}

// ConnectionRecord is the persisted shape of a connection.
type ConnectionRecord struct {
	ID       string    `json:"id" yaml:"id"`
	OutID    string    `json:"out_id" yaml:"out_id"`
	OutIndex PortIndex `json:"out_index" yaml:"out_index"`
	InID     string    `json:"in_id" yaml:"in_id"`
	InIndex  PortIndex `json:"in_index" yaml:"in_index"`
}

// SceneRecord is the persisted shape of a whole scene.
type SceneRecord struct {
	Nodes       []NodeRecord       `json:"nodes" yaml:"nodes"`
	Connections []ConnectionRecord `json:"connections" yaml:"connections"`
}

// Clone returns a deep copy of the record so stores can isolate callers.
func (s *SceneRecord) Clone() *SceneRecord {
	if s == nil {
		return nil
	}
	out := &SceneRecord{
		Nodes:       make([]NodeRecord, len(s.Nodes)),
		Connections: make([]ConnectionRecord, len(s.Connections)),
	}
	for i, n := range s.Nodes {
		n.Model = cloneMap(n.Model)
		out.Nodes[i] = n
	}
	copy(out.Connections, s.Connections)
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}
