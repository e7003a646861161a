package loam

// SceneKind marks loam documents written by Store.
const SceneKind = "espalier.scene"

// SceneMetadata is the front matter of a scene document. The scene itself is
// stored as JSON in the document body.
type SceneMetadata struct {
	ID          string `json:"id" mapstructure:"id"`
	Kind        string `json:"kind" mapstructure:"kind"`
	Nodes       int    `json:"nodes" mapstructure:"nodes"`
	Connections int    `json:"connections" mapstructure:"connections"`
}
