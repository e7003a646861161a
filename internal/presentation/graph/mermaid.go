package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
)

// GraphOverlay marks nodes to emphasise, e.g. the ones failing validation.
type GraphOverlay struct {
	Highlighted []string
}

// GenerateMermaid produces a Mermaid flowchart of a scene record.
// Shapes follow the data flow role of the model:
// - number: ((Circle)) source
// - display: [/Parallelogram/] sink
// - Default: [Rectangle]
// Edges are labelled "out_index -> in_index".
func GenerateMermaid(scene *domain.SceneRecord, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")
	if scene == nil {
		return sb.String()
	}

	for _, node := range scene.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch node.ModelName() {
		case "number":
			opener, closer = "((", "))"
		case "display":
			opener, closer = "[/", "/]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, nodeLabel(node), closer))
	}

	for _, c := range scene.Connections {
		sb.WriteString(fmt.Sprintf("    %s -- \"%d -> %d\" --> %s\n",
			sanitizeMermaidID(c.OutID), c.OutIndex, c.InIndex, sanitizeMermaidID(c.InID)))
	}

	if overlay != nil && len(overlay.Highlighted) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast regardless of theme
		sb.WriteString("    classDef highlighted fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		seen := make(map[string]bool)
		for _, id := range overlay.Highlighted {
			safeID := sanitizeMermaidID(id)
			if safeID == "" || seen[safeID] {
				continue
			}
			seen[safeID] = true
			sb.WriteString(fmt.Sprintf("    class %s highlighted;\n", safeID))
		}
	}

	return sb.String()
}

// nodeLabel shows the model name and its scalar settings, e.g. "number<br/>number=4".
func nodeLabel(node domain.NodeRecord) string {
	name := node.ModelName()
	if name == "" {
		name = "?"
	}
	keys := make([]string, 0, len(node.Model))
	for k := range node.Model {
		if k != "name" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := []string{name}
	for _, k := range keys {
		switch v := node.Model[k].(type) {
		case string, bool, int, int64, float64:
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	return strings.ReplaceAll(strings.Join(parts, "<br/>"), "\"", "'")
}

// sanitizeMermaidID prefixes ids so UUIDs starting with a digit stay valid.
func sanitizeMermaidID(id string) string {
	if id == "" {
		return ""
	}
	s := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
	return "n_" + s
}
