package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)

	return func(markdown string) (string, error) {
		if err != nil {
			return "", err
		}
		return r.Render(markdown)
	}
}

// SceneSummary describes a scene record as markdown: one table for nodes and
// one for connections.
func SceneSummary(sceneID string, scene *domain.SceneRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Scene `%s`\n\n", sceneID)
	if scene == nil || (len(scene.Nodes) == 0 && len(scene.Connections) == 0) {
		sb.WriteString("_Empty scene._\n")
		return sb.String()
	}

	models := make(map[string]string, len(scene.Nodes))
	fmt.Fprintf(&sb, "## Nodes (%d)\n\n", len(scene.Nodes))
	sb.WriteString("| ID | Model | Position |\n")
	sb.WriteString("|----|-------|----------|\n")
	for _, n := range scene.Nodes {
		models[n.ID] = n.ModelName()
		fmt.Fprintf(&sb, "| `%s` | %s | (%g, %g) |\n", shortID(n.ID), n.ModelName(), n.Position.X, n.Position.Y)
	}

	if len(scene.Connections) == 0 {
		return sb.String()
	}
	fmt.Fprintf(&sb, "\n## Connections (%d)\n\n", len(scene.Connections))
	sb.WriteString("| From | Out | To | In |\n")
	sb.WriteString("|------|-----|----|----|\n")
	for _, c := range scene.Connections {
		fmt.Fprintf(&sb, "| %s `%s` | %d | %s `%s` | %d |\n",
			models[c.OutID], shortID(c.OutID), c.OutIndex,
			models[c.InID], shortID(c.InID), c.InIndex)
	}
	return sb.String()
}

// shortID keeps the first UUID group, enough to tell nodes apart on screen.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
