package main

import (
	"fmt"

	"github.com/aretw0/espalier/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <scene-id>",
	Short: "Export the scene as a Mermaid flowchart",
	Long:  `Loads a stored scene and outputs a Mermaid diagram (graph LR) of its nodes and connections.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		editor, _, _, closeStore, err := openEditor(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		rec, err := editor.Sessions().Store().Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if highlight, _ := cmd.Flags().GetStringSlice("highlight"); len(highlight) > 0 {
			overlay = &graph.GraphOverlay{Highlighted: highlight}
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(rec, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringSlice("highlight", nil, "Node IDs to highlight")
}
