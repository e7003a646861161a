package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/espalier/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <scene-id>",
	Short: "Summarise a stored scene",
	Long:  `Prints the nodes and connections of a scene. The summary is rendered with colors when stdout is a terminal, plain markdown otherwise.`,
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

		out := cmd.OutOrStdout()
		summary := tui.SceneSummary(args[0], rec)
		if !isTerminal(out) {
			fmt.Fprint(out, summary)
			return nil
		}
		rendered, err := tui.NewRenderer()(summary)
		if err != nil {
			return fmt.Errorf("failed to render summary: %w", err)
		}
		fmt.Fprint(out, rendered)
		return nil
	},
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
