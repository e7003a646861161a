package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <scene-id>",
	Short: "Check a scene for consistency",
	Long:  `Restores a stored scene and checks that every port entry matches the model and every connection is registered on both of its nodes.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		editor, _, _, closeStore, err := openEditor(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		s, err := editor.Open(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := s.Validate(); err != nil {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scene %s is invalid:\n", args[0])
			if joined, ok := err.(interface{ Unwrap() []error }); ok {
				for _, e := range joined.Unwrap() {
					fmt.Fprintf(out, "  - %v\n", e)
				}
			} else {
				fmt.Fprintf(out, "  - %v\n", err)
			}
			return errors.New("validation failed")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Scene %s is valid! ✅\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
