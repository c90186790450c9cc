// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ljrain/DataverseDataDictionary/internal/publish"
)

// newUndoCmd creates the "undo" command.
func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Revert the last published dictionary commit",
		Long:  "Undo performs a soft reset of the last commit in the publish repository if it was made by datadict and only changed the dictionary directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			workDir := viper.GetString("publish-repo")
			if workDir == "" {
				workDir = "."
			}

			repo, err := publish.Open(publish.Config{
				WorkDir: workDir,
				Dir:     viper.GetString("publish-dir"),
			})
			if err != nil {
				return fmt.Errorf("opening repository: %w", err)
			}

			undone, err := repo.Undo()
			if err != nil {
				return fmt.Errorf("undo failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Reverted %s (%s).\n", undone.Commit[:7], strings.Join(undone.Paths, ", "))
			return nil
		},
	}
}
