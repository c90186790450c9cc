// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ljrain/DataverseDataDictionary/internal/platform/snapshot"
	"github.com/ljrain/DataverseDataDictionary/pkg/dictionary"
)

// newSnapshotCmd creates the "snapshot" command group.
func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture and import offline solution snapshots",
	}
	cmd.AddCommand(newSnapshotCaptureCmd())
	cmd.AddCommand(newSnapshotImportCmd())
	return cmd
}

// newSnapshotCaptureCmd creates "snapshot capture", which reads a solution
// from the configured source into a JSON file.
func newSnapshotCaptureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Write a solution's metadata to a snapshot file",
		RunE: func(cmd *cobra.Command, args []string) error {
			solution, _ := cmd.Flags().GetString("solution")
			output, _ := cmd.Flags().GetString("output")

			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			client, err := dictionary.OpenSource(ctx, configFromViper(log))
			if err != nil {
				return err
			}
			defer client.Close()

			snap, err := snapshot.Capture(ctx, client, solution, log)
			if err != nil {
				return fmt.Errorf("capture failed: %w", err)
			}
			if err := snapshot.WriteFile(output, snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Captured %s into %s.\n", solution, output)
			return nil
		},
	}

	cmd.Flags().StringP("solution", "s", "", "Solution unique name (required)")
	cmd.Flags().StringP("output", "o", "", "Snapshot file to write (required)")
	cmd.MarkFlagRequired("solution")
	cmd.MarkFlagRequired("output")
	return cmd
}

// newSnapshotImportCmd creates "snapshot import", which loads a snapshot
// file into the --dsn database.
func newSnapshotImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load a snapshot file into the snapshot database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			source := viper.GetString("source")
			if source == dictionary.SourceWebAPI {
				source = dictionary.SourceSQLite
			}
			dsn := viper.GetString("dsn")
			if dsn == "" {
				return fmt.Errorf("--dsn is required")
			}

			snap, err := snapshot.ReadFile(args[0])
			if err != nil {
				return err
			}

			ctx := context.Background()
			store, err := snapshot.Open(ctx, source, dsn, log)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Import(ctx, snap); err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s into %s.\n", snap.Solution.UniqueName, dsn)
			return nil
		},
	}
}
