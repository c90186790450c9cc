// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ljrain/DataverseDataDictionary/internal/logging"
	"github.com/ljrain/DataverseDataDictionary/pkg/dictionary"
)

// newGenerateCmd creates the "generate" command.
func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the data dictionary for a solution",
		Long:  "Generate resolves the solution, collects its custom fields, marks the scripts that reference each field, and stores the rendered dictionary.",
		RunE:  runGenerate,
	}

	cmd.Flags().StringP("solution", "s", "", "Solution unique name (required)")
	cmd.Flags().StringP("output", "o", "", "Also write the rendered dictionary to this file")
	cmd.MarkFlagRequired("solution")

	return cmd
}

// runGenerate executes one generation.
func runGenerate(cmd *cobra.Command, args []string) error {
	solution, _ := cmd.Flags().GetString("solution")
	output, _ := cmd.Flags().GetString("output")

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	g, err := dictionary.New(ctx, configFromViper(log))
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer g.Close()

	result, err := g.Generate(ctx, solution)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}

	if output != "" {
		if err := os.WriteFile(output, result.Document, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
	}

	printResult(cmd.OutOrStdout(), result)
	printSummary(cmd.ErrOrStderr(), result)
	return nil
}

// configFromViper builds a generator config from flags, env and file.
func configFromViper(log *zap.Logger) dictionary.Config {
	return dictionary.Config{
		Source:            viper.GetString("source"),
		URL:               viper.GetString("url"),
		Token:             viper.GetString("token"),
		Timeout:           viper.GetDuration("timeout"),
		DSN:               viper.GetString("dsn"),
		Concurrency:       viper.GetInt("concurrency"),
		ContinueOnMissing: viper.GetBool("continue-on-missing"),
		NoPersist:         viper.GetBool("no-persist"),
		Outline:           viper.GetBool("outline"),
		PublishRepo:       viper.GetString("publish-repo"),
		PublishDir:        viper.GetString("publish-dir"),
		NoCommit:          viper.GetBool("no-commit"),
		Logger:            log,
	}
}

func newLogger() (*zap.Logger, error) {
	return logging.New(viper.GetString("log-level"), viper.GetBool("log-dev"))
}

// printResult outputs the result as JSON.
func printResult(w io.Writer, result *dictionary.Result) {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling result: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(out))
}

// printSummary writes a short colored report for humans.
func printSummary(w io.Writer, result *dictionary.Result) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	referenced := 0
	for _, f := range result.Fields {
		if len(f.ScriptReferences) > 0 {
			referenced++
		}
	}

	green.Fprintf(w, "%s: %d custom fields, %d referenced by scripts\n", result.Solution, len(result.Fields), referenced)
	for _, s := range result.Skipped {
		yellow.Fprintf(w, "skipped %s: %s\n", s.Name, s.Reason)
	}
	if result.AttachmentID != uuid.Nil {
		cyan.Fprintf(w, "stored %s as attachment %s\n", result.FileName, result.AttachmentID)
	}
	if p := result.Published; p != nil {
		if p.Changed {
			cyan.Fprintf(w, "published %s (+%d -%d lines)\n", p.Path, p.Added, p.Removed)
		} else {
			cyan.Fprintf(w, "%s is up to date\n", p.Path)
		}
	}
}
