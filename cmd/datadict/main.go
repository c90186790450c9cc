// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Command datadict generates data dictionaries for Dataverse solutions.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree and binds configuration.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "datadict",
		Short:        "Data dictionary generator for Dataverse solutions",
		Long:         "datadict lists the custom fields of a solution, marks the scripts that reference each field, and stores the result as a markdown document.",
		SilenceUsage: true,
	}

	// Global flags.
	flags := rootCmd.PersistentFlags()
	flags.String("source", "webapi", "Metadata source: webapi, sqlite or postgres")
	flags.String("url", "", "Dataverse environment URL (webapi)")
	flags.String("token", "", "OAuth bearer token (webapi)")
	flags.Duration("timeout", 0, "Per-request timeout (webapi)")
	flags.String("dsn", "", "Snapshot database: sqlite file path or postgres connection string")
	flags.Int("concurrency", 1, "Parallel metadata fetches")
	flags.Bool("continue-on-missing", false, "Skip entities and web resources that cannot be fetched")
	flags.Bool("no-persist", false, "Do not store the document as an attachment")
	flags.Bool("outline", false, "List the functions declared by each script")
	flags.String("publish-repo", "", "Git repository to publish the dictionary into")
	flags.String("publish-dir", "data-dictionary", "Directory inside the publish repository")
	flags.Bool("no-commit", false, "Write the published dictionary without committing")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.Bool("log-dev", false, "Human-readable development logging")

	// Bind flags to viper.
	for _, name := range []string{
		"source", "url", "token", "timeout", "dsn", "concurrency", "continue-on-missing",
		"no-persist", "outline", "publish-repo", "publish-dir", "no-commit", "log-level", "log-dev",
	} {
		viper.BindPFlag(name, flags.Lookup(name))
	}

	// .env file, then env vars: DATADICT_URL, DATADICT_TOKEN, etc.
	godotenv.Load() // Ignore error; .env is optional.
	viper.SetEnvPrefix("DATADICT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Config file.
	viper.SetConfigName(".datadict")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.ReadInConfig() // Ignore error; config file is optional.

	// Add commands.
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSnapshotCmd())
	rootCmd.AddCommand(newUndoCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// newVersionCmd creates the "version" command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print datadict version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "datadict %s\n", version)
		},
	}
}
