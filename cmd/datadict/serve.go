// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ljrain/DataverseDataDictionary/internal/server"
	"github.com/ljrain/DataverseDataDictionary/pkg/dictionary"
)

// newServeCmd creates the "serve" command.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve dictionary generation over HTTP",
		Long:  "Serve exposes POST /solutions/{name}/dictionary and GET /healthz.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			g, err := dictionary.New(ctx, configFromViper(log))
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			defer g.Close()

			srv := server.New(g, server.Config{
				Addr:   viper.GetString("addr"),
				Logger: log,
			})
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().String("addr", ":8080", "Listen address")
	viper.BindPFlag("addr", cmd.Flags().Lookup("addr"))

	return cmd
}
