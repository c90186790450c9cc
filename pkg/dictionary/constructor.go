// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package dictionary

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ljrain/DataverseDataDictionary/internal/pipeline"
	"github.com/ljrain/DataverseDataDictionary/internal/platform"
	"github.com/ljrain/DataverseDataDictionary/internal/platform/snapshot"
	"github.com/ljrain/DataverseDataDictionary/internal/platform/webapi"
	"github.com/ljrain/DataverseDataDictionary/internal/publish"
)

const (
	defaultConcurrency = 1
	defaultTimeout     = 60 * time.Second
)

// New validates the config, opens the metadata source and the optional
// publish repository, and returns a ready-to-use Generator.
func New(ctx context.Context, cfg Config) (Generator, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	applyDefaults(&cfg)

	client, err := OpenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Registry:          client,
		Metadata:          client,
		Resources:         client,
		Logger:            cfg.Logger,
		Concurrency:       cfg.Concurrency,
		ContinueOnMissing: cfg.ContinueOnMissing,
		Outline:           cfg.Outline,
	}
	if !cfg.NoPersist {
		deps.Persister = client
	}

	if cfg.PublishRepo != "" {
		repo, err := publish.Open(publish.Config{
			WorkDir:    cfg.PublishRepo,
			Dir:        cfg.PublishDir,
			AutoCommit: !cfg.NoCommit,
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		deps.Publisher = repo
	} else {
		// A timestamp would make every published revision differ.
		deps.Now = time.Now
	}

	return &generator{runner: pipeline.NewRunner(deps), client: client}, nil
}

// OpenSource opens the metadata source named by cfg.Source. The caller
// closes the returned client.
func OpenSource(ctx context.Context, cfg Config) (platform.Client, error) {
	switch cfg.Source {
	case SourceWebAPI, "":
		c, err := webapi.New(webapi.Config{
			BaseURL: cfg.URL,
			Token:   cfg.Token,
			Timeout: cfg.Timeout,
			Logger:  cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return c, nil
	case SourceSQLite, SourcePostgres:
		s, err := snapshot.Open(ctx, cfg.Source, cfg.DSN, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetchFailure, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, cfg.Source)
	}
}

// generator adapts pipeline.Runner to the public Generator interface.
type generator struct {
	runner *pipeline.Runner
	client platform.Client
}

func (g *generator) Generate(ctx context.Context, solutionUniqueName string) (*Result, error) {
	rr, err := g.runner.Run(ctx, solutionUniqueName)
	if rr == nil {
		return nil, err
	}

	res := &Result{
		Solution:     rr.Solution,
		SolutionID:   rr.SolutionID,
		Fields:       rr.Fields,
		Scripts:      rr.Scripts,
		FileName:     rr.FileName,
		AttachmentID: rr.AttachmentID,
		Document:     rr.Document,
	}
	for _, s := range rr.Skipped {
		res.Skipped = append(res.Skipped, Skip{Name: s.Name, Reason: s.Reason})
	}
	if p := rr.Published; p != nil {
		res.Published = &Publication{
			Path:    p.Path,
			Changed: p.Changed,
			Commit:  p.Commit,
			Added:   p.Summary.Added,
			Removed: p.Summary.Removed,
		}
	}
	return res, err
}

func (g *generator) Close() error {
	return g.client.Close()
}

// validateConfig checks that the fields the chosen source needs are present.
func validateConfig(cfg Config) error {
	switch cfg.Source {
	case SourceWebAPI, "":
		if strings.TrimSpace(cfg.URL) == "" {
			return fmt.Errorf("URL is required for the webapi source")
		}
		if cfg.Token == "" {
			return fmt.Errorf("Token is required for the webapi source")
		}
	case SourceSQLite, SourcePostgres:
		if strings.TrimSpace(cfg.DSN) == "" {
			return fmt.Errorf("DSN is required for the %s source", cfg.Source)
		}
	default:
		return fmt.Errorf("unknown source %q", cfg.Source)
	}
	if cfg.Concurrency < 0 {
		return fmt.Errorf("Concurrency must not be negative")
	}
	if cfg.PublishRepo != "" {
		if info, err := os.Stat(cfg.PublishRepo); err != nil || !info.IsDir() {
			return fmt.Errorf("PublishRepo %q does not exist or is not a directory", cfg.PublishRepo)
		}
	}
	return nil
}

// applyDefaults fills in zero-value fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Source == "" {
		cfg.Source = SourceWebAPI
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
}
