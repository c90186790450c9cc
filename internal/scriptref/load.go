// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package scriptref

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ljrain/DataverseDataDictionary/internal/platform"
	"github.com/ljrain/DataverseDataDictionary/pkg/types"
)

// ErrScriptFetch indicates that a web resource could not be retrieved.
var ErrScriptFetch = errors.New("web resource fetch failed")

// Skip records a script web resource excluded from matching.
type Skip struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// LoadOptions tunes how web resources are fetched.
type LoadOptions struct {
	Concurrency       int         // Parallel fetches (<= 1 means sequential)
	ContinueOnMissing bool        // Skip resources that fail to fetch instead of aborting
	Outline           bool        // Extract declared function names from each script
	Logger            *zap.Logger // Defaults to a no-op logger
}

// Loader fetches web resources and decodes the script ones.
type Loader struct {
	fetcher platform.WebResourceFetcher
	opts    LoadOptions
	log     *zap.Logger
}

// NewLoader creates a Loader that reads web resources through fetcher.
func NewLoader(fetcher platform.WebResourceFetcher, opts LoadOptions) *Loader {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{fetcher: fetcher, opts: opts, log: log}
}

// LoadResult holds the decoded scripts in component order and the scripts
// that were excluded from matching.
type LoadResult struct {
	Scripts []types.ScriptAsset
	Skipped []Skip
}

// Load fetches every web resource in ids and returns the scripts among them.
// Non-script resources and scripts without content are ignored. A script
// whose content cannot be decoded to text is recorded in Skipped. A failed
// fetch aborts the load unless ContinueOnMissing is set.
func (l *Loader) Load(ctx context.Context, ids []uuid.UUID) (*LoadResult, error) {
	resources, err := l.fetchAll(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := &LoadResult{}
	for _, wr := range resources {
		if wr == nil || wr.Type != types.WebResourceScript || wr.Content == "" {
			continue
		}
		asset, err := decode(wr)
		if err != nil {
			l.log.Warn("skipping script", zap.String("webResource", wr.Name), zap.Error(err))
			result.Skipped = append(result.Skipped, Skip{Name: wr.Name, Reason: err.Error()})
			continue
		}
		if l.opts.Outline {
			asset.Functions = Functions(ctx, []byte(asset.Content))
		}
		result.Scripts = append(result.Scripts, asset)
	}

	l.log.Debug("loaded scripts",
		zap.Int("webResources", len(ids)),
		zap.Int("scripts", len(result.Scripts)),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// decode turns a script web resource into a ScriptAsset.
func decode(wr *types.WebResource) (types.ScriptAsset, error) {
	raw, err := base64.StdEncoding.DecodeString(wr.Content)
	if err != nil {
		return types.ScriptAsset{}, fmt.Errorf("decoding base64 content: %w", err)
	}
	if !utf8.Valid(raw) {
		return types.ScriptAsset{}, fmt.Errorf("content is not valid UTF-8 text")
	}
	return types.ScriptAsset{
		Name:        wr.Name,
		DisplayName: wr.DisplayName,
		Content:     string(raw),
	}, nil
}

// fetchAll retrieves every resource, index-aligned with ids.
func (l *Loader) fetchAll(ctx context.Context, ids []uuid.UUID) ([]*types.WebResource, error) {
	resources := make([]*types.WebResource, len(ids))

	if l.opts.Concurrency <= 1 {
		for i, id := range ids {
			wr, err := l.fetch(ctx, id)
			if err != nil {
				return nil, err
			}
			resources[i] = wr
		}
		return resources, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			wr, err := l.fetch(gctx, id)
			if err != nil {
				return err
			}
			resources[i] = wr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resources, nil
}

func (l *Loader) fetch(ctx context.Context, id uuid.UUID) (*types.WebResource, error) {
	wr, err := l.fetcher.FetchWebResource(ctx, id)
	if err == nil && wr == nil {
		err = fmt.Errorf("no web resource returned")
	}
	if err == nil {
		return wr, nil
	}
	if l.opts.ContinueOnMissing && ctx.Err() == nil {
		l.log.Warn("skipping web resource", zap.Stringer("webResourceId", id), zap.Error(err))
		return nil, nil
	}
	return nil, fmt.Errorf("%w: web resource %s: %w", ErrScriptFetch, id, err)
}
