// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package aggregate joins solution entities with their attribute metadata
// into the flat field records of the data dictionary.
package aggregate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ljrain/DataverseDataDictionary/internal/platform"
	"github.com/ljrain/DataverseDataDictionary/pkg/types"
)

// ErrEntityFetch indicates that an entity's metadata could not be retrieved.
var ErrEntityFetch = errors.New("entity metadata fetch failed")

// Options tunes how entity metadata is fetched.
type Options struct {
	Concurrency       int         // Parallel metadata fetches (<= 1 means sequential)
	ContinueOnMissing bool        // Skip entities that fail to fetch instead of aborting
	Logger            *zap.Logger // Defaults to a no-op logger
}

// Aggregator builds field records from entity metadata.
type Aggregator struct {
	fetcher platform.MetadataFetcher
	opts    Options
	log     *zap.Logger
}

// New creates an Aggregator that reads metadata through fetcher.
func New(fetcher platform.MetadataFetcher, opts Options) *Aggregator {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{fetcher: fetcher, opts: opts, log: log}
}

// Fields returns one record per custom attribute of every entity, in entity
// order and, within an entity, in the provider's attribute order.
//
// attributeIDs are the solution's attribute components. They are accepted
// but not consulted: the per-entity attribute list is the source of truth.
func (a *Aggregator) Fields(ctx context.Context, entityIDs, attributeIDs []uuid.UUID) ([]types.FieldRecord, error) {
	ids := dedupe(entityIDs)
	a.log.Debug("aggregating field metadata",
		zap.Int("entities", len(ids)),
		zap.Int("attributeComponents", len(attributeIDs)))

	metas, err := a.fetchAll(ctx, ids)
	if err != nil {
		return nil, err
	}

	var fields []types.FieldRecord
	for _, meta := range metas {
		if meta == nil {
			continue
		}
		fields = append(fields, Records(meta)...)
	}
	return fields, nil
}

// Records converts one entity's metadata into field records, keeping only
// custom attributes.
func Records(meta *types.EntityMetadata) []types.FieldRecord {
	entityDisplay := labelOr(meta.DisplayLabel, meta.LogicalName)

	var fields []types.FieldRecord
	seen := make(map[string]bool)
	for _, attr := range meta.Attributes {
		if !attr.IsCustom || seen[attr.LogicalName] {
			continue
		}
		seen[attr.LogicalName] = true

		fields = append(fields, types.FieldRecord{
			EntityLogicalName: meta.LogicalName,
			EntityDisplayName: entityDisplay,
			FieldSchemaName:   attr.LogicalName,
			FieldDisplayName:  labelOr(attr.DisplayLabel, attr.LogicalName),
			DataType:          dataType(attr),
			RequiredLevel:     attr.RequiredLevel.String(),
			Description:       attr.Description,
		})
	}
	return fields
}

// fetchAll retrieves metadata for ids. The result is index-aligned with ids;
// entries are nil for entities skipped under ContinueOnMissing.
func (a *Aggregator) fetchAll(ctx context.Context, ids []uuid.UUID) ([]*types.EntityMetadata, error) {
	metas := make([]*types.EntityMetadata, len(ids))

	if a.opts.Concurrency <= 1 {
		for i, id := range ids {
			meta, err := a.fetch(ctx, id)
			if err != nil {
				return nil, err
			}
			metas[i] = meta
		}
		return metas, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			meta, err := a.fetch(gctx, id)
			if err != nil {
				return err
			}
			metas[i] = meta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return metas, nil
}

// fetch retrieves a single entity. Under ContinueOnMissing a failure is
// logged and reported as a nil entity.
func (a *Aggregator) fetch(ctx context.Context, id uuid.UUID) (*types.EntityMetadata, error) {
	meta, err := a.fetcher.FetchEntityMetadata(ctx, id)
	if err == nil && meta == nil {
		err = fmt.Errorf("no metadata returned")
	}
	if err == nil {
		return meta, nil
	}
	if a.opts.ContinueOnMissing && ctx.Err() == nil {
		a.log.Warn("skipping entity", zap.Stringer("entityId", id), zap.Error(err))
		return nil, nil
	}
	return nil, fmt.Errorf("%w: entity %s: %w", ErrEntityFetch, id, err)
}

// labelOr returns label when non-empty, otherwise fallback.
func labelOr(label, fallback string) string {
	if label != "" {
		return label
	}
	return fallback
}

// dataType prefers the attribute type name over the type code.
func dataType(attr types.AttributeMetadata) string {
	if attr.TypeName != "" {
		return attr.TypeName
	}
	return attr.TypeCode
}

// dedupe drops repeated IDs, keeping the first occurrence.
func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
