// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ljrain/DataverseDataDictionary/internal/platform"
	"github.com/ljrain/DataverseDataDictionary/pkg/types"
)

// FormatVersion is written into every snapshot file.
const FormatVersion = 1

// ErrInvalidSnapshot is returned when a snapshot file is malformed.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Snapshot is the portable JSON form of one solution's metadata.
type Snapshot struct {
	Version      int                    `json:"version"`
	Solution     Solution               `json:"solution"`
	Components   []Component            `json:"components"`
	Entities     []types.EntityMetadata `json:"entities"`
	WebResources []types.WebResource    `json:"webResources"`
}

// Solution identifies the captured solution.
type Solution struct {
	ID           uuid.UUID `json:"id"`
	UniqueName   string    `json:"uniqueName"`
	FriendlyName string    `json:"friendlyName,omitempty"`
}

// Component is one solution component registration.
type Component struct {
	ObjectID uuid.UUID           `json:"objectId"`
	Type     types.ComponentType `json:"type"`
}

// Validate checks the snapshot for the fields Import relies on.
func (s *Snapshot) Validate() error {
	if s.Version != FormatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, s.Version)
	}
	if s.Solution.ID == uuid.Nil {
		return fmt.Errorf("%w: solution id is required", ErrInvalidSnapshot)
	}
	if strings.TrimSpace(s.Solution.UniqueName) == "" {
		return fmt.Errorf("%w: solution unique name is required", ErrInvalidSnapshot)
	}
	for i, e := range s.Entities {
		if e.ID == uuid.Nil || e.LogicalName == "" {
			return fmt.Errorf("%w: entity %d needs an id and logical name", ErrInvalidSnapshot, i)
		}
	}
	for i, wr := range s.WebResources {
		if wr.ID == uuid.Nil || wr.Name == "" {
			return fmt.Errorf("%w: web resource %d needs an id and name", ErrInvalidSnapshot, i)
		}
	}
	return nil
}

// ReadFile loads and validates a snapshot file.
func ReadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// WriteFile writes the snapshot as indented JSON.
func WriteFile(path string, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Source is what Capture reads from.
type Source interface {
	platform.Registry
	platform.MetadataFetcher
	platform.WebResourceFetcher
}

// Capture reads a solution's components, entity definitions and web
// resources from src into a Snapshot.
func Capture(ctx context.Context, src Source, uniqueName string, log *zap.Logger) (*Snapshot, error) {
	if log == nil {
		log = zap.NewNop()
	}
	solutionID, err := src.ResolveSolution(ctx, uniqueName)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", uniqueName, err)
	}

	snap := &Snapshot{
		Version:  FormatVersion,
		Solution: Solution{ID: solutionID, UniqueName: uniqueName},
	}

	for _, ct := range []types.ComponentType{types.ComponentEntity, types.ComponentAttribute, types.ComponentWebResource} {
		ids, err := src.ListComponentIDs(ctx, solutionID, ct)
		if err != nil {
			return nil, fmt.Errorf("listing %s components: %w", ct, err)
		}
		for _, id := range ids {
			snap.Components = append(snap.Components, Component{ObjectID: id, Type: ct})
			switch ct {
			case types.ComponentEntity:
				meta, err := src.FetchEntityMetadata(ctx, id)
				if err != nil {
					return nil, fmt.Errorf("fetching entity %s: %w", id, err)
				}
				meta.ID = id
				snap.Entities = append(snap.Entities, *meta)
			case types.ComponentWebResource:
				wr, err := src.FetchWebResource(ctx, id)
				if err != nil {
					return nil, fmt.Errorf("fetching web resource %s: %w", id, err)
				}
				wr.ID = id
				snap.WebResources = append(snap.WebResources, *wr)
			}
		}
	}

	log.Info("captured solution",
		zap.String("solution", uniqueName),
		zap.Int("components", len(snap.Components)),
		zap.Int("entities", len(snap.Entities)),
		zap.Int("webResources", len(snap.WebResources)))
	return snap, nil
}

// Import writes snap into the store in one transaction. A solution that was
// imported before has its component list replaced; entity and web resource
// rows are upserted.
func (s *Store) Import(ctx context.Context, snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.importSnapshot(ctx, tx, snap); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}

	s.log.Info("imported snapshot",
		zap.String("solution", snap.Solution.UniqueName),
		zap.Int("components", len(snap.Components)),
		zap.Int("entities", len(snap.Entities)),
		zap.Int("webResources", len(snap.WebResources)))
	return nil
}

func (s *Store) importSnapshot(ctx context.Context, tx *sql.Tx, snap *Snapshot) error {
	sol := snap.Solution
	if _, err := tx.ExecContext(ctx,
		s.q(`INSERT INTO solution (solutionid, uniquename, friendlyname) VALUES (?, ?, ?)
			ON CONFLICT (solutionid) DO UPDATE SET uniquename = excluded.uniquename, friendlyname = excluded.friendlyname`),
		sol.ID.String(), sol.UniqueName, sol.FriendlyName,
	); err != nil {
		return fmt.Errorf("storing solution: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		s.q("DELETE FROM solutioncomponent WHERE solutionid = ?"), sol.ID.String(),
	); err != nil {
		return fmt.Errorf("clearing components: %w", err)
	}
	for _, c := range snap.Components {
		if _, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO solutioncomponent (solutionid, objectid, componenttype) VALUES (?, ?, ?)
				ON CONFLICT DO NOTHING`),
			sol.ID.String(), c.ObjectID.String(), int(c.Type),
		); err != nil {
			return fmt.Errorf("storing component %s: %w", c.ObjectID, err)
		}
	}

	for _, e := range snap.Entities {
		if err := s.importEntity(ctx, tx, e); err != nil {
			return err
		}
	}

	for _, wr := range snap.WebResources {
		if _, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO webresource (webresourceid, name, displayname, webresourcetype, content) VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (webresourceid) DO UPDATE SET name = excluded.name, displayname = excluded.displayname,
				webresourcetype = excluded.webresourcetype, content = excluded.content`),
			wr.ID.String(), wr.Name, wr.DisplayName, int(wr.Type), wr.Content,
		); err != nil {
			return fmt.Errorf("storing web resource %s: %w", wr.Name, err)
		}
	}
	return nil
}

func (s *Store) importEntity(ctx context.Context, tx *sql.Tx, e types.EntityMetadata) error {
	id := e.ID.String()
	if _, err := tx.ExecContext(ctx,
		s.q(`INSERT INTO entity (metadataid, logicalname, displayname) VALUES (?, ?, ?)
			ON CONFLICT (metadataid) DO UPDATE SET logicalname = excluded.logicalname, displayname = excluded.displayname`),
		id, e.LogicalName, e.DisplayLabel,
	); err != nil {
		return fmt.Errorf("storing entity %s: %w", e.LogicalName, err)
	}

	if _, err := tx.ExecContext(ctx, s.q("DELETE FROM attribute WHERE entityid = ?"), id); err != nil {
		return fmt.Errorf("clearing attributes of %s: %w", e.LogicalName, err)
	}
	for i, a := range e.Attributes {
		isCustom := 0
		if a.IsCustom {
			isCustom = 1
		}
		if _, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO attribute (entityid, position, logicalname, displayname, attributetype, attributetypename, iscustom, requiredlevel, description)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			id, i, a.LogicalName, a.DisplayLabel, a.TypeCode, a.TypeName, isCustom, a.RequiredLevel.String(), a.Description,
		); err != nil {
			return fmt.Errorf("storing attribute %s.%s: %w", e.LogicalName, a.LogicalName, err)
		}
	}
	return nil
}
