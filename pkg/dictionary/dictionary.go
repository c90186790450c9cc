// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package dictionary defines the public interface for datadict, which
// generates data dictionaries for the custom fields of a Dataverse solution
// and annotates each field with the scripts that reference it.
package dictionary

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ljrain/DataverseDataDictionary/internal/pipeline"
	"github.com/ljrain/DataverseDataDictionary/pkg/types"
)

// Error types for the dictionary API. All but ErrInvalidConfig come from a
// Generate call and can be matched with errors.Is.
var (
	ErrInvalidConfig  = errors.New("invalid config")
	ErrInvalidInput   = pipeline.ErrInvalidInput
	ErrNotFound       = pipeline.ErrNotFound
	ErrFetchFailure   = pipeline.ErrFetchFailure
	ErrRenderFailure  = pipeline.ErrRenderFailure
	ErrPersistFailure = pipeline.ErrPersistFailure
	ErrPublishFailure = pipeline.ErrPublishFailure
)

// Metadata sources.
const (
	SourceWebAPI   = "webapi"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

// Config configures a Generator.
type Config struct {
	Source            string        // "webapi" (default), "sqlite" or "postgres"
	URL               string        // Environment URL (webapi)
	Token             string        // Bearer token (webapi)
	Timeout           time.Duration // Per-request timeout (webapi, default 60s)
	DSN               string        // Snapshot database (sqlite path or postgres connection string)
	Concurrency       int           // Parallel metadata fetches (default 1)
	ContinueOnMissing bool          // Skip unreadable entities and web resources
	NoPersist         bool          // Do not store the document as an attachment
	Outline           bool          // List declared functions of each script
	PublishRepo       string        // Git repository to publish into (empty = no publishing)
	PublishDir        string        // Directory inside PublishRepo (default "data-dictionary")
	NoCommit          bool          // Write the published file without committing
	Logger            *zap.Logger   // Defaults to a no-op logger
}

// Skip is a script excluded from matching.
type Skip struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Publication describes a dictionary written to the publish repository.
type Publication struct {
	Path    string `json:"path"`
	Changed bool   `json:"changed"`
	Commit  string `json:"commit,omitempty"`
	Added   int    `json:"linesAdded"`
	Removed int    `json:"linesRemoved"`
}

// Result holds the outcome of a Generate invocation.
type Result struct {
	Solution     string              `json:"solution"`
	SolutionID   uuid.UUID           `json:"solutionId"`
	Fields       []types.FieldRecord `json:"fields"`
	Scripts      []types.ScriptAsset `json:"scripts"`
	Skipped      []Skip              `json:"skipped,omitempty"`
	FileName     string              `json:"fileName"`
	AttachmentID uuid.UUID           `json:"attachmentId"`
	Published    *Publication        `json:"published,omitempty"`
	Document     []byte              `json:"-"` // Rendered markdown
}

// Generator builds data dictionaries.
type Generator interface {
	// Generate resolves the solution, aggregates its custom fields,
	// annotates them with script references, renders the document and
	// stores or publishes it as configured.
	Generate(ctx context.Context, solutionUniqueName string) (*Result, error)

	// Close releases the metadata source.
	Close() error
}
