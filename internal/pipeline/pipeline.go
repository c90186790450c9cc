// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package pipeline implements the dictionary Runner, wiring the registry,
// aggregator, script mapper, renderer and persisters for one solution.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ljrain/DataverseDataDictionary/internal/aggregate"
	"github.com/ljrain/DataverseDataDictionary/internal/document"
	"github.com/ljrain/DataverseDataDictionary/internal/platform"
	"github.com/ljrain/DataverseDataDictionary/internal/publish"
	"github.com/ljrain/DataverseDataDictionary/internal/scriptref"
	"github.com/ljrain/DataverseDataDictionary/pkg/types"
)

// Error types returned by the Runner.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("solution not found")
	ErrFetchFailure   = errors.New("fetch failed")
	ErrRenderFailure  = errors.New("render failed")
	ErrPersistFailure = errors.New("persist failed")
	ErrPublishFailure = errors.New("publish failed")
)

// Publisher writes a rendered dictionary somewhere outside the platform.
type Publisher interface {
	Publish(fileName string, content []byte, solution string) (*publish.Result, error)
}

// Deps holds injected dependencies for the runner.
type Deps struct {
	Registry          platform.Registry
	Metadata          platform.MetadataFetcher
	Resources         platform.WebResourceFetcher
	Persister         platform.DocumentPersister // nil skips the attachment
	Publisher         Publisher                  // nil skips publishing
	Logger            *zap.Logger
	Concurrency       int              // Parallel fetches; <= 1 is sequential
	ContinueOnMissing bool             // Skip unreadable entities and web resources
	Outline           bool             // Extract script function names
	Now               func() time.Time // Stamps the document; nil leaves it unstamped
}

// Dictionary is the annotated field set for one solution.
type Dictionary struct {
	Solution   string              `json:"solution"`
	SolutionID uuid.UUID           `json:"solutionId"`
	Fields     []types.FieldRecord `json:"fields"`
	Scripts    []types.ScriptAsset `json:"scripts"`
	Skipped    []scriptref.Skip    `json:"skipped,omitempty"`
}

// RunResult holds the outcome of a Runner.Run invocation.
type RunResult struct {
	Dictionary
	Document     []byte          `json:"-"`
	FileName     string          `json:"fileName"`
	AttachmentID uuid.UUID       `json:"attachmentId"`
	Published    *publish.Result `json:"published,omitempty"`
}

// Runner builds data dictionaries.
type Runner struct {
	deps Deps
	log  *zap.Logger
}

// NewRunner creates a Runner with the given dependencies.
func NewRunner(deps Deps) *Runner {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{deps: deps, log: log}
}

// Build resolves the solution, aggregates its custom fields and annotates
// them with the scripts that reference them.
func (r *Runner) Build(ctx context.Context, solutionUniqueName string) (*Dictionary, error) {
	// Step 1: Validate input before any call leaves the process.
	name := strings.TrimSpace(solutionUniqueName)
	if name == "" {
		return nil, fmt.Errorf("%w: solution unique name is required", ErrInvalidInput)
	}
	log := r.log.With(zap.String("solution", name))

	// Step 2: Resolve the solution.
	solutionID, err := r.deps.Registry.ResolveSolution(ctx, name)
	if errors.Is(err, platform.ErrSolutionNotFound) || (err == nil && solutionID == uuid.Nil) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: resolving solution %q: %w", ErrFetchFailure, name, err)
	}
	log.Info("resolved solution", zap.Stringer("solutionId", solutionID))

	// Step 3: List solution components.
	entityIDs, err := r.components(ctx, solutionID, types.ComponentEntity)
	if err != nil {
		return nil, err
	}
	attributeIDs, err := r.components(ctx, solutionID, types.ComponentAttribute)
	if err != nil {
		return nil, err
	}
	webResourceIDs, err := r.components(ctx, solutionID, types.ComponentWebResource)
	if err != nil {
		return nil, err
	}
	log.Info("listed components",
		zap.Int("entities", len(entityIDs)),
		zap.Int("attributes", len(attributeIDs)),
		zap.Int("webResources", len(webResourceIDs)))

	// Step 4: Aggregate field metadata.
	agg := aggregate.New(r.deps.Metadata, aggregate.Options{
		Concurrency:       r.deps.Concurrency,
		ContinueOnMissing: r.deps.ContinueOnMissing,
		Logger:            log,
	})
	fields, err := agg.Fields(ctx, entityIDs, attributeIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailure, err)
	}

	// Step 5: Load scripts.
	loader := scriptref.NewLoader(r.deps.Resources, scriptref.LoadOptions{
		Concurrency:       r.deps.Concurrency,
		ContinueOnMissing: r.deps.ContinueOnMissing,
		Outline:           r.deps.Outline,
		Logger:            log,
	})
	loaded, err := loader.Load(ctx, webResourceIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailure, err)
	}

	// Step 6: Map script references.
	mapped := scriptref.NewMapper(log).Map(fields, loaded.Scripts)
	log.Info("mapped script references",
		zap.Int("fields", len(mapped)),
		zap.Int("scripts", len(loaded.Scripts)),
		zap.Int("referenced", countReferenced(mapped)))

	return &Dictionary{
		Solution:   name,
		SolutionID: solutionID,
		Fields:     mapped,
		Scripts:    loaded.Scripts,
		Skipped:    loaded.Skipped,
	}, nil
}

// Run builds the dictionary, renders it, stores it as an attachment and
// publishes it when a publisher is configured.
func (r *Runner) Run(ctx context.Context, solutionUniqueName string) (*RunResult, error) {
	dict, err := r.Build(ctx, solutionUniqueName)
	if err != nil {
		return nil, err
	}
	result := &RunResult{Dictionary: *dict, FileName: document.FileName(dict.Solution)}

	var stamp time.Time
	if r.deps.Now != nil {
		stamp = r.deps.Now()
	}
	result.Document, err = document.Render(document.Dictionary{
		Solution:    dict.Solution,
		GeneratedAt: stamp,
		Fields:      dict.Fields,
		Scripts:     dict.Scripts,
		Skipped:     dict.Skipped,
	})
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrRenderFailure, err)
	}

	if r.deps.Persister != nil {
		id, err := r.deps.Persister.PersistDocument(ctx, result.Document, result.FileName, document.Subject(dict.Solution))
		if err != nil {
			return result, fmt.Errorf("%w: %w", ErrPersistFailure, err)
		}
		result.AttachmentID = id
		r.log.Info("stored dictionary attachment", zap.Stringer("attachmentId", id), zap.String("fileName", result.FileName))
	}

	if r.deps.Publisher != nil {
		pub, err := r.deps.Publisher.Publish(result.FileName, result.Document, dict.Solution)
		if err != nil {
			return result, fmt.Errorf("%w: %w", ErrPublishFailure, err)
		}
		result.Published = pub
		r.log.Info("published dictionary", zap.String("path", pub.Path), zap.Bool("changed", pub.Changed))
	}

	return result, nil
}

// components lists one component type of the solution.
func (r *Runner) components(ctx context.Context, solutionID uuid.UUID, ct types.ComponentType) ([]uuid.UUID, error) {
	ids, err := r.deps.Registry.ListComponentIDs(ctx, solutionID, ct)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s components: %w", ErrFetchFailure, ct, err)
	}
	return ids, nil
}

func countReferenced(fields []types.FieldRecord) int {
	n := 0
	for _, f := range fields {
		if len(f.ScriptReferences) > 0 {
			n++
		}
	}
	return n
}
