// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package platform defines the collaborators the dictionary pipeline consumes
// from the business platform: the solution component registry, the metadata
// and web resource fetchers, and the document persister.
package platform

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ljrain/DataverseDataDictionary/pkg/types"
)

// ErrSolutionNotFound is returned by ResolveSolution when no solution has the
// requested unique name.
var ErrSolutionNotFound = errors.New("solution not found")

// Registry resolves solutions and lists the components registered to them.
type Registry interface {
	ResolveSolution(ctx context.Context, uniqueName string) (uuid.UUID, error)

	// ListComponentIDs returns object IDs ascending in the provider's
	// own objectid collation.
	ListComponentIDs(ctx context.Context, solutionID uuid.UUID, componentType types.ComponentType) ([]uuid.UUID, error)
}

// MetadataFetcher retrieves an entity definition with all of its attributes.
type MetadataFetcher interface {
	FetchEntityMetadata(ctx context.Context, entityID uuid.UUID) (*types.EntityMetadata, error)
}

// WebResourceFetcher retrieves a single web resource.
type WebResourceFetcher interface {
	FetchWebResource(ctx context.Context, id uuid.UUID) (*types.WebResource, error)
}

// DocumentPersister stores a generated document as an attachment and returns
// the attachment ID.
type DocumentPersister interface {
	PersistDocument(ctx context.Context, doc []byte, fileName, subject string) (uuid.UUID, error)
}

// Client is the full collaborator surface of a platform backend.
type Client interface {
	Registry
	MetadataFetcher
	WebResourceFetcher
	DocumentPersister
	Close() error
}

// MimeType returns the attachment MIME type for a generated document file.
func MimeType(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".md":
		return "text/markdown"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}
