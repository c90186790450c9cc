// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package snapshot implements the platform collaborators over a SQL copy of
// a solution, so dictionaries can be generated offline. SQLite and
// PostgreSQL are supported.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	// Drivers registered for database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/ljrain/DataverseDataDictionary/internal/platform"
	"github.com/ljrain/DataverseDataDictionary/pkg/types"
)

// ErrNotFound is returned when a requested entity or web resource is not in
// the snapshot.
var ErrNotFound = errors.New("snapshot: record not found")

// Store is a platform.Client backed by a SQL database.
type Store struct {
	db      *sql.DB
	dialect Dialect
	log     *zap.Logger
	now     func() time.Time
}

// Open connects to the snapshot database and creates any missing tables.
// For SQLite dsn is a file path; for PostgreSQL a connection string.
func Open(ctx context.Context, source, dsn string, log *zap.Logger) (*Store, error) {
	d, err := DialectFor(source)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if n := d.MaxOpenConns(); n > 0 {
		db.SetMaxOpenConns(n)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := NewWithDB(db, d, log)
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// NewWithDB wraps an already open database. The schema is assumed to exist.
func NewWithDB(db *sql.DB, d Dialect, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, dialect: d, log: log, now: time.Now}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	for _, stmt := range schema(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) q(query string) string { return rebind(s.dialect, query) }

// ResolveSolution looks up a solution by unique name, ignoring case.
func (s *Store) ResolveSolution(ctx context.Context, uniqueName string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx,
		s.q("SELECT solutionid FROM solution WHERE LOWER(uniquename) = LOWER(?)"),
		uniqueName,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, platform.ErrSolutionNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolving solution: %w", err)
	}
	return id, nil
}

// ListComponentIDs returns the object IDs of one component type, ascending.
func (s *Store) ListComponentIDs(ctx context.Context, solutionID uuid.UUID, componentType types.ComponentType) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT objectid FROM solutioncomponent WHERE solutionid = ? AND componenttype = ? ORDER BY objectid"),
		solutionID.String(), int(componentType),
	)
	if err != nil {
		return nil, fmt.Errorf("listing components: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning component: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FetchEntityMetadata returns the entity and its attributes in stored order.
func (s *Store) FetchEntityMetadata(ctx context.Context, entityID uuid.UUID) (*types.EntityMetadata, error) {
	meta := &types.EntityMetadata{ID: entityID}
	err := s.db.QueryRowContext(ctx,
		s.q("SELECT logicalname, displayname FROM entity WHERE metadataid = ?"),
		entityID.String(),
	).Scan(&meta.LogicalName, &meta.DisplayLabel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: entity %s", ErrNotFound, entityID)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching entity %s: %w", entityID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT logicalname, displayname, attributetype, attributetypename, iscustom, requiredlevel, description
			FROM attribute WHERE entityid = ? ORDER BY position`),
		entityID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching attributes of %s: %w", entityID, err)
	}
	defer rows.Close()

	meta.Attributes = []types.AttributeMetadata{}
	for rows.Next() {
		var (
			a        types.AttributeMetadata
			isCustom int
			level    string
		)
		if err := rows.Scan(&a.LogicalName, &a.DisplayLabel, &a.TypeCode, &a.TypeName, &isCustom, &level, &a.Description); err != nil {
			return nil, fmt.Errorf("scanning attribute: %w", err)
		}
		a.IsCustom = isCustom != 0
		if a.RequiredLevel, err = types.ParseRequiredLevel(level); err != nil {
			s.log.Debug("unrecognized required level",
				zap.String("entity", meta.LogicalName),
				zap.String("attribute", a.LogicalName),
				zap.Error(err))
		}
		meta.Attributes = append(meta.Attributes, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return meta, nil
}

// FetchWebResource returns one web resource with its base64 content.
func (s *Store) FetchWebResource(ctx context.Context, id uuid.UUID) (*types.WebResource, error) {
	wr := &types.WebResource{ID: id}
	var wrType int
	err := s.db.QueryRowContext(ctx,
		s.q("SELECT name, displayname, webresourcetype, content FROM webresource WHERE webresourceid = ?"),
		id.String(),
	).Scan(&wr.Name, &wr.DisplayName, &wrType, &wr.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: web resource %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching web resource %s: %w", id, err)
	}
	wr.Type = types.WebResourceType(wrType)
	return wr, nil
}

// PersistDocument stores doc in the annotation table.
func (s *Store) PersistDocument(ctx context.Context, doc []byte, fileName, subject string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO annotation (annotationid, subject, filename, mimetype, documentbody, createdon)
			VALUES (?, ?, ?, ?, ?, ?)`),
		id.String(), subject, fileName, platform.MimeType(fileName),
		base64.StdEncoding.EncodeToString(doc), s.now().UTC(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storing annotation: %w", err)
	}
	return id, nil
}

// Annotation is a stored document.
type Annotation struct {
	ID        uuid.UUID
	Subject   string
	FileName  string
	MimeType  string
	Document  []byte
	CreatedOn time.Time
}

// Annotations returns stored documents with the given file name, newest
// first.
func (s *Store) Annotations(ctx context.Context, fileName string) ([]Annotation, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT annotationid, subject, filename, mimetype, documentbody, createdon
			FROM annotation WHERE filename = ? ORDER BY createdon DESC`),
		fileName,
	)
	if err != nil {
		return nil, fmt.Errorf("listing annotations: %w", err)
	}
	defer rows.Close()

	var out []Annotation
	for rows.Next() {
		var (
			a    Annotation
			body string
		)
		if err := rows.Scan(&a.ID, &a.Subject, &a.FileName, &a.MimeType, &body, &a.CreatedOn); err != nil {
			return nil, fmt.Errorf("scanning annotation: %w", err)
		}
		if a.Document, err = base64.StdEncoding.DecodeString(body); err != nil {
			return nil, fmt.Errorf("decoding annotation %s: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

var _ platform.Client = (*Store)(nil)
