// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package scriptref loads script web resources and maps field schema names to
// the scripts that reference them.
package scriptref

import (
	"slices"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ljrain/DataverseDataDictionary/pkg/types"
)

// Mapper annotates field records with the scripts that reference them.
type Mapper struct {
	log *zap.Logger
}

// NewMapper creates a Mapper. A nil logger disables logging.
func NewMapper(log *zap.Logger) *Mapper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mapper{log: log}
}

// Map checks every (field, script) pair once and returns copies of fields
// with one ScriptReference appended per referencing script, in script order.
// The input records are not modified. Scripts whose content is not valid
// UTF-8 are skipped.
func (m *Mapper) Map(fields []types.FieldRecord, scripts []types.ScriptAsset) []types.FieldRecord {
	bodies := make([]string, len(scripts))
	usable := make([]bool, len(scripts))
	for i, s := range scripts {
		if !utf8.ValidString(s.Content) {
			m.log.Warn("skipping script with non-text content", zap.String("webResource", s.Name))
			continue
		}
		bodies[i] = strings.ToLower(s.Content)
		usable[i] = true
	}

	out := make([]types.FieldRecord, len(fields))
	for i, f := range fields {
		f.ScriptReferences = slices.Clone(f.ScriptReferences)
		name := strings.ToLower(f.FieldSchemaName)
		for j, s := range scripts {
			if usable[j] && containsWord(bodies[j], name) {
				f.ScriptReferences = append(f.ScriptReferences, types.NewScriptReference(s.Name))
			}
		}
		if f.ScriptReferences == nil {
			f.ScriptReferences = []types.ScriptReference{}
		}
		out[i] = f
	}
	return out
}
