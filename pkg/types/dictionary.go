// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package types defines shared types used across datadict packages.
package types

import "fmt"

// FieldRecord describes one custom field of an entity in the target solution.
type FieldRecord struct {
	EntityLogicalName string            `json:"entityLogicalName"`
	EntityDisplayName string            `json:"entityDisplayName"` // Falls back to EntityLogicalName
	FieldSchemaName   string            `json:"fieldSchemaName"`
	FieldDisplayName  string            `json:"fieldDisplayName"` // Falls back to FieldSchemaName
	DataType          string            `json:"dataType"`
	RequiredLevel     string            `json:"requiredLevel"`
	Description       string            `json:"description"` // Never falls back; empty when absent
	ScriptReferences  []ScriptReference `json:"scriptReferences"`
}

// Key returns the (entity, field) pair that identifies the record.
func (f FieldRecord) Key() string {
	return f.EntityLogicalName + "." + f.FieldSchemaName
}

// ScriptReference is evidence that a field name occurs in a script web resource.
type ScriptReference struct {
	WebResourceName string `json:"webResourceName"`
	Note            string `json:"note"`
}

// NewScriptReference builds the reference for the named web resource.
func NewScriptReference(webResourceName string) ScriptReference {
	return ScriptReference{
		WebResourceName: webResourceName,
		Note:            fmt.Sprintf("Referenced in %s", webResourceName),
	}
}

// ScriptAsset is a fetched script web resource with its decoded source.
type ScriptAsset struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Content     string   `json:"-"`                   // UTF-8 source text, already base64-decoded
	Functions   []string `json:"functions,omitempty"` // Declared functions, in source order
}
