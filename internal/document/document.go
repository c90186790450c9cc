// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package document renders the data dictionary as a markdown document.
package document

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/ljrain/DataverseDataDictionary/internal/scriptref"
	"github.com/ljrain/DataverseDataDictionary/pkg/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Dictionary is everything that goes into a rendered document.
type Dictionary struct {
	Solution    string
	GeneratedAt time.Time // Omitted from the output when zero
	Fields      []types.FieldRecord
	Scripts     []types.ScriptAsset
	Skipped     []scriptref.Skip
}

// entityGroup is one entity's section of the document.
type entityGroup struct {
	LogicalName string
	DisplayName string
	Fields      []types.FieldRecord
}

// templateData holds the values injected into the dictionary template.
type templateData struct {
	Solution    string
	GeneratedAt time.Time
	Entities    []entityGroup
	Scripts     []types.ScriptAsset
	Skipped     []scriptref.Skip
}

var funcs = template.FuncMap{
	"cell": cell,
	"join": func(items []string) string { return cell(strings.Join(items, ", ")) },
	"refs": func(refs []types.ScriptReference) string {
		names := make([]string, len(refs))
		for i, r := range refs {
			names[i] = "`" + r.WebResourceName + "`"
		}
		return strings.Join(names, ", ")
	},
}

// Render renders d as markdown.
func Render(d Dictionary) ([]byte, error) {
	tmpl, err := template.New("dictionary.md.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/dictionary.md.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing dictionary template: %w", err)
	}

	data := templateData{
		Solution:    d.Solution,
		GeneratedAt: d.GeneratedAt,
		Entities:    groupByEntity(d.Fields),
		Scripts:     d.Scripts,
		Skipped:     d.Skipped,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing dictionary template: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName returns the attachment file name for a solution's dictionary.
func FileName(solution string) string {
	return solution + "_DataDictionary.md"
}

// Subject returns the attachment subject for a solution's dictionary.
func Subject(solution string) string {
	return "Data Dictionary for " + solution
}

// groupByEntity splits fields into per-entity sections in first-seen order.
func groupByEntity(fields []types.FieldRecord) []entityGroup {
	var groups []entityGroup
	index := make(map[string]int)
	for _, f := range fields {
		i, ok := index[f.EntityLogicalName]
		if !ok {
			i = len(groups)
			index[f.EntityLogicalName] = i
			groups = append(groups, entityGroup{
				LogicalName: f.EntityLogicalName,
				DisplayName: f.EntityDisplayName,
			})
		}
		groups[i].Fields = append(groups[i].Fields, f)
	}
	return groups
}

// cell makes text safe inside a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
