// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package scriptref

import (
	"context"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// functionQueries capture declared function names (@name) in a script.
// Each pattern compiles on its own so a grammar without one of the node
// types still yields the others.
var functionQueries = []string{
	`(function_declaration name: (identifier) @name)`,
	`(generator_function_declaration name: (identifier) @name)`,
	`(method_definition name: (property_identifier) @name)`,
	`(variable_declarator name: (identifier) @name value: (arrow_function))`,
	`(variable_declarator name: (identifier) @name value: (function_expression))`,
	`(variable_declarator name: (identifier) @name value: (function))`,
	`(pair key: (property_identifier) @name value: (function_expression))`,
	`(pair key: (property_identifier) @name value: (function))`,
	`(pair key: (property_identifier) @name value: (arrow_function))`,
	`(assignment_expression left: (member_expression property: (property_identifier) @name) right: (function_expression))`,
	`(assignment_expression left: (member_expression property: (property_identifier) @name) right: (function))`,
	`(assignment_expression left: (member_expression property: (property_identifier) @name) right: (arrow_function))`,
}

// Functions returns the names of functions declared in a JavaScript source,
// ordered by position and without duplicates. Sources that fail to parse
// yield nil.
func Functions(ctx context.Context, source []byte) []string {
	lang := javascript.GetLanguage()
	root, err := sitter.ParseCtx(ctx, source, lang)
	if err != nil || root == nil {
		return nil
	}

	var found []queryResult
	for _, pattern := range functionQueries {
		found = append(found, runQuery(pattern, lang, root, source)...)
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	seen := make(map[string]bool)
	var names []string
	for _, c := range found {
		if seen[c.name] {
			continue
		}
		seen[c.name] = true
		names = append(names, c.name)
	}
	return names
}

// queryResult holds a captured name and its start byte.
type queryResult struct {
	name string
	pos  uint32
}

// runQuery executes a tree-sitter query and returns the captured names.
// Patterns the grammar does not support return nil.
func runQuery(pattern string, lang *sitter.Language, root *sitter.Node, content []byte) []queryResult {
	q, err := sitter.NewQuery([]byte(pattern), lang)
	if err != nil {
		return nil
	}

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	var results []queryResult
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			name := c.Node.Content(content)
			if name == "" {
				continue
			}
			results = append(results, queryResult{name: name, pos: c.Node.StartByte()})
		}
	}
	return results
}
