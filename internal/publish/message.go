// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package publish

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const maxSubjectLength = 72

// ChangeSummary counts the lines added and removed between two versions of
// a dictionary.
type ChangeSummary struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// Summarize computes a line-level diff between before and after.
func Summarize(before, after string) ChangeSummary {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var s ChangeSummary
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			s.Added += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			s.Removed += countLines(d.Text)
		}
	}
	return s
}

// countLines counts lines in text, including a final unterminated line.
func countLines(text string) int {
	n := strings.Count(text, "\n")
	if text != "" && !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

// GenerateMessage creates a conventional commit message for a dictionary
// update.
func GenerateMessage(solution, path string, created bool, summary ChangeSummary) string {
	verb := "update"
	if created {
		verb = "add"
	}
	subject := fmt.Sprintf("docs: %s data dictionary for %s", verb, solution)
	subject = truncate(subject, maxSubjectLength)

	body := fmt.Sprintf("%s: +%d -%d lines", path, summary.Added, summary.Removed)
	return subject + "\n\n" + body + "\n\n" + generatedBy
}

// truncate shortens s to at most limit bytes, ending in "..." and cutting
// on a rune boundary.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
