// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package scriptref

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// References reports whether content contains name as a whole word,
// ignoring case. The name is matched literally. A match must not be
// immediately preceded or followed by a letter, digit or underscore.
func References(content, name string) bool {
	return containsWord(strings.ToLower(content), strings.ToLower(name))
}

// containsWord checks whether text contains word bounded by non-identifier
// characters or string edges. Both arguments must already be lowercased.
func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	idx := 0
	for idx <= len(text) {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		if !identBefore(text, start) && !identAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		idx = start + size
	}
	return false
}

func identBefore(text string, pos int) bool {
	if pos == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return isIdent(r)
}

func identAfter(text string, pos int) bool {
	if pos >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[pos:])
	return isIdent(r)
}

func isIdent(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
