// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package scriptref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ljrain/DataverseDataDictionary/pkg/types"
)

func field(name string) types.FieldRecord {
	return types.FieldRecord{EntityLogicalName: "account", FieldSchemaName: name, FieldDisplayName: name}
}

func script(name, content string) types.ScriptAsset {
	return types.ScriptAsset{Name: name, DisplayName: name, Content: content}
}

func TestMap_OneReferencePerScript(t *testing.T) {
	fields := []types.FieldRecord{field("new_score")}
	scripts := []types.ScriptAsset{
		script("scoring.js", "new_score = 1; new_score++; log(new_score);"),
	}

	got := NewMapper(nil).Map(fields, scripts)
	require.Len(t, got, 1)
	assert.Equal(t, []types.ScriptReference{
		{WebResourceName: "scoring.js", Note: "Referenced in scoring.js"},
	}, got[0].ScriptReferences)
}

func TestMap_ReferencesInScriptOrder(t *testing.T) {
	fields := []types.FieldRecord{field("new_score")}
	scripts := []types.ScriptAsset{
		script("b.js", "NEW_SCORE"),
		script("unrelated.js", "var x = 1;"),
		script("a.js", "getAttribute('new_score')"),
	}

	got := NewMapper(nil).Map(fields, scripts)
	require.Len(t, got[0].ScriptReferences, 2)
	assert.Equal(t, "b.js", got[0].ScriptReferences[0].WebResourceName)
	assert.Equal(t, "a.js", got[0].ScriptReferences[1].WebResourceName)
}

func TestMap_DoesNotMutateInput(t *testing.T) {
	fields := []types.FieldRecord{field("new_score")}
	scripts := []types.ScriptAsset{script("scoring.js", "new_score")}

	got := NewMapper(nil).Map(fields, scripts)
	assert.Len(t, got[0].ScriptReferences, 1)
	assert.Nil(t, fields[0].ScriptReferences)
}

func TestMap_PreservesExistingReferences(t *testing.T) {
	existing := types.NewScriptReference("earlier.js")
	f := field("new_score")
	f.ScriptReferences = []types.ScriptReference{existing}

	got := NewMapper(nil).Map([]types.FieldRecord{f}, []types.ScriptAsset{script("later.js", "new_score")})
	assert.Equal(t, []types.ScriptReference{existing, types.NewScriptReference("later.js")}, got[0].ScriptReferences)
	assert.Len(t, f.ScriptReferences, 1)
}

func TestMap_NoScriptsYieldsEmptyReferences(t *testing.T) {
	got := NewMapper(nil).Map([]types.FieldRecord{field("new_score")}, nil)
	require.Len(t, got, 1)
	assert.NotNil(t, got[0].ScriptReferences)
	assert.Empty(t, got[0].ScriptReferences)
}

func TestMap_SkipsNonTextScript(t *testing.T) {
	scripts := []types.ScriptAsset{
		script("binary.js", "new_score\xff\xfe"),
		script("good.js", "new_score"),
	}

	got := NewMapper(nil).Map([]types.FieldRecord{field("new_score")}, scripts)
	assert.Equal(t, []types.ScriptReference{types.NewScriptReference("good.js")}, got[0].ScriptReferences)
}

func TestMap_SameNameOnDifferentEntities(t *testing.T) {
	a := field("new_code")
	b := field("new_code")
	b.EntityLogicalName = "contact"

	got := NewMapper(nil).Map([]types.FieldRecord{a, b}, []types.ScriptAsset{script("x.js", "new_code")})
	assert.Len(t, got[0].ScriptReferences, 1)
	assert.Len(t, got[1].ScriptReferences, 1)
}
