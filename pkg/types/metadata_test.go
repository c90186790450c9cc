// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredLevel_String(t *testing.T) {
	assert.Equal(t, "None", RequiredNone.String())
	assert.Equal(t, "SystemRequired", RequiredSystem.String())
	assert.Equal(t, "ApplicationRequired", RequiredApplication.String())
	assert.Equal(t, "Recommended", RequiredRecommended.String())
	assert.Equal(t, "Unknown", RequiredLevel(42).String())
}

func TestParseRequiredLevel(t *testing.T) {
	lvl, err := ParseRequiredLevel("")
	require.NoError(t, err)
	assert.Equal(t, RequiredNone, lvl)

	lvl, err = ParseRequiredLevel("ApplicationRequired")
	require.NoError(t, err)
	assert.Equal(t, RequiredApplication, lvl)

	_, err = ParseRequiredLevel("Mandatory")
	assert.Error(t, err)
}

func TestAttributeMetadata_RequiredLevelJSON(t *testing.T) {
	var attr AttributeMetadata
	require.NoError(t, json.Unmarshal([]byte(`{"logicalName":"new_score","requiredLevel":"Recommended"}`), &attr))
	assert.Equal(t, RequiredRecommended, attr.RequiredLevel)

	out, err := json.Marshal(attr)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"requiredLevel":"Recommended"`)
}

func TestComponentType_Values(t *testing.T) {
	assert.Equal(t, 1, int(ComponentEntity))
	assert.Equal(t, 2, int(ComponentAttribute))
	assert.Equal(t, 61, int(ComponentWebResource))
	assert.Equal(t, "webresource", ComponentWebResource.String())
	assert.Equal(t, "component(9)", ComponentType(9).String())
}

func TestNewScriptReference(t *testing.T) {
	ref := NewScriptReference("new_/scripts/account.js")
	assert.Equal(t, "new_/scripts/account.js", ref.WebResourceName)
	assert.Equal(t, "Referenced in new_/scripts/account.js", ref.Note)
}
