// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ljrain/DataverseDataDictionary/internal/platform/snapshot"
	"github.com/ljrain/DataverseDataDictionary/pkg/dictionary"
	"github.com/ljrain/DataverseDataDictionary/pkg/types"
)

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeSnapshotFile(t *testing.T) string {
	t.Helper()
	entityID, scriptID := uuid.New(), uuid.New()
	path := filepath.Join(t.TempDir(), "sales.json")
	require.NoError(t, snapshot.WriteFile(path, &snapshot.Snapshot{
		Version:  snapshot.FormatVersion,
		Solution: snapshot.Solution{ID: uuid.New(), UniqueName: "Sales"},
		Components: []snapshot.Component{
			{ObjectID: entityID, Type: types.ComponentEntity},
			{ObjectID: scriptID, Type: types.ComponentWebResource},
		},
		Entities: []types.EntityMetadata{{
			ID:          entityID,
			LogicalName: "account",
			Attributes:  []types.AttributeMetadata{{LogicalName: "new_score", IsCustom: true, TypeName: "IntegerType"}},
		}},
		WebResources: []types.WebResource{{
			ID: scriptID, Name: "scoring.js", Type: types.WebResourceScript,
			Content: base64.StdEncoding.EncodeToString([]byte("new_score++")),
		}},
	}))
	return path
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "datadict "+version+"\n", out)
}

func TestSnapshotImportThenGenerate(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "sales.db")
	doc := filepath.Join(dir, "sales.md")

	out, err := execute(t, "snapshot", "import", writeSnapshotFile(t), "--dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported Sales")

	out, err = execute(t, "generate", "-s", "Sales", "--source", "sqlite", "--dsn", dsn, "--no-persist", "-o", doc)
	require.NoError(t, err)

	var res dictionary.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Fields, 1)
	assert.Equal(t, "scoring.js", res.Fields[0].ScriptReferences[0].WebResourceName)

	content, err := os.ReadFile(doc)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Data Dictionary: Sales")
}

func TestGenerate_RequiresSolution(t *testing.T) {
	_, err := execute(t, "generate", "--source", "sqlite", "--dsn", "x.db")
	assert.Error(t, err)
}

func TestGenerate_UnknownSolution(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "empty.db")
	store, err := snapshot.Open(context.Background(), "sqlite", dsn, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = execute(t, "generate", "-s", "Nope", "--source", "sqlite", "--dsn", dsn)
	assert.ErrorIs(t, err, dictionary.ErrNotFound)
}
