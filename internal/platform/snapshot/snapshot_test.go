// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.json")
	require.NoError(t, WriteFile(path, testSnapshot()))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testSnapshot(), got)
}

func TestReadFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err := ReadFile(bad)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	future := filepath.Join(dir, "future.json")
	require.NoError(t, os.WriteFile(future, []byte(`{"version": 99}`), 0o644))
	_, err = ReadFile(future)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
	assert.Contains(t, err.Error(), "unsupported version 99")
}

func TestCapture_RoundTripsThroughStore(t *testing.T) {
	ctx := context.Background()
	src := openTestStore(t)
	require.NoError(t, src.Import(ctx, testSnapshot()))

	snap, err := Capture(ctx, src, "Sales", nil)
	require.NoError(t, err)
	assert.Equal(t, salesID, snap.Solution.ID)
	assert.Len(t, snap.Components, 3)
	require.Len(t, snap.Entities, 1)
	assert.Equal(t, testSnapshot().Entities[0], snap.Entities[0])
	assert.Len(t, snap.WebResources, 2)

	dst := openTestStore(t)
	require.NoError(t, dst.Import(ctx, snap))

	meta, err := dst.FetchEntityMetadata(ctx, snap.Entities[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "new_project", meta.LogicalName)
}

func TestCapture_UnknownSolution(t *testing.T) {
	_, err := Capture(context.Background(), openTestStore(t), "Nope", nil)
	assert.Error(t, err)
}
