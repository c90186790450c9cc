// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package webapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ljrain/DataverseDataDictionary/internal/platform"
	"github.com/ljrain/DataverseDataDictionary/pkg/types"
)

// newTestClient starts a server that serves handler under /api/data/v9.2/.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.StripPrefix("/api/data/v9.2", handler))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/", Token: "secret", BaseDelay: time.Millisecond})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Token: "x"})
	assert.ErrorIs(t, err, ErrRequestFailed)

	_, err = New(Config{BaseURL: "https://org.example.com"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = New(Config{BaseURL: "not a url", Token: "x"})
	assert.ErrorIs(t, err, ErrRequestFailed)

	c, err := New(Config{BaseURL: "https://org.example.com/", Token: "x"})
	require.NoError(t, err)
	assert.Equal(t, "https://org.example.com/api/data/v9.2/", c.root.String())
}

func TestResolveSolution(t *testing.T) {
	id := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/solutions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "uniquename eq 'O''Brien'", r.URL.Query().Get("$filter"))
		writeJSON(w, http.StatusOK, map[string]any{"value": []any{map[string]any{"solutionid": id}}})
	})

	got, err := c.ResolveSolution(context.Background(), "O'Brien")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestResolveSolution_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"value": []any{}})
	})

	_, err := c.ResolveSolution(context.Background(), "Missing")
	assert.ErrorIs(t, err, platform.ErrSolutionNotFound)
}

func TestListComponentIDs_KeepsServerOrderAcrossPages(t *testing.T) {
	// uniqueidentifier collation compares the last six bytes first.
	first := uuid.MustParse("ffffffff-ffff-ffff-ffff-000000000001")
	second := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	third := uuid.MustParse("00000000-0000-0000-0000-00000000000c")
	solution := uuid.New()

	var serverURL string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/solutioncomponents", r.URL.Path)
		if r.URL.Query().Get("page") == "2" {
			writeJSON(w, http.StatusOK, map[string]any{"value": []any{map[string]any{"objectid": third}}})
			return
		}
		assert.Equal(t, "_solutionid_value eq "+solution.String()+" and componenttype eq 61", r.URL.Query().Get("$filter"))
		assert.Equal(t, "objectid asc", r.URL.Query().Get("$orderby"))
		writeJSON(w, http.StatusOK, map[string]any{
			"value":           []any{map[string]any{"objectid": first}, map[string]any{"objectid": second}},
			"@odata.nextLink": serverURL + "solutioncomponents?page=2",
		})
	})
	serverURL = c.root.String()

	ids, err := c.ListComponentIDs(context.Background(), solution, types.ComponentWebResource)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first, second, third}, ids)
}

func TestFetchEntityMetadata(t *testing.T) {
	id := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/EntityDefinitions("+id.String()+")", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("$expand"), "Attributes(")
		_, _ = w.Write([]byte(`{
			"MetadataId": "` + id.String() + `",
			"LogicalName": "new_project",
			"DisplayName": {"UserLocalizedLabel": {"Label": "Project"}},
			"Attributes": [
				{
					"LogicalName": "new_budget",
					"DisplayName": {"UserLocalizedLabel": null},
					"Description": {"UserLocalizedLabel": {"Label": "Approved budget"}},
					"AttributeType": "Money",
					"AttributeTypeName": {"Value": "MoneyType"},
					"IsCustomAttribute": true,
					"RequiredLevel": {"Value": "ApplicationRequired"}
				},
				{
					"LogicalName": "createdon",
					"AttributeType": "DateTime",
					"IsCustomAttribute": false,
					"RequiredLevel": {"Value": "SomethingNew"}
				}
			]
		}`))
	})

	meta, err := c.FetchEntityMetadata(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "new_project", meta.LogicalName)
	assert.Equal(t, "Project", meta.DisplayLabel)
	require.Len(t, meta.Attributes, 2)

	budget := meta.Attributes[0]
	assert.Equal(t, types.AttributeMetadata{
		LogicalName:   "new_budget",
		Description:   "Approved budget",
		TypeName:      "MoneyType",
		TypeCode:      "Money",
		IsCustom:      true,
		RequiredLevel: types.RequiredApplication,
	}, budget)

	created := meta.Attributes[1]
	assert.False(t, created.IsCustom)
	assert.Empty(t, created.TypeName)
	assert.Equal(t, types.RequiredNone, created.RequiredLevel)
}

func TestFetchWebResource(t *testing.T) {
	id := uuid.New()
	content := base64.StdEncoding.EncodeToString([]byte("var x = new_score;"))
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/webresourceset("+id.String()+")", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"webresourceid":   id,
			"name":            "new_/scoring.js",
			"displayname":     "Scoring",
			"webresourcetype": 3,
			"content":         content,
		})
	})

	wr, err := c.FetchWebResource(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, &types.WebResource{
		ID:          id,
		Name:        "new_/scoring.js",
		DisplayName: "Scoring",
		Type:        types.WebResourceScript,
		Content:     content,
	}, wr)
}

func TestFetchWebResource_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{"code": "0x80040217", "message": "webresource does not exist"},
		})
	})

	_, err := c.FetchWebResource(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "webresource does not exist")
}

func TestPersistDocument(t *testing.T) {
	noteID := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/annotations", r.URL.Path)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Data Dictionary for Sales", body["subject"])
		assert.Equal(t, "Sales_DataDictionary.md", body["filename"])
		assert.Equal(t, "text/markdown", body["mimetype"])
		decoded, err := base64.StdEncoding.DecodeString(body["documentbody"])
		require.NoError(t, err)
		assert.Equal(t, "# doc", string(decoded))

		writeJSON(w, http.StatusCreated, map[string]any{"annotationid": noteID})
	})

	got, err := c.PersistDocument(context.Background(), []byte("# doc"), "Sales_DataDictionary.md", "Data Dictionary for Sales")
	require.NoError(t, err)
	assert.Equal(t, noteID, got)
}

func TestPersistDocument_EntityIDHeader(t *testing.T) {
	noteID := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("OData-EntityId", "https://org.example.com/api/data/v9.2/annotations("+noteID.String()+")")
		w.WriteHeader(http.StatusNoContent)
	})

	got, err := c.PersistDocument(context.Background(), []byte("x"), "a.md", "s")
	require.NoError(t, err)
	assert.Equal(t, noteID, got)
}

func TestDo_RetriesThrottling(t *testing.T) {
	var calls atomic.Int32
	id := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"value": []any{map[string]any{"solutionid": id}}})
	})

	got, err := c.ResolveSolution(context.Background(), "Sales")
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.ResolveSolution(context.Background(), "Sales")
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Contains(t, err.Error(), "after 3 retries")
	assert.Equal(t, int32(maxRetryAttempts+1), calls.Load())
}

func TestDo_Unauthorized(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.ResolveSolution(context.Background(), "Sales")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "credential")
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_CancelledDuringRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, Token: "x", BaseDelay: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.ResolveSolution(ctx, "Sales")
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "cancelled during retry")
}

func TestDo_HonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	id := uuid.New()
	srv := httptest.NewServer(http.StripPrefix("/api/data/v9.2", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"value": []any{map[string]any{"solutionid": id}}})
	})))
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, Token: "x", BaseDelay: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	start := time.Now()
	got, err := c.ResolveSolution(ctx, "Sales")
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, int32(2), calls.Load())
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	header := func(v string) http.Header {
		h := http.Header{}
		if v != "" {
			h.Set("Retry-After", v)
		}
		return h
	}

	assert.Equal(t, time.Duration(0), retryAfter(header(""), now))
	assert.Equal(t, 7*time.Second, retryAfter(header("7"), now))
	assert.Equal(t, 30*time.Second, retryAfter(header(now.Add(30*time.Second).Format(http.TimeFormat)), now))
	assert.Equal(t, time.Duration(0), retryAfter(header(now.Add(-time.Minute).Format(http.TimeFormat)), now))
	assert.Equal(t, time.Duration(0), retryAfter(header("soon"), now))
	assert.Equal(t, maxRetryAfter, retryAfter(header("86400"), now))
}

func TestClassifyError_Timeout(t *testing.T) {
	err := classifyError(context.DeadlineExceeded, http.MethodGet, "https://x")
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, strings.Contains(err.Error(), "timed out"))
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "'Sales'", quote("Sales"))
	assert.Equal(t, "'it''s'", quote("it's"))
}
