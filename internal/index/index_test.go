// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-enhance/internal/dataset"
	"github.com/pdiddy/paper-enhance/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(types.IndexConfig{DBPath: filepath.Join(dir, "index", "papers.db"), MaxResults: 20})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, dir
}

type paper struct {
	id    string
	title string
	ai    types.AISummary
}

func writeEnhanced(t *testing.T, path string, papers []paper) {
	t.Helper()
	w, err := dataset.Create(path)
	require.NoError(t, err)
	for _, p := range papers {
		id, _ := json.Marshal(p.id)
		title, _ := json.Marshal(p.title)
		ai, _ := json.Marshal(p.ai)
		require.NoError(t, w.Write(types.Record{"id": id, "title": title, "summary": []byte(`"abstract"`), "AI": ai}))
	}
	require.NoError(t, w.Close())
}

func samplePapers() []paper {
	return []paper{
		{
			id: "2401.00001", title: "Efficient Attention",
			ai: types.AISummary{
				TLDR: "Linear attention for long sequences", Motivation: "Quadratic cost",
				Method: "Kernel approximation", Result: "2x faster", Conclusion: "Scales well",
			},
		},
		{
			id: "2401.00002", title: "Sparse Retrieval",
			ai: types.AISummary{
				TLDR: "BM25 still wins at 100% recall", Motivation: "Dense models are costly",
				Method: "Hybrid ranking", Result: "Higher recall", Conclusion: "Use both",
			},
		},
		{id: "2401.00003", title: "Broken", ai: types.PlaceholderSummary()},
	}
}

func ingest(t *testing.T, store *Store, paths ...string) IngestSummary {
	t.Helper()
	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), paths, &buf)
	require.NoError(t, err, buf.String())
	return summary
}

// --- schema ---

func TestNewStoreCreatesSchema(t *testing.T) {
	store, dir := testStore(t)
	assert.FileExists(t, filepath.Join(dir, "index", "papers.db"))

	for _, table := range []string{"papers", "indexing_status"} {
		var count int
		require.NoError(t, store.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&count))
		assert.Equal(t, 1, count, table)
	}
}

// --- ingest ---

func TestIngest(t *testing.T) {
	store, dir := testStore(t)
	zh := filepath.Join(dir, "2024-01-01_AI_enhanced_Chinese.jsonl")
	en := filepath.Join(dir, "2024-01-01_AI_enhanced_English.jsonl")
	writeEnhanced(t, zh, samplePapers())
	writeEnhanced(t, en, samplePapers()[:1])

	summary := ingest(t, store, zh, en)
	assert.Equal(t, 2, summary.Indexed)
	assert.Equal(t, 4, summary.Records)
	assert.Equal(t, 2, summary.Total())

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := store.Retrieve(context.Background(), QueryOptions{ID: "2401.00001"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Chinese", got[0].Language)
	assert.Equal(t, "English", got[1].Language)
	assert.Equal(t, "Efficient Attention", got[0].Title)
	assert.Equal(t, "Kernel approximation", got[0].AI.Method)
	assert.JSONEq(t, `"abstract"`, string(mustField(t, got[0].Record, "summary")))
}

func mustField(t *testing.T, record json.RawMessage, key string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(record, &m))
	return m[key]
}

func TestIngestUnknownLanguage(t *testing.T) {
	store, dir := testStore(t)
	path := filepath.Join(dir, "custom.jsonl")
	writeEnhanced(t, path, samplePapers()[:1])

	ingest(t, store, path)
	got, err := store.Retrieve(context.Background(), QueryOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "unknown", got[0].Language)
}

func TestIngestIgnoresUnusableLines(t *testing.T) {
	store, dir := testStore(t)
	path := filepath.Join(dir, "x_AI_enhanced_Chinese.jsonl")
	content := strings.Join([]string{
		`{"id":"a","AI":{"tldr":"kept"}}`,
		`not json`,
		`{"id":"b"}`,
		`{"AI":{"tldr":"no id"}}`,
		``,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	summary := ingest(t, store, path)
	assert.Equal(t, 1, summary.Records)
}

func TestIngestKeepsDistinctJSONIDs(t *testing.T) {
	store, dir := testStore(t)
	path := filepath.Join(dir, "x_AI_enhanced_Chinese.jsonl")
	content := `{"id":1,"AI":{"tldr":"number"}}` + "\n" + `{"id":"1","AI":{"tldr":"string"}}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	summary := ingest(t, store, path)
	assert.Equal(t, 2, summary.Records)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := store.Retrieve(context.Background(), QueryOptions{ID: "1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	var tldrs []string
	for _, e := range got {
		tldrs = append(tldrs, e.AI.TLDR)
	}
	assert.ElementsMatch(t, []string{"number", "string"}, tldrs)
}

func TestIngestMissingFile(t *testing.T) {
	store, dir := testStore(t)
	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), []string{filepath.Join(dir, "missing.jsonl")}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, buf.String(), "failed")
}

func TestIngestSkipsUnchanged(t *testing.T) {
	store, dir := testStore(t)
	path := filepath.Join(dir, "x_AI_enhanced_Chinese.jsonl")
	writeEnhanced(t, path, samplePapers())
	ingest(t, store, path)

	summary := ingest(t, store, path)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Indexed)
}

func TestIngestReplacesChangedFile(t *testing.T) {
	store, dir := testStore(t)
	path := filepath.Join(dir, "x_AI_enhanced_Chinese.jsonl")
	writeEnhanced(t, path, samplePapers())
	ingest(t, store, path)

	// A re-run of the pipeline rewrites the file with fewer records.
	writeEnhanced(t, path, samplePapers()[1:2])
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	summary := ingest(t, store, path)
	assert.Equal(t, 1, summary.Updated)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIngestCancelled(t *testing.T) {
	store, dir := testStore(t)
	path := filepath.Join(dir, "x_AI_enhanced_Chinese.jsonl")
	writeEnhanced(t, path, samplePapers())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.Ingest(ctx, []string{path}, &strings.Builder{})
	assert.ErrorIs(t, err, context.Canceled)
}

// --- retrieve ---

func TestRetrieve(t *testing.T) {
	store, dir := testStore(t)
	path := filepath.Join(dir, "x_AI_enhanced_Chinese.jsonl")
	writeEnhanced(t, path, samplePapers())
	ingest(t, store, path)

	tests := []struct {
		name string
		opts QueryOptions
		want []string
	}{
		{"all", QueryOptions{}, []string{"2401.00001", "2401.00002", "2401.00003"}},
		{"single term", QueryOptions{Query: "attention"}, []string{"2401.00001"}},
		{"case insensitive", QueryOptions{Query: "KERNEL"}, []string{"2401.00001"}},
		{"all terms must match", QueryOptions{Query: "hybrid recall"}, []string{"2401.00002"}},
		{"no match across records", QueryOptions{Query: "kernel hybrid"}, nil},
		{"percent is literal", QueryOptions{Query: "100%"}, []string{"2401.00002"}},
		{"underscore is literal", QueryOptions{Query: "a_b"}, nil},
		{"skip degraded", QueryOptions{SkipDegraded: true}, []string{"2401.00001", "2401.00002"}},
		{"language filter", QueryOptions{Language: "English"}, nil},
		{"max results", QueryOptions{MaxResults: 1}, []string{"2401.00001"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Retrieve(context.Background(), tt.opts)
			require.NoError(t, err)
			var ids []string
			for _, e := range got {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestRetrieveMarksDegraded(t *testing.T) {
	store, dir := testStore(t)
	path := filepath.Join(dir, "x_AI_enhanced_Chinese.jsonl")
	writeEnhanced(t, path, samplePapers())
	ingest(t, store, path)

	got, err := store.Retrieve(context.Background(), QueryOptions{ID: "2401.00003"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Degraded)
	assert.True(t, got[0].AI.IsPlaceholder())
}

// --- export ---

func TestExport(t *testing.T) {
	store, dir := testStore(t)
	path := filepath.Join(dir, "x_AI_enhanced_Chinese.jsonl")
	writeEnhanced(t, path, samplePapers())
	ingest(t, store, path)
	ctx := context.Background()

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, store.ExportYAML(ctx, &buf, QueryOptions{SkipDegraded: true}))
		var entries []Entry
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &entries))
		require.Len(t, entries, 2)
		assert.Equal(t, "Linear attention for long sequences", entries[0].AI.TLDR)
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, store.ExportJSON(ctx, &buf, QueryOptions{Query: "retrieval"}))
		var entries []Entry
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entries))
		require.Len(t, entries, 1)
		assert.Equal(t, "2401.00002", entries[0].ID)
		assert.Contains(t, buf.String(), "100%")
	})

	t.Run("json empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, store.ExportJSON(ctx, &buf, QueryOptions{Query: "nothing-matches"}))
		assert.Equal(t, "[]\n", buf.String())
	})

	t.Run("jsonl", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, store.ExportJSONL(ctx, &buf, QueryOptions{}))
		lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
		require.Len(t, lines, 3)
		var rec map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
		assert.JSONEq(t, `"2401.00001"`, string(rec["id"]))
		assert.Contains(t, rec, "AI")
	})
}
