// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index loads enhanced JSONL output into a SQLite database so the
// generated summaries can be searched and exported across runs and languages.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-enhance/internal/dataset"
	"github.com/pdiddy/paper-enhance/pkg/types"
)

// DefaultDBPath is used when no database path is configured.
const DefaultDBPath = "index/papers.db"

const defaultMaxResults = 20

// Store manages the summary index SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// NewStore opens or creates the database at cfg.DBPath and creates the
// schema if it does not exist.
func NewStore(cfg types.IndexConfig) (*Store, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id_key TEXT NOT NULL,
			id TEXT NOT NULL,
			language TEXT NOT NULL,
			source TEXT NOT NULL,
			title TEXT,
			tldr TEXT,
			motivation TEXT,
			method TEXT,
			result TEXT,
			conclusion TEXT,
			degraded INTEGER NOT NULL DEFAULT 0,
			record TEXT NOT NULL,
			PRIMARY KEY (id_key, language)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_id ON papers(id)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_source ON papers(source)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			source TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from an indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
	Records int
}

// Total returns the number of files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// row is one enhanced record ready for insertion. key is the compacted JSON
// text of the id, the same identity the pipeline deduplicates on; id is the
// display form.
type row struct {
	key      string
	id       string
	title    string
	summary  types.AISummary
	degraded bool
	record   string
}

// Ingest loads enhanced JSONL files into the database. A file whose
// modification time matches the last indexing is skipped; a changed file
// replaces every row it contributed before. The language comes from the
// file name (see dataset.OutputPath) and defaults to "unknown".
func (s *Store) Ingest(ctx context.Context, paths []string, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary

	for _, path := range paths {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		source, err := filepath.Abs(path)
		if err != nil {
			source = path
		}

		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", path, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE source = ?`, source,
		).Scan(&storedModTime)
		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", path)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		rows, err := readRows(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", path, err)
			summary.Failed++
			continue
		}

		language, ok := dataset.LanguageOf(path)
		if !ok {
			language = "unknown"
		}

		if err := s.ingestFile(ctx, source, language, rows, modTime); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", path, err)
			summary.Failed++
			continue
		}
		summary.Records += len(rows)

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d records)\n", path, len(rows))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d records)\n", path, len(rows))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)
	return summary, nil
}

// readRows parses every record of an enhanced file. Lines that are not
// objects, lack an id or lack an AI field are ignored.
func readRows(path string) ([]row, error) {
	r, err := dataset.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var rows []row
	for {
		line, err := r.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		if line.Blank() {
			continue
		}
		rec, err := dataset.ParseRecord(line.Text)
		if err != nil {
			continue
		}
		key, ok := rec.ID()
		if !ok {
			continue
		}
		ai, ok := rec[types.FieldAI]
		if !ok {
			continue
		}

		var sum types.AISummary
		_ = json.Unmarshal(ai, &sum)
		var title string
		_ = json.Unmarshal(rec["title"], &title)

		data, err := dataset.EncodeRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line.Number, err)
		}
		rows = append(rows, row{
			key:      key,
			id:       rec.DisplayID(),
			title:    title,
			summary:  sum,
			degraded: sum.IsPlaceholder(),
			record:   strings.TrimSuffix(string(data), "\n"),
		})
	}
}

func (s *Store) ingestFile(ctx context.Context, source, language string, rows []row, modTime string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM papers WHERE source = ?`, source); err != nil {
		return fmt.Errorf("deleting old rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO papers
			(id_key, id, language, source, title, tldr, motivation, method, result, conclusion, degraded, record)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			r.key, r.id, language, source, r.title,
			r.summary.TLDR, r.summary.Motivation, r.summary.Method,
			r.summary.Result, r.summary.Conclusion,
			r.degraded, r.record,
		)
		if err != nil {
			return fmt.Errorf("inserting %s: %w", r.id, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (source, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(source) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		source, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}

	return tx.Commit()
}
