// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/paper-enhance/pkg/types"
)

// QueryOptions holds parameters for index queries.
type QueryOptions struct {
	// Query is matched case-insensitively against the title and the five
	// summary fields. Whitespace-separated terms must all match.
	Query string

	// Language filters by summary language.
	Language string

	// ID filters by record id.
	ID string

	// SkipDegraded drops records that carry the placeholder summary.
	SkipDegraded bool

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// Entry is one indexed record.
type Entry struct {
	ID       string          `json:"id" yaml:"id"`
	Language string          `json:"language" yaml:"language"`
	Title    string          `json:"title,omitempty" yaml:"title,omitempty"`
	Source   string          `json:"source" yaml:"source"`
	Degraded bool            `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	AI       types.AISummary `json:"AI" yaml:"ai"`

	// Record is the full enhanced record as written by the pipeline.
	Record json.RawMessage `json:"-" yaml:"-"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Retrieve queries the index. Results are ordered by display id, JSON id and
// language. The
// ID filter matches the display form, so "1" finds both 1 and "1".
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]Entry, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT id, language, source, title, tldr, motivation, method, result,
			conclusion, degraded, record
		FROM papers
		WHERE 1=1`)

	for _, term := range strings.Fields(opts.Query) {
		qb.WriteString(` AND (
			title LIKE ? ESCAPE '\' OR tldr LIKE ? ESCAPE '\' OR
			motivation LIKE ? ESCAPE '\' OR method LIKE ? ESCAPE '\' OR
			result LIKE ? ESCAPE '\' OR conclusion LIKE ? ESCAPE '\')`)
		pattern := "%" + likeEscaper.Replace(term) + "%"
		for range 6 {
			args = append(args, pattern)
		}
	}

	if opts.Language != "" {
		qb.WriteString(` AND language = ?`)
		args = append(args, opts.Language)
	}
	if opts.ID != "" {
		qb.WriteString(` AND id = ?`)
		args = append(args, opts.ID)
	}
	if opts.SkipDegraded {
		qb.WriteString(` AND degraded = 0`)
	}

	qb.WriteString(` ORDER BY id, id_key, language LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var results []Entry
	for rows.Next() {
		var (
			e      Entry
			title  sql.NullString
			record string
		)
		if err := rows.Scan(
			&e.ID, &e.Language, &e.Source, &title,
			&e.AI.TLDR, &e.AI.Motivation, &e.AI.Method, &e.AI.Result,
			&e.AI.Conclusion, &e.Degraded, &record,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		e.Title = title.String
		e.Record = json.RawMessage(record)
		results = append(results, e)
	}
	return results, rows.Err()
}

// Count returns the number of indexed records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM papers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}
