// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enhance runs the record-by-record enrichment pipeline: read a
// JSONL dataset, skip malformed and duplicate records, ask the model for a
// five-field summary, recover the JSON object from its reply, and append the
// augmented record to the output file.
//
// Processing is sequential. A failure for one record (model error or
// unrecoverable reply) never aborts the run: the record is written with the
// placeholder summary instead.
package enhance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-enhance/internal/dataset"
	"github.com/pdiddy/paper-enhance/internal/jsonrepair"
	"github.com/pdiddy/paper-enhance/pkg/types"
)

// maxLoggedLine bounds how much of a malformed input line is echoed to the log.
const maxLoggedLine = 200

// Invoker turns a record's content into the model's raw reply.
type Invoker interface {
	Invoke(ctx context.Context, language, content string) (string, error)
}

// Summary holds counts from one enhance run.
type Summary struct {
	Output     string `json:"output" yaml:"output"`
	Lines      int    `json:"lines" yaml:"lines"`
	Accepted   int    `json:"accepted" yaml:"accepted"`
	Enhanced   int    `json:"enhanced" yaml:"enhanced"`
	Degraded   int    `json:"degraded" yaml:"degraded"`
	Malformed  int    `json:"malformed" yaml:"malformed"`
	Duplicates int    `json:"duplicates" yaml:"duplicates"`
	MissingID  int    `json:"missing_id" yaml:"missing_id"`
}

// Skipped returns the number of non-blank lines that produced no output.
func (s Summary) Skipped() int {
	return s.Malformed + s.Duplicates + s.MissingID
}

// HasDegraded reports whether any record was written with the placeholder.
func (s Summary) HasDegraded() bool {
	return s.Degraded > 0
}

// session owns the per-run mutable state: the seen-ID set and the open
// output file. Close must run on every exit path.
type session struct {
	seen   *dataset.SeenSet
	writer *dataset.Writer
}

func newSession(outPath string) (*session, error) {
	w, err := dataset.Create(outPath)
	if err != nil {
		return nil, err
	}
	return &session{seen: dataset.NewSeenSet(), writer: w}, nil
}

func (s *session) Close() error {
	return s.writer.Close()
}

// Pipeline enriches one dataset with one invoker.
type Pipeline struct {
	cfg         types.EnhanceConfig
	invoker     Invoker
	logger      *zap.Logger
	placeholder json.RawMessage
}

// NewPipeline prepares a pipeline. cfg.Language is passed to every prompt.
func NewPipeline(cfg types.EnhanceConfig, invoker Invoker, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	placeholder, _ := json.Marshal(types.PlaceholderSummary())
	return &Pipeline{
		cfg:         cfg,
		invoker:     invoker,
		logger:      logger,
		placeholder: placeholder,
	}
}

// Run is shorthand for NewPipeline(cfg, invoker, logger).Run(ctx).
func Run(ctx context.Context, cfg types.EnhanceConfig, invoker Invoker, logger *zap.Logger) (Summary, error) {
	return NewPipeline(cfg, invoker, logger).Run(ctx)
}

// Run processes cfg.DataPath into its derived output path. A missing input
// is returned as an error before the output file is touched. Cancelling ctx
// stops the run between records; a record whose model call was cut short is
// not written.
func (p *Pipeline) Run(ctx context.Context) (summary Summary, err error) {
	reader, err := dataset.Open(p.cfg.DataPath)
	if err != nil {
		return Summary{}, err
	}
	defer reader.Close()

	summary.Output = dataset.OutputPath(p.cfg.DataPath, p.cfg.Language)
	sess, err := newSession(summary.Output)
	if err != nil {
		return summary, err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	p.logger.Info("enhancing dataset",
		zap.String("input", p.cfg.DataPath),
		zap.String("output", summary.Output),
		zap.String("language", p.cfg.Language),
	)

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		line, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, err
		}
		if line.Blank() {
			continue
		}
		summary.Lines++

		rec, err := dataset.ParseRecord(line.Text)
		if err != nil {
			summary.Malformed++
			p.logger.Warn("skipping malformed line",
				zap.Int("line", line.Number),
				zap.String("text", truncate(string(line.Text), maxLoggedLine)),
				zap.Error(err),
			)
			continue
		}

		switch sess.seen.Check(rec) {
		case dataset.MissingID:
			summary.MissingID++
			p.logger.Debug("skipping record without id", zap.Int("line", line.Number))
			continue
		case dataset.Duplicate:
			summary.Duplicates++
			p.logger.Debug("skipping duplicate record",
				zap.Int("line", line.Number), zap.String("id", rec.DisplayID()))
			continue
		}
		summary.Accepted++

		ai, ok := p.summarize(ctx, rec)
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		rec.SetAI(ai)
		if err := sess.writer.Write(rec); err != nil {
			return summary, fmt.Errorf("writing record %s: %w", rec.DisplayID(), err)
		}
		if ok {
			summary.Enhanced++
		} else {
			summary.Degraded++
		}
		p.logger.Info("finished item", zap.Int("n", summary.Accepted), zap.String("id", rec.DisplayID()))
	}

	p.logger.Info("enhance complete",
		zap.Int("written", sess.writer.Count()),
		zap.Int("enhanced", summary.Enhanced),
		zap.Int("degraded", summary.Degraded),
		zap.Int("skipped", summary.Skipped()),
	)
	return summary, nil
}

// summarize asks the model about rec and recovers the JSON object from its
// reply. On any failure it logs the raw reply and returns the placeholder
// with ok=false.
func (p *Pipeline) summarize(ctx context.Context, rec types.Record) (ai json.RawMessage, ok bool) {
	id := rec.DisplayID()

	raw, err := p.invoker.Invoke(ctx, p.cfg.Language, rec.Summary())
	if err != nil && ctx.Err() != nil {
		return p.placeholder, false
	}
	if err != nil {
		p.logger.Error("model call failed",
			zap.String("id", id), zap.Error(err), zap.String("raw_response", raw))
		return p.placeholder, false
	}

	obj, err := jsonrepair.Extract(raw)
	if err != nil {
		p.logger.Error("could not extract summary",
			zap.String("id", id), zap.Error(err), zap.String("raw_response", raw))
		return p.placeholder, false
	}

	if missing := jsonrepair.MissingKeys(obj, types.AISummaryKeys...); len(missing) > 0 {
		p.logger.Warn("summary is missing fields",
			zap.String("id", id), zap.Strings("missing", missing))
	}
	return obj, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
