// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enhance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-enhance/pkg/types"
)

// Report is the YAML record of one run written when --report is set.
type Report struct {
	Input       string         `yaml:"input"`
	Provider    types.Provider `yaml:"provider"`
	Model       string         `yaml:"model"`
	Language    string         `yaml:"language"`
	StartedAt   time.Time      `yaml:"started_at"`
	FinishedAt  time.Time      `yaml:"finished_at"`
	Duration    string         `yaml:"duration"`
	Interrupted bool           `yaml:"interrupted,omitempty"`
	Error       string         `yaml:"error,omitempty"`
	Summary     Summary        `yaml:"summary"`
}

// NewReport fills a Report from the run configuration and its outcome.
func NewReport(cfg types.EnhanceConfig, summary Summary, started, finished time.Time, runErr error) Report {
	r := Report{
		Input:      cfg.DataPath,
		Provider:   cfg.Provider,
		Model:      cfg.Model,
		Language:   cfg.Language,
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
		Duration:   finished.Sub(started).Round(time.Millisecond).String(),
		Summary:    summary,
	}
	if runErr != nil {
		r.Error = runErr.Error()
		r.Interrupted = errors.Is(runErr, context.Canceled)
	}
	return r
}

// WriteReport marshals r to a YAML file at path.
func WriteReport(path string, r Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}
