// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/paper-enhance/pkg/types"
)

// enhancedMarker is inserted between the input stem and the language.
const enhancedMarker = "_AI_enhanced_"

const jsonlExt = ".jsonl"

// OutputPath derives the enhanced output path from the input path:
// data/2024-01-01.jsonl becomes data/2024-01-01_AI_enhanced_Chinese.jsonl.
// A trailing .zst is dropped so compressed inputs yield plain JSONL, and an
// input without an extension gets .jsonl appended.
func OutputPath(input, language string) string {
	dir, base := filepath.Split(input)
	base = strings.TrimSuffix(base, zstdExt)

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = jsonlExt
	}
	return filepath.Join(dir, stem+enhancedMarker+language+ext)
}

// LanguageOf recovers the language from a path produced by OutputPath.
func LanguageOf(path string) (string, bool) {
	base := strings.TrimSuffix(filepath.Base(path), zstdExt)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	i := strings.LastIndex(base, enhancedMarker)
	if i < 0 {
		return "", false
	}
	lang := base[i+len(enhancedMarker):]
	return lang, lang != ""
}

// Writer appends records to an output JSONL file, one JSON object per line.
// Every Write is flushed before it returns so an interrupted run leaves only
// complete lines behind.
type Writer struct {
	path  string
	file  *os.File
	bw    *bufio.Writer
	count int
}

// Create removes any existing file at path and opens a fresh one for appending.
func Create(path string) (*Writer, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("removing stale output %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening output %s: %w", path, err)
	}
	return &Writer{path: path, file: f, bw: bufio.NewWriter(f)}, nil
}

// Path returns the output file path.
func (w *Writer) Path() string {
	return w.path
}

// Count returns the number of records written so far.
func (w *Writer) Count() int {
	return w.count
}

// Write encodes rec as a single line and flushes it. Non-ASCII text and
// HTML characters are written literally.
func (w *Writer) Write(rec types.Record) error {
	if w.file == nil {
		return fmt.Errorf("writing %s: writer closed", w.path)
	}
	line, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	if _, err := w.bw.Write(line); err != nil {
		return fmt.Errorf("writing %s: %w", w.path, err)
	}
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", w.path, err)
	}
	w.count++
	return nil
}

// Close flushes pending output and closes the file. Calling Close more than
// once is safe.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	flushErr := w.bw.Flush()
	closeErr := w.file.Close()
	w.file = nil
	if flushErr != nil {
		return fmt.Errorf("flushing %s: %w", w.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing %s: %w", w.path, closeErr)
	}
	return nil
}

// EncodeRecord renders rec as one newline-terminated JSON line.
func EncodeRecord(rec types.Record) ([]byte, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return []byte(sb.String()), nil
}
