// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dataset reads and writes line-delimited JSON paper datasets.
// It owns the per-run seen-ID set and derives the enhanced output path
// from the input path.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/pdiddy/paper-enhance/pkg/types"
)

// zstdExt marks inputs that are decompressed transparently.
const zstdExt = ".zst"

// ErrMalformed is returned by ParseRecord for lines that are not a JSON object.
var ErrMalformed = errors.New("malformed record")

// Line is one raw input line with its 1-based position in the file.
type Line struct {
	Number int
	Text   []byte
}

// Blank reports whether the line holds only whitespace.
func (l Line) Blank() bool {
	return len(bytes.TrimSpace(l.Text)) == 0
}

// Reader yields raw lines from a JSONL file, one at a time.
type Reader struct {
	file   *os.File
	zr     *zstd.Decoder
	br     *bufio.Reader
	lineNo int
}

// Open opens path for reading. Files ending in .zst are zstd-decompressed.
// A missing file is reported with an error wrapping fs.ErrNotExist.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input %s: %w", path, err)
	}

	r := &Reader{file: f}
	var src io.Reader = f
	if strings.HasSuffix(path, zstdExt) {
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening zstd stream %s: %w", path, err)
		}
		r.zr = zr
		src = zr
	}
	r.br = bufio.NewReaderSize(src, 64*1024)
	return r, nil
}

// Next returns the next line without its trailing newline. It returns
// io.EOF once the input is exhausted. Lines have no length limit.
func (r *Reader) Next() (Line, error) {
	text, err := r.br.ReadBytes('\n')
	if len(text) == 0 && err != nil {
		if errors.Is(err, io.EOF) {
			return Line{}, io.EOF
		}
		return Line{}, fmt.Errorf("reading line %d: %w", r.lineNo+1, err)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return Line{}, fmt.Errorf("reading line %d: %w", r.lineNo+1, err)
	}
	r.lineNo++
	text = bytes.TrimRight(text, "\r\n")
	return Line{Number: r.lineNo, Text: text}, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	if r.zr != nil {
		r.zr.Close()
	}
	return r.file.Close()
}

// ParseRecord decodes one line into a Record. Anything other than a JSON
// object is reported as ErrMalformed.
func ParseRecord(line []byte) (types.Record, error) {
	var rec types.Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformed)
	}
	return rec, nil
}
