// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jsonrepair locates a JSON object embedded in free-form model output
// and parses it, repairing invalid backslash escapes when a strict parse fails.
//
// Candidates are tried in order: every top-level balanced {...} span
// (string-aware; a span that fails to parse is skipped whole, never searched
// for inner objects), then the greedy span from the first '{' to the last
// '}'. The first candidate that parses is returned.
package jsonrepair

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoObject is the cause of an ExtractionError when the text holds no
// '{' ... '}' span at all.
var ErrNoObject = errors.New("no JSON object found")

// ExtractionError reports that no JSON object could be recovered from a
// model response. Raw carries the full response for diagnostics.
type ExtractionError struct {
	Raw string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting JSON: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extract finds the most plausible JSON object in raw and returns it
// compacted. The value is returned as parsed; callers decide whether the
// keys it carries are acceptable.
func Extract(raw string) (json.RawMessage, error) {
	first := strings.IndexByte(raw, '{')
	last := strings.LastIndexByte(raw, '}')
	if first < 0 || last < first {
		return nil, &ExtractionError{Raw: raw, Err: ErrNoObject}
	}

	var lastErr error
	tried := make(map[string]bool)
	try := func(candidate string) (json.RawMessage, bool) {
		if tried[candidate] {
			return nil, false
		}
		tried[candidate] = true
		obj, err := parse(candidate)
		if err != nil {
			lastErr = err
			return nil, false
		}
		return obj, true
	}

	for start := first; start >= 0 && start < len(raw); {
		resume := start + 1
		if end, ok := balancedEnd(raw, start); ok {
			if obj, ok := try(raw[start : end+1]); ok {
				return obj, nil
			}
			// Braces nested in a span that failed are fragments of it, not
			// candidates of their own.
			resume = end + 1
		}
		if resume >= len(raw) {
			break
		}
		next := strings.IndexByte(raw[resume:], '{')
		if next < 0 {
			break
		}
		start = resume + next
	}

	if obj, ok := try(raw[first : last+1]); ok {
		return obj, nil
	}
	return nil, &ExtractionError{Raw: raw, Err: lastErr}
}

// parse decodes candidate strictly and, if the only problem is an invalid
// escape sequence, once more after RepairEscapes.
func parse(candidate string) (json.RawMessage, error) {
	obj, err := compactObject(candidate)
	if err == nil {
		return obj, nil
	}
	if !isEscapeError(err) {
		return nil, err
	}
	obj, repairErr := compactObject(RepairEscapes(candidate))
	if repairErr != nil {
		return nil, fmt.Errorf("after escape repair: %w", repairErr)
	}
	return obj, nil
}

func compactObject(s string) (json.RawMessage, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &probe); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}

// isEscapeError reports whether err is a syntax error raised by a backslash
// followed by a character JSON does not allow there.
func isEscapeError(err error) bool {
	var syn *json.SyntaxError
	if !errors.As(err, &syn) {
		return false
	}
	return strings.Contains(syn.Error(), "in string escape code")
}

// validEscapes are the characters JSON allows after a backslash.
const validEscapes = `"\/bfnrtu`

// RepairEscapes doubles every backslash that does not start a valid JSON
// escape, so a strict parser reads it as a literal backslash. Valid pairs
// are copied unchanged. Running it on its own output is a no-op.
func RepairEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) && strings.IndexByte(validEscapes, s[i+1]) >= 0 {
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteString(`\\`)
	}
	return b.String()
}

// balancedEnd returns the index of the '}' that closes the '{' at start,
// skipping braces inside string literals.
func balancedEnd(s string, start int) (int, bool) {
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// MissingKeys returns the keys from want that obj does not carry. A value
// that is not a JSON object is missing every key.
func MissingKeys(obj json.RawMessage, want ...string) []string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(obj, &fields); err != nil {
		return append([]string(nil), want...)
	}
	var missing []string
	for _, k := range want {
		if _, ok := fields[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}
