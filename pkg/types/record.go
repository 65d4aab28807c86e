// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
)

// Record field names used by the enhance pipeline.
const (
	FieldID      = "id"
	FieldSummary = "summary"
	FieldAI      = "AI"
)

// PlaceholderValue fills every AISummary field when the model call or the
// JSON extraction fails for a record.
const PlaceholderValue = "Error"

// Record is one paper entry from a JSONL dataset. Values are kept as raw
// JSON so fields the pipeline does not touch are written back verbatim.
// Being a map, a Record is encoded with its keys sorted, not in input order.
type Record map[string]json.RawMessage

// ID returns the compacted JSON text of the id field and whether it is
// usable as a deduplication key. A missing id, null, "", 0 and false are
// treated as absent.
func (r Record) ID() (string, bool) {
	raw, ok := r[FieldID]
	if !ok {
		return "", false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", false
	}
	id := buf.String()
	switch id {
	case "", "null", `""`, "0", "false", "[]", "{}":
		return "", false
	}
	return id, true
}

// DisplayID returns the id for log lines: the bare string for string ids,
// the JSON text otherwise.
func (r Record) DisplayID() string {
	var s string
	if err := json.Unmarshal(r[FieldID], &s); err == nil {
		return s
	}
	id, _ := r.ID()
	return id
}

// Summary returns the source text handed to the model. A missing summary
// yields an empty string; a non-string value is passed as its JSON text.
func (r Record) Summary() string {
	raw, ok := r[FieldSummary]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}

// SetAI attaches the model output (or the placeholder) to the record.
func (r Record) SetAI(ai json.RawMessage) {
	r[FieldAI] = ai
}

// AISummary is the fixed five-field result attached to every processed record.
type AISummary struct {
	TLDR       string `json:"tldr" yaml:"tldr"`
	Motivation string `json:"motivation" yaml:"motivation"`
	Method     string `json:"method" yaml:"method"`
	Result     string `json:"result" yaml:"result"`
	Conclusion string `json:"conclusion" yaml:"conclusion"`
}

// AISummaryKeys lists the JSON keys the model is asked to produce, in order.
var AISummaryKeys = []string{"tldr", "motivation", "method", "result", "conclusion"}

// PlaceholderSummary returns the uniform error marker.
func PlaceholderSummary() AISummary {
	return AISummary{
		TLDR:       PlaceholderValue,
		Motivation: PlaceholderValue,
		Method:     PlaceholderValue,
		Result:     PlaceholderValue,
		Conclusion: PlaceholderValue,
	}
}

// IsPlaceholder reports whether every field carries the error marker.
func (s AISummary) IsPlaceholder() bool {
	return s == PlaceholderSummary()
}
