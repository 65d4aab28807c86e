// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt loads the system-role and human-role prompt templates and
// renders them for one record.
//
// Templates use single-brace placeholders, {language} and {content}, with
// {{ and }} standing for literal braces, so JSON examples in a template are
// written as {{"tldr": "..."}}.
package prompt

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Variables a template may reference.
const (
	VarLanguage = "language"
	VarContent  = "content"
)

var knownVars = map[string]bool{VarLanguage: true, VarContent: true}

// Template is a parsed prompt template.
type Template struct {
	name  string
	parts []part
}

// part is either literal text or a variable reference.
type part struct {
	text     string
	variable string
}

// Parse compiles text into a Template. References to variables other than
// language and content, and unbalanced braces, are errors.
func Parse(name, text string) (*Template, error) {
	t := &Template{name: name}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.parts = append(t.parts, part{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("template %s: unclosed '{' at offset %d", name, i)
			}
			v := strings.TrimSpace(text[i+1 : i+1+end])
			if !knownVars[v] {
				return nil, fmt.Errorf("template %s: unknown variable {%s}", name, v)
			}
			flush()
			t.parts = append(t.parts, part{variable: v})
			i += end + 1
		case '}':
			if i+1 < len(text) && text[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("template %s: single '}' at offset %d", name, i)
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return t, nil
}

// Name returns the name the template was parsed with.
func (t *Template) Name() string {
	return t.name
}

// Variables returns the distinct variables the template references, sorted.
func (t *Template) Variables() []string {
	seen := map[string]bool{}
	var vars []string
	for _, p := range t.parts {
		if p.variable != "" && !seen[p.variable] {
			seen[p.variable] = true
			vars = append(vars, p.variable)
		}
	}
	sort.Strings(vars)
	return vars
}

// Render substitutes vars into the template. Values are inserted verbatim.
func (t *Template) Render(vars map[string]string) (string, error) {
	var b strings.Builder
	for _, p := range t.parts {
		if p.variable == "" {
			b.WriteString(p.text)
			continue
		}
		v, ok := vars[p.variable]
		if !ok {
			return "", fmt.Errorf("template %s: missing value for {%s}", t.name, p.variable)
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

// Pair is the system-role and human-role templates used for every record.
type Pair struct {
	System *Template
	Human  *Template
}

// Load reads and parses both template files. A missing file is an error.
func Load(systemPath, humanPath string) (*Pair, error) {
	system, err := loadFile(systemPath)
	if err != nil {
		return nil, err
	}
	human, err := loadFile(humanPath)
	if err != nil {
		return nil, err
	}
	return &Pair{System: system, Human: human}, nil
}

func loadFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt template %s: %w", path, err)
	}
	return Parse(path, string(data))
}

// Render produces the system and human messages for one record.
func (p *Pair) Render(language, content string) (system, human string, err error) {
	vars := map[string]string{VarLanguage: language, VarContent: content}
	if system, err = p.System.Render(vars); err != nil {
		return "", "", err
	}
	if human, err = p.Human.Render(vars); err != nil {
		return "", "", err
	}
	return system, human, nil
}
