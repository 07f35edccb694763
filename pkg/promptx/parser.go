// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package promptx

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

const previewLimit = 200

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```json[ \\t]*\\r?\\n?(.*?)```")
	// - `luban`: Luban - tool integration expert → action("luban")
	roleLinePattern = regexp.MustCompile("- `([^`]+)`: ([^→]+)→ action\\(\"([^\"]+)\"\\)")
)

// sectionMarkers maps a listing header to the source of the roles below it.
var sectionMarkers = []struct {
	markers []string
	source  Source
}{
	{[]string{"**系统角色**", "**system roles**"}, SourceSystem},
	{[]string{"**项目角色**", "**project roles**"}, SourceProject},
	{[]string{"**用户角色**", "**user roles**"}, SourceUser},
}

// parseStrategy tries one interpretation of a discover payload.
type parseStrategy struct {
	name string
	fn   func(text string) ([]Role, bool)
}

// Parser turns discover output into role records. The zero value is not
// usable; build one with NewParser.
type Parser struct {
	logger     *slog.Logger
	strategies []parseStrategy
}

// NewParser returns a parser that logs diagnostics to logger, or to
// slog.Default() when logger is nil.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		logger: logger,
		strategies: []parseStrategy{
			{name: "json", fn: parseDirectJSON},
			{name: "fenced_json", fn: parseFencedJSON},
			{name: "embedded_json", fn: parseEmbeddedJSON},
			{name: "markdown", fn: parseMarkdown},
		},
	}
}

// Parse returns the roles found in text. It never fails: unrecognised input
// yields an empty slice, which is indistinguishable from "no roles".
func (p *Parser) Parse(text string) []Role {
	for _, s := range p.strategies {
		roles, ok := s.fn(text)
		if !ok {
			continue
		}
		p.logger.Debug("promptx.parse.matched",
			slog.String("strategy", s.name),
			slog.Int("roles", len(roles)),
		)
		return roles
	}
	p.logger.Warn("promptx.parse.empty", slog.String("preview", preview(text)))
	return []Role{}
}

func parseDirectJSON(text string) ([]Role, bool) {
	return rolesFromJSON([]byte(text))
}

func parseFencedJSON(text string) ([]Role, bool) {
	m := fencedJSONPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return rolesFromJSON([]byte(m[1]))
}

// parseEmbeddedJSON only claims a span that yields roles. An empty span is
// usually a stray "[]" in prose, and the markdown strategy still gets a turn.
func parseEmbeddedJSON(text string) ([]Role, bool) {
	for _, delims := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(text, delims[0])
		end := strings.LastIndex(text, delims[1])
		if start < 0 || end <= start {
			continue
		}
		if roles, ok := rolesFromJSON([]byte(text[start : end+1])); ok && len(roles) > 0 {
			return roles, true
		}
	}
	return nil, false
}

// rolesFromJSON accepts {"roles": [...]} or a bare array of role objects.
func rolesFromJSON(raw []byte) ([]Role, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false
	}
	var entries json.RawMessage
	switch raw[0] {
	case '{':
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, false
		}
		var ok bool
		if entries, ok = doc["roles"]; !ok {
			return nil, false
		}
	case '[':
		entries = raw
	default:
		return nil, false
	}
	var roles []Role
	if err := json.Unmarshal(entries, &roles); err != nil {
		return nil, false
	}
	if roles == nil {
		roles = []Role{}
	}
	return roles, true
}

func parseMarkdown(text string) ([]Role, bool) {
	var roles []Role
	current := SourceSystem
	for _, line := range strings.Split(text, "\n") {
		if src, ok := sectionSource(line); ok {
			current = src
		}
		m := roleLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id := strings.TrimSpace(m[1])
		name, description := splitNameDescription(m[2])
		roles = append(roles, Role{
			ID:          id,
			Name:        name,
			Description: description,
			Source:      current,
			Protocol:    DefaultProtocol,
			Reference:   RoleReference(id),
		})
	}
	return roles, len(roles) > 0
}

func sectionSource(line string) (Source, bool) {
	lower := strings.ToLower(line)
	for _, s := range sectionMarkers {
		for _, marker := range s.markers {
			if strings.Contains(lower, marker) {
				return s.source, true
			}
		}
	}
	return "", false
}

func splitNameDescription(segment string) (string, string) {
	segment = strings.TrimSpace(segment)
	name, description, found := strings.Cut(segment, " - ")
	if !found {
		return segment, ""
	}
	return strings.TrimSpace(name), strings.TrimSpace(description)
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit])
}
