// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package promptx

import (
	perrors "github.com/jllopis/promptx-bridge/pkg/errors"
)

// EngramType is the structural kind of a memory unit.
type EngramType string

const (
	EngramAtomic  EngramType = "ATOMIC"
	EngramLink    EngramType = "LINK"
	EngramPattern EngramType = "PATTERN"
)

// Engram is one unit of memory handed to the remember tool.
type Engram struct {
	Content string `json:"content" yaml:"content"`
	// Schema is a space separated sequence of concept tokens.
	Schema   string     `json:"schema" yaml:"schema"`
	Strength float64    `json:"strength" yaml:"strength"`
	Type     EngramType `json:"type" yaml:"type"`
}

// Validate checks the strength range and the engram type.
func (e Engram) Validate() error {
	if e.Strength < 0 || e.Strength > 1 {
		return perrors.Newf(perrors.CodeInvalidInput, "engram strength %v outside [0,1]", e.Strength)
	}
	switch e.Type {
	case EngramAtomic, EngramLink, EngramPattern:
		return nil
	default:
		return perrors.Newf(perrors.CodeInvalidInput, "unknown engram type %q", e.Type)
	}
}

func (e Engram) toArgument() map[string]any {
	return map[string]any{
		"content":  e.Content,
		"schema":   e.Schema,
		"strength": e.Strength,
		"type":     string(e.Type),
	}
}

// RecallMode selects how broadly the recall tool activates memories.
type RecallMode string

const (
	RecallCreative RecallMode = "creative"
	RecallBalanced RecallMode = "balanced"
	RecallFocused  RecallMode = "focused"
)

// normalize maps the empty mode to balanced and rejects unknown modes.
func (m RecallMode) normalize() (RecallMode, error) {
	switch m {
	case "":
		return RecallBalanced, nil
	case RecallCreative, RecallBalanced, RecallFocused:
		return m, nil
	default:
		return "", perrors.Newf(perrors.CodeInvalidInput, "unknown recall mode %q", m)
	}
}
