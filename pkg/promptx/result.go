// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package promptx

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	perrors "github.com/jllopis/promptx-bridge/pkg/errors"
)

// unknownToolError is reported when a tool flags an error without any text.
const unknownToolError = "Unknown error"

type resultKind int

const (
	resultEmpty resultKind = iota
	resultObject
	resultMapping
)

// ToolResult is what a ToolExecutor hands back: either a typed MCP result or a
// loosely typed mapping such as a decoded JSON document.
type ToolResult struct {
	kind    resultKind
	object  *mcp.CallToolResult
	mapping map[string]any
}

// ObjectResult wraps a typed MCP tool result.
func ObjectResult(res *mcp.CallToolResult) ToolResult {
	if res == nil {
		return ToolResult{}
	}
	return ToolResult{kind: resultObject, object: res}
}

// MappingResult wraps a mapping with `content` and optional `isError` keys.
func MappingResult(m map[string]any) ToolResult {
	if m == nil {
		return ToolResult{}
	}
	return ToolResult{kind: resultMapping, mapping: m}
}

// DecodeToolResult parses a JSON tool result into the mapping variant.
func DecodeToolResult(raw []byte) (ToolResult, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return ToolResult{}, fmt.Errorf("decode tool result: %w", err)
	}
	return MappingResult(m), nil
}

// Object returns the typed MCP result, if this is the object variant.
func (r ToolResult) Object() (*mcp.CallToolResult, bool) {
	return r.object, r.kind == resultObject
}

// Mapping returns the raw mapping, if this is the mapping variant.
func (r ToolResult) Mapping() (map[string]any, bool) {
	return r.mapping, r.kind == resultMapping
}

// IsZero reports whether the result carries nothing.
func (r ToolResult) IsZero() bool {
	return r.kind == resultEmpty
}

// MarshalJSON renders either variant as its natural JSON document.
func (r ToolResult) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case resultObject:
		return json.Marshal(r.object)
	case resultMapping:
		return json.Marshal(r.mapping)
	default:
		return []byte("null"), nil
	}
}

// Extract returns the text of the first content item.
//
// ok is false whenever no text could be found; callers treat that as an empty
// result. Only the mapping variant carries an error flag, and a set flag is
// reported as a CodeToolReported error.
func Extract(result ToolResult) (text string, ok bool, err error) {
	switch result.kind {
	case resultObject:
		if len(result.object.Content) == 0 {
			return "", false, nil
		}
		text, ok = contentText(result.object.Content[0])
		return text, ok, nil
	case resultMapping:
		items, _ := result.mapping["content"].([]any)
		if flag, _ := result.mapping["isError"].(bool); flag {
			msg := unknownToolError
			if len(items) > 0 {
				if t, ok := contentText(items[0]); ok {
					msg = t
				}
			}
			return "", false, perrors.New(perrors.CodeToolReported, msg, nil)
		}
		if len(items) == 0 {
			return "", false, nil
		}
		text, ok = contentText(items[0])
		return text, ok, nil
	default:
		return "", false, nil
	}
}

// contentText reads the text of a content item in either of its shapes.
func contentText(item any) (string, bool) {
	switch c := item.(type) {
	case mcp.TextContent:
		return c.Text, true
	case *mcp.TextContent:
		if c == nil {
			return "", false
		}
		return c.Text, true
	case map[string]any:
		t, ok := c["text"].(string)
		return t, ok
	default:
		return "", false
	}
}
