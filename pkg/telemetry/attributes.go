// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"slices"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for bridge spans and metrics.
const (
	AttrToolName       = "promptx.tool.name"
	AttrToolOutcome    = "promptx.tool.outcome"
	AttrToolArgs       = "promptx.tool.arguments"
	AttrToolArgKeys    = "promptx.tool.argument_keys"
	AttrToolDurationMs = "promptx.tool.duration_ms"
	AttrToolTransport  = "promptx.tool.transport"

	AttrRoleID     = "promptx.role.id"
	AttrRolesCount = "promptx.roles.count"
	AttrRecallMode = "promptx.recall.mode"
	AttrPanoramic  = "promptx.recall.panoramic"
	AttrEngrams    = "promptx.remember.engrams"

	AttrTemplatePath = "promptx.template.path"

	AttrRequestID = "http.request_id"

	AttrErrorCode   = "error.code"
	AttrComponent   = "component"
	AttrRecoverable = "recoverable"
)

// maxArgsLen bounds argument payloads attached to spans.
const maxArgsLen = 500

// ToolCallAttributes describes one remote tool call.
func ToolCallAttributes(tool, transport string, durationMs float64, outcome string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrToolName, tool),
	}
	if transport != "" {
		attrs = append(attrs, attribute.String(AttrToolTransport, transport))
	}
	if durationMs > 0 {
		attrs = append(attrs, attribute.Float64(AttrToolDurationMs, durationMs))
	}
	if outcome != "" {
		attrs = append(attrs, attribute.String(AttrToolOutcome, outcome))
	}
	return attrs
}

// ToolArgsAttribute returns the serialized arguments, truncated.
func ToolArgsAttribute(args string) []attribute.KeyValue {
	if args == "" {
		return nil
	}
	if len(args) > maxArgsLen {
		args = args[:maxArgsLen] + "..."
	}
	return []attribute.KeyValue{attribute.String(AttrToolArgs, args)}
}

// ToolArgKeysAttribute lists the argument names of a call, sorted, without
// their values.
func ToolArgKeysAttribute(args map[string]any) []attribute.KeyValue {
	if len(args) == 0 {
		return nil
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return []attribute.KeyValue{attribute.StringSlice(AttrToolArgKeys, keys)}
}

// RoleAttributes describes the role an operation targets.
func RoleAttributes(roleID string) []attribute.KeyValue {
	if roleID == "" {
		return nil
	}
	return []attribute.KeyValue{attribute.String(AttrRoleID, roleID)}
}

// RecallAttributes describes a recall request.
func RecallAttributes(roleID, mode string, panoramic bool) []attribute.KeyValue {
	attrs := RoleAttributes(roleID)
	if mode != "" {
		attrs = append(attrs, attribute.String(AttrRecallMode, mode))
	}
	return append(attrs, attribute.Bool(AttrPanoramic, panoramic))
}
