// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package promptx talks to a PromptX tool server: it probes for the service,
// discovers roles from loosely formatted tool output and drives the role
// lifecycle tools (activate, recall, remember).
package promptx

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Source tells where a role was defined on the PromptX side.
type Source string

const (
	SourceSystem  Source = "system"
	SourceProject Source = "project"
	SourceUser    Source = "user"
)

// Sources lists every source in display order.
var Sources = []Source{SourceSystem, SourceProject, SourceUser}

// DefaultProtocol is the resource protocol PromptX uses for roles.
const DefaultProtocol = "role"

// Role is one entry of a discover listing.
type Role struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Source      Source `json:"source" yaml:"source"`
	Protocol    string `json:"protocol" yaml:"protocol"`
	Reference   string `json:"reference" yaml:"reference"`
	// Extra holds keys PromptX sent that have no field above.
	Extra map[string]any `json:"-" yaml:",inline"`
}

// UnmarshalJSON decodes a role leniently. Known keys holding a non-string
// scalar keep its JSON text (42 becomes "42") and unknown keys land in Extra,
// so one odd entry never fails the whole listing.
func (r *Role) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var out Role
	for key, raw := range fields {
		switch key {
		case "id":
			out.ID = lenientString(raw)
		case "name":
			out.Name = lenientString(raw)
		case "description":
			out.Description = lenientString(raw)
		case "source":
			out.Source = Source(lenientString(raw))
		case "protocol":
			out.Protocol = lenientString(raw)
		case "reference":
			out.Reference = lenientString(raw)
		default:
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			var v any
			if err := dec.Decode(&v); err != nil {
				return err
			}
			if out.Extra == nil {
				out.Extra = make(map[string]any)
			}
			out.Extra[key] = v
		}
	}
	*r = out
	return nil
}

// MarshalJSON writes the known fields and Extra side by side in one object.
// A key in Extra never shadows a known field.
func (r Role) MarshalJSON() ([]byte, error) {
	type plain Role
	if len(r.Extra) == 0 {
		return json.Marshal(plain(r))
	}
	merged := make(map[string]any, len(r.Extra)+6)
	for k, v := range r.Extra {
		merged[k] = v
	}
	merged["id"] = r.ID
	merged["name"] = r.Name
	merged["description"] = r.Description
	merged["source"] = r.Source
	merged["protocol"] = r.Protocol
	merged["reference"] = r.Reference
	return json.Marshal(merged)
}

func lenientString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// RoleReference builds the locator PromptX accepts for a role id.
func RoleReference(id string) string {
	return fmt.Sprintf("@%s://%s", DefaultProtocol, id)
}

// RoleGroup is a set of roles sharing a source.
type RoleGroup struct {
	Source Source `json:"source" yaml:"source"`
	Roles  []Role `json:"roles" yaml:"roles"`
}

// GroupBySource buckets roles by source, keeping discover order inside each
// bucket. Groups come out as system, project, user, then any unknown source in
// first-seen order. Empty groups are omitted.
func GroupBySource(roles []Role) []RoleGroup {
	index := make(map[Source]int)
	var groups []RoleGroup
	for _, src := range Sources {
		index[src] = len(groups)
		groups = append(groups, RoleGroup{Source: src})
	}
	for _, role := range roles {
		i, ok := index[role.Source]
		if !ok {
			i = len(groups)
			index[role.Source] = i
			groups = append(groups, RoleGroup{Source: role.Source})
		}
		groups[i].Roles = append(groups[i].Roles, role)
	}
	out := groups[:0]
	for _, g := range groups {
		if len(g.Roles) > 0 {
			out = append(out, g)
		}
	}
	return out
}
