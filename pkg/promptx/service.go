// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package promptx

import (
	"context"
	"log/slog"
	"sync"

	perrors "github.com/jllopis/promptx-bridge/pkg/errors"
)

// ToolExecutor runs named tools on the remote PromptX server.
type ToolExecutor interface {
	HasTool(ctx context.Context, name string) (bool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error)
}

// ToolNames are the remote tool names the service calls.
type ToolNames struct {
	// Probe is the tool whose presence marks the service as available.
	Probe    string `koanf:"probe"`
	Discover string `koanf:"discover"`
	Action   string `koanf:"action"`
	Recall   string `koanf:"recall"`
	Remember string `koanf:"remember"`
}

// DefaultToolNames returns the tool names published by PromptX.
func DefaultToolNames() ToolNames {
	return ToolNames{
		Probe:    "discover",
		Discover: "discover",
		Action:   "promptx_action",
		Recall:   "promptx_recall",
		Remember: "promptx_remember",
	}
}

func (n ToolNames) withDefaults() ToolNames {
	def := DefaultToolNames()
	if n.Discover == "" {
		n.Discover = def.Discover
	}
	if n.Probe == "" {
		n.Probe = n.Discover
	}
	if n.Action == "" {
		n.Action = def.Action
	}
	if n.Recall == "" {
		n.Recall = def.Recall
	}
	if n.Remember == "" {
		n.Remember = def.Remember
	}
	return n
}

type availability int

const (
	availabilityUnknown availability = iota
	availabilityTrue
	availabilityFalse
)

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithToolNames overrides the remote tool names. Empty fields keep defaults.
func WithToolNames(names ToolNames) Option {
	return func(s *Service) {
		s.tools = names.withDefaults()
	}
}

// Service drives the PromptX role tools. Every operation first checks, once
// per Service, that the probe tool exists.
type Service struct {
	exec   ToolExecutor
	tools  ToolNames
	parser *Parser
	logger *slog.Logger

	mu    sync.Mutex
	state availability
}

// NewService builds a Service. exec may be nil, in which case the service is
// permanently unavailable.
func NewService(exec ToolExecutor, opts ...Option) *Service {
	s := &Service{
		exec:   exec,
		tools:  DefaultToolNames(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = NewParser(s.logger)
	return s
}

// Configured reports whether the service has an executor at all.
func (s *Service) Configured() bool {
	return s.exec != nil
}

// Tools returns the tool names in use.
func (s *Service) Tools() ToolNames {
	return s.tools
}

// IsAvailable reports whether the probe tool exists. The first answer,
// including a failed probe, sticks for the lifetime of the Service.
func (s *Service) IsAvailable(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != availabilityUnknown {
		return s.state == availabilityTrue
	}
	s.state = availabilityFalse
	if s.exec == nil {
		s.logger.Warn("promptx.probe.unconfigured")
		return false
	}
	ok, err := s.exec.HasTool(ctx, s.tools.Probe)
	switch {
	case err != nil:
		s.logger.Error("promptx.probe.failed",
			slog.String("tool", s.tools.Probe),
			slog.String("error", err.Error()),
		)
	case !ok:
		s.logger.Warn("promptx.probe.missing", slog.String("tool", s.tools.Probe))
	default:
		s.state = availabilityTrue
	}
	return s.state == availabilityTrue
}

func (s *Service) ensureAvailable(ctx context.Context, op string) error {
	if s.IsAvailable(ctx) {
		return nil
	}
	s.logger.Error("promptx.unavailable", slog.String("operation", op))
	return perrors.Newf(perrors.CodeServiceUnavailable, "promptx service unavailable, cannot %s", op).
		WithContext("operation", op).
		WithRecoverable(false)
}

// Discover lists the roles PromptX knows about. Output the parser cannot
// recognise yields an empty slice, not an error.
func (s *Service) Discover(ctx context.Context) ([]Role, error) {
	if err := s.ensureAvailable(ctx, "discover roles"); err != nil {
		return nil, err
	}
	s.logger.Info("promptx.discover.start", slog.String("tool", s.tools.Discover))
	result, err := s.exec.CallTool(ctx, s.tools.Discover, map[string]any{"focus": "roles"})
	if err != nil {
		s.logger.Error("promptx.discover.error", slog.String("error", err.Error()))
		return nil, err
	}
	text, ok, err := Extract(result)
	if err != nil {
		s.logger.Error("promptx.discover.tool_error", slog.String("error", err.Error()))
		return nil, err
	}
	if !ok || text == "" {
		s.logger.Warn("promptx.discover.no_text")
		return []Role{}, nil
	}
	roles := s.parser.Parse(text)
	s.logger.Info("promptx.discover.complete", slog.Int("roles", len(roles)))
	return roles, nil
}

// Activate loads a role on the PromptX side and returns the raw tool result.
func (s *Service) Activate(ctx context.Context, roleID string) (ToolResult, error) {
	if err := s.ensureAvailable(ctx, "activate role"); err != nil {
		return ToolResult{}, err
	}
	if roleID == "" {
		return ToolResult{}, perrors.New(perrors.CodeInvalidInput, "role id is required", nil)
	}
	s.logger.Info("promptx.activate.start", slog.String("role", roleID))
	return s.call(ctx, "activate", s.tools.Action, map[string]any{"role": roleID})
}

// Recall retrieves memories of a role. A nil query asks for a panoramic scan
// and leaves the query argument out entirely; an empty string is sent as is.
func (s *Service) Recall(ctx context.Context, roleID string, query *string, mode RecallMode) (ToolResult, error) {
	if err := s.ensureAvailable(ctx, "recall memory"); err != nil {
		return ToolResult{}, err
	}
	if roleID == "" {
		return ToolResult{}, perrors.New(perrors.CodeInvalidInput, "role id is required", nil)
	}
	mode, err := mode.normalize()
	if err != nil {
		return ToolResult{}, err
	}
	args := map[string]any{
		"role": roleID,
		"mode": string(mode),
	}
	if query != nil {
		args["query"] = *query
	}
	s.logger.Info("promptx.recall.start",
		slog.String("role", roleID),
		slog.Bool("panoramic", query == nil),
		slog.String("mode", string(mode)),
	)
	return s.call(ctx, "recall", s.tools.Recall, args)
}

// Remember stores engrams for a role.
func (s *Service) Remember(ctx context.Context, roleID string, engrams []Engram) (ToolResult, error) {
	if err := s.ensureAvailable(ctx, "remember"); err != nil {
		return ToolResult{}, err
	}
	if roleID == "" {
		return ToolResult{}, perrors.New(perrors.CodeInvalidInput, "role id is required", nil)
	}
	items := make([]any, 0, len(engrams))
	for i, e := range engrams {
		if err := e.Validate(); err != nil {
			if pe, ok := perrors.As(err); ok {
				pe.WithContext("engram", i)
			}
			return ToolResult{}, err
		}
		items = append(items, e.toArgument())
	}
	s.logger.Info("promptx.remember.start",
		slog.String("role", roleID),
		slog.Int("engrams", len(engrams)),
	)
	return s.call(ctx, "remember", s.tools.Remember, map[string]any{
		"role":    roleID,
		"engrams": items,
	})
}

func (s *Service) call(ctx context.Context, op, tool string, args map[string]any) (ToolResult, error) {
	result, err := s.exec.CallTool(ctx, tool, args)
	if err != nil {
		s.logger.Error("promptx."+op+".error",
			slog.String("tool", tool),
			slog.String("error", err.Error()),
		)
		return ToolResult{}, err
	}
	s.logger.Debug("promptx."+op+".complete", slog.String("tool", tool))
	return result, nil
}
