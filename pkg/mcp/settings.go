package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Transport names accepted in Settings.Transport.
const (
	TransportStreamableHTTP = "streamable-http"
	TransportHTTP           = "http"
	TransportSSE            = "sse"
	TransportStdio          = "stdio"
)

// Settings describe how to reach the PromptX MCP server.
type Settings struct {
	Transport    string            `koanf:"transport"`
	URL          string            `koanf:"url"`
	Command      string            `koanf:"command"`
	Args         []string          `koanf:"args"`
	Env          map[string]string `koanf:"env"`
	Headers      map[string]string `koanf:"headers"`
	Timeout      time.Duration     `koanf:"timeout"`
	ToolCacheTTL time.Duration     `koanf:"tool_cache_ttl"`
}

// Enabled reports whether the settings name any server at all.
func (s Settings) Enabled() bool {
	return strings.TrimSpace(s.URL) != "" || strings.TrimSpace(s.Command) != ""
}

// Validate checks that the transport has what it needs.
func (s Settings) Validate() error {
	switch s.transport() {
	case TransportStreamableHTTP, TransportHTTP, TransportSSE:
		if strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("mcp: %s transport requires a url", s.transport())
		}
	case TransportStdio:
		if strings.TrimSpace(s.Command) == "" {
			return fmt.Errorf("mcp: stdio transport requires a command")
		}
	default:
		return fmt.Errorf("mcp: unknown transport %q", s.Transport)
	}
	return nil
}

// transport defaults to stdio when only a command is set and to streamable
// HTTP otherwise.
func (s Settings) transport() string {
	t := strings.ToLower(strings.TrimSpace(s.Transport))
	if t != "" {
		return t
	}
	if s.URL == "" && s.Command != "" {
		return TransportStdio
	}
	return TransportStreamableHTTP
}

// Dial opens a client for the configured transport.
func Dial(ctx context.Context, s Settings, opts ...ClientOption) (*Client, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	base := []ClientOption{WithTimeout(s.Timeout)}
	if s.ToolCacheTTL != 0 {
		base = append(base, WithToolCacheTTL(s.ToolCacheTTL))
	}
	opts = append(base, opts...)

	switch s.transport() {
	case TransportSSE:
		return NewClientWithSSE(ctx, s.URL, s.Headers, opts...)
	case TransportStdio:
		return NewClientWithStdio(ctx, s.Command, envList(s.Env), s.Args, opts...)
	default:
		return NewClientWithStreamableHTTP(ctx, s.URL, s.Headers, opts...)
	}
}

func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
