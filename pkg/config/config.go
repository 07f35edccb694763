// Package config loads bridge settings from defaults, YAML files and
// PROMPTX_ environment variables.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jllopis/promptx-bridge/pkg/mcp"
	"github.com/jllopis/promptx-bridge/pkg/prompt"
	"github.com/jllopis/promptx-bridge/pkg/promptx"
	"github.com/jllopis/promptx-bridge/pkg/telemetry"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PROMPTX_"

type Config struct {
	Log       LogConfig         `koanf:"log"`
	Telemetry telemetry.Config  `koanf:"telemetry"`
	Server    ServerConfig      `koanf:"server"`
	MCP       mcp.Settings      `koanf:"mcp"`
	Tools     promptx.ToolNames `koanf:"tools"`
	Template  TemplateConfig    `koanf:"template"`
	Audit     AuditConfig       `koanf:"audit"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type TemplateConfig struct {
	// Paths are probed in order; the first existing file wins.
	Paths []string `koanf:"paths"`
}

type AuditConfig struct {
	Enabled bool `koanf:"enabled"`
	// Path of the SQLite database. Empty keeps records in memory.
	Path string `koanf:"path"`
	// Capacity bounds the in-memory store. Ignored when Path is set.
	Capacity int `koanf:"capacity"`
}

// listKeys are split on commas when they come from the environment.
var listKeys = map[string]bool{
	"template.paths": true,
	"mcp.args":       true,
}

func defaults() map[string]any {
	tools := promptx.DefaultToolNames()
	return map[string]any{
		"log.level":                "info",
		"log.format":               "text",
		"telemetry.exporter":       telemetry.ExporterNone,
		"telemetry.otlp_endpoint":  "",
		"telemetry.otlp_insecure":  false,
		"server.addr":              ":8003",
		"server.shutdown_timeout":  "10s",
		"mcp.transport":            mcp.TransportStreamableHTTP,
		"mcp.url":                  "",
		"mcp.timeout":              "30s",
		"mcp.tool_cache_ttl":       "30s",
		"tools.probe":              tools.Probe,
		"tools.discover":           tools.Discover,
		"tools.action":             tools.Action,
		"tools.recall":             tools.Recall,
		"tools.remember":           tools.Remember,
		"template.paths":           prompt.DefaultCandidates,
		"audit.enabled":            false,
		"audit.path":               "",
		"audit.capacity":           1000,
	}
}

// Load reads defaults, then path (if any), then the environment.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFiles()
	}
	return LoadFiles(path)
}

// LoadFiles is Load with several YAML files; later files override earlier ones.
func LoadFiles(paths ...string) (*Config, error) {
	k := koanf.New(".")
	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, err
		}
	}

	for _, path := range paths {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

// envValue maps PROMPTX_MCP_TOOL_CACHE_TTL to mcp.tool_cache_ttl: the first
// underscore separates the section, the rest belong to the key.
func envValue(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.Replace(key, "_", ".", 1)
	if listKeys[key] {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return key, out
	}
	return key, value
}

// ProfilePath returns the overlay file for profile next to path, so
// config.yaml with profile "dev" gives config.dev.yaml.
func ProfilePath(path, profile string) string {
	if path == "" || profile == "" {
		return ""
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + profile + ext
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("config: server.addr is required")
	}
	if c.MCP.Enabled() {
		if err := c.MCP.Validate(); err != nil {
			return err
		}
	}
	switch c.Telemetry.Exporter {
	case "", telemetry.ExporterNone, telemetry.ExporterStdout, telemetry.ExporterOTLP:
	default:
		return fmt.Errorf("config: unknown telemetry exporter %q", c.Telemetry.Exporter)
	}
	return nil
}
