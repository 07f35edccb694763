package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jllopis/promptx-bridge/pkg/prompt"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":8003" {
		t.Errorf("expected default addr :8003, got %s", cfg.Server.Addr)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected shutdown timeout 10s, got %s", cfg.Server.ShutdownTimeout)
	}
	if cfg.MCP.Transport != "streamable-http" || cfg.MCP.Timeout != 30*time.Second {
		t.Errorf("unexpected mcp defaults %+v", cfg.MCP)
	}
	if cfg.Tools.Probe != "discover" || cfg.Tools.Action != "promptx_action" {
		t.Errorf("unexpected tool defaults %+v", cfg.Tools)
	}
	if len(cfg.Template.Paths) != len(prompt.DefaultCandidates) {
		t.Errorf("expected default template candidates, got %v", cfg.Template.Paths)
	}
	if cfg.Audit.Capacity != 1000 {
		t.Errorf("expected audit capacity 1000, got %d", cfg.Audit.Capacity)
	}
	if cfg.Telemetry.Exporter != "none" {
		t.Errorf("expected telemetry off by default, got %q", cfg.Telemetry.Exporter)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promptx.yaml")
	content := `
server:
  addr: ":9001"
mcp:
  transport: sse
  url: http://127.0.0.1:5203/sse
  timeout: 45s
  headers:
    Authorization: Bearer token
tools:
  probe: promptx_discover
template:
  paths:
    - /etc/promptx/template.md
audit:
  enabled: true
  path: /var/lib/promptx/audit.db
  capacity: 50
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9001" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.MCP.Transport != "sse" || cfg.MCP.Timeout != 45*time.Second {
		t.Errorf("unexpected mcp settings %+v", cfg.MCP)
	}
	if cfg.MCP.Headers["Authorization"] != "Bearer token" {
		t.Errorf("headers = %v", cfg.MCP.Headers)
	}
	if cfg.Tools.Probe != "promptx_discover" || cfg.Tools.Discover != "discover" {
		t.Errorf("tools = %+v", cfg.Tools)
	}
	if len(cfg.Template.Paths) != 1 || cfg.Template.Paths[0] != "/etc/promptx/template.md" {
		t.Errorf("template paths = %v", cfg.Template.Paths)
	}
	if !cfg.Audit.Enabled || cfg.Audit.Path != "/var/lib/promptx/audit.db" || cfg.Audit.Capacity != 50 {
		t.Errorf("audit = %+v", cfg.Audit)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("PROMPTX_MCP_URL", "http://env/mcp")
	t.Setenv("PROMPTX_MCP_TOOL_CACHE_TTL", "5s")
	t.Setenv("PROMPTX_TEMPLATE_PATHS", "a.md, b.md")
	t.Setenv("PROMPTX_AUDIT_ENABLED", "true")
	t.Setenv("PROMPTX_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MCP.URL != "http://env/mcp" {
		t.Errorf("url from env = %q", cfg.MCP.URL)
	}
	if cfg.MCP.ToolCacheTTL != 5*time.Second {
		t.Errorf("tool cache ttl from env = %s", cfg.MCP.ToolCacheTTL)
	}
	if len(cfg.Template.Paths) != 2 || cfg.Template.Paths[1] != "b.md" {
		t.Errorf("template paths from env = %v", cfg.Template.Paths)
	}
	if !cfg.Audit.Enabled {
		t.Error("audit should be enabled from env")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level from env = %q", cfg.Log.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestProfilePath(t *testing.T) {
	if got := ProfilePath("conf/promptx.yaml", "dev"); got != "conf/promptx.dev.yaml" {
		t.Errorf("ProfilePath = %q", got)
	}
	if got := ProfilePath("conf/promptx.yaml", ""); got != "" {
		t.Errorf("ProfilePath without profile = %q", got)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg.MCP.Transport = "carrier-pigeon"
	cfg.MCP.URL = "http://x"
	if err := cfg.Validate(); err == nil {
		t.Error("expected unknown transport to fail")
	}

	cfg.MCP.Transport = "sse"
	cfg.Telemetry.Exporter = "zipkin"
	if err := cfg.Validate(); err == nil {
		t.Error("expected unknown exporter to fail")
	}

	cfg.Telemetry.Exporter = "otlp"
	cfg.Server.Addr = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected empty addr to fail")
	}
}
