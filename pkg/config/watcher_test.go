// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func TestWatcherDetectsChanges(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, configPath, `template:
  paths: ["a.md"]
`)

	watcher, err := NewWatcher([]string{configPath}, WithWatchInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	changes := make(chan *Config, 1)
	watcher.OnChange(func(cfg *Config) {
		select {
		case changes <- cfg:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher.Start(ctx)
	defer watcher.Stop()

	if got := watcher.Config().Template.Paths; len(got) != 1 || got[0] != "a.md" {
		t.Fatalf("expected initial paths [a.md], got %v", got)
	}

	time.Sleep(100 * time.Millisecond)
	writeConfig(t, configPath, `template:
  paths: ["b.md", "c.md"]
`)

	select {
	case cfg := <-changes:
		if len(cfg.Template.Paths) != 2 || cfg.Template.Paths[0] != "b.md" {
			t.Errorf("expected updated paths, got %v", cfg.Template.Paths)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config change notification")
	}
}

func TestWatcherMultipleListeners(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, configPath, "log:\n  level: info\n")

	watcher, err := NewWatcher([]string{configPath}, WithWatchInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	var count1, count2 atomic.Int32
	watcher.OnChange(func(*Config) { count1.Add(1) })
	watcher.OnChange(func(*Config) { count2.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher.Start(ctx)
	defer watcher.Stop()

	time.Sleep(100 * time.Millisecond)
	writeConfig(t, configPath, "log:\n  level: debug\n")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && (count1.Load() == 0 || count2.Load() == 0) {
		time.Sleep(20 * time.Millisecond)
	}
	if count1.Load() != 1 || count2.Load() != 1 {
		t.Errorf("expected both listeners called once, got count1=%d, count2=%d", count1.Load(), count2.Load())
	}
	if watcher.Config().Log.Level != "debug" {
		t.Errorf("expected reloaded level debug, got %q", watcher.Config().Log.Level)
	}
}

func TestWatcherKeepsConfigOnBadReload(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, configPath, "server:\n  addr: \":9000\"\n")

	watcher, err := NewWatcher([]string{configPath}, WithWatchInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	var calls atomic.Int32
	watcher.OnChange(func(*Config) { calls.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher.Start(ctx)
	defer watcher.Stop()

	time.Sleep(60 * time.Millisecond)
	writeConfig(t, configPath, "server: [unbalanced\n")
	time.Sleep(200 * time.Millisecond)

	if calls.Load() != 0 {
		t.Fatalf("listeners should not run on a failed reload")
	}
	if watcher.Config().Server.Addr != ":9000" {
		t.Fatalf("expected previous config kept, got %q", watcher.Config().Server.Addr)
	}
}

func TestWatcherStops(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, configPath, `log: {}`)

	watcher, err := NewWatcher([]string{configPath}, WithWatchInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	watcher.Start(context.Background())

	done := make(chan struct{})
	go func() {
		watcher.Stop()
		watcher.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("watcher.Stop() did not complete in time")
	}
}

func TestWatchConfigWithProfile(t *testing.T) {
	tmpDir := t.TempDir()
	basePath := filepath.Join(tmpDir, "config.yaml")
	writeConfig(t, basePath, "mcp:\n  url: http://base/mcp\nlog:\n  level: warn\n")
	writeConfig(t, filepath.Join(tmpDir, "config.dev.yaml"), "mcp:\n  url: http://dev/mcp\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, cfg, err := WatchConfig(ctx, basePath, "dev", WithWatchInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to watch config: %v", err)
	}
	defer watcher.Stop()

	if cfg.MCP.URL != "http://dev/mcp" {
		t.Errorf("expected dev overlay url, got %q", cfg.MCP.URL)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected base log level kept, got %q", cfg.Log.Level)
	}

	watcher2, cfg2, err := WatchConfig(ctx, basePath, "", WithWatchInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to watch config: %v", err)
	}
	defer watcher2.Stop()
	if cfg2.MCP.URL != "http://base/mcp" {
		t.Errorf("expected base url without profile, got %q", cfg2.MCP.URL)
	}
}
