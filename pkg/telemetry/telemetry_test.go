package telemetry

import (
	"context"
	"testing"
)

func TestInitWithConfig_None(t *testing.T) {
	for _, exporter := range []string{"", ExporterNone} {
		shutdown, err := InitWithConfig("test-service", "v0.0.1", Config{Exporter: exporter})
		if err != nil {
			t.Fatalf("InitWithConfig(%q) failed: %v", exporter, err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Fatalf("shutdown failed: %v", err)
		}
	}
}

func TestInitWithConfig_Stdout(t *testing.T) {
	shutdown, err := InitWithConfig("test-service", "v0.0.1", Config{Exporter: ExporterStdout})
	if err != nil {
		t.Fatalf("InitWithConfig failed: %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown function should not be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestInitWithConfig_Errors(t *testing.T) {
	if _, err := InitWithConfig("svc", "v", Config{Exporter: "zipkin"}); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
	if _, err := InitWithConfig("svc", "v", Config{Exporter: ExporterOTLP}); err == nil {
		t.Fatal("expected error for otlp without endpoint")
	}
}
