// SPDX-License-Identifier: Apache-2.0
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("connection refused")
	e := New(CodeServiceUnavailable, "promptx probe failed", cause)

	if e.Code != CodeServiceUnavailable {
		t.Errorf("expected CodeServiceUnavailable, got %v", e.Code)
	}
	if e.Message != "promptx probe failed" {
		t.Errorf("unexpected message %q", e.Message)
	}
	if e.Err != cause {
		t.Errorf("expected cause to be preserved")
	}
	if !errors.Is(e, cause) {
		t.Errorf("expected errors.Is to work with wrapped error")
	}
	if e.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", e.StatusCode)
	}
}

func TestWithContext(t *testing.T) {
	e := New(CodeInvalidInput, "role id is required", nil)
	e.WithContext("operation", "recall").WithContext("mode", "balanced")

	if e.Context["operation"] != "recall" {
		t.Errorf("expected context operation to be recall")
	}
	if e.Context["mode"] != "balanced" {
		t.Errorf("expected context mode to be balanced")
	}
}

func TestErrorString(t *testing.T) {
	withCause := New(CodeToolReported, "discover failed", errors.New("boom"))
	if got := withCause.Error(); got != "[TOOL_REPORTED] discover failed: boom" {
		t.Errorf("unexpected message: %s", got)
	}
	bare := New(CodeInvalidInput, "role name is required", nil)
	if got := bare.Error(); got != "[INVALID_INPUT] role name is required" {
		t.Errorf("unexpected message: %s", got)
	}
}

func TestAsAndIsCode(t *testing.T) {
	base := New(CodeTemplateUnreadable, "no template", nil)
	wrapped := fmt.Errorf("reload: %w", base)

	got, ok := As(wrapped)
	if !ok || got != base {
		t.Fatalf("expected As to find the typed error, got %v", got)
	}
	if !IsCode(wrapped, CodeTemplateUnreadable) {
		t.Errorf("expected IsCode to match through wrapping")
	}
	if IsCode(errors.New("plain"), CodeInternal) {
		t.Errorf("plain errors carry no code")
	}
	if _, ok := As(nil); ok {
		t.Errorf("As(nil) must report false")
	}
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{New(CodeInvalidInput, "x", nil), http.StatusBadRequest},
		{New(CodeServiceUnavailable, "x", nil), http.StatusServiceUnavailable},
		{New(CodeToolReported, "x", nil), http.StatusInternalServerError},
		{New(CodeTemplateUnreadable, "x", nil), http.StatusInternalServerError},
		{errors.New("transport closed"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusOf(tc.err); got != tc.want {
			t.Errorf("StatusOf(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestMarshalJSON(t *testing.T) {
	e := New(CodeInvalidInput, "bad mode", errors.New("mode=loud")).WithContext("mode", "loud")

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if decoded["code"] != "INVALID_INPUT" {
		t.Errorf("expected code INVALID_INPUT, got %v", decoded["code"])
	}
	if decoded["error"] != "mode=loud" {
		t.Errorf("expected cause text, got %v", decoded["error"])
	}
	if decoded["status_code"] != float64(400) {
		t.Errorf("expected status 400, got %v", decoded["status_code"])
	}
}
