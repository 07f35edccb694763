// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	perrors "github.com/jllopis/promptx-bridge/pkg/errors"
)

// CLIError wraps a typed error with a hint for the user.
type CLIError struct {
	Typed *perrors.Error
	Hint  string
}

// NewCLIError creates a new CLI error.
func NewCLIError(e *perrors.Error, hint string) *CLIError {
	return &CLIError{Typed: e, Hint: hint}
}

// Error returns the formatted error message with hints.
func (e *CLIError) Error() string {
	if e.Typed == nil {
		return "unknown error"
	}
	msg := e.Typed.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// Unwrap exposes the typed error.
func (e *CLIError) Unwrap() error {
	if e.Typed == nil {
		return nil
	}
	return e.Typed
}

type jsonError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// printError writes err to w, as a JSON object when asJSON is set.
func printError(w io.Writer, err error, asJSON bool) {
	var (
		code = "UNKNOWN"
		msg  = err.Error()
		hint string
	)
	var ce *CLIError
	if errors.As(err, &ce) && ce.Typed != nil {
		code, hint = string(ce.Typed.Code), ce.Hint
		msg = ce.Typed.Message
		if ce.Typed.Err != nil {
			msg += ": " + ce.Typed.Err.Error()
		}
	} else if pe, ok := perrors.As(err); ok {
		code, msg = string(pe.Code), pe.Message
		if pe.Err != nil {
			msg += ": " + pe.Err.Error()
		}
	}

	if asJSON {
		_ = json.NewEncoder(w).Encode(map[string]jsonError{
			"error": {Code: code, Message: msg, Hint: hint},
		})
		return
	}
	if code == "UNKNOWN" {
		fmt.Fprintf(w, "Error: %s\n", msg)
		return
	}
	fmt.Fprintf(w, "Error [%s]: %s\n", code, msg)
	if hint != "" {
		fmt.Fprintf(w, "  Hint: %s\n", hint)
	}
}

func wrapConnectionError(err error, target string) *CLIError {
	e := perrors.New(perrors.CodeServiceUnavailable, "connect to promptx", err).
		WithContext("target", target).
		WithRecoverable(true)
	return NewCLIError(e, fmt.Sprintf("check that the PromptX MCP server is reachable at %s", target))
}

func newInvalidArgumentError(arg, reason string) *CLIError {
	e := perrors.New(perrors.CodeInvalidInput, "invalid argument: "+reason, nil).
		WithContext("argument", arg).
		WithRecoverable(false)
	return NewCLIError(e, "run 'promptx-bridge help' for usage information")
}

func newConfigError(err error, configPath string) *CLIError {
	e := perrors.New(perrors.CodeInvalidInput, "configuration error", err).
		WithContext("config_path", configPath).
		WithRecoverable(false)
	hint := "check the PROMPTX_ environment variables"
	if configPath != "" {
		hint = fmt.Sprintf("check %s for syntax errors", configPath)
	}
	return NewCLIError(e, hint)
}

func newNotConfiguredError() *CLIError {
	e := perrors.New(perrors.CodeServiceUnavailable, "no PromptX MCP server configured", nil)
	return NewCLIError(e, "set mcp.url (or mcp.command for stdio) in the config or PROMPTX_MCP_URL")
}
