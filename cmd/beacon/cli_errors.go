// Copyright 2026 © The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package main implements the Beacon CLI.
package main

import (
	"fmt"
	"os"

	"github.com/beaconkit/beacon/pkg/errors"
)

// CLIError wraps BeaconError with CLI-specific formatting and hints.
type CLIError struct {
	*errors.BeaconError
	Hint string
}

// NewCLIError creates a new CLI error.
func NewCLIError(be *errors.BeaconError, hint string) *CLIError {
	return &CLIError{
		BeaconError: be,
		Hint:        hint,
	}
}

// Error returns the formatted error message with hints.
func (e *CLIError) Error() string {
	if e.BeaconError == nil {
		return "unknown error"
	}

	msg := e.BeaconError.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// PrintError prints the error with appropriate formatting.
func (e *CLIError) PrintError(json bool) {
	if json {
		fmt.Fprintf(os.Stderr, `{"error":{"code":"%s","message":"%s","hint":"%s"}}%s`,
			e.BeaconError.Code,
			e.BeaconError.Message,
			e.Hint,
			"\n")
		return
	}

	fmt.Fprintf(os.Stderr, "Error [%s]: %s\n", e.BeaconError.Code, e.BeaconError.Message)
	if e.Hint != "" {
		fmt.Fprintf(os.Stderr, "  Hint: %s\n", e.Hint)
	}
}

// WrapCollectorError wraps a collector probe failure with CLI hints.
func WrapCollectorError(err error, name, addr string) *CLIError {
	be := errors.New(errors.CodeCollectorUnreachable, name+" collector unreachable", err).
		WithContext("collector", name).
		WithContext("address", addr).
		WithRecoverable(true)
	return NewCLIError(be, fmt.Sprintf("check that %s is listening at %s", name, addr))
}

// WrapTimeoutError wraps a timeout error with CLI hints.
func WrapTimeoutError(err error, operation string) *CLIError {
	be := errors.New(errors.CodeTimeout, operation+" timed out", err).
		WithContext("operation", operation).
		WithRecoverable(true)
	return NewCLIError(be, "increase --timeout or check collector health")
}

// NewConfigError creates a configuration error with CLI hints.
func NewConfigError(err error, configPath string) *CLIError {
	be := errors.New(errors.CodeConfigInvalid, "configuration error", err).
		WithContext("config_path", configPath).
		WithRecoverable(false)

	hint := "check your configuration file syntax"
	if configPath != "" {
		hint = fmt.Sprintf("check %s for syntax errors", configPath)
	}
	return NewCLIError(be, hint)
}

// NewInvalidArgumentError creates an invalid argument error with CLI hints.
func NewInvalidArgumentError(arg, reason string) *CLIError {
	be := errors.New(errors.CodeConfigInvalid, fmt.Sprintf("invalid argument: %s", reason), nil).
		WithContext("argument", arg).
		WithRecoverable(false)
	return NewCLIError(be, "run 'beacon help' for usage information")
}

// PrintSimpleError prints a plain error message for non-BeaconError cases.
func PrintSimpleError(err error, json bool) {
	if json {
		fmt.Fprintf(os.Stderr, `{"error":{"code":"UNKNOWN","message":"%s"}}%s`, err.Error(), "\n")
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
}
