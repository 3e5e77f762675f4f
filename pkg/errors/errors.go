// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling with rich context for Beacon.
package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode classifies Beacon errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeConfigInvalid indicates a configuration key had an invalid value.
	CodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	// CodeDurationInvalid indicates an ISO-8601 duration could not be parsed.
	CodeDurationInvalid ErrorCode = "DURATION_INVALID"

	// CodeExporterInit indicates a metrics or trace exporter failed to start.
	CodeExporterInit ErrorCode = "EXPORTER_INIT"

	// CodeCollectorUnreachable indicates a collector endpoint did not respond.
	CodeCollectorUnreachable ErrorCode = "COLLECTOR_UNREACHABLE"

	// CodeParseFailure indicates a log line did not match the expected grammar.
	CodeParseFailure ErrorCode = "PARSE_FAILURE"

	// CodeSinkFailure indicates a pipeline sink rejected a batch.
	CodeSinkFailure ErrorCode = "SINK_FAILURE"

	// CodeTailFailure indicates the log source could not be read.
	CodeTailFailure ErrorCode = "TAIL_FAILURE"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"
)

// BeaconError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type BeaconError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Attributes  map[string]string
	Recoverable bool
}

// Error implements the error interface.
func (e *BeaconError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *BeaconError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *BeaconError) MarshalJSON() ([]byte, error) {
	type Alias BeaconError
	return json.Marshal(&struct {
		Message     string `json:"message"`
		Code        string `json:"code"`
		Err         string `json:"error,omitempty"`
		Recoverable bool   `json:"recoverable"`
		*Alias
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Err:         fmt.Sprintf("%v", e.Err),
		Recoverable: e.Recoverable,
		Alias:       (*Alias)(e),
	})
}

// New creates a new BeaconError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *BeaconError {
	return &BeaconError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		Attributes: make(map[string]string),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *BeaconError) WithContext(key string, value interface{}) *BeaconError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithAttribute adds a string attribute for OTEL traces.
// Returns the error for method chaining.
func (e *BeaconError) WithAttribute(key, value string) *BeaconError {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *BeaconError) WithRecoverable(recoverable bool) *BeaconError {
	e.Recoverable = recoverable
	return e
}

// AsBeaconError attempts to convert an error to a BeaconError.
// Returns the error as BeaconError if it is one, or wraps it otherwise.
func AsBeaconError(err error) *BeaconError {
	if err == nil {
		return nil
	}
	if be, ok := err.(*BeaconError); ok {
		return be
	}
	// Wrap unknown error as internal
	return New(CodeInternal, "wrapped error", err)
}

// RecoverableString returns "true" or "false" as a string for observability.
func (e *BeaconError) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}
