// SPDX-License-Identifier: Apache-2.0
// Package logline parses the semi-structured log line format consumed by
// the shipping pipeline:
//
//	<ISO8601 timestamp> <LEVEL> [<package>] - <message>
//
// for example:
//
//	2026-02-11T09:15:04.311Z INFO [http.server] - request completed
package logline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/beaconkit/beacon/pkg/errors"
)

// Entry is a single parsed log line.
type Entry struct {
	Timestamp time.Time
	Level     string
	Package   string
	Message   string
}

// Levels enumerates the recognized log levels, most verbose first.
var Levels = []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

var levelSet = func() map[string]bool {
	m := make(map[string]bool, len(Levels))
	for _, l := range Levels {
		m[l] = true
	}
	return m
}()

// linePattern mirrors the grok rule used by the external pipeline:
// TIMESTAMP_ISO8601, LOGLEVEL, bracketed logger name, " - ", message.
var linePattern = regexp.MustCompile(
	`^(\d{4}-\d{2}-\d{2}[Tt ]\d{2}:\d{2}:\d{2}(?:[.,]\d+)?(?:Z|[+-]\d{2}:?\d{2})?)\s+` +
		`([A-Z]+)\s+\[([^\]]+)\]\s+-\s+(.*)$`)

// Timestamp layouts tried in order. The first is the canonical form.
var timeLayouts = []string{
	"2006-01-02T15:04:05.000Z07:00",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
}

// Parse parses a single log line. Lines that do not start with a
// timestamp (stack traces, wrapped output) are continuation lines and
// yield a PARSE_FAILURE error; the pipeline appends them to the
// previous entry instead.
func Parse(line string) (Entry, error) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return Entry{}, errors.New(errors.CodeParseFailure,
			fmt.Sprintf("line does not match grammar: %.80q", line), nil)
	}

	ts, err := parseTimestamp(m[1])
	if err != nil {
		return Entry{}, errors.New(errors.CodeParseFailure,
			fmt.Sprintf("invalid timestamp %q", m[1]), err)
	}

	level := m[2]
	if !levelSet[level] {
		return Entry{}, errors.New(errors.CodeParseFailure,
			fmt.Sprintf("unknown level %q", level), nil)
	}

	return Entry{
		Timestamp: ts,
		Level:     level,
		Package:   m[3],
		Message:   m[4],
	}, nil
}

// IsContinuation reports whether the line is a continuation of a
// previous entry rather than the start of a new one.
func IsContinuation(line string) bool {
	return !linePattern.MatchString(line)
}

func parseTimestamp(s string) (time.Time, error) {
	// Normalize comma fraction separator before layout matching
	s = strings.Replace(s, ",", ".", 1)
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Format renders an entry back into the line grammar. Inverse of Parse
// for entries with UTC timestamps.
func Format(e Entry) string {
	return fmt.Sprintf("%s %s [%s] - %s",
		e.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		e.Level, e.Package, e.Message)
}

// MarshalJSON renders the document shape used for indexing: @timestamp,
// level, logger, message.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Timestamp string `json:"@timestamp"`
		Level     string `json:"level"`
		Logger    string `json:"logger"`
		Message   string `json:"message"`
	}{
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Level:     e.Level,
		Logger:    e.Package,
		Message:   e.Message,
	})
}
