// SPDX-License-Identifier: Apache-2.0
package logline

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		level   string
		pkg     string
		message string
	}{
		{
			name:    "canonical UTC line",
			line:    "2026-02-11T09:15:04.311Z INFO [http.server] - request completed",
			level:   "INFO",
			pkg:     "http.server",
			message: "request completed",
		},
		{
			name:    "offset timestamp",
			line:    "2026-02-11T10:15:04.311+01:00 WARN [pool] - queue is filling up",
			level:   "WARN",
			pkg:     "pool",
			message: "queue is filling up",
		},
		{
			name:    "no fractional seconds",
			line:    "2026-02-11T09:15:04Z ERROR [sink.elastic] - bulk request rejected",
			level:   "ERROR",
			pkg:     "sink.elastic",
			message: "bulk request rejected",
		},
		{
			name:    "space separated timestamp",
			line:    "2026-02-11 09:15:04.311 DEBUG [config] - reloaded",
			level:   "DEBUG",
			pkg:     "config",
			message: "reloaded",
		},
		{
			name:    "message containing brackets and dashes",
			line:    "2026-02-11T09:15:04.311Z INFO [api] - GET /v1/items - 200 [cached]",
			level:   "INFO",
			pkg:     "api",
			message: "GET /v1/items - 200 [cached]",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e, err := Parse(tc.line)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if e.Level != tc.level {
				t.Errorf("level: got %q, want %q", e.Level, tc.level)
			}
			if e.Package != tc.pkg {
				t.Errorf("package: got %q, want %q", e.Package, tc.pkg)
			}
			if e.Message != tc.message {
				t.Errorf("message: got %q, want %q", e.Message, tc.message)
			}
			if e.Timestamp.IsZero() {
				t.Errorf("timestamp should not be zero")
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	bad := []string{
		"",
		"plain text without any structure",
		"  at main.run(main.go:42)", // stack trace continuation
		"INFO [pkg] - missing timestamp",
		"2026-02-11T09:15:04.311Z NOTICE [pkg] - unknown level",
		"2026-02-11T09:15:04.311Z INFO missing-brackets - message",
	}
	for _, line := range bad {
		if _, err := Parse(line); err == nil {
			t.Errorf("expected parse error for %q", line)
		}
	}
}

func TestIsContinuation(t *testing.T) {
	if IsContinuation("2026-02-11T09:15:04.311Z INFO [x] - ok") {
		t.Errorf("structured line should not be a continuation")
	}
	if !IsContinuation("\tat handler.Serve(handler.go:10)") {
		t.Errorf("stack frame should be a continuation")
	}
}

func TestFormatRoundTrip(t *testing.T) {
	e := Entry{
		Timestamp: time.Date(2026, 2, 11, 9, 15, 4, 311_000_000, time.UTC),
		Level:     "INFO",
		Package:   "http.server",
		Message:   "request completed",
	}
	line := Format(e)
	want := "2026-02-11T09:15:04.311Z INFO [http.server] - request completed"
	if line != want {
		t.Fatalf("Format = %q, want %q", line, want)
	}

	back, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse of formatted line failed: %v", err)
	}
	if !back.Timestamp.Equal(e.Timestamp) {
		t.Errorf("timestamp: got %v, want %v", back.Timestamp, e.Timestamp)
	}
	if back.Level != e.Level || back.Package != e.Package || back.Message != e.Message {
		t.Errorf("round trip mismatch: %+v vs %+v", back, e)
	}
}

func TestMarshalJSON(t *testing.T) {
	e := Entry{
		Timestamp: time.Date(2026, 2, 11, 9, 15, 4, 0, time.UTC),
		Level:     "ERROR",
		Package:   "sink.elastic",
		Message:   "bulk request rejected",
	}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"@timestamp"`, `"level":"ERROR"`, `"logger":"sink.elastic"`, `"message":"bulk request rejected"`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
}
