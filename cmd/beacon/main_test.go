// Copyright 2026 © The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"
	"time"
)

func TestParseGlobalFlagsPassThrough(t *testing.T) {
	flags, rest, err := parseGlobalFlags([]string{
		"--config", "beacon.yaml",
		"--set", "metrics.port=9898",
		"--observability=false",
		"--json",
		"run",
	})
	if err != nil {
		t.Fatalf("parseGlobalFlags: %v", err)
	}
	if !flags.JSON {
		t.Error("expected JSON flag set")
	}
	if len(rest) != 1 || rest[0] != "run" {
		t.Errorf("unexpected rest args: %v", rest)
	}

	want := []string{"--config", "beacon.yaml", "--set", "metrics.port=9898", "--observability=false"}
	if len(flags.ConfigArgs) != len(want) {
		t.Fatalf("config args = %v, want %v", flags.ConfigArgs, want)
	}
	for i := range want {
		if flags.ConfigArgs[i] != want[i] {
			t.Errorf("config arg %d = %q, want %q", i, flags.ConfigArgs[i], want[i])
		}
	}
}

func TestParseGlobalFlagsTimeout(t *testing.T) {
	flags, _, err := parseGlobalFlags([]string{"--timeout=2s", "check"})
	if err != nil {
		t.Fatalf("parseGlobalFlags: %v", err)
	}
	if flags.Timeout != 2*time.Second {
		t.Errorf("timeout = %v, want 2s", flags.Timeout)
	}

	if _, _, err := parseGlobalFlags([]string{"--timeout", "nope"}); err == nil {
		t.Error("expected error for invalid timeout")
	}
}

func TestParseGlobalFlagsMissingValue(t *testing.T) {
	for _, flag := range []string{"--config", "--set", "--service", "--timeout"} {
		if _, _, err := parseGlobalFlags([]string{flag}); err == nil {
			t.Errorf("expected error for dangling %s", flag)
		}
	}
}

func TestParseGlobalFlagsUnknown(t *testing.T) {
	if _, _, err := parseGlobalFlags([]string{"--bogus"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestConfigPath(t *testing.T) {
	if got := configPath([]string{"--config", "a.yaml", "--set", "x=1"}); got != "a.yaml" {
		t.Errorf("configPath = %q, want a.yaml", got)
	}
	if got := configPath([]string{"--config=b.yaml"}); got != "b.yaml" {
		t.Errorf("configPath = %q, want b.yaml", got)
	}
	if got := configPath([]string{"--set", "x=1"}); got != "" {
		t.Errorf("configPath = %q, want empty", got)
	}
}

func TestNormalizeCell(t *testing.T) {
	if got := normalizeCell("  a   b  "); got != "a b" {
		t.Errorf("normalizeCell = %q", got)
	}
	if got := normalizeCell("   "); got != "-" {
		t.Errorf("normalizeCell empty = %q, want -", got)
	}
}
