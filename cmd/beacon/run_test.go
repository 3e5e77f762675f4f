// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/beaconkit/beacon/pkg/config"
)

func TestWatchConfigAppliesReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "beacon.yaml")
	if err := os.WriteFile(path, []byte("metrics:\n  port: 9797\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadWithCLI([]string{"--config", path})
	if err != nil {
		t.Fatalf("LoadWithCLI failed: %v", err)
	}
	reloadable := config.NewReloadableConfig(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, err := watchConfig(ctx, path, slog.Default(), reloadable)
	if err != nil {
		t.Fatalf("watchConfig failed: %v", err)
	}
	defer watcher.Stop()

	// Let the watcher record the initial mod time before rewriting.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("metrics:\n  port: 9898\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if reloadable.Metrics().Port == 9898 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("reload not applied, port still %d", reloadable.Metrics().Port)
}
