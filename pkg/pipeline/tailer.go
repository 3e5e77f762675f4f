// Copyright 2026 © The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/beaconkit/beacon/pkg/errors"
)

// Tailer follows a log file and emits complete lines. File system
// events trigger reads immediately; a polling tick covers editors and
// filesystems that do not deliver events. Truncation (rotation that
// reuses the path) resets the read offset to the start of the file.
type Tailer struct {
	path     string
	interval time.Duration
	fromEnd  bool
	logger   *slog.Logger
}

// TailerOption configures the tailer.
type TailerOption func(*Tailer)

// WithPollInterval sets the fallback polling interval.
func WithPollInterval(d time.Duration) TailerOption {
	return func(t *Tailer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithFromEnd starts reading at the current end of the file instead of
// the beginning.
func WithFromEnd() TailerOption {
	return func(t *Tailer) {
		t.fromEnd = true
	}
}

// WithTailerLogger sets the logger for the tailer.
func WithTailerLogger(logger *slog.Logger) TailerOption {
	return func(t *Tailer) {
		t.logger = logger
	}
}

// NewTailer creates a tailer for the given path.
func NewTailer(path string, opts ...TailerOption) *Tailer {
	t := &Tailer{
		path:     path,
		interval: 500 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run opens the file and returns a channel of complete lines. The
// channel is closed when ctx is cancelled. Partial lines (no trailing
// newline yet) stay buffered until the writer completes them.
func (t *Tailer) Run(ctx context.Context) (<-chan string, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, errors.New(errors.CodeTailFailure, "failed to open log source", err).
			WithContext("path", t.path)
	}

	var offset int64
	if t.fromEnd {
		offset, err = f.Seek(0, io.SeekEnd)
		if err != nil {
			f.Close()
			return nil, errors.New(errors.CodeTailFailure, "failed to seek log source", err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		f.Close()
		return nil, errors.New(errors.CodeTailFailure, "failed to create watcher", err)
	}
	if err := watcher.Add(t.path); err != nil {
		// Fall back to pure polling; some paths cannot be watched
		t.logger.Warn("file watch unavailable, polling only", "path", t.path, "error", err)
	}

	lines := make(chan string)
	go t.tail(ctx, f, watcher, offset, lines)
	return lines, nil
}

func (t *Tailer) tail(ctx context.Context, f *os.File, watcher *fsnotify.Watcher, offset int64, lines chan<- string) {
	defer close(lines)
	defer watcher.Close()
	defer f.Close()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	reader := bufio.NewReader(f)
	partial := ""

	drain := func() {
		for {
			chunk, err := reader.ReadString('\n')
			if len(chunk) > 0 {
				offset += int64(len(chunk))
			}
			if err != nil {
				// Incomplete line: keep it until the writer finishes it
				partial += chunk
				return
			}
			line := partial + strings.TrimRight(chunk, "\r\n")
			partial = ""
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}

	checkTruncation := func() {
		info, err := os.Stat(t.path)
		if err != nil {
			return
		}
		if info.Size() < offset {
			t.logger.Info("log source truncated, restarting from beginning", "path", t.path)
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				t.logger.Error("failed to seek after truncation", "error", err)
				return
			}
			offset = 0
			partial = ""
			reader.Reset(f)
		}
	}

	drain()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) {
				checkTruncation()
				drain()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			t.logger.Warn("watch error", "error", err)
		case <-ticker.C:
			checkTruncation()
			drain()
		}
	}
}
