// Copyright 2026 © The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/beaconkit/beacon/pkg/config"
	"github.com/beaconkit/beacon/pkg/logline"
	"github.com/beaconkit/beacon/pkg/telemetry"
)

// captureSink records every batch it receives.
type captureSink struct {
	mu      sync.Mutex
	entries []logline.Entry
	batches int
	closed  bool
}

func (c *captureSink) Name() string { return "capture" }

func (c *captureSink) Write(_ context.Context, entries []logline.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entries...)
	c.batches++
	return nil
}

func (c *captureSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *captureSink) snapshot() []logline.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]logline.Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func pipelineConfig(source string) config.PipelineConfig {
	return config.PipelineConfig{
		Enabled:       true,
		Source:        source,
		Sink:          "stdout",
		BatchSize:     2,
		FlushInterval: "100ms",
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestPipelineShipsParsedEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "service.log")
	content := "2026-02-11T09:15:04.311Z INFO [http.server] - request completed\n" +
		"2026-02-11T09:15:05.000Z WARN [pool] - queue is filling up\n" +
		"2026-02-11T09:15:06.000Z ERROR [sink] - flush failed\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	sink := &captureSink{}
	p, err := New(pipelineConfig(path), WithSink(sink))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	waitFor(t, 3*time.Second, func() bool { return len(sink.snapshot()) >= 3 })
	cancel()
	<-p.Done()

	entries := sink.snapshot()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Package != "http.server" || entries[0].Level != "INFO" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[2].Level != "ERROR" {
		t.Errorf("expected ERROR last, got %+v", entries[2])
	}
	if !sink.closed {
		t.Errorf("expected sink to be closed after shutdown")
	}
}

func TestPipelineFoldsContinuationLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "service.log")
	content := "2026-02-11T09:15:04.311Z ERROR [worker] - panic recovered\n" +
		"\tat worker.run(worker.go:42)\n" +
		"\tat main.main(main.go:10)\n" +
		"2026-02-11T09:15:05.000Z INFO [worker] - restarted\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	sink := &captureSink{}
	p, err := New(pipelineConfig(path), WithSink(sink))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	waitFor(t, 3*time.Second, func() bool { return len(sink.snapshot()) >= 2 })
	cancel()
	<-p.Done()

	entries := sink.snapshot()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	want := "panic recovered\n\tat worker.run(worker.go:42)\n\tat main.main(main.go:10)"
	if entries[0].Message != want {
		t.Errorf("expected folded message %q, got %q", want, entries[0].Message)
	}
}

func TestPipelineDropsUnparseableLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "service.log")
	content := "complete garbage with no timestamp at the start of the file\n" +
		"2026-02-11T09:15:04.311Z INFO [app] - valid\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	sink := &captureSink{}
	p, err := New(pipelineConfig(path), WithSink(sink))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	waitFor(t, 3*time.Second, func() bool { return len(sink.snapshot()) >= 1 })
	cancel()
	<-p.Done()

	entries := sink.snapshot()
	if len(entries) != 1 {
		t.Fatalf("expected only the valid entry, got %d", len(entries))
	}
	if entries[0].Message != "valid" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestNewRejectsUnknownSink(t *testing.T) {
	cfg := pipelineConfig("x.log")
	cfg.Sink = "kafka"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown sink")
	}
}

func TestPipelineFlushSpanAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	dir := t.TempDir()
	path := filepath.Join(dir, "service.log")
	content := "2026-02-11T09:15:04.311Z INFO [http.server] - request completed\n" +
		"2026-02-11T09:15:05.000Z INFO [http.server] - request completed\n" +
		"2026-02-11T09:15:06.000Z INFO [http.server] - request completed\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	sink := &captureSink{}
	p, err := New(pipelineConfig(path), WithSink(sink))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)
	waitFor(t, 3*time.Second, func() bool { return len(sink.snapshot()) >= 3 })
	cancel()
	<-p.Done()

	spans := recorder.Ended()
	if len(spans) == 0 {
		t.Fatal("expected flush spans to be recorded")
	}
	span := spans[0]
	if span.Name() != "pipeline.flush" {
		t.Errorf("span name = %q, want pipeline.flush", span.Name())
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if got := attrs[attribute.Key(telemetry.AttrSinkName)]; got.AsString() != "capture" {
		t.Errorf("sink attribute = %q, want capture", got.AsString())
	}
	if got := attrs[attribute.Key(telemetry.AttrBatchSize)]; got.AsInt64() == 0 {
		t.Errorf("expected batch size attribute on flush span")
	}
}
