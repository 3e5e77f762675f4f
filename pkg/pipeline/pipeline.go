// Copyright 2026 © The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/beaconkit/beacon/pkg/config"
	"github.com/beaconkit/beacon/pkg/errors"
	"github.com/beaconkit/beacon/pkg/logline"
	"github.com/beaconkit/beacon/pkg/telemetry"
)

// Pipeline tails a log file, parses each line against the grammar, and
// ships batches of entries to a sink. Continuation lines (stack traces)
// are folded into the previous entry's message.
type Pipeline struct {
	cfg     config.PipelineConfig
	sink    Sink
	tailer  *Tailer
	metrics *telemetry.PipelineMetrics
	logger  *slog.Logger
	tracer  oteltrace.Tracer

	mu      sync.Mutex
	batch   []logline.Entry
	pending *logline.Entry

	doneCh chan struct{}
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithSink overrides the sink chosen from configuration.
func WithSink(s Sink) Option {
	return func(p *Pipeline) {
		p.sink = s
	}
}

// WithMetrics attaches a metrics tracker.
func WithMetrics(m *telemetry.PipelineMetrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a pipeline from configuration. Unless WithSink overrides
// it, the sink named in cfg.Sink is constructed.
func New(cfg config.PipelineConfig, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:    cfg,
		logger: slog.Default(),
		tracer: otel.Tracer("beacon/pipeline"),
		doneCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.sink == nil {
		sink, err := newSink(cfg)
		if err != nil {
			return nil, err
		}
		p.sink = sink
	}

	p.tailer = NewTailer(cfg.Source, WithTailerLogger(p.logger))
	return p, nil
}

func newSink(cfg config.PipelineConfig) (Sink, error) {
	switch cfg.Sink {
	case "stdout":
		return NewStdoutSink(os.Stdout), nil
	case "elasticsearch":
		return NewElasticsearchSink(cfg.Elasticsearch.URL, cfg.Elasticsearch.Index), nil
	case "sqlite":
		return NewSQLiteSink(cfg.SQLite.Path)
	default:
		return nil, errors.New(errors.CodeConfigInvalid, "unknown sink "+cfg.Sink, nil)
	}
}

// Run processes the source until ctx is cancelled, then flushes what
// remains and closes the sink.
func (p *Pipeline) Run(ctx context.Context) error {
	defer close(p.doneCh)

	lines, err := p.tailer.Run(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(p.cfg.FlushDuration())
	defer ticker.Stop()

	p.logger.Info("pipeline started",
		"source", p.cfg.Source, "sink", p.sink.Name(), "batch_size", p.cfg.BatchSize)

	for {
		select {
		case <-ctx.Done():
			return p.shutdown()
		case line, ok := <-lines:
			if !ok {
				return p.shutdown()
			}
			p.consume(ctx, line)
		case <-ticker.C:
			p.flush(ctx, true)
		}
	}
}

// Done is closed when Run has finished its final flush.
func (p *Pipeline) Done() <-chan struct{} {
	return p.doneCh
}

func (p *Pipeline) consume(ctx context.Context, line string) {
	p.metrics.RecordLineRead(ctx, p.cfg.Source)

	if line == "" {
		return
	}

	if logline.IsContinuation(line) {
		p.mu.Lock()
		if p.pending != nil {
			p.pending.Message += "\n" + line
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
		// Continuation with no preceding entry: not parseable
		p.metrics.RecordParseFailure(ctx, p.cfg.Source)
		return
	}

	entry, err := logline.Parse(line)
	if err != nil {
		p.metrics.RecordParseFailure(ctx, p.cfg.Source)
		p.logger.Debug("dropped unparseable line", "error", err)
		return
	}
	p.metrics.RecordParsed(ctx, entry.Level)

	p.mu.Lock()
	if p.pending != nil {
		p.batch = append(p.batch, *p.pending)
	}
	p.pending = &entry
	depth := len(p.batch)
	full := depth >= p.cfg.BatchSize
	p.mu.Unlock()

	p.metrics.RecordQueueDepth(ctx, int64(depth))
	if full {
		p.flush(ctx, false)
	}
}

// flush ships the buffered batch. Size-triggered flushes leave the
// newest entry pending so late continuation lines can still attach to
// it; timer flushes promote it, otherwise a quiet source would never
// ship its last entry.
func (p *Pipeline) flush(ctx context.Context, promotePending bool) {
	p.mu.Lock()
	if promotePending && p.pending != nil {
		p.batch = append(p.batch, *p.pending)
		p.pending = nil
	}
	batch := p.batch
	p.batch = nil
	p.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	p.ship(ctx, batch)
}

func (p *Pipeline) ship(ctx context.Context, batch []logline.Entry) {
	ctx, span := p.tracer.Start(ctx, "pipeline.flush",
		oteltrace.WithAttributes(telemetry.SinkAttributes(p.sink.Name(), len(batch))...))
	defer span.End()

	if err := p.sink.Write(ctx, batch); err != nil {
		span.RecordError(err)
		p.metrics.RecordSinkError(ctx, p.sink.Name(), err)
		p.logger.Error("sink rejected batch",
			"sink", p.sink.Name(), "entries", len(batch), "error", err)
		return
	}
	p.metrics.RecordShipped(ctx, p.sink.Name(), int64(len(batch)))
}

func (p *Pipeline) shutdown() error {
	// Final flush runs on a fresh context; the run context is already
	// cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p.mu.Lock()
	if p.pending != nil {
		p.batch = append(p.batch, *p.pending)
		p.pending = nil
	}
	batch := p.batch
	p.batch = nil
	p.mu.Unlock()

	if len(batch) > 0 {
		p.ship(ctx, batch)
	}

	err := p.sink.Close()
	p.logger.Info("pipeline stopped", "sink", p.sink.Name())
	return err
}
