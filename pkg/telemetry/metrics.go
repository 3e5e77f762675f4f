// SPDX-License-Identifier: Apache-2.0
// Package telemetry provides observability bootstrap for Beacon: metric
// and trace provider setup, samplers, and structured logging.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/beaconkit/beacon/pkg/errors"
)

// PipelineMetrics tracks log pipeline throughput and failure patterns
// for production monitoring.
type PipelineMetrics struct {
	// linesRead counts raw lines read from the source
	linesRead metric.Int64Counter

	// entriesParsed counts lines that matched the grammar
	entriesParsed metric.Int64Counter

	// parseFailures counts lines dropped for not matching
	parseFailures metric.Int64Counter

	// entriesShipped counts entries accepted by a sink
	entriesShipped metric.Int64Counter

	// batchFlushes counts sink flush cycles
	batchFlushes metric.Int64Counter

	// sinkErrors counts failed sink writes by error code
	sinkErrors metric.Int64Counter

	// queueDepth tracks entries buffered and not yet flushed
	queueDepth metric.Int64Gauge

	mu sync.RWMutex
}

// NewPipelineMetrics creates a pipeline metrics tracker with OTEL meters.
func NewPipelineMetrics(ctx context.Context) (*PipelineMetrics, error) {
	meter := otel.Meter("beacon/pipeline")

	linesRead, err := meter.Int64Counter(
		"beacon.pipeline.lines_read",
		metric.WithDescription("Raw lines read from the log source"),
	)
	if err != nil {
		return nil, err
	}

	entriesParsed, err := meter.Int64Counter(
		"beacon.pipeline.entries_parsed",
		metric.WithDescription("Lines that matched the log grammar"),
	)
	if err != nil {
		return nil, err
	}

	parseFailures, err := meter.Int64Counter(
		"beacon.pipeline.parse_failures",
		metric.WithDescription("Lines dropped for not matching the log grammar"),
	)
	if err != nil {
		return nil, err
	}

	entriesShipped, err := meter.Int64Counter(
		"beacon.pipeline.entries_shipped",
		metric.WithDescription("Entries accepted by the sink"),
	)
	if err != nil {
		return nil, err
	}

	batchFlushes, err := meter.Int64Counter(
		"beacon.pipeline.batch_flushes",
		metric.WithDescription("Sink flush cycles"),
	)
	if err != nil {
		return nil, err
	}

	sinkErrors, err := meter.Int64Counter(
		"beacon.pipeline.sink_errors",
		metric.WithDescription("Failed sink writes by error code"),
	)
	if err != nil {
		return nil, err
	}

	queueDepth, err := meter.Int64Gauge(
		"beacon.pipeline.queue_depth",
		metric.WithDescription("Entries buffered and not yet flushed"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		linesRead:      linesRead,
		entriesParsed:  entriesParsed,
		parseFailures:  parseFailures,
		entriesShipped: entriesShipped,
		batchFlushes:   batchFlushes,
		sinkErrors:     sinkErrors,
		queueDepth:     queueDepth,
	}, nil
}

// RecordLineRead increments the raw line counter for a source.
func (pm *PipelineMetrics) RecordLineRead(ctx context.Context, source string) {
	if pm == nil {
		return
	}
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	pm.linesRead.Add(ctx, 1,
		metric.WithAttributes(attribute.String(AttrPipelineSource, source)),
	)
}

// RecordParsed increments the parsed entry counter for a level.
func (pm *PipelineMetrics) RecordParsed(ctx context.Context, level string) {
	if pm == nil {
		return
	}
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	pm.entriesParsed.Add(ctx, 1,
		metric.WithAttributes(attribute.String(AttrLogLevel, level)),
	)
}

// RecordParseFailure increments the dropped line counter.
func (pm *PipelineMetrics) RecordParseFailure(ctx context.Context, source string) {
	if pm == nil {
		return
	}
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	pm.parseFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String(AttrPipelineSource, source)),
	)
}

// RecordShipped adds to the shipped entry counter after a sink accepts
// a batch.
func (pm *PipelineMetrics) RecordShipped(ctx context.Context, sink string, count int64) {
	if pm == nil {
		return
	}
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	pm.entriesShipped.Add(ctx, count,
		metric.WithAttributes(attribute.String(AttrSinkName, sink)),
	)
	pm.batchFlushes.Add(ctx, 1,
		metric.WithAttributes(attribute.String(AttrSinkName, sink)),
	)
}

// RecordSinkError increments the sink error counter. BeaconErrors
// contribute their code, other errors are counted as INTERNAL_ERROR.
func (pm *PipelineMetrics) RecordSinkError(ctx context.Context, sink string, err error) {
	if pm == nil || err == nil {
		return
	}
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	code := string(errors.CodeInternal)
	if be, ok := err.(*errors.BeaconError); ok {
		code = string(be.Code)
	}
	pm.sinkErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(AttrSinkName, sink),
			attribute.String(AttrErrorCode, code),
		),
	)
}

// RecordQueueDepth records the number of buffered entries.
func (pm *PipelineMetrics) RecordQueueDepth(ctx context.Context, depth int64) {
	if pm == nil {
		return
	}
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	pm.queueDepth.Record(ctx, depth)
}
