// Copyright 2026 © The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic conventions for Beacon telemetry.
// These follow OpenTelemetry naming conventions where applicable.
const (
	// Pipeline attributes
	AttrPipelineSource = "beacon.pipeline.source"
	AttrSinkName       = "beacon.sink.name"
	AttrBatchSize      = "beacon.batch.size"
	AttrLogLevel       = "beacon.log.level"
	AttrLogLogger      = "beacon.log.logger"

	// Exporter attributes
	AttrTracerName  = "beacon.tracer.name"
	AttrSamplerType = "beacon.sampler.type"
	AttrCollector   = "beacon.collector.endpoint"

	// Error attributes
	AttrErrorCode = "beacon.error.code"
)

// SinkAttributes returns common attributes for sink flush spans.
func SinkAttributes(sink string, batchSize int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrSinkName, sink),
		attribute.Int(AttrBatchSize, batchSize),
	}
}

// TracerAttributes returns attributes describing the active reporter.
func TracerAttributes(tracer, samplerType, endpoint string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrTracerName, tracer),
		attribute.String(AttrSamplerType, samplerType),
	}
	if endpoint != "" {
		attrs = append(attrs, attribute.String(AttrCollector, endpoint))
	}
	return attrs
}
