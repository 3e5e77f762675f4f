// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"
	"testing"

	"github.com/beaconkit/beacon/pkg/errors"
)

func TestNewPipelineMetrics(t *testing.T) {
	pm, err := NewPipelineMetrics(context.Background())
	if err != nil {
		t.Fatalf("failed to create pipeline metrics: %v", err)
	}
	if pm == nil {
		t.Fatal("expected non-nil PipelineMetrics")
	}
}

func TestRecordCounters(t *testing.T) {
	pm, _ := NewPipelineMetrics(context.Background())
	ctx := context.Background()

	pm.RecordLineRead(ctx, "/var/log/service.log")
	pm.RecordParsed(ctx, "INFO")
	pm.RecordParseFailure(ctx, "/var/log/service.log")
	pm.RecordShipped(ctx, "elasticsearch", 500)
	pm.RecordQueueDepth(ctx, 42)

	// Nil receiver should not panic
	var nilMetrics *PipelineMetrics
	nilMetrics.RecordLineRead(ctx, "x")
	nilMetrics.RecordShipped(ctx, "stdout", 1)
	nilMetrics.RecordQueueDepth(ctx, 0)
}

func TestRecordSinkError(t *testing.T) {
	pm, _ := NewPipelineMetrics(context.Background())
	ctx := context.Background()

	// Typed error contributes its code
	be := errors.New(errors.CodeSinkFailure, "bulk rejected", nil)
	pm.RecordSinkError(ctx, "elasticsearch", be)

	// Plain errors are counted as internal
	pm.RecordSinkError(ctx, "sqlite", context.DeadlineExceeded)

	// Nil error and nil receiver are no-ops
	pm.RecordSinkError(ctx, "stdout", nil)
	var nilMetrics *PipelineMetrics
	nilMetrics.RecordSinkError(ctx, "stdout", be)
}
