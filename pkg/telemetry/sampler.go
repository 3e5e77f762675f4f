// Copyright 2026 © The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/beaconkit/beacon/pkg/config"
	"github.com/beaconkit/beacon/pkg/errors"
)

// NewSampler builds a span sampler from configuration. The parameter's
// meaning depends on the sampler type: const treats any non-zero value
// as sample-everything, probabilistic is a fraction of traces in [0,1],
// ratelimiting is an upper bound in spans per second.
func NewSampler(cfg config.SamplerConfig) (sdktrace.Sampler, error) {
	switch cfg.Type {
	case "const":
		if cfg.Param != 0 {
			return sdktrace.AlwaysSample(), nil
		}
		return sdktrace.NeverSample(), nil

	case "probabilistic":
		if cfg.Param < 0 || cfg.Param > 1 {
			return nil, errors.New(errors.CodeConfigInvalid,
				fmt.Sprintf("probabilistic sampler param %g outside [0, 1]", cfg.Param), nil)
		}
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Param)), nil

	case "ratelimiting":
		if cfg.Param < 0 {
			return nil, errors.New(errors.CodeConfigInvalid,
				fmt.Sprintf("ratelimiting sampler param %g must not be negative", cfg.Param), nil)
		}
		return sdktrace.ParentBased(newRateLimitingSampler(cfg.Param)), nil

	default:
		return nil, errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("unknown sampler type %q", cfg.Type), nil)
	}
}

// rateLimitingSampler admits up to n root spans per second and drops
// the rest. Burst capacity is one second's worth of spans, minimum 1.
type rateLimitingSampler struct {
	limiter     *rate.Limiter
	description string
}

func newRateLimitingSampler(perSecond float64) sdktrace.Sampler {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond == 0 {
		limit = 0
	}
	return &rateLimitingSampler{
		limiter:     rate.NewLimiter(limit, burst),
		description: fmt.Sprintf("RateLimitingSampler{%g}", perSecond),
	}
}

func (s *rateLimitingSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	psc := oteltrace.SpanContextFromContext(p.ParentContext)
	if s.limiter.Allow() {
		return sdktrace.SamplingResult{
			Decision:   sdktrace.RecordAndSample,
			Tracestate: psc.TraceState(),
		}
	}
	return sdktrace.SamplingResult{
		Decision:   sdktrace.Drop,
		Tracestate: psc.TraceState(),
	}
}

func (s *rateLimitingSampler) Description() string {
	return s.description
}
