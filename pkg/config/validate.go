package config

import (
	"fmt"
	"time"

	"github.com/beaconkit/beacon/pkg/errors"
)

// Enumerated configuration values. Every key with a closed value set is
// validated against one of these.
var (
	metricsProviders = map[string]bool{"prometheus": true, "otlp": true, "stdout": true}
	tracers          = map[string]bool{"jaeger": true, "zipkin": true, "stdout": true}
	samplerTypes     = map[string]bool{"const": true, "probabilistic": true, "ratelimiting": true}
	logLevels        = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	logFormats       = map[string]bool{"text": true, "json": true, "classic": true}
	pipelineSinks    = map[string]bool{"stdout": true, "elasticsearch": true, "sqlite": true}
)

// Validate checks that every configuration value is within its stated
// range. It returns the first violation found.
func (c *Config) Validate() error {
	if err := c.Metrics.validate(); err != nil {
		return err
	}
	if err := c.Tracing.validate(); err != nil {
		return err
	}
	if err := c.Log.validate(); err != nil {
		return err
	}
	return c.Pipeline.validate()
}

func (m MetricsConfig) validate() error {
	if !metricsProviders[m.Provider] {
		return configErr("metrics.provider", m.Provider, "one of prometheus, otlp, stdout")
	}
	if m.Port < 1 || m.Port > 65535 {
		return configErr("metrics.port", m.Port, "1-65535")
	}
	if m.Host == "" {
		return configErr("metrics.host", m.Host, "a bind hostname or address")
	}
	if _, err := ParseISO8601Duration(m.Step); err != nil {
		return errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("metrics.step %q is not a valid ISO-8601 duration", m.Step), err)
	}
	if m.Provider == "otlp" && m.OTLPEndpoint == "" {
		return configErr("metrics.otlp_endpoint", m.OTLPEndpoint, "host:port of an OTLP receiver")
	}
	return nil
}

// StepDuration returns the aggregation step as a time.Duration.
// Validate must have passed first.
func (m MetricsConfig) StepDuration() time.Duration {
	d, err := ParseISO8601Duration(m.Step)
	if err != nil {
		return time.Minute
	}
	return d
}

func (t TracingConfig) validate() error {
	if !tracers[t.Tracer] {
		return configErr("tracing.tracer", t.Tracer, "one of jaeger, zipkin, stdout")
	}
	if !samplerTypes[t.Sampler.Type] {
		return configErr("tracing.sampler.type", t.Sampler.Type, "one of const, probabilistic, ratelimiting")
	}
	switch t.Sampler.Type {
	case "probabilistic":
		if t.Sampler.Param < 0 || t.Sampler.Param > 1 {
			return configErr("tracing.sampler.param", t.Sampler.Param, "a fraction in [0, 1]")
		}
	case "ratelimiting":
		if t.Sampler.Param < 0 {
			return configErr("tracing.sampler.param", t.Sampler.Param, "spans per second >= 0")
		}
	}
	if _, err := time.ParseDuration(t.FlushInterval); err != nil {
		return errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("tracing.flush_interval %q is not a valid duration", t.FlushInterval), err)
	}
	if t.BufferSize < 1 {
		return configErr("tracing.buffer_size", t.BufferSize, "a positive span count")
	}
	switch t.Tracer {
	case "jaeger":
		if t.Jaeger.Host == "" || t.Jaeger.Port < 1 || t.Jaeger.Port > 65535 {
			return configErr("tracing.jaeger", fmt.Sprintf("%s:%d", t.Jaeger.Host, t.Jaeger.Port),
				"a reporter hostname and port")
		}
	case "zipkin":
		if t.Zipkin.Host == "" || t.Zipkin.Port < 1 || t.Zipkin.Port > 65535 {
			return configErr("tracing.zipkin", fmt.Sprintf("%s:%d", t.Zipkin.Host, t.Zipkin.Port),
				"a reporter hostname and port")
		}
	}
	return nil
}

// FlushDuration returns the reporter flush interval as a time.Duration.
func (t TracingConfig) FlushDuration() time.Duration {
	d, err := time.ParseDuration(t.FlushInterval)
	if err != nil {
		return time.Second
	}
	return d
}

func (l LogConfig) validate() error {
	if !logLevels[l.Level] {
		return configErr("log.level", l.Level, "one of debug, info, warn, error")
	}
	if !logFormats[l.Format] {
		return configErr("log.format", l.Format, "one of text, json, classic")
	}
	return nil
}

func (p PipelineConfig) validate() error {
	if !p.Enabled {
		return nil
	}
	if p.Source == "" {
		return configErr("pipeline.source", p.Source, "a log file path")
	}
	if !pipelineSinks[p.Sink] {
		return configErr("pipeline.sink", p.Sink, "one of stdout, elasticsearch, sqlite")
	}
	if p.BatchSize < 1 {
		return configErr("pipeline.batch_size", p.BatchSize, "a positive entry count")
	}
	if _, err := time.ParseDuration(p.FlushInterval); err != nil {
		return errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("pipeline.flush_interval %q is not a valid duration", p.FlushInterval), err)
	}
	if p.Sink == "elasticsearch" && p.Elasticsearch.URL == "" {
		return configErr("pipeline.elasticsearch.url", p.Elasticsearch.URL, "an Elasticsearch base URL")
	}
	if p.Sink == "sqlite" && p.SQLite.Path == "" {
		return configErr("pipeline.sqlite.path", p.SQLite.Path, "a database file path")
	}
	return nil
}

// FlushDuration returns the batch flush interval as a time.Duration.
func (p PipelineConfig) FlushDuration() time.Duration {
	d, err := time.ParseDuration(p.FlushInterval)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

func configErr(key string, got interface{}, want string) error {
	return errors.New(errors.CodeConfigInvalid,
		fmt.Sprintf("%s: got %v, want %s", key, got, want), nil)
}
