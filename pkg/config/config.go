package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/beaconkit/beacon/pkg/errors"
)

type Config struct {
	Metrics  MetricsConfig  `koanf:"metrics"`
	Tracing  TracingConfig  `koanf:"tracing"`
	Log      LogConfig      `koanf:"log"`
	Pipeline PipelineConfig `koanf:"pipeline"`
}

// MetricsConfig controls the pull-based metrics endpoint.
type MetricsConfig struct {
	Enabled      bool   `koanf:"enabled"`
	Provider     string `koanf:"provider"` // prometheus, otlp, stdout
	Registry     string `koanf:"registry"`
	Port         int    `koanf:"port"`
	Host         string `koanf:"host"`
	Descriptions bool   `koanf:"descriptions"`
	Step         string `koanf:"step"` // ISO-8601 duration, e.g. PT1M
	OTLPEndpoint string `koanf:"otlp_endpoint"`
}

// TracingConfig controls span reporting.
type TracingConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Tracer        string        `koanf:"tracer"` // jaeger, zipkin, stdout
	Sampler       SamplerConfig `koanf:"sampler"`
	FlushInterval string        `koanf:"flush_interval"`
	BufferSize    int           `koanf:"buffer_size"`
	Jaeger        JaegerConfig  `koanf:"jaeger"`
	Zipkin        ZipkinConfig  `koanf:"zipkin"`
}

// SamplerConfig selects which spans are recorded and reported.
// Param meaning depends on Type: const treats any non-zero value as
// "always", probabilistic is a fraction in [0,1], ratelimiting is
// spans per second.
type SamplerConfig struct {
	Type  string  `koanf:"type"` // const, probabilistic, ratelimiting
	Param float64 `koanf:"param"`
}

type JaegerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type ZipkinConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // text, json, classic
}

// PipelineConfig controls the log shipping pipeline.
type PipelineConfig struct {
	Enabled       bool                `koanf:"enabled"`
	Source        string              `koanf:"source"` // log file to follow
	Sink          string              `koanf:"sink"`   // stdout, elasticsearch, sqlite
	BatchSize     int                 `koanf:"batch_size"`
	FlushInterval string              `koanf:"flush_interval"`
	Elasticsearch ElasticsearchConfig `koanf:"elasticsearch"`
	SQLite        SQLiteConfig        `koanf:"sqlite"`
}

type ElasticsearchConfig struct {
	URL   string `koanf:"url"`
	Index string `koanf:"index"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// Global k instance
var k = koanf.New(".")

func setDefaults() {
	k.Set("metrics.enabled", false)
	k.Set("metrics.provider", "prometheus")
	k.Set("metrics.registry", "prometheus")
	k.Set("metrics.port", 9797)
	k.Set("metrics.host", "0.0.0.0")
	k.Set("metrics.descriptions", true)
	k.Set("metrics.step", "PT1M")
	k.Set("metrics.otlp_endpoint", "localhost:4317")

	k.Set("tracing.enabled", false)
	k.Set("tracing.tracer", "jaeger")
	k.Set("tracing.sampler.type", "const")
	k.Set("tracing.sampler.param", 1.0)
	k.Set("tracing.flush_interval", "1s")
	k.Set("tracing.buffer_size", 1000)
	k.Set("tracing.jaeger.host", "localhost")
	k.Set("tracing.jaeger.port", 4317)
	k.Set("tracing.zipkin.host", "localhost")
	k.Set("tracing.zipkin.port", 9411)

	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("pipeline.enabled", false)
	k.Set("pipeline.source", "")
	k.Set("pipeline.sink", "stdout")
	k.Set("pipeline.batch_size", 500)
	k.Set("pipeline.flush_interval", "5s")
	k.Set("pipeline.elasticsearch.url", "http://localhost:9200")
	k.Set("pipeline.elasticsearch.index", "beacon")
	k.Set("pipeline.sqlite.path", "beacon-logs.db")
}

func Load(path string) (*Config, error) {
	setDefaults()

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (BEACON_TRACING_TRACER -> tracing.tracer)
	if err := k.Load(env.Provider("BEACON_", ".", envKey), nil); err != nil {
		return nil, err
	}

	return unmarshal()
}

// envKey maps BEACON_PIPELINE_BATCH_SIZE to pipeline.batch_size.
// Underscores separate path segments, but multi-word leaf keys keep
// theirs, so those are restored after the blanket replacement.
func envKey(s string) string {
	key := strings.ReplaceAll(strings.ToLower(
		strings.TrimPrefix(s, "BEACON_")), "_", ".")
	for _, leaf := range []string{"flush_interval", "batch_size", "buffer_size", "otlp_endpoint"} {
		key = strings.ReplaceAll(key, strings.ReplaceAll(leaf, "_", "."), leaf)
	}
	return key
}

func unmarshal() (*Config, error) {
	// The observability toggle, when present, forces metrics and tracing
	// together regardless of their individual enabled flags.
	if k.Exists("observability.enabled") {
		v := k.Bool("observability.enabled")
		k.Set("metrics.enabled", v)
		k.Set("tracing.enabled", v)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithCLI loads configuration applying CLI arguments on top of file
// and environment sources. Recognized arguments:
//
//	--config <path>           config file to load
//	--set key=value           override a single key
//	--observability[=bool]    enable or disable metrics and tracing together
func LoadWithCLI(args []string) (*Config, error) {
	path, overrides, err := parseCLIOverrides(args)
	if err != nil {
		return nil, err
	}

	setDefaults()

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("BEACON_", ".", envKey), nil); err != nil {
		return nil, err
	}

	for key, value := range overrides {
		k.Set(key, value)
	}

	return unmarshal()
}

func parseCLIOverrides(args []string) (string, map[string]interface{}, error) {
	path := ""
	overrides := make(map[string]interface{})

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config":
			if i+1 >= len(args) {
				return "", nil, errors.New(errors.CodeConfigInvalid, "--config requires a path", nil)
			}
			i++
			path = args[i]

		case strings.HasPrefix(arg, "--config="):
			path = strings.TrimPrefix(arg, "--config=")
			if path == "" {
				return "", nil, errors.New(errors.CodeConfigInvalid, "--config requires a path", nil)
			}

		case arg == "--set":
			if i+1 >= len(args) {
				return "", nil, errors.New(errors.CodeConfigInvalid, "--set requires key=value", nil)
			}
			i++
			key, value, ok := strings.Cut(args[i], "=")
			if !ok || key == "" {
				return "", nil, errors.New(errors.CodeConfigInvalid,
					fmt.Sprintf("invalid --set argument %q", args[i]), nil)
			}
			overrides[key] = coerceValue(value)

		case strings.HasPrefix(arg, "--set="):
			kv := strings.TrimPrefix(arg, "--set=")
			key, value, ok := strings.Cut(kv, "=")
			if !ok || key == "" {
				return "", nil, errors.New(errors.CodeConfigInvalid,
					fmt.Sprintf("invalid --set argument %q", kv), nil)
			}
			overrides[key] = coerceValue(value)

		case arg == "--observability":
			overrides["observability.enabled"] = true

		case strings.HasPrefix(arg, "--observability="):
			v := strings.TrimPrefix(arg, "--observability=")
			switch v {
			case "true", "1", "on":
				overrides["observability.enabled"] = true
			case "false", "0", "off":
				overrides["observability.enabled"] = false
			default:
				return "", nil, errors.New(errors.CodeConfigInvalid,
					fmt.Sprintf("invalid --observability value %q", v), nil)
			}

		default:
			return "", nil, errors.New(errors.CodeConfigInvalid,
				fmt.Sprintf("unknown configuration argument %q", arg), nil)
		}
	}

	return path, overrides, nil
}

// coerceValue turns CLI string values into their natural types so that
// koanf overrides agree with the typed defaults.
func coerceValue(s string) interface{} {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err == nil && fmt.Sprintf("%d", i) == s {
		return i
	}
	var f float64
	if _, err := fmt.Sscanf(s, "%g", &f); err == nil {
		if strings.ContainsAny(s, ".eE") {
			return f
		}
	}
	return s
}
