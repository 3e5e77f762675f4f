package telemetry

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	zipkinexporter "go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/beaconkit/beacon/pkg/config"
	"github.com/beaconkit/beacon/pkg/errors"
)

// ShutdownFunc is a function that cleans up telemetry resources.
type ShutdownFunc func(context.Context) error

// Init initializes metrics and tracing according to the configuration.
// Disabled pillars are skipped entirely; the returned shutdown function
// flushes and stops whatever was started. After Init returns, spans and
// instruments created through otel.Tracer and otel.Meter are live.
func Init(ctx context.Context, serviceName, version string, cfg *config.Config) (ShutdownFunc, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var shutdownFuncs []ShutdownFunc
	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdownFuncs {
			if err := fn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("telemetry shutdown errors: %v", errs)
		}
		return nil
	}

	if cfg.Tracing.Enabled {
		tp, err := initTracer(ctx, cfg.Tracing, res)
		if err != nil {
			return nil, err
		}
		otel.SetTracerProvider(tp)
		shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	}

	if cfg.Metrics.Enabled {
		mp, stop, err := initMeter(ctx, cfg.Metrics, res)
		if err != nil {
			_ = shutdown(ctx)
			return nil, err
		}
		otel.SetMeterProvider(mp)
		shutdownFuncs = append(shutdownFuncs, mp.Shutdown)
		if stop != nil {
			shutdownFuncs = append(shutdownFuncs, stop)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return shutdown, nil
}

func initTracer(ctx context.Context, cfg config.TracingConfig, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter
	var endpoint string
	var err error

	switch cfg.Tracer {
	case "jaeger":
		// Jaeger accepts OTLP natively (since Jaeger 1.35); the reporter
		// host/port point at its OTLP gRPC receiver.
		endpoint = net.JoinHostPort(cfg.Jaeger.Host, strconv.Itoa(cfg.Jaeger.Port))
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
	case "zipkin":
		endpoint = fmt.Sprintf("http://%s/api/v2/spans", net.JoinHostPort(cfg.Zipkin.Host, strconv.Itoa(cfg.Zipkin.Port)))
		exporter, err = zipkinexporter.New(endpoint)
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("unknown tracer %q", cfg.Tracer), nil)
	}
	if err != nil {
		return nil, errors.New(errors.CodeExporterInit, "failed to create trace exporter", err).
			WithAttribute("tracer", cfg.Tracer)
	}

	sampler, err := NewSampler(cfg.Sampler)
	if err != nil {
		return nil, err
	}

	// Spans carry the reporter identity so backends can tell which
	// exporter and sampler produced them.
	res, err = resource.Merge(res, resource.NewSchemaless(
		TracerAttributes(cfg.Tracer, cfg.Sampler.Type, endpoint)...))
	if err != nil {
		return nil, errors.New(errors.CodeExporterInit, "failed to build trace resource", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(cfg.FlushDuration()),
			sdktrace.WithMaxQueueSize(cfg.BufferSize),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	return tp, nil
}

func initMeter(ctx context.Context, cfg config.MetricsConfig, res *resource.Resource) (*sdkmetric.MeterProvider, ShutdownFunc, error) {
	switch cfg.Provider {
	case "prometheus":
		return initPrometheus(cfg, res)

	case "otlp":
		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, nil, errors.New(errors.CodeExporterInit, "failed to create otlp metric exporter", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
				sdkmetric.WithInterval(cfg.StepDuration()))),
			sdkmetric.WithResource(res),
		)
		return mp, nil, nil

	case "stdout":
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, nil, errors.New(errors.CodeExporterInit, "failed to create stdout metric exporter", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
				sdkmetric.WithInterval(cfg.StepDuration()))),
			sdkmetric.WithResource(res),
		)
		return mp, nil, nil

	default:
		return nil, nil, errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("unknown metrics provider %q", cfg.Provider), nil)
	}
}

// initPrometheus wires the OTel prometheus exporter into a dedicated
// registry and serves it on the configured endpoint. The registry also
// carries Go runtime and process collectors so the scrape endpoint is
// useful before any application instrument reports.
func initPrometheus(cfg config.MetricsConfig, res *resource.Resource) (*sdkmetric.MeterProvider, ShutdownFunc, error) {
	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []promexporter.Option{
		promexporter.WithRegisterer(registry),
	}
	if cfg.Registry != "" && cfg.Registry != "prometheus" {
		opts = append(opts, promexporter.WithNamespace(cfg.Registry))
	}
	if !cfg.Descriptions {
		opts = append(opts,
			promexporter.WithoutScopeInfo(),
			promexporter.WithoutTargetInfo(),
		)
	}

	exporter, err := promexporter.New(opts...)
	if err != nil {
		return nil, nil, errors.New(errors.CodeExporterInit, "failed to create prometheus exporter", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, errors.New(errors.CodeExporterInit,
			fmt.Sprintf("failed to bind metrics endpoint %s", addr), err)
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		// http.ErrServerClosed is the normal shutdown path
		_ = server.Serve(listener)
	}()

	stop := func(ctx context.Context) error {
		return server.Shutdown(ctx)
	}
	return mp, stop, nil
}
