// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/beaconkit/beacon/pkg/config"
)

type checkResult struct {
	ConfigValid bool          `json:"config_valid"`
	ConfigError string        `json:"config_error,omitempty"`
	Probes      []probeResult `json:"probes"`
}

type probeResult struct {
	Target    string `json:"target"`
	Address   string `json:"address"`
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// runCheck validates the loaded configuration and probes every
// collector endpoint the config points at.
func runCheck(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	ensureNoArgs(args)

	result := checkResult{ConfigValid: true}
	if err := cfg.Validate(); err != nil {
		result.ConfigValid = false
		result.ConfigError = err.Error()
	}

	if result.ConfigValid {
		result.Probes = probeCollectors(ctx, global, cfg)
	}

	if global.JSON {
		writeJSONLine(os.Stdout, result)
	} else {
		printCheckTable(result)
	}

	if !result.ConfigValid {
		os.Exit(1)
	}
	for _, probe := range result.Probes {
		if !probe.Reachable {
			os.Exit(1)
		}
	}
}

func probeCollectors(ctx context.Context, global globalFlags, cfg *config.Config) []probeResult {
	var probes []probeResult

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Tracer {
		case "jaeger":
			addr := net.JoinHostPort(cfg.Tracing.Jaeger.Host, strconv.Itoa(cfg.Tracing.Jaeger.Port))
			probes = append(probes, probeGRPC(ctx, "jaeger", addr, global.Timeout))
		case "zipkin":
			addr := net.JoinHostPort(cfg.Tracing.Zipkin.Host, strconv.Itoa(cfg.Tracing.Zipkin.Port))
			probes = append(probes, probeHTTP(ctx, "zipkin",
				fmt.Sprintf("http://%s/api/v2/spans", addr), global.Timeout))
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Provider == "otlp" {
		probes = append(probes, probeGRPC(ctx, "otlp-metrics", cfg.Metrics.OTLPEndpoint, global.Timeout))
	}

	if cfg.Pipeline.Enabled && cfg.Pipeline.Sink == "elasticsearch" {
		probes = append(probes, probeHTTP(ctx, "elasticsearch", cfg.Pipeline.Elasticsearch.URL, global.Timeout))
	}

	return probes
}

// probeGRPC dials the OTLP endpoint and waits for the connection to
// become ready. Jaeger accepts OTLP natively, so a ready channel means
// spans will land.
func probeGRPC(ctx context.Context, target, addr string, timeout time.Duration) probeResult {
	probe := probeResult{Target: target, Address: addr}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := grpc.DialContext(dialCtx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock())
	probe.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			probe.Error = WrapTimeoutError(err, target+" probe").Error()
		} else {
			probe.Error = WrapCollectorError(err, target, addr).Error()
		}
		return probe
	}
	_ = conn.Close()
	probe.Reachable = true
	return probe
}

func probeHTTP(ctx context.Context, target, rawURL string, timeout time.Duration) probeResult {
	probe := probeResult{Target: target, Address: rawURL}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, rawURL, nil)
	if err != nil {
		probe.Error = err.Error()
		return probe
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	probe.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			probe.Error = WrapTimeoutError(err, target+" probe").Error()
		} else {
			probe.Error = WrapCollectorError(err, target, rawURL).Error()
		}
		return probe
	}
	defer resp.Body.Close()

	// Any HTTP response means the collector is listening; 405 on HEAD
	// is common for bulk-only endpoints.
	probe.Reachable = true
	return probe
}

func printCheckTable(result checkResult) {
	if !result.ConfigValid {
		fmt.Printf("config: INVALID\n  %s\n", result.ConfigError)
		return
	}
	fmt.Println("config: OK")

	if len(result.Probes) == 0 {
		fmt.Println("no collectors configured")
		return
	}

	writer := newTabWriter()
	writeRow(writer, "TARGET", "ADDRESS", "REACHABLE", "LATENCY", "ERROR")
	for _, probe := range result.Probes {
		writeRow(writer,
			probe.Target,
			probe.Address,
			strconv.FormatBool(probe.Reachable),
			fmt.Sprintf("%dms", probe.LatencyMS),
			probe.Error)
	}
	_ = writer.Flush()
}
