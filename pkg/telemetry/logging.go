// Copyright 2026 © The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/beaconkit/beacon/pkg/logline"
)

// ConfigureSlog sets the global slog logger with trace-aware attributes.
// Format "classic" emits the line grammar the shipping pipeline parses;
// "json" and "text" use the standard slog handlers.
func ConfigureSlog(output io.Writer, level, format string) *slog.Logger {
	handler := newSlogHandler(output, level, format)
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func newSlogHandler(output io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}
	var base slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		base = slog.NewJSONHandler(output, opts)
	case "classic":
		base = newClassicHandler(output, opts.Level)
	default:
		base = slog.NewTextHandler(output, opts)
	}
	return &traceHandler{next: base}
}

type traceHandler struct {
	next slog.Handler
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *traceHandler) Handle(ctx context.Context, record slog.Record) error {
	traceID, spanID := spanIDsFromContext(ctx)
	if traceID != "" && !recordHasAttr(record, "trace_id") {
		record.AddAttrs(slog.String("trace_id", traceID))
	}
	if spanID != "" && !recordHasAttr(record, "span_id") {
		record.AddAttrs(slog.String("span_id", spanID))
	}
	return h.next.Handle(ctx, record)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{next: h.next.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{next: h.next.WithGroup(name)}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func spanIDsFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	span := trace.SpanFromContext(ctx)
	if span == nil {
		return "", ""
	}
	sc := span.SpanContext()
	if !sc.IsValid() {
		return "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String()
}

func recordHasAttr(record slog.Record, key string) bool {
	found := false
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			found = true
			return false
		}
		return true
	})
	return found
}

// classicHandler writes records in the pipeline's line grammar:
//
//	<ISO8601 timestamp> <LEVEL> [<package>] - <message>
//
// The package field comes from a "logger" attribute or the handler's
// group chain; remaining attributes are appended to the message as
// key=value pairs.
type classicHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Leveler
	logger string
	attrs  []slog.Attr
}

func newClassicHandler(out io.Writer, level slog.Leveler) *classicHandler {
	return &classicHandler{
		mu:     &sync.Mutex{},
		out:    out,
		level:  level,
		logger: "app",
	}
}

func (h *classicHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *classicHandler) Handle(_ context.Context, record slog.Record) error {
	logger := h.logger
	var pairs []string

	appendAttr := func(attr slog.Attr) bool {
		if attr.Key == "logger" {
			logger = attr.Value.String()
			return true
		}
		pairs = append(pairs, fmt.Sprintf("%s=%v", attr.Key, attr.Value))
		return true
	}
	for _, attr := range h.attrs {
		appendAttr(attr)
	}
	record.Attrs(appendAttr)

	message := record.Message
	if len(pairs) > 0 {
		message = message + " " + strings.Join(pairs, " ")
	}

	line := logline.Format(logline.Entry{
		Timestamp: record.Time,
		Level:     classicLevel(record.Level),
		Package:   logger,
		Message:   message,
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, line+"\n")
	return err
}

func (h *classicHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *classicHandler) WithGroup(name string) slog.Handler {
	next := *h
	if name != "" {
		if h.logger == "app" {
			next.logger = name
		} else {
			next.logger = h.logger + "." + name
		}
	}
	return &next
}

func classicLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
