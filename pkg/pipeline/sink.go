// SPDX-License-Identifier: Apache-2.0
// Package pipeline ships parsed log entries from a tailed file to a
// sink: stdout, an Elasticsearch index, or a local SQLite database.
package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/beaconkit/beacon/pkg/errors"
	"github.com/beaconkit/beacon/pkg/logline"
)

// Sink receives batches of parsed log entries.
type Sink interface {
	// Name identifies the sink in metrics and logs.
	Name() string

	// Write ships a batch. A non-nil error means the whole batch was
	// rejected.
	Write(ctx context.Context, entries []logline.Entry) error

	// Close releases sink resources after a final flush.
	Close() error
}

// StdoutSink writes entries as NDJSON, one document per line.
type StdoutSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewStdoutSink creates a sink writing NDJSON documents to out.
func NewStdoutSink(out io.Writer) *StdoutSink {
	return &StdoutSink{out: out}
}

func (s *StdoutSink) Name() string { return "stdout" }

func (s *StdoutSink) Write(ctx context.Context, entries []logline.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return errors.New(errors.CodeSinkFailure, "failed to encode entry", err)
		}
		if _, err := s.out.Write(append(data, '\n')); err != nil {
			return errors.New(errors.CodeSinkFailure, "failed to write entry", err)
		}
	}
	return nil
}

func (s *StdoutSink) Close() error { return nil }
