package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/beaconkit/beacon/pkg/logline"
)

func sampleEntries() []logline.Entry {
	return []logline.Entry{
		{
			Timestamp: time.Date(2026, 2, 11, 9, 15, 4, 0, time.UTC),
			Level:     "INFO",
			Package:   "http.server",
			Message:   "request completed",
		},
		{
			Timestamp: time.Date(2026, 2, 12, 1, 0, 0, 0, time.UTC),
			Level:     "ERROR",
			Package:   "worker",
			Message:   "job failed",
		},
	}
}

func TestElasticsearchSinkBulkFormat(t *testing.T) {
	var gotPath, gotContentType string
	var gotBody []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		scanner := bufio.NewScanner(r.Body)
		for scanner.Scan() {
			gotBody = append(gotBody, scanner.Text())
		}
		w.Write([]byte(`{"errors":false}`))
	}))
	defer srv.Close()

	sink := NewElasticsearchSink(srv.URL, "beacon")
	if err := sink.Write(context.Background(), sampleEntries()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if gotPath != "/_bulk" {
		t.Errorf("expected /_bulk, got %s", gotPath)
	}
	if gotContentType != "application/x-ndjson" {
		t.Errorf("expected ndjson content type, got %s", gotContentType)
	}
	if len(gotBody) != 4 {
		t.Fatalf("expected 4 NDJSON lines (2 actions, 2 docs), got %d", len(gotBody))
	}

	// Action line carries the daily index and a document ID
	var action map[string]map[string]string
	if err := json.Unmarshal([]byte(gotBody[0]), &action); err != nil {
		t.Fatalf("unmarshal action: %v", err)
	}
	if action["index"]["_index"] != "beacon-2026.02.11" {
		t.Errorf("expected daily index beacon-2026.02.11, got %s", action["index"]["_index"])
	}
	if action["index"]["_id"] == "" {
		t.Errorf("expected generated document id")
	}

	// Second entry lands in the next day's index
	if err := json.Unmarshal([]byte(gotBody[2]), &action); err != nil {
		t.Fatalf("unmarshal second action: %v", err)
	}
	if action["index"]["_index"] != "beacon-2026.02.12" {
		t.Errorf("expected daily index beacon-2026.02.12, got %s", action["index"]["_index"])
	}

	if !strings.Contains(gotBody[1], `"level":"INFO"`) {
		t.Errorf("expected document body, got %s", gotBody[1])
	}
}

func TestElasticsearchSinkItemFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":true}`))
	}))
	defer srv.Close()

	sink := NewElasticsearchSink(srv.URL, "beacon")
	if err := sink.Write(context.Background(), sampleEntries()); err == nil {
		t.Fatal("expected error when bulk response reports failures")
	}
}

func TestElasticsearchSinkHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "red cluster", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sink := NewElasticsearchSink(srv.URL, "beacon")
	if err := sink.Write(context.Background(), sampleEntries()); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestElasticsearchSinkUnreachable(t *testing.T) {
	sink := NewElasticsearchSink("http://127.0.0.1:1", "beacon")
	if err := sink.Write(context.Background(), sampleEntries()); err == nil {
		t.Fatal("expected error for unreachable endpoint")
	}
}

func TestElasticsearchSinkEmptyBatch(t *testing.T) {
	sink := NewElasticsearchSink("http://127.0.0.1:1", "beacon")
	if err := sink.Write(context.Background(), nil); err != nil {
		t.Fatalf("empty batch should be a no-op, got %v", err)
	}
}
