package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/beaconkit/beacon/pkg/logline"
)

func TestSQLiteSinkWriteAndCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.db")
	sink, err := NewSQLiteSink(path)
	if err != nil {
		t.Fatalf("NewSQLiteSink failed: %v", err)
	}
	defer sink.Close()

	ctx := context.Background()
	if err := sink.Write(ctx, sampleEntries()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	total, err := sink.Count(ctx, "")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 entries, got %d", total)
	}

	errorsOnly, err := sink.Count(ctx, "ERROR")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if errorsOnly != 1 {
		t.Errorf("expected 1 ERROR entry, got %d", errorsOnly)
	}
}

func TestSQLiteSinkReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.db")
	ctx := context.Background()

	sink, err := NewSQLiteSink(path)
	if err != nil {
		t.Fatalf("NewSQLiteSink failed: %v", err)
	}
	if err := sink.Write(ctx, sampleEntries()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopening must find the previous entries
	sink, err = NewSQLiteSink(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer sink.Close()

	total, err := sink.Count(ctx, "")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 entries after reopen, got %d", total)
	}
}

func TestSQLiteSinkEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.db")
	sink, err := NewSQLiteSink(path)
	if err != nil {
		t.Fatalf("NewSQLiteSink failed: %v", err)
	}
	defer sink.Close()

	if err := sink.Write(context.Background(), nil); err != nil {
		t.Fatalf("empty batch should be a no-op, got %v", err)
	}
}

func TestSQLiteSinkStoresMillis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.db")
	sink, err := NewSQLiteSink(path)
	if err != nil {
		t.Fatalf("NewSQLiteSink failed: %v", err)
	}
	defer sink.Close()

	ts := time.Date(2026, 2, 11, 9, 15, 4, 311_000_000, time.UTC)
	entry := logline.Entry{Timestamp: ts, Level: "INFO", Package: "app", Message: "m"}
	if err := sink.Write(context.Background(), []logline.Entry{entry}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var stored int64
	row := sink.db.QueryRow("SELECT ts FROM log_entries LIMIT 1")
	if err := row.Scan(&stored); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if stored != ts.UnixMilli() {
		t.Errorf("expected %d, got %d", ts.UnixMilli(), stored)
	}
}
