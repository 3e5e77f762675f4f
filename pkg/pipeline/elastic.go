package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/beaconkit/beacon/pkg/errors"
	"github.com/beaconkit/beacon/pkg/logline"
)

// ElasticsearchSink indexes entries through the _bulk API. Documents go
// to a daily index (<index>-YYYY.MM.DD) with generated IDs, matching
// the naming convention the rest of the log tooling expects.
type ElasticsearchSink struct {
	baseURL string
	index   string
	client  *http.Client
}

// NewElasticsearchSink creates a sink for the given base URL (for
// example http://localhost:9200) and index prefix.
func NewElasticsearchSink(baseURL, index string) *ElasticsearchSink {
	return &ElasticsearchSink{
		baseURL: strings.TrimRight(baseURL, "/"),
		index:   index,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *ElasticsearchSink) Name() string { return "elasticsearch" }

func (s *ElasticsearchSink) Write(ctx context.Context, entries []logline.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var body bytes.Buffer
	for _, e := range entries {
		action := map[string]map[string]string{
			"index": {
				"_index": dailyIndex(s.index, e.Timestamp),
				"_id":    uuid.NewString(),
			},
		}
		actionLine, err := json.Marshal(action)
		if err != nil {
			return errors.New(errors.CodeSinkFailure, "failed to encode bulk action", err)
		}
		doc, err := json.Marshal(e)
		if err != nil {
			return errors.New(errors.CodeSinkFailure, "failed to encode entry", err)
		}
		body.Write(actionLine)
		body.WriteByte('\n')
		body.Write(doc)
		body.WriteByte('\n')
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/_bulk", &body)
	if err != nil {
		return errors.New(errors.CodeSinkFailure, "failed to build bulk request", err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.New(errors.CodeCollectorUnreachable, "bulk request failed", err).
			WithAttribute("url", s.baseURL).
			WithRecoverable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.New(errors.CodeSinkFailure,
			fmt.Sprintf("bulk request returned %d: %s", resp.StatusCode, payload), nil).
			WithRecoverable(resp.StatusCode >= 500)
	}

	var result struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return errors.New(errors.CodeSinkFailure, "failed to decode bulk response", err)
	}
	if result.Errors {
		return errors.New(errors.CodeSinkFailure, "bulk response reported item failures", nil).
			WithRecoverable(true)
	}
	return nil
}

func (s *ElasticsearchSink) Close() error { return nil }

func dailyIndex(prefix string, t time.Time) string {
	return fmt.Sprintf("%s-%s", prefix, t.UTC().Format("2006.01.02"))
}
