package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/richbai90/mvcapture/internal/snapshot"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: "ok"},
		{err: fmt.Errorf("wrap: %w", snapshot.ErrNotReady), want: "not_ready"},
		{err: &snapshot.TransferError{Stage: "bulk read", Err: errors.New("eof")}, want: "incomplete"},
		{err: &snapshot.ChunkError{Attempts: 3, Err: errors.New("lost")}, want: "chunk_exhausted"},
		{err: &snapshot.FramingError{Reason: "size", Got: 3}, want: "framing"},
		{err: errors.New("other"), want: "error"},
	}

	for _, tc := range tests {
		if got := Outcome(tc.err); got != tc.want {
			t.Fatalf("%v: got %q want %q", tc.err, got, tc.want)
		}
	}
}

func TestObserveCountsEvents(t *testing.T) {
	RegisterMetrics()
	retriesBefore := testutil.ToFloat64(chunkRetries)
	okBefore := testutil.ToFloat64(fetches.WithLabelValues("chunked", "ok"))
	bytesBefore := testutil.ToFloat64(fetchBytes.WithLabelValues("chunked"))

	Observe(snapshot.Event{Kind: snapshot.EventRetry, Strategy: "chunked"})
	Observe(snapshot.Event{Kind: snapshot.EventDone, Strategy: "chunked", Size: 1000, Elapsed: time.Millisecond})

	if got := testutil.ToFloat64(chunkRetries) - retriesBefore; got != 1 {
		t.Fatalf("expected one chunk failure, got %v", got)
	}
	if got := testutil.ToFloat64(fetches.WithLabelValues("chunked", "ok")) - okBefore; got != 1 {
		t.Fatalf("expected one ok fetch, got %v", got)
	}
	if got := testutil.ToFloat64(fetchBytes.WithLabelValues("chunked")) - bytesBefore; got != 1000 {
		t.Fatalf("expected 1000 bytes, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordCapture(2*time.Second, true)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mvcapture_capture_total") {
		t.Fatalf("capture counter missing from exposition")
	}
}
