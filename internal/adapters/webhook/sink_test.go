package webhook_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gite_booking/internal/adapters/webhook"
	"gite_booking/internal/domain"
)

func TestSink_Record_RetriesThenSuccess(t *testing.T) {
	var hits int32
	var gotAction atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(502)
		default:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			gotAction.Store(body["action"])
			w.WriteHeader(204)
		}
	}))
	defer ts.Close()

	sink, err := webhook.New(ts.URL, 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	e := domain.AuditEvent{Action: "RESERVATION_CREATED", Entity: "RESERVATION", EntityID: 42, At: time.Now()}
	if err := sink.Record(ctx, e); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
	if a, _ := gotAction.Load().(string); a != "RESERVATION_CREATED" {
		t.Fatalf("unexpected action: %v", gotAction.Load())
	}
}

func TestSink_Record_ClientErrorNoRetry(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(400)
	}))
	defer ts.Close()

	sink, err := webhook.New(ts.URL, 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := sink.Record(ctx, domain.AuditEvent{Action: "X", Entity: "RESERVATION"}); err == nil {
		t.Fatalf("expected error for 400")
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("client errors must not retry, got %d calls", hits)
	}
}

func TestSink_New_RequiresURL(t *testing.T) {
	if _, err := webhook.New("", 5); err == nil {
		t.Fatalf("expected error for empty URL")
	}
}
