package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"bilancio/internal/log"
)

func TestMiddleware_RequestID(t *testing.T) {
	m := NewMiddleware(nil, nil)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		if log.FromContext(r.Context()).Component() != log.ComponentHTTP {
			t.Errorf("request logger missing from context")
		}
		w.WriteHeader(http.StatusCreated)
	}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"caller id kept", "abc-123_X", true},
		{"invalid characters replaced", "bad id!", false},
		{"too long replaced", strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/expenses", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(HeaderRequestID)
			if got != seen {
				t.Fatalf("header %q differs from context id %q", got, seen)
			}
			if tt.keep && got != tt.incoming {
				t.Fatalf("expected %q to be kept, got %q", tt.incoming, got)
			}
			if !tt.keep && !strings.HasPrefix(got, "req_") {
				t.Fatalf("expected generated id, got %q", got)
			}
			if rec.Code != http.StatusCreated {
				t.Fatalf("status = %d", rec.Code)
			}
		})
	}

	if m.GetMetrics().TotalRequests != int64(len(tests)) {
		t.Fatalf("unexpected metrics %+v", m.GetMetrics())
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
}

func TestMiddleware_ConcurrentMetrics(t *testing.T) {
	m := NewMiddleware(nil, nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Millisecond)
	}))

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
			}
		}()
	}
	wg.Wait()

	got := m.GetMetrics()
	if got.TotalRequests != workers*perWorker {
		t.Fatalf("expected %d requests, got %d", workers*perWorker, got.TotalRequests)
	}
	if got.AverageResponseTime < 1000 {
		t.Fatalf("every request slept 1ms, average is %dus", got.AverageResponseTime)
	}
}
