package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestRoot(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(pinger{}, Stats{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "Bot is running" {
		t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	Handler(pinger{}, Stats{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	stats := Stats{
		QueueDepth:     func() int { return 3 },
		InFlight:       func() int { return 4 },
		ActivePomodoro: func() int { return 1 },
	}
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.org")
	rec := httptest.NewRecorder()
	Handler(pinger{}, stats).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("expected CORS header, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	var st status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Status != "ok" || st.DB != "ok" || st.QueueDepth != 3 || st.InFlight != 4 || st.ActivePomodoro != 1 {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestHealthDatabaseDown(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(pinger{err: errors.New("database is locked")}, Stats{}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var st status
	_ = json.NewDecoder(rec.Body).Decode(&st)
	if st.Status != "degraded" || st.DB != "database is locked" {
		t.Errorf("unexpected status %+v", st)
	}
}
