package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"slotter/pkg/logger"
	"slotter/pkg/ratelimit"

	"github.com/julienschmidt/httprouter"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard, Service: "test"})
}

func newTestRouter(t *testing.T, limit int) (*httprouter.Router, *ratelimit.MemoryStore) {
	t.Helper()

	registry := ratelimit.NewRegistry()
	policy := ratelimit.Policy{Name: "reservation-write", Limit: limit, Window: time.Minute, Segments: 12}
	if err := registry.Register(http.MethodPost, "/api/v1/bookings", policy); err != nil {
		t.Fatalf("register policy: %v", err)
	}

	store := ratelimit.NewMemoryStore(time.Hour)
	rl := NewRateLimit(ratelimit.NewLimiter(registry, store), testLogger())

	router := httprouter.New()
	handle := func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusCreated)
	}
	router.POST("/api/v1/bookings", rl.Wrap(http.MethodPost, "/api/v1/bookings", handle))
	router.GET("/api/v1/slots", rl.Wrap(http.MethodGet, "/api/v1/slots", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	}))

	return router, store
}

func doRequest(router *httprouter.Router, method, path, subject string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "203.0.113.7:51234"
	if subject != "" {
		req.Header.Set(SubjectHeader, subject)
	}
	rec := httptest.NewRecorder()

	var handler http.Handler = router
	handler = SubjectExtraction()(handler)
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_QuotaHeadersOnSuccess(t *testing.T) {
	router, store := newTestRouter(t, 20)
	defer store.Stop()

	rec := doRequest(router, http.MethodPost, "/api/v1/bookings", "user-1")

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "20" {
		t.Errorf("expected limit header 20, got %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "19" {
		t.Errorf("expected remaining header 19, got %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Policy"); got != "reservation-write" {
		t.Errorf("expected policy header, got %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Operation"); got != "write" {
		t.Errorf("expected operation header write, got %q", got)
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Errorf("expected reset header")
	}
}

func TestRateLimit_RemainingDecreasesThenRejects(t *testing.T) {
	router, store := newTestRouter(t, 20)
	defer store.Stop()

	for i := 0; i < 10; i++ {
		rec := doRequest(router, http.MethodPost, "/api/v1/bookings", "user-1")
		if rec.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i, rec.Code)
		}
		want := strconv.Itoa(20 - i - 1)
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != want {
			t.Errorf("request %d: expected remaining %s, got %s", i, want, got)
		}
	}

	for i := 0; i < 10; i++ {
		doRequest(router, http.MethodPost, "/api/v1/bookings", "user-1")
	}

	rec := doRequest(router, http.MethodPost, "/api/v1/bookings", "user-1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	var reject RateLimitReject
	if err := json.Unmarshal(rec.Body.Bytes(), &reject); err != nil {
		t.Fatalf("decode reject payload: %v", err)
	}
	if reject.Kind != RejectKind {
		t.Errorf("expected kind %q, got %q", RejectKind, reject.Kind)
	}
	if reject.Policy != "reservation-write" {
		t.Errorf("expected policy name, got %q", reject.Policy)
	}
	if reject.RetryAfterSeconds <= 0 {
		t.Errorf("expected positive retryAfterSeconds, got %d", reject.RetryAfterSeconds)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Errorf("expected Retry-After header")
	}
}

func TestRateLimit_AnonymousFallsBackToAddress(t *testing.T) {
	router, store := newTestRouter(t, 1)
	defer store.Stop()

	if rec := doRequest(router, http.MethodPost, "/api/v1/bookings", ""); rec.Code != http.StatusCreated {
		t.Fatalf("expected first anonymous request admitted, got %d", rec.Code)
	}
	if rec := doRequest(router, http.MethodPost, "/api/v1/bookings", ""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected second anonymous request rejected, got %d", rec.Code)
	}

	// An authenticated caller from the same address has its own bucket.
	if rec := doRequest(router, http.MethodPost, "/api/v1/bookings", "user-1"); rec.Code != http.StatusCreated {
		t.Errorf("authenticated caller must not share the anonymous bucket, got %d", rec.Code)
	}
}

func TestRateLimit_UngovernedRouteHasNoQuota(t *testing.T) {
	router, store := newTestRouter(t, 1)
	defer store.Stop()

	rec := doRequest(router, http.MethodGet, "/api/v1/slots", "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "" {
		t.Errorf("ungoverned route must not carry quota headers")
	}
}

func TestRateLimitIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.4:9999"
	if got := RateLimitIdentity(req); got != "ip:198.51.100.4" {
		t.Errorf("expected address identity, got %q", got)
	}

	req.Header.Set(SubjectHeader, "user-9")
	rec := httptest.NewRecorder()
	SubjectExtraction()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := RateLimitIdentity(r); got != "sub:user-9" {
			t.Errorf("expected subject identity, got %q", got)
		}
	})).ServeHTTP(rec, req)
}
