package edge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"edge-gateway/middleware/edge/application"
	"edge-gateway/middleware/edge/domain"
	"edge-gateway/middleware/edge/infra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const (
	testOrigin = "http://localhost:3000"
	defaultCSP = "default-src 'self'; script-src 'self' 'unsafe-inline' 'unsafe-eval' https://*.googleapis.com https://*.gstatic.com; style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; img-src 'self' data:; connect-src 'self' https://*.firebaseio.com https://*.googleapis.com; font-src 'self' https://fonts.gstatic.com;"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	handler http.Handler
	store   *infra.MemoryWindowStore
	stats   *infra.MemoryStatsStore
	clock   *fakeClock
	calls   int
}

func newHarness(t *testing.T, max int64, cfg domain.PolicyConfig, tweak func(*Options)) *harness {
	t.Helper()
	policy, err := domain.NewPolicy(cfg)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}

	h := &harness{clock: &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}}
	h.store = infra.NewMemoryWindowStore(15*time.Minute, max, infra.WithClock(h.clock))
	h.stats = infra.NewMemoryStatsStore(infra.WithTrackIdentities(true))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.calls++
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})

	opts := Options{
		Gate:                application.Gate{Policy: policy, Store: h.store, Clock: h.clock},
		Stats:               h.stats,
		AddRateLimitHeaders: true,
	}
	if tweak != nil {
		tweak(&opts)
	}

	h.handler = SecurityHeaders(policy)(Middleware(opts)(next))
	return h
}

func (h *harness) do(method, path, origin, remote string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, "http://example"+path, nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	r.RemoteAddr = remote
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, r)
	return w
}

func assertSecurityHeaders(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	want := map[string]string{
		"X-Frame-Options":           "DENY",
		"X-Content-Type-Options":    "nosniff",
		"X-XSS-Protection":          "1; mode=block",
		"Referrer-Policy":           "strict-origin-when-cross-origin",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains; preload",
		"Content-Security-Policy":   defaultCSP,
	}
	for k, v := range want {
		if got := w.Header().Get(k); got != v {
			t.Fatalf("header %s: expected %q, got %q", k, v, got)
		}
	}
}

func TestMiddleware_EvilOriginRejectedWithoutCounter(t *testing.T) {
	h := newHarness(t, 100, domain.PolicyConfig{}, nil)

	w := h.do(http.MethodGet, "/api/data", "https://evil.example", "1.2.3.4:5555")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "CORS not allowed" {
		t.Fatalf("expected body %q, got %q", "CORS not allowed", got)
	}
	if _, ok := h.store.Snapshot("1.2.3.4"); ok {
		t.Fatalf("expected no counter mutation")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("expected no CORS headers for rejected origin")
	}
	assertSecurityHeaders(t, w)
	if h.calls != 0 {
		t.Fatalf("expected next handler not to be called")
	}
	if got := h.stats.Total().OriginRejected; got != 1 {
		t.Fatalf("expected 1 origin rejection recorded, got %d", got)
	}
}

func TestMiddleware_BlockedIPRateLimitFirstBillsCounter(t *testing.T) {
	h := newHarness(t, 100, domain.PolicyConfig{BlockedIPs: []string{"1.2.3.4"}}, func(o *Options) {
		o.Gate.Order = domain.OrderRateLimitFirst
	})

	w := h.do(http.MethodGet, "/api/data", testOrigin, "1.2.3.4:5555")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "Access denied" {
		t.Fatalf("expected body %q, got %q", "Access denied", got)
	}
	if st, ok := h.store.Snapshot("1.2.3.4"); !ok || st.Count != 1 {
		t.Fatalf("expected counter incremented to 1, got %+v", st)
	}
	assertSecurityHeaders(t, w)
}

func TestMiddleware_BlockedIPDefaultOrderIsNotBilled(t *testing.T) {
	h := newHarness(t, 100, domain.PolicyConfig{BlockedIPs: []string{"1.2.3.4"}}, nil)

	w := h.do(http.MethodGet, "/api/data", testOrigin, "1.2.3.4:5555")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if _, ok := h.store.Snapshot("1.2.3.4"); ok {
		t.Fatalf("expected blocked request not to be billed")
	}
	if w.Header().Get("RateLimit-Remaining") != "" {
		t.Fatalf("expected no rate limit headers without accounting")
	}
}

func TestMiddleware_RootPathAllowedWithoutCounter(t *testing.T) {
	h := newHarness(t, 100, domain.PolicyConfig{BlockedIPs: []string{"1.2.3.4"}}, nil)

	w := h.do(http.MethodGet, "/", testOrigin, "1.2.3.4:5555")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if h.store.Len() != 0 {
		t.Fatalf("expected counter untouched")
	}
	assertSecurityHeaders(t, w)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != testOrigin {
		t.Fatalf("expected allowed origin echoed, got %q", got)
	}
}

func TestMiddleware_RateLimitedResponse(t *testing.T) {
	h := newHarness(t, 2, domain.PolicyConfig{}, nil)

	for i := 0; i < 2; i++ {
		w := h.do(http.MethodGet, "/api/data", testOrigin, "10.0.0.1:1234")
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	h.clock.Advance(5 * time.Minute)
	w := h.do(http.MethodGet, "/api/data", testOrigin, "10.0.0.1:1234")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != domain.MessageRateLimited {
		t.Fatalf("unexpected body %q", got)
	}
	// janela de 15m, 5m já passados
	if got := w.Header().Get("Retry-After"); got != "600" {
		t.Fatalf("expected Retry-After=600, got %q", got)
	}
	if got := w.Header().Get("RateLimit-Remaining"); got != "0" {
		t.Fatalf("expected RateLimit-Remaining=0, got %q", got)
	}
	assertSecurityHeaders(t, w)
	if h.calls != 2 {
		t.Fatalf("expected next handler to be called twice, got %d", h.calls)
	}

	h.clock.Advance(10 * time.Minute)
	if w := h.do(http.MethodGet, "/api/data", testOrigin, "10.0.0.1:1234"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 after window elapsed, got %d", w.Code)
	}
}

func TestMiddleware_RateLimitHeaders(t *testing.T) {
	h := newHarness(t, 100, domain.PolicyConfig{}, nil)

	w := h.do(http.MethodGet, "/api/data", testOrigin, "10.0.0.1:1234")
	want := map[string]string{
		"RateLimit-Policy":    "100;w=900",
		"RateLimit-Limit":     "100",
		"RateLimit-Remaining": "99",
		"RateLimit-Reset":     "900",
	}
	for k, v := range want {
		if got := w.Header().Get(k); got != v {
			t.Fatalf("header %s: expected %q, got %q", k, v, got)
		}
	}
}

func TestMiddleware_RateLimitHeadersOff(t *testing.T) {
	h := newHarness(t, 100, domain.PolicyConfig{}, func(o *Options) { o.AddRateLimitHeaders = false })

	w := h.do(http.MethodGet, "/api/data", testOrigin, "10.0.0.1:1234")
	if w.Header().Get("RateLimit-Limit") != "" {
		t.Fatalf("expected no RateLimit headers")
	}
}

func TestMiddleware_PreflightAnsweredAfterGate(t *testing.T) {
	h := newHarness(t, 100, domain.PolicyConfig{}, nil)

	r := httptest.NewRequest(http.MethodOptions, "http://example/api/data", nil)
	r.Header.Set("Origin", testOrigin)
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	r.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, DELETE, OPTIONS" {
		t.Fatalf("unexpected allow methods %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization" {
		t.Fatalf("unexpected allow headers %q", got)
	}
	if h.calls != 0 {
		t.Fatalf("expected preflight not to reach next handler")
	}
	assertSecurityHeaders(t, w)
}

func TestMiddleware_IdentityFromTrustedForwardedFor(t *testing.T) {
	h := newHarness(t, 1, domain.PolicyConfig{}, func(o *Options) { o.TrustXForwardedFor = true })

	r := httptest.NewRequest(http.MethodGet, "http://example/api/data", nil)
	r.Header.Set("Origin", testOrigin)
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.2")
	r.RemoteAddr = "10.0.0.9:5555"
	h.handler.ServeHTTP(httptest.NewRecorder(), r)

	if _, ok := h.store.Snapshot("1.2.3.4"); !ok {
		t.Fatalf("expected window keyed by first forwarded ip")
	}
}

type failingStore struct{}

func (failingStore) Hit(_ context.Context, _ domain.Identity, _ time.Time) (domain.WindowState, error) {
	return domain.WindowState{}, errors.New("store down")
}

func TestMiddleware_StoreFailureStillServes(t *testing.T) {
	h := newHarness(t, 1, domain.PolicyConfig{}, func(o *Options) { o.Gate.Store = failingStore{} })

	for i := 0; i < 3; i++ {
		if w := h.do(http.MethodGet, "/api/data", testOrigin, "10.0.0.1:1234"); w.Code != http.StatusOK {
			t.Fatalf("expected 200 with failing store, got %d", w.Code)
		}
	}
}

func TestMiddleware_StatsLabelsStayBoundedUnderHostileTraffic(t *testing.T) {
	reg := prometheus.NewRegistry()
	prom := infra.NewPrometheusStats(reg)
	h := newHarness(t, 100, domain.PolicyConfig{}, nil)
	h.handler = SecurityHeaders(mustTestPolicy(t))(Middleware(Options{
		Gate:  application.Gate{Policy: mustTestPolicy(t), Store: h.store, Clock: h.clock},
		Stats: infra.FanoutStats{prom, h.stats},
	})(http.NotFoundHandler()))

	for i := 0; i < 500; i++ {
		r := httptest.NewRequest(fmt.Sprintf("M%d", i), fmt.Sprintf("http://example/x/%d", i), nil)
		r.Header.Set("Origin", "https://evil.example")
		r.RemoteAddr = "10.0.0.1:1234"
		h.handler.ServeHTTP(httptest.NewRecorder(), r)
	}
	h.do(http.MethodGet, "/api/data/42", testOrigin, "10.0.0.1:1234")

	series, err := testutil.GatherAndCount(reg, "edge_gate_decisions_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if series != 2 {
		t.Fatalf("expected 2 series (other + GET), got %d", series)
	}
	routes := h.stats.ByRoute()
	if len(routes) != 2 {
		t.Fatalf("expected 2 route entries, got %d: %v", len(routes), routes)
	}
	if got := routes["other other"].OriginRejected; got != 500 {
		t.Fatalf("expected 500 rejections under other, got %d", got)
	}
	if got := routes["GET /api"].Allowed; got != 1 {
		t.Fatalf("expected api request under its prefix, got %+v", routes)
	}
}

func mustTestPolicy(t *testing.T) *domain.Policy {
	t.Helper()
	p, err := domain.NewPolicy(domain.PolicyConfig{})
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	return p
}
