package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/api/tenants/{tenantID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tenants/"+id, nil))
	}

	got := counterValue(t, reg, "tenantdesk_http_requests_total", map[string]string{
		"route":  "/api/tenants/{tenantID}",
		"status": "403",
	})
	if got != 3 {
		t.Fatalf("expected 3 requests on one route label, got %v", got)
	}
}

func TestEventPublished(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.EventPublished("tenant.created", nil)
	c.EventPublished("tenant.created", errors.New("down"))
	c.EventPublished("tenant.created", errors.New("down"))

	if got := counterValue(t, reg, "tenantdesk_events_published_total", map[string]string{"outcome": "error"}); got != 2 {
		t.Fatalf("expected 2 failed publishes, got %v", got)
	}
	if got := counterValue(t, reg, "tenantdesk_events_published_total", map[string]string{"outcome": "ok"}); got != 1 {
		t.Fatalf("expected 1 successful publish, got %v", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := NewRegistry()
	c := NewCollector(reg)
	c.RateLimited()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "tenantdesk_rate_limited_total 1") {
		t.Fatalf("metrics output missing rate limit counter:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatalf("metrics output missing runtime collector")
	}
}
