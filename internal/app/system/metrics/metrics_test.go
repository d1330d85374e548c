package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Enrolled("checkout", 3)
	m.LessonCompleted()
	m.Conflict()
	m.CacheLookup("hit")

	rec := httptest.NewRecorder()
	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}

func TestCounters(t *testing.T) {
	m := New()
	m.Enrolled("checkout", 3)
	m.Enrolled("purchase", 1)
	m.Enrolled("purchase", 0)
	m.LessonCompleted()
	m.Conflict()
	m.Conflict()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"checkout enrollments", testutil.ToFloat64(m.enrollments.WithLabelValues("checkout")), 3},
		{"purchase enrollments", testutil.ToFloat64(m.enrollments.WithLabelValues("purchase")), 1},
		{"lessons", testutil.ToFloat64(m.lessonsCompleted), 1},
		{"conflicts", testutil.ToFloat64(m.conflicts), 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/courses/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", m.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/courses/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/courses/def", nil))

	got := testutil.ToFloat64(m.requests.WithLabelValues("/api/courses/{id}", http.MethodGet, "204"))
	if got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "bayit_http_requests_total") {
		t.Errorf("exposition missing bayit_http_requests_total")
	}
}
