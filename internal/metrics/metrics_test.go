package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"khaos-quiz-service/internal/domain"
)

type stubCompleter struct{ err error }

func (s stubCompleter) Complete(context.Context, []domain.Message, int) (domain.Message, error) {
	return domain.Message{Role: domain.RoleAssistant, Content: "ok"}, s.err
}

func TestInstrumentCompleter(t *testing.T) {
	m := New(prometheus.NewRegistry())

	ok := m.InstrumentCompleter(stubCompleter{})
	failing := m.InstrumentCompleter(stubCompleter{err: errors.New("down")})
	_, _ = ok.Complete(context.Background(), nil, 10)
	_, _ = ok.Complete(context.Background(), nil, 10)
	_, _ = failing.Complete(context.Background(), nil, 10)

	if got := testutil.ToFloat64(m.completions.WithLabelValues("success")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.completions.WithLabelValues("failure")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/quizzes/{id}/student", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/metrics", m.Handler().ServeHTTP)

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/quizzes/"+id+"/student", nil))
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("/quizzes/{id}/student", "404")); got != 2 {
		t.Fatalf("expected 2 requests on the pattern, got %v", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "quiz_http_requests_total") {
		t.Fatalf("metrics output missing request counter")
	}
}
