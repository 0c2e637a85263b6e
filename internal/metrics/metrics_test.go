package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareRecordsStatusAndPattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/items/{id}", http.StatusText(http.StatusTeapot)))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status 418, got %d", rr.Code)
	}

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/items/{id}", http.StatusText(http.StatusTeapot)))
	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, grew by %v", after-before)
	}
}

func TestStatusResponseWriterUnwrap(t *testing.T) {
	rr := httptest.NewRecorder()
	ww := &statusResponseWriter{ResponseWriter: rr, status: http.StatusOK}

	if err := http.NewResponseController(ww).Flush(); err != nil {
		t.Errorf("expected flush through wrapper, got %v", err)
	}
	if !rr.Flushed {
		t.Error("expected underlying recorder to be flushed")
	}
}

func TestModelCallCounts(t *testing.T) {
	before := testutil.ToFloat64(modelCallsTotal.WithLabelValues("caption", "error"))
	ModelCall("caption", "error", 0)
	after := testutil.ToFloat64(modelCallsTotal.WithLabelValues("caption", "error"))
	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, grew by %v", after-before)
	}
}
