package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(r *Router, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_MethodRouting(t *testing.T) {
	r := New()
	r.Get("/api/bills/{token}", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(req.PathValue("token")))
	})
	r.Post("/api/checkout", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	r.Delete("/api/products/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	w := serve(r, http.MethodGet, "/api/bills/TX1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "TX1", w.Body.String(), "path value reaches the handler")

	assert.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/api/checkout").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodDelete, "/api/products/7").Code)

	// Wrong method on a registered pattern
	assert.Equal(t, http.StatusMethodNotAllowed, serve(r, http.MethodGet, "/api/checkout").Code)
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				order = append(order, "enter "+name)
				next.ServeHTTP(w, req)
				order = append(order, "leave "+name)
			})
		}
	}

	r := New(tag("global"))
	r.Get("/pay/return", func(w http.ResponseWriter, req *http.Request) {
		order = append(order, "handler")
	}, tag("route"))

	serve(r, http.MethodGet, "/pay/return")

	require.Equal(t, []string{
		"enter global",
		"enter route",
		"handler",
		"leave route",
		"leave global",
	}, order, "global middleware wraps route middleware wraps the handler")
}

func TestRouter_GroupInheritsChain(t *testing.T) {
	var seen []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				seen = append(seen, name)
				next.ServeHTTP(w, req)
			})
		}
	}

	r := New(tag("global"))
	admin := r.Group(tag("admin"))
	admin.Get("/api/catalogs/{id}/validate", func(w http.ResponseWriter, req *http.Request) {})

	// The group shares the parent mux, so the parent serves its routes.
	serve(r, http.MethodGet, "/api/catalogs/3/validate")
	assert.Equal(t, []string{"global", "admin"}, seen)

	// Routes on the parent do not pick up group middleware.
	seen = nil
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {})
	serve(r, http.MethodGet, "/health")
	assert.Equal(t, []string{"global"}, seen)
}

func TestRouter_HandleMountsPlainHandler(t *testing.T) {
	r := New()
	r.Handle(http.MethodGet, "/metrics", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/metrics").Code)
}
