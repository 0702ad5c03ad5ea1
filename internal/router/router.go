// Package router is a thin layer over http.ServeMux adding middleware
// chains and per-route overrides. Patterns use the 1.22 mux syntax, so
// handlers read path parameters with r.PathValue.
package router

import (
	"net/http"
	"slices"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Router registers routes on a shared ServeMux, applying its chain to
// every handler it mounts.
type Router struct {
	mux   *http.ServeMux
	chain []Middleware
}

// New returns a Router whose chain runs, in order, on every route.
func New(middleware ...Middleware) *Router {
	return &Router{mux: http.NewServeMux(), chain: middleware}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) Get(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodGet, pattern, handler, middleware...)
}

func (r *Router) Post(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPost, pattern, handler, middleware...)
}

func (r *Router) Delete(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodDelete, pattern, handler, middleware...)
}

// Handle mounts handler for the given method and pattern. Route
// middleware runs after the router's own chain.
func (r *Router) Handle(method, pattern string, handler http.Handler, middleware ...Middleware) {
	chain := append(slices.Clone(r.chain), middleware...)

	// Wrap innermost-first so execution order matches registration order.
	slices.Reverse(chain)
	for _, m := range chain {
		handler = m(handler)
	}

	r.mux.Handle(method+" "+pattern, handler)
}

// Group returns a Router sharing this one's mux with extra middleware
// appended to the chain. Routes already registered are unaffected.
func (r *Router) Group(middleware ...Middleware) *Router {
	return &Router{
		mux:   r.mux,
		chain: append(slices.Clone(r.chain), middleware...),
	}
}
