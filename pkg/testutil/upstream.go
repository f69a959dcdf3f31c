package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// StubService is an httptest server standing in for OPA or OPAL. Routes are
// keyed by "METHOD /path" and can be swapped while the server runs.
type StubService struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
}

// NewStubService starts a stub that answers 404 for unknown routes. It is
// closed when the test ends.
func NewStubService(t *testing.T) *StubService {
	t.Helper()
	s := &StubService{
		routes: make(map[string]http.HandlerFunc),
		hits:   make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle sets the handler for "METHOD /path".
func (s *StubService) Handle(route string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[route] = h
}

// Respond makes route answer with a fixed status and JSON body.
func (s *StubService) Respond(route string, status int, body string) {
	s.Handle(route, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

// Hits returns how many times route was called.
func (s *StubService) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

func (s *StubService) serve(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path
	s.mu.Lock()
	h, ok := s.routes[route]
	s.hits[route]++
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

// ClosedURL returns the address of a server that has already shut down, so
// connections to it are refused.
func ClosedURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}
