package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockLeetifyServer creates a test server that mocks Leetify public API responses
type MockLeetifyServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockLeetifyServer creates a new mock Leetify API server
func NewMockLeetifyServer(t *testing.T) *MockLeetifyServer {
	t.Helper()
	m := &MockLeetifyServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockMatchesResponse adds a handler for the /v3/profile/matches endpoint
func (m *MockLeetifyServer) MockMatchesResponse(matches []map[string]interface{}) {
	m.Handlers["/v3/profile/matches"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(matches) //nolint:errcheck // test mock response
	}
}

// MockProfileResponse adds a handler for the /v3/profile endpoint
func (m *MockLeetifyServer) MockProfileResponse(profile map[string]interface{}) {
	m.Handlers["/v3/profile"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(profile) //nolint:errcheck // test mock response
	}
}

// MockErrorResponse makes an endpoint return the given status code
func (m *MockLeetifyServer) MockErrorResponse(path string, status int) {
	m.Handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}
}
