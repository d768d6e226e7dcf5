// Package testutil provides testing utilities for the Pokédex client.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock Pokédex backend for testing. It tracks
// refresh calls and the Authorization headers it sees, which the client
// tests use to verify the single-flight refresh protocol.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount   int
	RefreshCount   int
	LoginCount     int
	AuthHeaders    []string
	LastAuthHeader string

	// Behavior
	ValidToken   string
	RefreshDelay time.Duration
	RefreshFails bool
}

// NewMockAPI creates a mock backend. By default /auth/refresh succeeds
// after RefreshDelay and mints "refreshed-token"; any other path
// requires ValidToken (when set) and returns {"status":"ok"}.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		auth := r.Header.Get("Authorization")
		mock.AuthHeaders = append(mock.AuthHeaders, auth)
		mock.LastAuthHeader = auth
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		switch r.URL.Path {
		case "/auth/refresh":
			mock.refreshHandler(w, r)
		case "/auth/login":
			mock.loginHandler(w, r)
		default:
			mock.defaultHandler(w, r)
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.RefreshCount = 0
	m.LoginCount = 0
	m.AuthHeaders = nil
	m.LastAuthHeader = ""
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a static response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests seen by the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetRefreshCount returns the number of refresh calls seen.
func (m *MockAPI) GetRefreshCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RefreshCount
}

// GetAuthHeaders returns a copy of every Authorization header seen, in
// arrival order.
func (m *MockAPI) GetAuthHeaders() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.AuthHeaders))
	copy(out, m.AuthHeaders)
	return out
}

// refreshHandler models the cookie-authenticated refresh endpoint.
func (m *MockAPI) refreshHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RefreshCount++
	delay := m.RefreshDelay
	fails := m.RefreshFails
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if fails {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "refresh token invalid"})
		return
	}

	m.mu.Lock()
	m.ValidToken = "refreshed-token"
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"accessToken": "refreshed-token"})
}

func (m *MockAPI) loginHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.LoginCount++
	m.mu.Unlock()

	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Password != "correct-password" {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid credentials"})
		return
	}

	m.mu.Lock()
	m.ValidToken = "login-token"
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"accessToken": "login-token",
		"user":        map[string]string{"id": "1", "username": "ash", "email": creds.Email},
	})
}

// defaultHandler enforces the bearer token when one is configured.
func (m *MockAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	valid := m.ValidToken
	m.mu.RUnlock()

	if valid != "" && r.Header.Get("Authorization") != "Bearer "+valid {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "token expired"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
