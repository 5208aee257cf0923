// Package testutil provides testing utilities for the Intercom connector.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock Intercom endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockIntercom is a configurable mock Intercom API server for testing.
type MockIntercom struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	RequestsByPath    map[string]int
	LastRequestHeader http.Header
}

// NewMockIntercom creates a new mock Intercom server.
func NewMockIntercom() *MockIntercom {
	mock := &MockIntercom{
		handlers:       make(map[string]func(w http.ResponseWriter, r *http.Request)),
		RequestsByPath: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.RequestsByPath[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockIntercom) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockIntercom) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockIntercom) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.RequestsByPath = make(map[string]int)
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockIntercom) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockIntercom) SetResponse(path string, resp MockResponse) {
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

// SetList serves items at /<key> as an Intercom list response, perPage items
// at a time, linking pages with absolute pages.next URLs. The final page has
// "next": null.
func (m *MockIntercom) SetList(key string, items []map[string]any, perPage int) {
	if perPage <= 0 {
		perPage = len(items)
	}
	path := "/" + key

	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
			page = p
		}

		start := (page - 1) * perPage
		end := start + perPage
		if start > len(items) {
			start = len(items)
		}
		if end > len(items) {
			end = len(items)
		}

		var next any
		if end < len(items) {
			next = fmt.Sprintf("%s%s?page=%d", m.server.URL, path, page+1)
		}

		m.writeJSON(w, map[string]any{
			"type": key[:len(key)-1] + ".list",
			key:    items[start:end],
			"pages": map[string]any{
				"page": page,
				"next": next,
			},
		})
	})
}

// SetEndlessList serves /<key> as a list that always has a next page, each
// page holding the same single item.
func (m *MockIntercom) SetEndlessList(key string, item map[string]any) {
	path := "/" + key

	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
			page = p
		}

		m.writeJSON(w, map[string]any{
			key: []map[string]any{item},
			"pages": map[string]any{
				"page": page,
				"next": fmt.Sprintf("%s%s?page=%d", m.server.URL, path, page+1),
			},
		})
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockIntercom) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPathCount returns the number of requests made to path.
func (m *MockIntercom) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestsByPath[path]
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockIntercom) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

func (m *MockIntercom) writeJSON(w http.ResponseWriter, v any) {
	setRateLimitHeaders(w, 160)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

// defaultHandler answers unknown paths the way Intercom does.
func (m *MockIntercom) defaultHandler(w http.ResponseWriter, r *http.Request) {
	setRateLimitHeaders(w, 160)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"type": "error.list", "errors": [{"code": "not_found", "message": "Resource Not Found"}]}`))
}

func setRateLimitHeaders(w http.ResponseWriter, remaining int) {
	w.Header().Set("X-RateLimit-Limit", "166")
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(10*time.Second).Unix(), 10))
}

// NewHealthyResponse creates a standard 200 OK response.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "166",
			"X-RateLimit-Remaining": "160",
			"X-RateLimit-Reset":     strconv.FormatInt(time.Now().Add(10*time.Second).Unix(), 10),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewUnauthorizedResponse creates a 401 response for a revoked token.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"type": "error.list", "errors": [{"code": "unauthorized", "message": "Access Token Invalid"}]}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"type": "error.list", "errors": [{"code": "rate_limit_exceeded"}]}`,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "166",
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     strconv.FormatInt(time.Now().Add(10*time.Second).Unix(), 10),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"type": "error.list", "errors": [{"code": "server_error"}]}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
