// Package testutil provides testing utilities for the paged feed loader.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock listing endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockListing is a configurable mock listing server for testing.
type MockListing struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	LastRequestQuery  url.Values
	LastRequestHeader http.Header
}

// NewMockListing creates a new mock listing server.
func NewMockListing() *MockListing {
	mock := &MockListing{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestQuery = r.URL.Query()
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		// Check for custom handler
		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Default handler
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockListing) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockListing) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockListing) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestQuery = nil
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockListing) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockListing) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		// Add delay if specified
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		// Set headers
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		// Write status and body
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetFeedResponse configures a response for a feed's listing path.
func (m *MockListing) SetFeedResponse(feed string, resp MockResponse) {
	m.SetResponse(fmt.Sprintf("/r/%s.json", feed), resp)
}

// FailTimes configures a feed handler that answers with fail for the first
// n requests, then with ok for every request after that.
func (m *MockListing) FailTimes(feed string, n int, fail, ok MockResponse) {
	var mu sync.Mutex
	failures := 0

	m.SetHandler(fmt.Sprintf("/r/%s.json", feed), func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := ok
		if failures < n {
			failures++
			resp = fail
		}
		mu.Unlock()

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockListing) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastRequestQuery returns the query parameters of the most recent request.
func (m *MockListing) GetLastRequestQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestQuery
}

// defaultHandler provides a default empty listing response.
func (m *MockListing) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"data": {"children": [], "after": null, "before": null}}`))
}

// ListingBody builds a listing envelope body from item JSON fragments and
// optional after/before tokens (empty string means absent).
func ListingBody(items []string, after, before string) string {
	children := make([]string, 0, len(items))
	for _, item := range items {
		children = append(children, fmt.Sprintf(`{"data": %s}`, item))
	}

	afterJSON := "null"
	if after != "" {
		afterJSON = fmt.Sprintf("%q", after)
	}
	beforeJSON := "null"
	if before != "" {
		beforeJSON = fmt.Sprintf("%q", before)
	}

	return fmt.Sprintf(`{"data": {"children": [%s], "after": %s, "before": %s}}`,
		strings.Join(children, ", "), afterJSON, beforeJSON)
}

// NewListingResponse creates a 200 OK listing page response.
func NewListingResponse(items []string, after, before string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       ListingBody(items, after, before),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewUnavailableResponse creates a 503 Service Unavailable response.
func NewUnavailableResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       `{"error": "Service unavailable"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
