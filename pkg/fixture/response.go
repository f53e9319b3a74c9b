package fixture

import (
	"net/http"
	"time"
)

// MockResponse is a canned outcome for a request: either a normal response
// or, when Failure is set, an error the transport should fail with.
type MockResponse struct {
	HTTPCode  int
	Body      string
	Headers   map[string]string
	Roundtrip time.Duration
	// Redirect is the url followed next when the caller follows redirects.
	Redirect string
	Failure  error
}

func NewMockResponse() *MockResponse {
	return &MockResponse{
		HTTPCode: http.StatusOK,
		Headers:  map[string]string{},
	}
}

// Entry is a registered fixture.
type Entry struct {
	Key      RequestKey
	Response *MockResponse
}
