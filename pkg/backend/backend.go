// Package backend defines how the browser talks HTTP, and provides a live
// implementation over resty and a mock implementation over fixtures.
package backend

import (
	"context"
	"fmt"
	"time"

	"scriptbrowser/pkg/fixture"
)

const (
	DefaultMaxRedirects = 20
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

type AuthScheme int

const (
	AuthBasic AuthScheme = iota
	AuthDigest
)

func (s AuthScheme) String() string {
	switch s {
	case AuthBasic:
		return "basic"
	case AuthDigest:
		return "digest"
	}
	return fmt.Sprintf("AuthScheme(%d)", int(s))
}

// Auth holds the credentials a request authenticates with.
type Auth struct {
	Scheme   AuthScheme
	Username string
	Password string
}

func BasicAuth(username, password string) *Auth {
	return &Auth{Scheme: AuthBasic, Username: username, Password: password}
}

// DigestAuth answers the server's digest challenge, the first attempt is
// sent without credentials.
func DigestAuth(username, password string) *Auth {
	return &Auth{Scheme: AuthDigest, Username: username, Password: password}
}

type Request struct {
	URL    string
	Method string
	Data   fixture.Data
	// Headers is nil when the caller set no headers.
	Headers map[string]string
	// Auth is nil for unauthenticated requests. Fixtures are not keyed on
	// it, the mock ignores it.
	Auth *Auth
	// Follow makes the backend follow 3xx responses, at most MaxRedirects times.
	Follow       bool
	MaxRedirects int
	UserAgent    string
	// Retries is the number of additional attempts after a transport failure.
	Retries int
	Debug   bool
}

type Response struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Elapsed    time.Duration
	// URL is the url the response came from after any redirects.
	URL string
}

// Backend performs a single request/response exchange.
type Backend interface {
	Go(ctx context.Context, req Request) (Response, error)
}

// TransportError is returned when the exchange itself failed, no status
// code is available.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Err.Error())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
