package restclient

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"

	"scriptbrowser/internal/components/assert"
	"scriptbrowser/internal/components/telemetry"
	"scriptbrowser/pkg/backend"
	"scriptbrowser/pkg/fixture"
)

const DefaultUserAgent = "scriptbrowser.restclient 0.1"

var ErrUnsupportedStatus = errors.New("unsupported status code")

type StatusClass int

const (
	Informational StatusClass = iota
	Redirection
	ClientError
	ServerError
)

func (c StatusClass) String() string {
	switch c {
	case Informational:
		return "informational"
	case Redirection:
		return "redirection"
	case ClientError:
		return "client error"
	case ServerError:
		return "server error"
	}
	return fmt.Sprintf("StatusClass(%d)", int(c))
}

// StatusError is returned for any response outside of 2xx.
type StatusError struct {
	Class  StatusClass
	Code   int
	Method string
	URL    string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %s (%d)", e.Method, e.URL, e.Class, e.Code)
}

func classify(code int) (StatusClass, bool) {
	switch {
	case code >= 100 && code < 200:
		return Informational, true
	case code >= 300 && code < 400:
		return Redirection, true
	case code >= 400 && code < 500:
		return ClientError, true
	case code >= 500 && code < 600:
		return ServerError, true
	}
	return 0, false
}

type Client struct {
	base    string
	backend backend.Backend
	opts    options
	tel     telemetry.API
}

type options struct {
	userAgent string
	headers   map[string]string
	retries   int
	auth      *backend.Auth
	tel       telemetry.API
}

type Option func(o *options)

func WithUserAgent(agent string) Option {
	return func(o *options) { o.userAgent = agent }
}

// WithHeaders sets the headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) { o.headers = maps.Clone(headers) }
}

func WithRetries(n int) Option {
	return func(o *options) { o.retries = n }
}

func WithAuth(auth *backend.Auth) Option {
	return func(o *options) { o.auth = auth }
}

func WithTelemetry(tel telemetry.API) Option {
	return func(o *options) { o.tel = tel }
}

// New creates a client for the objects under base. Objects live at
// base/obj and single ones at base/obj/uid.
func New(base string, b backend.Backend, opts ...Option) *Client {
	assert.NotNil(b)

	o := options{
		userAgent: DefaultUserAgent,
		tel:       telemetry.SlogAPI{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		base:    strings.TrimSuffix(base, "/"),
		backend: b,
		opts:    o,
		tel:     telemetry.NewScopedAPI("restclient", o.tel),
	}
}

func (c *Client) Base() string {
	return c.base
}

func (c *Client) url(obj, uid string) string {
	url := c.base + "/" + obj
	if uid != "" {
		url += "/" + uid
	}
	return url
}

func (c *Client) do(ctx context.Context, method, obj, uid string, data fixture.Data, headers map[string]string) (backend.Response, error) {
	url := c.url(obj, uid)

	merged := c.opts.headers
	if headers != nil {
		merged = maps.Clone(c.opts.headers)
		if merged == nil {
			merged = map[string]string{}
		}
		maps.Copy(merged, headers)
	}

	res, err := c.backend.Go(ctx, backend.Request{
		URL:       url,
		Method:    method,
		Data:      data,
		Headers:   merged,
		Auth:      c.opts.auth,
		UserAgent: c.opts.userAgent,
		Retries:   c.opts.retries,
	})
	if err != nil {
		return backend.Response{}, fmt.Errorf("%s %s: %w", method, url, err)
	}
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return res, nil
	}

	class, ok := classify(res.StatusCode)
	if !ok {
		return res, fmt.Errorf("%s %s: %w: %d", method, url, ErrUnsupportedStatus, res.StatusCode)
	}
	c.tel.ReportDebug("status", method, url, res.StatusCode)
	return res, &StatusError{
		Class:  class,
		Code:   res.StatusCode,
		Method: method,
		URL:    url,
		Body:   res.Body,
	}
}

// Create posts data to base/obj and returns the response body.
func (c *Client) Create(ctx context.Context, obj string, data fixture.Data) (string, error) {
	res, err := c.do(ctx, http.MethodPost, obj, "", data, nil)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

// Read gets base/obj, or base/obj/uid when uid is set.
func (c *Client) Read(ctx context.Context, obj, uid string) (string, error) {
	res, err := c.do(ctx, http.MethodGet, obj, uid, fixture.NoData(), nil)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

// Head checks that base/obj[/uid] exists and returns its headers.
func (c *Client) Head(ctx context.Context, obj, uid string) (map[string]string, error) {
	res, err := c.do(ctx, http.MethodHead, obj, uid, fixture.NoData(), nil)
	if err != nil {
		return nil, err
	}
	return res.Headers, nil
}

func (c *Client) Update(ctx context.Context, obj, uid string, data fixture.Data) (string, error) {
	res, err := c.do(ctx, http.MethodPut, obj, uid, data, nil)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

func (c *Client) Destroy(ctx context.Context, obj, uid string) (string, error) {
	res, err := c.do(ctx, http.MethodDelete, obj, uid, fixture.NoData(), nil)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}
