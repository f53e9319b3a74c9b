package backend

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"scriptbrowser/pkg/fixture"

	"github.com/stretchr/testify/require"
)

func mockedVisit(t *testing.T) (*Mock, *fixture.MockResponse, Response) {
	t.Helper()

	m := NewMock()
	resp := fixture.NewMockResponse()
	resp.Body = "test data"
	resp.HTTPCode = 123
	resp.Headers = map[string]string{"X-Test": "1"}
	resp.Roundtrip = 5 * time.Second
	m.Responses.Register(resp, "")

	res, err := m.Go(context.Background(), Request{URL: "", Method: "GET"})
	require.NoError(t, err)
	return m, resp, res
}

func TestMockFollowsBackendContract(t *testing.T) {
	_, resp, res := mockedVisit(t)

	require.Equal(t, resp.Body, res.Body)
	require.Equal(t, "", res.URL)
	require.Equal(t, resp.Roundtrip, res.Elapsed)
	require.Equal(t, resp.HTTPCode, res.StatusCode)
	require.Equal(t, resp.Headers, res.Headers)
}

func TestMockHeadersAreCopied(t *testing.T) {
	_, resp, res := mockedVisit(t)
	res.Headers["X-Test"] = "changed"
	require.Equal(t, "1", resp.Headers["X-Test"])
}

func TestMockRecordsCalls(t *testing.T) {
	m, _, _ := mockedVisit(t)
	calls := m.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "GET", calls[0].Method)
}

func TestMockLookupErrorsPassThrough(t *testing.T) {
	m := NewMock()
	_, err := m.Go(context.Background(), Request{URL: "someurl", Method: "GET"})
	require.ErrorIs(t, err, fixture.ErrNoFixture)

	var transport *TransportError
	require.False(t, errors.As(err, &transport))
}

func TestMockInjectedFailure(t *testing.T) {
	declared := errors.New("couldn't resolve host")

	m := NewMock()
	resp := fixture.NewMockResponse()
	resp.Failure = declared
	m.Responses.Register(resp, "duckduckgo.com/html")

	_, err := m.Go(context.Background(), Request{URL: "duckduckgo.com/html", Method: "GET"})
	require.ErrorIs(t, err, declared)

	var transport *TransportError
	require.True(t, errors.As(err, &transport))
	require.Equal(t, "duckduckgo.com/html", transport.URL)
}

func TestMockRedirects(t *testing.T) {
	m := NewMock()
	moved := fixture.NewMockResponse()
	moved.HTTPCode = http.StatusFound
	moved.Redirect = "new"
	m.Responses.Register(moved, "old")
	landed := fixture.NewMockResponse()
	landed.Body = "landed"
	landed.Roundtrip = time.Second
	m.Responses.Register(landed, "new")

	res, err := m.Go(context.Background(), Request{URL: "old", Method: "GET", Follow: true})
	require.NoError(t, err)
	require.Equal(t, "landed", res.Body)
	require.Equal(t, "new", res.URL)
	require.Equal(t, time.Second, res.Elapsed)

	res, err = m.Go(context.Background(), Request{URL: "old", Method: "GET"})
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, res.StatusCode)
	require.Equal(t, "old", res.URL)
}

func TestMockRedirectLoopStopsAtBudget(t *testing.T) {
	m := NewMock()
	a := fixture.NewMockResponse()
	a.Redirect = "b"
	b := fixture.NewMockResponse()
	b.Redirect = "a"
	m.Responses.Register(a, "a")
	m.Responses.Register(b, "b")

	res, err := m.Go(context.Background(), Request{URL: "a", Method: "GET", Follow: true, MaxRedirects: 3})
	require.NoError(t, err)
	require.Equal(t, "b", res.URL)
}

func TestMockFailureDuringRedirect(t *testing.T) {
	declared := errors.New("reset")

	m := NewMock()
	a := fixture.NewMockResponse()
	a.Redirect = "b"
	b := fixture.NewMockResponse()
	b.Failure = declared
	m.Responses.Register(a, "a")
	m.Responses.Register(b, "b")

	_, err := m.Go(context.Background(), Request{URL: "a", Method: "GET", Follow: true})
	require.ErrorIs(t, err, declared)
	var transport *TransportError
	require.True(t, errors.As(err, &transport))
	require.Equal(t, "b", transport.URL)
}

func TestMockCanceledContext(t *testing.T) {
	m := NewMock()
	m.Responses.Register(fixture.NewMockResponse(), "u")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Go(ctx, Request{URL: "u", Method: "GET"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMockIgnoresAuth(t *testing.T) {
	m := NewMock()
	m.Responses.Register(fixture.NewMockResponse(), "secret")

	auth := DigestAuth("mufasa", "circle of life")
	res, err := m.Go(context.Background(), Request{URL: "secret", Method: "GET", Auth: auth})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Same(t, auth, m.Calls()[0].Auth)
}
