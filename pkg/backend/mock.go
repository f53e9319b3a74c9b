package backend

import (
	"context"
	"maps"

	"scriptbrowser/pkg/fixture"
)

// Mock answers requests from a fixture registry instead of the network.
// Elapsed times are the fixtures' declared roundtrips.
type Mock struct {
	Responses *fixture.Registry
	calls     []Request
}

func NewMock() *Mock {
	return &Mock{Responses: fixture.NewRegistry()}
}

// NewMockFrom answers requests from an existing registry.
func NewMockFrom(reg *fixture.Registry) *Mock {
	return &Mock{Responses: reg}
}

func (m *Mock) Go(ctx context.Context, req Request) (Response, error) {
	m.calls = append(m.calls, req)

	if err := ctx.Err(); err != nil {
		return Response{}, &TransportError{Method: req.Method, URL: req.URL, Err: err}
	}

	budget := 0
	if req.Follow {
		budget = redirectBudget(req)
	}
	hops, err := m.Responses.Follow(req.URL, req.Method, req.Data, req.Headers, budget)
	if err != nil {
		if fixture.IsLookupError(err) {
			return Response{}, err
		}
		failedAt := req.URL
		if len(hops) > 0 {
			failedAt = hops[len(hops)-1].Response.Redirect
		}
		return Response{}, &TransportError{Method: req.Method, URL: failedAt, Err: err}
	}

	last := hops[len(hops)-1]
	return Response{
		StatusCode: last.Response.HTTPCode,
		Body:       last.Response.Body,
		Headers:    maps.Clone(last.Response.Headers),
		Elapsed:    last.Response.Roundtrip,
		URL:        last.URL,
	}, nil
}

// Calls returns every request the mock has seen.
func (m *Mock) Calls() []Request {
	return append([]Request(nil), m.calls...)
}
