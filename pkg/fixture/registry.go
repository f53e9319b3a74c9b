// Package fixture holds canned responses and picks the one that answers an
// outgoing request.
//
// Url, method and headers must match a fixture exactly. Request data then
// narrows the candidates: absent and string data must match exactly, form
// data picks the fixture whose pairs leave the fewest request pairs
// unaccounted for. Ties are reported as ErrAmbiguousMatch, never broken by
// registration order.
package fixture

import (
	"maps"
	"slices"
)

// Registry is the set of fixtures for one session. It is not safe for
// concurrent use.
type Registry struct {
	entries []Entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

type registerOptions struct {
	method  string
	data    Data
	headers map[string]string
}

type RegisterOption func(o *registerOptions)

func WithMethod(method string) RegisterOption {
	return func(o *registerOptions) {
		o.method = method
	}
}

func WithData(data Data) RegisterOption {
	return func(o *registerOptions) {
		o.data = data
	}
}

// WithHeaders sets the request headers a fixture requires. Passing an empty
// non-nil map registers a fixture that only matches requests with an empty
// header set.
func WithHeaders(headers map[string]string) RegisterOption {
	return func(o *registerOptions) {
		if headers == nil {
			o.headers = nil
			return
		}
		o.headers = maps.Clone(headers)
	}
}

// Register appends a fixture answering requests to url. The method defaults
// to GET.
func (r *Registry) Register(resp *MockResponse, url string, opts ...RegisterOption) {
	o := registerOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	r.Add(Entry{
		Key:      NewRequestKey(url, o.method, o.data, o.headers),
		Response: resp,
	})
}

// Add appends a prebuilt entry, its method is normalized.
func (r *Registry) Add(entry Entry) {
	entry.Key.Method = normalizeMethod(entry.Key.Method)
	r.entries = append(r.entries, entry)
}

// CandidatesFor returns the entries registered for exactly this url, method
// and header set, in registration order.
func (r *Registry) CandidatesFor(url, method string, headers map[string]string) []Entry {
	var out []Entry
	for _, e := range r.entries {
		if e.Key.SameTarget(url, method, headers) {
			out = append(out, e)
		}
	}
	return out
}

func (r *Registry) Entries() []Entry {
	return slices.Clone(r.entries)
}

func (r *Registry) Len() int {
	return len(r.entries)
}

func (r *Registry) keys() []RequestKey {
	keys := make([]RequestKey, len(r.entries))
	for i, e := range r.entries {
		keys[i] = e.Key
	}
	return keys
}
