package fixture

import (
	"github.com/antzucaro/matchr"
)

// urls at least this similar to the requested one are offered as a
// suggestion when nothing matches.
const suggestionThreshold = 0.85

// Resolve picks the single fixture answering the request.
//
// It fails with a *LookupError wrapping ErrNoFixture or ErrAmbiguousMatch
// when no single fixture can be chosen. When the chosen fixture declares a
// Failure, that error is returned as-is.
func (r *Registry) Resolve(url, method string, data Data, headers map[string]string) (*MockResponse, error) {
	entry, err := r.match(url, method, data, headers)
	if err != nil {
		return nil, err
	}
	if entry.Response.Failure != nil {
		return nil, entry.Response.Failure
	}
	return entry.Response, nil
}

// Hop is a single resolved step of a redirect chain.
type Hop struct {
	URL      string
	Response *MockResponse
}

// Follow resolves the request and keeps resolving redirect targets with the
// same method, data and headers while budget remains. Every hop spends one
// unit of budget, once it is exhausted the last response is returned even if
// it redirects again.
func (r *Registry) Follow(url, method string, data Data, headers map[string]string, budget int) ([]Hop, error) {
	resp, err := r.Resolve(url, method, data, headers)
	if err != nil {
		return nil, err
	}
	hops := []Hop{{URL: url, Response: resp}}

	for resp.Redirect != "" && budget > 0 {
		budget--
		url = resp.Redirect
		resp, err = r.Resolve(url, method, data, headers)
		if err != nil {
			return hops, err
		}
		hops = append(hops, Hop{URL: url, Response: resp})
	}
	return hops, nil
}

func (r *Registry) match(url, method string, data Data, headers map[string]string) (Entry, error) {
	candidates := r.CandidatesFor(url, method, headers)
	if len(candidates) == 0 {
		return Entry{}, r.lookupError(ErrNoFixture, url, method, data, headers)
	}

	switch data.Kind() {
	case KindNone, KindOpaque:
		var exact []Entry
		for _, c := range candidates {
			if c.Key.Data.Equal(data) {
				exact = append(exact, c)
			}
		}
		if len(exact) == 1 {
			return exact[0], nil
		}
		// a data-less request against fixtures that all carry data is
		// ambiguous, an unknown opaque payload simply has no fixture.
		if len(exact) == 0 && data.Kind() == KindOpaque {
			return Entry{}, r.lookupError(ErrNoFixture, url, method, data, headers)
		}
		return Entry{}, r.lookupError(ErrAmbiguousMatch, url, method, data, headers)
	}

	reference := data.PairSet()
	bestScore := -1
	var best []Entry
	for _, c := range candidates {
		pairs := c.Key.Data.PairSet()
		if !intersects(reference, pairs) {
			continue
		}
		score := difference(reference, pairs)
		switch {
		case bestScore < 0 || score < bestScore:
			bestScore = score
			best = []Entry{c}
		case score == bestScore:
			best = append(best, c)
		}
	}

	switch len(best) {
	case 0:
		return Entry{}, r.lookupError(ErrNoFixture, url, method, data, headers)
	case 1:
		return best[0], nil
	}
	return Entry{}, r.lookupError(ErrAmbiguousMatch, url, method, data, headers)
}

func (r *Registry) lookupError(kind error, url, method string, data Data, headers map[string]string) *LookupError {
	err := &LookupError{
		Kind:    kind,
		Request: NewRequestKey(url, method, data, headers),
		Choices: r.keys(),
	}
	if kind == ErrNoFixture {
		err.Suggestion = r.suggest(url)
	}
	return err
}

func (r *Registry) suggest(url string) string {
	best := ""
	bestScore := suggestionThreshold
	for _, e := range r.entries {
		if e.Key.URL == url {
			continue
		}
		score := matchr.JaroWinkler(url, e.Key.URL, false)
		if score > bestScore || (best == "" && score == bestScore) {
			best = e.Key.URL
			bestScore = score
		}
	}
	return best
}
