package fixture

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoFixture      = errors.New("no fixture matches the request")
	ErrAmbiguousMatch = errors.New("more than one fixture matches the request")
)

// LookupError is returned by Resolve when no single fixture can be chosen.
// Use errors.Is with ErrNoFixture or ErrAmbiguousMatch to tell the kinds apart.
type LookupError struct {
	Kind    error
	Request RequestKey
	// Choices holds the keys of every registered fixture at the time of lookup.
	Choices []RequestKey
	// Suggestion is a registered url close to the requested one, if any.
	Suggestion string
}

func (e *LookupError) Error() string {
	var out strings.Builder
	fmt.Fprintf(&out, "fixture lookup: %s: %s", e.Kind.Error(), e.Request)
	if e.Suggestion != "" {
		fmt.Fprintf(&out, " (did you mean %q?)", e.Suggestion)
	}
	if len(e.Choices) > 0 {
		out.WriteString(", choices:")
		for _, c := range e.Choices {
			out.WriteString("\n\t")
			out.WriteString(c.String())
		}
	}
	return out.String()
}

func (e *LookupError) Unwrap() error {
	return e.Kind
}

// IsLookupError reports whether err came from a failed fixture lookup, as
// opposed to a failure declared by a fixture.
func IsLookupError(err error) bool {
	var lookup *LookupError
	return errors.As(err, &lookup)
}
