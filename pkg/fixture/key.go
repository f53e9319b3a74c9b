package fixture

import (
	"fmt"
	"maps"
	"net/http"
	"strings"
)

// RequestKey describes an outgoing request for the purpose of fixture lookup.
//
// A nil Headers map means "no headers were given" and is distinct from an
// empty, non-nil map: each only matches its own kind.
type RequestKey struct {
	URL     string
	Method  string
	Headers map[string]string
	Data    Data
}

func NewRequestKey(url, method string, data Data, headers map[string]string) RequestKey {
	return RequestKey{
		URL:     url,
		Method:  normalizeMethod(method),
		Headers: maps.Clone(headers),
		Data:    data,
	}
}

func normalizeMethod(method string) string {
	if method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(method)
}

// SameTarget reports whether both keys share url, method and headers, the
// fields a fixture has to match exactly.
func (k RequestKey) SameTarget(url, method string, headers map[string]string) bool {
	return k.URL == url &&
		k.Method == normalizeMethod(method) &&
		headersEqual(k.Headers, headers)
}

func headersEqual(a, b map[string]string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return maps.Equal(a, b)
}

func (k RequestKey) String() string {
	headers := "<none>"
	if k.Headers != nil {
		headers = fmt.Sprint(k.Headers)
	}
	return fmt.Sprintf("%s %s headers=%s data=%#v", k.Method, k.URL, headers, k.Data)
}
