package telemetry

import (
	"fmt"
)

// API is where components report what went wrong and what they counted.
// Components take it as a dependency instead of logging directly, so the
// CLI can route reports to slog while tests collect them with a Recorder.
type API interface {
	// ReportBroken reports a failure someone has to act on, like a request
	// that could not be recorded.
	//
	// `id` locates the component, usually `<type>.<method>` or the
	// `report_...` constant of the file. Details go into params.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something odd that did not stop the component.
	ReportWarning(id string, params ...any)

	// ReportDebug is only shown with --debug.
	ReportDebug(msg string, params ...any)

	// ReportCount reports a gauge, like the number of fixtures loaded.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every report with a namespace. Scopes nest, a scope
// "digest" under "backend" reports as "backend.digest: <id>".
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	if scoped, ok := inner.(ScopedAPI); ok {
		return scoped.Scope(namespace)
	}
	return ScopedAPI{namespace: namespace, inner: inner}
}

// Scope returns a child scope reporting to the same API.
func (s ScopedAPI) Scope(namespace string) ScopedAPI {
	return ScopedAPI{namespace: s.namespace + "." + namespace, inner: s.inner}
}

func (s ScopedAPI) prefix(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.prefix(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.prefix(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.prefix(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.prefix(id), count)
}
