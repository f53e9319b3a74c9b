package telemetry

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &Recorder{}
	backend := NewScopedAPI("backend", rec)
	digest := backend.Scope("digest")
	nested := NewScopedAPI("recorder", backend)

	backend.ReportBroken("resty.go", "timeout")
	digest.ReportDebug("client created")
	nested.ReportCount("saved", 3)

	expected := []Report{
		{Kind: ReportKindBroken, Id: "backend: resty.go", Params: []any{"timeout"}},
		{Kind: ReportKindDebug, Id: "backend.digest: client created"},
		{Kind: ReportKindCount, Id: "backend.recorder: saved", Count: 3},
	}
	diff := cmp.Diff(expected, rec.Reports())
	require.Empty(t, diff)
}
