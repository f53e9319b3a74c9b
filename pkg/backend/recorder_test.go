package backend

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"scriptbrowser/internal/components/telemetry"
	"scriptbrowser/pkg/fixture"

	"github.com/stretchr/testify/require"
)

type registrySink struct {
	reg *fixture.Registry
	err error
}

func (s registrySink) Save(_ context.Context, key fixture.RequestKey, resp *fixture.MockResponse) error {
	if s.err != nil {
		return s.err
	}
	s.reg.Add(fixture.Entry{Key: key, Response: resp})
	return nil
}

func TestRecordThenReplay(t *testing.T) {
	server := newTestServer(t)
	live, _ := newTestResty(t)
	sink := registrySink{reg: fixture.NewRegistry()}
	recorder := NewRecorder(live, sink, &telemetry.Recorder{})

	post := Request{
		URL:    server.URL + "/echo",
		Method: "POST",
		Data:   fixture.Pairs(map[string]string{"a": "1"}),
	}
	liveRes, err := recorder.Go(context.Background(), post)
	require.NoError(t, err)

	redirect := Request{URL: server.URL + "/moved", Method: "GET", Follow: true}
	_, err = recorder.Go(context.Background(), redirect)
	require.NoError(t, err)
	require.Equal(t, 3, sink.reg.Len())

	replay := NewMockFrom(sink.reg)
	res, err := replay.Go(context.Background(), post)
	require.NoError(t, err)
	require.Equal(t, liveRes.Body, res.Body)
	require.Equal(t, liveRes.StatusCode, res.StatusCode)

	res, err = replay.Go(context.Background(), redirect)
	require.NoError(t, err)
	require.Equal(t, "landed", res.Body)
	require.Equal(t, server.URL+"/landed", res.URL)

	redirect.Follow = false
	res, err = replay.Go(context.Background(), redirect)
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, res.StatusCode)
}

func TestRecorderReportsSinkFailures(t *testing.T) {
	m := NewMock()
	m.Responses.Register(fixture.NewMockResponse(), "u")
	tel := &telemetry.Recorder{}
	recorder := NewRecorder(m, registrySink{err: errors.New("disk full")}, tel)

	_, err := recorder.Go(context.Background(), Request{URL: "u", Method: "GET"})
	require.NoError(t, err)
	require.Len(t, tel.Of(telemetry.ReportKindBroken), 1)
}

func TestRecorderSkipsFailures(t *testing.T) {
	sink := registrySink{reg: fixture.NewRegistry()}
	recorder := NewRecorder(NewMock(), sink, &telemetry.Recorder{})

	_, err := recorder.Go(context.Background(), Request{URL: "missing", Method: "GET"})
	require.ErrorIs(t, err, fixture.ErrNoFixture)
	require.Equal(t, 0, sink.reg.Len())
}
