package backend

import (
	"context"
	"fmt"
	"maps"
	"net/http"

	"scriptbrowser/internal/components/assert"
	"scriptbrowser/internal/components/telemetry"
	"scriptbrowser/pkg/fixture"
)

const report_recorder_save = "recorder.save"

// Sink stores exchanges as fixtures so they can be replayed through Mock.
type Sink interface {
	Save(ctx context.Context, key fixture.RequestKey, resp *fixture.MockResponse) error
}

// Recorder passes requests through to another backend and hands every
// completed exchange to a Sink. Transport failures are not recorded.
type Recorder struct {
	inner Backend
	sink  Sink
	tel   telemetry.API
}

func NewRecorder(inner Backend, sink Sink, tel telemetry.API) Recorder {
	assert.NotNil(inner)
	assert.NotNil(sink)
	assert.NotNil(tel)
	return Recorder{
		inner: inner,
		sink:  sink,
		tel:   telemetry.NewScopedAPI("backend", tel),
	}
}

func (r Recorder) Go(ctx context.Context, req Request) (Response, error) {
	res, err := r.inner.Go(ctx, req)
	if err != nil {
		return res, err
	}

	resp := &fixture.MockResponse{
		HTTPCode:  res.StatusCode,
		Body:      res.Body,
		Headers:   maps.Clone(res.Headers),
		Roundtrip: res.Elapsed,
	}
	if res.URL != "" && res.URL != req.URL {
		// replaying with redirects followed has to land on the same page
		r.save(ctx, fixture.NewRequestKey(res.URL, req.Method, req.Data, req.Headers), resp)
		resp = &fixture.MockResponse{
			HTTPCode: http.StatusFound,
			Headers:  map[string]string{"Location": res.URL},
			Redirect: res.URL,
		}
	}
	r.save(ctx, fixture.NewRequestKey(req.URL, req.Method, req.Data, req.Headers), resp)

	return res, nil
}

func (r Recorder) save(ctx context.Context, key fixture.RequestKey, resp *fixture.MockResponse) {
	err := r.sink.Save(ctx, key, resp)
	if err != nil {
		r.tel.ReportBroken(report_recorder_save, fmt.Errorf("save fixture: %w", err), key.URL)
	}
}
