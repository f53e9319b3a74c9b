package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"scriptbrowser/internal/components/assert"
	"scriptbrowser/internal/components/telemetry"
	"scriptbrowser/pkg/fixture"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const report_resty_go = "resty.go"

type RestyOptions struct {
	// Timeout bounds a whole exchange including redirects, defaults to 30s.
	Timeout time.Duration
	// RequestsPerSecond limits the request rate, zero disables the limit.
	RequestsPerSecond float64
	CloudflareBypass  bool
	// Output receives a dump of every exchange, it can be nil.
	Output    telemetry.MessageOutput
	Telemetry telemetry.API
}

// Resty is the live backend. It keeps cookies across requests like a
// browser would. It is not safe for concurrent use, redirect and retry
// settings are applied per request on the shared client.
type Resty struct {
	opts    RestyOptions
	jar     http.CookieJar
	limiter *rate.Limiter
	tel     telemetry.ScopedAPI

	client *resty.Client
	// resty installs digest auth as a transport for the whole client, so
	// each set of digest credentials gets a client of its own.
	digest map[Auth]*resty.Client
}

func NewResty(opts RestyOptions) (*Resty, error) {
	assert.NotNil(opts.Telemetry)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}

	r := &Resty{
		opts:   opts,
		jar:    jar,
		tel:    telemetry.NewScopedAPI("backend", opts.Telemetry),
		digest: map[Auth]*resty.Client{},
	}
	if opts.RequestsPerSecond > 0 {
		// burst of 1 so requests are spaced out evenly
		r.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	r.client = r.newClient(r.tel, opts.Output)
	return r, nil
}

// prefixedOutput keeps the dumps of several clients apart, every client
// numbers its exchanges from 1.
type prefixedOutput struct {
	prefix string
	inner  telemetry.MessageOutput
}

func (o prefixedOutput) Write(id string, contents string) {
	o.inner.Write(o.prefix+id, contents)
}

func (r *Resty) newClient(tel telemetry.API, output telemetry.MessageOutput) *resty.Client {
	client := resty.New()
	client.SetCookieJar(r.jar)
	if r.opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetTimeout(r.opts.Timeout)
	client.SetHeader("user-agent", DefaultUserAgent)

	if r.limiter != nil {
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return r.limiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(client, tel, output)
	return client
}

func (r *Resty) clientFor(auth *Auth) *resty.Client {
	if auth == nil || auth.Scheme != AuthDigest {
		return r.client
	}
	client, ok := r.digest[*auth]
	if !ok {
		var output telemetry.MessageOutput
		if r.opts.Output != nil {
			output = prefixedOutput{
				prefix: fmt.Sprintf("digest-%d-", len(r.digest)+1),
				inner:  r.opts.Output,
			}
		}
		client = r.newClient(r.tel.Scope("digest"), output)
		client.SetDigestAuth(auth.Username, auth.Password)
		r.digest[*auth] = client
		r.tel.ReportDebug(report_resty_go, "digest client created", auth.Username)
	}
	return client
}

func redirectBudget(req Request) int {
	if req.MaxRedirects <= 0 {
		return DefaultMaxRedirects
	}
	return req.MaxRedirects
}

func redirectPolicy(req Request) resty.RedirectPolicy {
	budget := redirectBudget(req)
	return resty.RedirectPolicyFunc(func(_ *http.Request, via []*http.Request) error {
		if !req.Follow || len(via) > budget {
			return http.ErrUseLastResponse
		}
		return nil
	})
}

func (r *Resty) Go(ctx context.Context, req Request) (Response, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	client := r.clientFor(req.Auth)
	client.SetRedirectPolicy(redirectPolicy(req))
	client.SetRetryCount(max(req.Retries, 0))
	client.SetDebug(req.Debug)

	httpReq := client.R().SetContext(ctx)
	if req.Headers != nil {
		httpReq.SetHeaders(req.Headers)
	}
	if req.Auth != nil && req.Auth.Scheme == AuthBasic {
		httpReq.SetBasicAuth(req.Auth.Username, req.Auth.Password)
	}
	if req.UserAgent != "" {
		httpReq.SetHeader("user-agent", req.UserAgent)
	}

	switch req.Data.Kind() {
	case fixture.KindOpaque:
		httpReq.SetBody(req.Data.String())
	case fixture.KindPairs:
		if method == http.MethodGet || method == http.MethodHead {
			httpReq.SetQueryParamsFromValues(req.Data.Form())
		} else {
			httpReq.SetFormDataFromValues(req.Data.Form())
		}
	}

	res, err := httpReq.Execute(method, req.URL)
	if err != nil {
		return Response{}, &TransportError{Method: method, URL: req.URL, Err: err}
	}

	finalUrl := req.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL.String()
	}
	if finalUrl != req.URL {
		r.tel.ReportDebug(report_resty_go, "redirected", req.URL, finalUrl)
	}

	headers := make(map[string]string, len(res.Header()))
	for k := range res.Header() {
		headers[k] = res.Header().Get(k)
	}

	return Response{
		StatusCode: res.StatusCode(),
		Body:       string(res.Body()),
		Headers:    headers,
		Elapsed:    res.Time(),
		URL:        finalUrl,
	}, nil
}
