// Package browser emulates a javascript-less web browser on top of a
// backend.Backend: it visits pages, fills and submits forms and follows
// links. Swapping the live backend for backend.Mock makes scripts written
// against it testable offline.
package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"os"
	"strings"
	"time"

	"scriptbrowser/internal/components/assert"
	"scriptbrowser/internal/components/telemetry"
	"scriptbrowser/pkg/backend"
	"scriptbrowser/pkg/fixture"
	"scriptbrowser/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

var (
	ErrNoPage         = errors.New("no page has been loaded")
	ErrNoFormSelected = errors.New("a form must be selected")
	ErrNotFound       = errors.New("not found")
	ErrImplicitSubmit = errors.New("implicit submit is not possible, an explicit submit button must be chosen")
	ErrNoSubmit       = errors.New("the selected form has no submit button")
)

const (
	report_browser_go    = "browser.go"
	report_browser_parse = "browser.parse"
)

type page struct {
	src       string
	url       string
	status    int
	headers   map[string]string
	roundtrip time.Duration
}

type Browser struct {
	backend backend.Backend
	opts    options
	tel     telemetry.API

	page *page
	root *html.Node
	doc  *goquery.Document

	form     *goquery.Selection
	formData map[string]string
}

type options struct {
	userAgent    string
	retries      int
	follow       bool
	maxRedirects int
	debug        bool
	headers      map[string]string
	auth         *backend.Auth
	tel          telemetry.API
}

type Option func(o *options)

func WithUserAgent(agent string) Option {
	return func(o *options) { o.userAgent = agent }
}

// WithRetries sets how many times a failed transport is retried.
func WithRetries(n int) Option {
	return func(o *options) { o.retries = n }
}

// WithFollow toggles following redirects, it is on by default.
func WithFollow(follow bool) Option {
	return func(o *options) { o.follow = follow }
}

func WithMaxRedirects(n int) Option {
	return func(o *options) { o.maxRedirects = n }
}

func WithDebug(debug bool) Option {
	return func(o *options) { o.debug = debug }
}

// WithHeaders sets the headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) { o.headers = maps.Clone(headers) }
}

// WithAuth authenticates every request the browser makes, see
// backend.BasicAuth and backend.DigestAuth.
func WithAuth(auth *backend.Auth) Option {
	return func(o *options) { o.auth = auth }
}

func WithTelemetry(tel telemetry.API) Option {
	return func(o *options) { o.tel = tel }
}

func New(b backend.Backend, opts ...Option) *Browser {
	assert.NotNil(b)

	o := options{
		userAgent:    backend.DefaultUserAgent,
		follow:       true,
		maxRedirects: backend.DefaultMaxRedirects,
		tel:          telemetry.SlogAPI{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Browser{
		backend: b,
		opts:    o,
		tel:     telemetry.NewScopedAPI("browser", o.tel),
	}
}

// Go visits url and returns the status code of the page it landed on.
func (b *Browser) Go(ctx context.Context, url string) (int, error) {
	return b.visit(ctx, url, http.MethodGet, fixture.NoData())
}

func (b *Browser) visit(ctx context.Context, url, method string, data fixture.Data) (int, error) {
	res, err := b.backend.Go(ctx, backend.Request{
		URL:          url,
		Method:       method,
		Data:         data,
		Headers:      b.opts.headers,
		Auth:         b.opts.auth,
		Follow:       b.opts.follow,
		MaxRedirects: b.opts.maxRedirects,
		UserAgent:    b.opts.userAgent,
		Retries:      b.opts.retries,
		Debug:        b.opts.debug,
	})
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, url, err)
	}

	landed := res.URL
	if landed == "" {
		landed = url
	}
	b.reset()
	b.page = &page{
		src:       res.Body,
		url:       landed,
		status:    res.StatusCode,
		headers:   res.Headers,
		roundtrip: res.Elapsed,
	}
	b.tel.ReportDebug(report_browser_go, method, url, res.StatusCode, res.Elapsed)

	return res.StatusCode, nil
}

func (b *Browser) reset() {
	b.page = nil
	b.root = nil
	b.doc = nil
	b.form = nil
	b.formData = nil
}

// parse builds the node tree of the current page once, with every link
// made absolute against the page's url.
func (b *Browser) parse() error {
	if b.page == nil {
		return ErrNoPage
	}
	if b.root != nil {
		return nil
	}

	root, err := htmlquery.Parse(strings.NewReader(b.page.src))
	if err != nil {
		b.tel.ReportBroken(report_browser_parse, err, b.page.url)
		return fmt.Errorf("parse page: %w", err)
	}
	htmlutil.MakeLinksAbsolute(root, b.page.url)

	b.root = root
	b.doc = goquery.NewDocumentFromNode(root)
	return nil
}

// Src returns the raw body of the current page.
func (b *Browser) Src() string {
	if b.page == nil {
		return ""
	}
	return b.page.src
}

// URL returns the url the last visit landed on after redirects.
func (b *Browser) URL() string {
	if b.page == nil {
		return ""
	}
	return b.page.url
}

func (b *Browser) StatusCode() int {
	if b.page == nil {
		return 0
	}
	return b.page.status
}

func (b *Browser) Headers() map[string]string {
	if b.page == nil {
		return nil
	}
	return maps.Clone(b.page.headers)
}

func (b *Browser) Roundtrip() time.Duration {
	if b.page == nil {
		return 0
	}
	return b.page.roundtrip
}

// Title returns the trimmed page title, or "" when there is none.
func (b *Browser) Title() string {
	if b.parse() != nil {
		return ""
	}
	title := htmlquery.FindOne(b.root, "/html/head/title")
	if title == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.InnerText(title))
}

// XPath evaluates expr against the current page.
func (b *Browser) XPath(expr string) ([]*html.Node, error) {
	err := b.parse()
	if err != nil {
		return nil, err
	}
	nodes, err := htmlquery.QueryAll(b.root, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath %q: %w", expr, err)
	}
	return nodes, nil
}

// Links lists the anchors of the current page.
func (b *Browser) Links(ctx context.Context) ([]htmlutil.Anchor, error) {
	err := b.parse()
	if err != nil {
		return nil, err
	}
	return htmlutil.GetAnchors(ctx, b.page.url, b.doc.Find("a[href]")), nil
}

// FollowLink visits the first link matching textOrXPath. An argument
// starting with "/" is an xpath selecting the anchor, anything else is
// matched against the anchors' text.
func (b *Browser) FollowLink(ctx context.Context, textOrXPath string) (int, error) {
	var href string
	if strings.HasPrefix(textOrXPath, "/") {
		nodes, err := b.XPath(textOrXPath)
		if err != nil {
			return 0, err
		}
		for _, n := range nodes {
			if value, ok := htmlutil.GetAttr(n, "href"); ok {
				href = value
				break
			}
		}
	} else {
		links, err := b.Links(ctx)
		if err != nil {
			return 0, err
		}
		for _, link := range links {
			if link.Name == textOrXPath {
				href = link.Href
				break
			}
		}
	}
	if href == "" {
		return 0, fmt.Errorf("link %q: %w", textOrXPath, ErrNotFound)
	}
	return b.Go(ctx, href)
}

// Save writes the current page to path as it was received.
func (b *Browser) Save(path string) error {
	if b.page == nil {
		return ErrNoPage
	}
	return os.WriteFile(path, []byte(b.page.src), 0644)
}

// SaveNormalized writes the current page to path re-rendered from its parsed
// tree, with every link absolute.
func (b *Browser) SaveNormalized(path string) error {
	err := b.parse()
	if err != nil {
		return err
	}
	var out bytes.Buffer
	err = html.Render(&out, b.root)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out.Bytes(), 0644)
}
