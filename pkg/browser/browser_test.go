package browser

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scriptbrowser/internal/components/telemetry"
	"scriptbrowser/pkg/backend"
	"scriptbrowser/pkg/fixture"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func mockPage(body string) *fixture.MockResponse {
	resp := fixture.NewMockResponse()
	resp.Body = body
	return resp
}

func newTestBrowser(opts ...Option) (*Browser, *backend.Mock) {
	mock := backend.NewMock()
	opts = append([]Option{WithTelemetry(&telemetry.Recorder{})}, opts...)
	return New(mock, opts...), mock
}

const threeFieldForm = `
	<form method="post">
		<input type="text" name="one" value="one" />
		<input type="text" name="two" value="two" />
		<input type="text" name="three" value="three" />
		<input type="submit" />
	</form>
`

func TestFormSubmitPicksBestFit(t *testing.T) {
	b, mock := newTestBrowser()
	mock.Responses.Register(mockPage(threeFieldForm), "form")
	mock.Responses.Register(mockPage("wrong"), "form", fixture.WithMethod("POST"), fixture.WithData(fixture.Pairs(map[string]string{"one": "one"})))
	mock.Responses.Register(mockPage("wrong"), "form", fixture.WithMethod("POST"), fixture.WithData(fixture.Pairs(map[string]string{"two": "two"})))
	mock.Responses.Register(mockPage("right"), "form", fixture.WithMethod("POST"), fixture.WithData(fixture.Pairs(map[string]string{"one": "one", "two": "two"})))
	mock.Responses.Register(mockPage("wrong"), "form", fixture.WithMethod("POST"), fixture.WithData(fixture.Pairs(map[string]string{"three": "three"})))

	_, err := b.Go(context.Background(), "form")
	require.NoError(t, err)
	require.NoError(t, b.FormSelect(0))
	_, err = b.FormSubmit(context.Background())
	require.NoError(t, err)
	require.Equal(t, "right", b.Src())
}

func TestFormSubmitWithoutMatchingData(t *testing.T) {
	b, mock := newTestBrowser()
	mock.Responses.Register(mockPage(threeFieldForm), "form")
	mock.Responses.Register(mockPage("wrong"), "form", fixture.WithMethod("POST"), fixture.WithData(fixture.Pairs(map[string]string{"four": "four"})))

	_, err := b.Go(context.Background(), "form")
	require.NoError(t, err)
	require.NoError(t, b.FormSelect(0))
	_, err = b.FormSubmit(context.Background())
	require.ErrorIs(t, err, fixture.ErrNoFixture)

	// the form page is kept after a failed submit
	require.Equal(t, "form", b.URL())
}

func TestPageAccessors(t *testing.T) {
	b, mock := newTestBrowser()
	resp := mockPage(`<html><head><title>  Search  </title></head><body></body></html>`)
	resp.HTTPCode = 404
	resp.Headers = map[string]string{"Server": "mock"}
	resp.Roundtrip = 5 * time.Second
	mock.Responses.Register(resp, "duckduckgo.com/html")

	code, err := b.Go(context.Background(), "duckduckgo.com/html")
	require.NoError(t, err)
	require.Equal(t, 404, code)
	require.Equal(t, 404, b.StatusCode())
	require.Equal(t, "duckduckgo.com/html", b.URL())
	require.Equal(t, 5*time.Second, b.Roundtrip())
	require.Equal(t, map[string]string{"Server": "mock"}, b.Headers())
	require.Equal(t, "Search", b.Title())
}

func TestNoPage(t *testing.T) {
	b, _ := newTestBrowser()
	_, err := b.Forms()
	require.ErrorIs(t, err, ErrNoPage)
	require.Equal(t, "", b.Title())
	require.ErrorIs(t, b.Save(filepath.Join(t.TempDir(), "page.html")), ErrNoPage)
}

func TestNoFormSelected(t *testing.T) {
	b, mock := newTestBrowser()
	mock.Responses.Register(mockPage(threeFieldForm), "form")
	_, err := b.Go(context.Background(), "form")
	require.NoError(t, err)

	_, err = b.FormFields()
	require.ErrorIs(t, err, ErrNoFormSelected)
	require.ErrorIs(t, b.FormDataUpdate(map[string]string{"a": "b"}), ErrNoFormSelected)
	_, err = b.FormSubmit(context.Background())
	require.ErrorIs(t, err, ErrNoFormSelected)
}

func TestInjectedFailureReachesCaller(t *testing.T) {
	declared := errors.New("couldn't resolve host")
	b, mock := newTestBrowser()
	resp := fixture.NewMockResponse()
	resp.Failure = declared
	mock.Responses.Register(resp, "duckduckgo.com/html")

	_, err := b.Go(context.Background(), "duckduckgo.com/html")
	require.ErrorIs(t, err, declared)

	var transport *backend.TransportError
	require.True(t, errors.As(err, &transport))
}

const searchPage = `
<html><head><title>Search</title></head><body>
	<form name="lookup" id="lookup-form" class="wide" action="/html/search" method="get">
		<input type="hidden" name="kl" value="us-en" />
		<input type="text" name="q" />
		<input type="checkbox" name="safe" checked />
		<input type="checkbox" name="images" value="yes" />
		<input type="radio" name="size" value="small" />
		<input type="radio" name="size" value="large" checked />
		<textarea name="note">hello</textarea>
		<input type="text" name="locked" value="x" disabled />
		<select name="region">
			<option value="us">United States</option>
			<option value="uk" selected>United Kingdom</option>
		</select>
		<select name="lang">
			<option value="en">English</option>
			<option>Deutsch</option>
		</select>
		<input type="submit" name="go" value="Search" />
		<input type="submit" name="lucky" value="Feeling lucky" />
	</form>
	<form id="second"><input type="submit" /></form>
	<a href="/about">About  us</a>
	<a href="other">Other</a>
</body></html>
`

func loadSearch(t *testing.T) (*Browser, *backend.Mock) {
	t.Helper()
	b, mock := newTestBrowser()
	mock.Responses.Register(mockPage(searchPage), "http://canned/html")
	_, err := b.Go(context.Background(), "http://canned/html")
	require.NoError(t, err)
	return b, mock
}

func TestForms(t *testing.T) {
	b, _ := loadSearch(t)
	forms, err := b.Forms()
	require.NoError(t, err)

	diff := cmp.Diff([]FormInfo{
		{Number: 0, Name: "lookup", ID: "lookup-form", Class: "wide"},
		{Number: 1, ID: "second"},
	}, forms)
	require.Empty(t, diff)
}

func TestFormSelection(t *testing.T) {
	b, _ := loadSearch(t)

	require.NoError(t, b.FormSelectNamed("second"))
	fields, err := b.FormFields()
	require.NoError(t, err)
	require.Empty(t, fields)

	require.NoError(t, b.FormSelectNamed("lookup"))
	require.ErrorIs(t, b.FormSelectNamed("missing"), ErrNotFound)
	require.ErrorIs(t, b.FormSelect(5), ErrNotFound)
}

func TestFormFieldDefaults(t *testing.T) {
	b, _ := loadSearch(t)
	require.NoError(t, b.FormSelect(0))

	fields, err := b.FormFields()
	require.NoError(t, err)
	diff := cmp.Diff(map[string]string{
		"kl":     "us-en",
		"q":      "",
		"safe":   "on",
		"size":   "large",
		"note":   "hello",
		"region": "uk",
		"lang":   "en",
	}, fields)
	require.Empty(t, diff)
}

func TestFormDropdowns(t *testing.T) {
	b, _ := loadSearch(t)
	require.NoError(t, b.FormSelect(0))

	dropdowns, err := b.FormDropdowns()
	require.NoError(t, err)
	require.Equal(t, []string{"region", "lang"}, dropdowns)

	options, err := b.FormDropdownOptions("lang")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"English": "en", "Deutsch": "Deutsch"}, options)

	require.NoError(t, b.FormFillDropdown("region", "United States"))
	require.NoError(t, b.FormFillDropdown("lang", "Deutsch"))
	fields, err := b.FormFields()
	require.NoError(t, err)
	require.Equal(t, "us", fields["region"])
	require.Equal(t, "Deutsch", fields["lang"])

	require.NoError(t, b.FormFillDropdown("region", ""))
	fields, err = b.FormFields()
	require.NoError(t, err)
	require.Equal(t, "us", fields["region"])

	require.ErrorIs(t, b.FormFillDropdown("region", "France"), ErrNotFound)
	_, err = b.FormDropdownOptions("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFormSubmits(t *testing.T) {
	b, _ := loadSearch(t)
	require.NoError(t, b.FormSelect(0))

	submits, err := b.FormSubmits()
	require.NoError(t, err)
	diff := cmp.Diff([]SubmitInfo{
		{Number: 0, Name: "go", Value: "Search"},
		{Number: 1, Name: "lucky", Value: "Feeling lucky"},
	}, submits)
	require.Empty(t, diff)

	_, err = b.FormSubmit(context.Background())
	require.ErrorIs(t, err, ErrImplicitSubmit)
}

func TestFormSubmitGet(t *testing.T) {
	b, mock := loadSearch(t)
	require.NoError(t, b.FormSelect(0))
	require.NoError(t, b.FormDataUpdate(map[string]string{"q": "crumble"}))

	expected := "http://canned/html/search?go=Search&kl=us-en&lang=en&note=hello&q=crumble&region=uk&safe=on&size=large"
	mock.Responses.Register(mockPage("results"), expected)

	_, err := b.FormSubmitButtonNamed(context.Background(), "Search")
	require.NoError(t, err)
	require.Equal(t, "results", b.Src())
	require.Equal(t, expected, b.URL())

	// visiting resets the selected form
	_, err = b.FormFields()
	require.ErrorIs(t, err, ErrNoFormSelected)
}

func TestFormSubmitButtonByIndex(t *testing.T) {
	b, mock := loadSearch(t)
	require.NoError(t, b.FormSelect(0))
	mock.Responses.Register(
		mockPage("lucky"),
		"http://canned/html/search?kl=us-en&lang=en&lucky=Feeling+lucky&note=hello&q=&region=uk&safe=on&size=large",
	)

	_, err := b.FormSubmitButton(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "lucky", b.Src())

	require.NoError(t, b.FormSelect(0))
	_, err = b.FormSubmitButton(context.Background(), 7)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFormSubmitNoButton(t *testing.T) {
	b, mock := newTestBrowser()
	mock.Responses.Register(mockPage(`
		<form method="post" action="/login">
			<input type="text" name="user" value="adam" />
			<input type="submit" name="go" value="Login" />
		</form>
	`), "http://canned/")
	mock.Responses.Register(mockPage("welcome"), "http://canned/login",
		fixture.WithMethod("POST"),
		fixture.WithData(fixture.Pairs(map[string]string{"user": "adam"})),
	)
	mock.Responses.Register(mockPage("clicked"), "http://canned/login",
		fixture.WithMethod("POST"),
		fixture.WithData(fixture.Pairs(map[string]string{"user": "adam", "go": "Login"})),
	)

	_, err := b.Go(context.Background(), "http://canned/")
	require.NoError(t, err)
	require.NoError(t, b.FormSelect(0))
	_, err = b.FormSubmitNoButton(context.Background())
	require.NoError(t, err)
	require.Equal(t, "welcome", b.Src())

	calls := mock.Calls()
	last := calls[len(calls)-1]
	require.Equal(t, http.MethodPost, last.Method)
	require.Equal(t, "http://canned/login", last.URL)
}

func TestFormWithoutSubmit(t *testing.T) {
	b, mock := newTestBrowser()
	mock.Responses.Register(mockPage(`<form><input name="a" value="b"></form>`), "form")
	_, err := b.Go(context.Background(), "form")
	require.NoError(t, err)
	require.NoError(t, b.FormSelect(0))

	_, err = b.FormSubmits()
	require.ErrorIs(t, err, ErrNoSubmit)
	_, err = b.FormSubmit(context.Background())
	require.ErrorIs(t, err, ErrNoSubmit)
}

func TestFollowLink(t *testing.T) {
	testCases := []struct {
		name     string
		link     string
		expected string
	}{
		{name: "text", link: "About us", expected: "about"},
		{name: "xpath", link: "//a[2]", expected: "other"},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			b, mock := loadSearch(t)
			mock.Responses.Register(mockPage("about"), "http://canned/about")
			mock.Responses.Register(mockPage("other"), "http://canned/other")

			_, err := b.FollowLink(context.Background(), test.link)
			require.NoError(t, err)
			require.Equal(t, test.expected, b.Src())
		})
	}

	b, _ := loadSearch(t)
	_, err := b.FollowLink(context.Background(), "Missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestXPath(t *testing.T) {
	b, _ := loadSearch(t)
	nodes, err := b.XPath("//input[@type='submit']")
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	_, err = b.XPath("//[")
	require.Error(t, err)
}

func TestFollowsRedirects(t *testing.T) {
	moved := fixture.NewMockResponse()
	moved.HTTPCode = http.StatusMovedPermanently
	moved.Redirect = "http://canned/new"

	b, mock := newTestBrowser()
	mock.Responses.Register(moved, "http://canned/old")
	mock.Responses.Register(mockPage(`<a href="next">next</a>`), "http://canned/new")

	code, err := b.Go(context.Background(), "http://canned/old")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "http://canned/new", b.URL())

	links, err := b.Links(context.Background())
	require.NoError(t, err)
	require.Equal(t, "http://canned/next", links[0].Href)

	b, mock = newTestBrowser(WithFollow(false))
	mock.Responses.Register(moved, "http://canned/old")
	code, err = b.Go(context.Background(), "http://canned/old")
	require.NoError(t, err)
	require.Equal(t, http.StatusMovedPermanently, code)
}

func TestSave(t *testing.T) {
	b, mock := newTestBrowser()
	mock.Responses.Register(mockPage(`<a href="x">x</a>`), "http://canned/dir/")
	_, err := b.Go(context.Background(), "http://canned/dir/")
	require.NoError(t, err)

	dir := t.TempDir()
	raw := filepath.Join(dir, "raw.html")
	normalized := filepath.Join(dir, "normalized.html")
	require.NoError(t, b.Save(raw))
	require.NoError(t, b.SaveNormalized(normalized))

	contents, err := os.ReadFile(raw)
	require.NoError(t, err)
	require.Equal(t, `<a href="x">x</a>`, string(contents))

	contents, err = os.ReadFile(normalized)
	require.NoError(t, err)
	require.Contains(t, string(contents), `<html><head></head><body><a href="http://canned/dir/x">x</a></body></html>`)
}

func TestWithAuthReachesBackend(t *testing.T) {
	auth := backend.BasicAuth("user", "pass")
	b, mock := newTestBrowser(WithAuth(auth))
	mock.Responses.Register(mockPage(threeFieldForm), "form")
	mock.Responses.Register(mockPage("done"), "form", fixture.WithMethod("POST"), fixture.WithData(fixture.Pairs(map[string]string{"one": "one"})))

	_, err := b.Go(context.Background(), "form")
	require.NoError(t, err)
	require.NoError(t, b.FormSelect(0))
	_, err = b.FormSubmit(context.Background())
	require.NoError(t, err)

	calls := mock.Calls()
	require.Len(t, calls, 2)
	for _, call := range calls {
		require.Equal(t, auth, call.Auth)
	}
}
