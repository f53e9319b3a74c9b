package htmlutil

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("scriptbrowser/htmlutil")

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText drops non-printable characters, trims the text and collapses
// runs of whitespace into a single space.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

// ResolveURL makes href absolute against base. An empty href resolves to
// base itself. Only absolute bases are resolved against, otherwise href is
// returned unchanged.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return base
	}
	baseUrl, err := url.Parse(base)
	if err != nil || !baseUrl.IsAbs() {
		return href
	}
	link, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseUrl.ResolveReference(link).String()
}

type Anchor struct {
	Name string
	Href string
}

// GetAnchors lists the anchors in sel with their cleaned text and hrefs
// resolved against base.
func GetAnchors(ctx context.Context, base string, sel *goquery.Selection) []Anchor {
	_, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href, ok := GetAttr(n, "href")
		if !ok {
			continue
		}

		link, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "got error while parsing url")
			continue
		}

		name := CleanText(GetText(n))
		linkStr := ResolveURL(base, link.String())
		anchors = append(anchors, Anchor{
			Name: name,
			Href: linkStr,
		})
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("name", name),
			attribute.String("url", linkStr),
		))
	}

	return anchors
}

// GetAttr returns the value of an attribute and whether it was present.
func GetAttr(node *html.Node, key string) (string, bool) {
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// linkAttrs lists the attributes holding urls per element.
var linkAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"area":   "href",
	"form":   "action",
	"img":    "src",
	"script": "src",
	"iframe": "src",
}

// MakeLinksAbsolute rewrites every url attribute in the tree to be
// absolute against base. Empty form actions are left alone.
func MakeLinksAbsolute(root *html.Node, base string) {
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			key, ok := linkAttrs[n.Data]
			if ok {
				for i, a := range n.Attr {
					if a.Key != key || strings.TrimSpace(a.Val) == "" {
						continue
					}
					n.Attr[i].Val = ResolveURL(base, a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}
