package htmlutil

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

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

// CleanText trims the text of a selection and collapses inner whitespace.
func CleanText(sel *goquery.Selection) string {
	name := removeNonPrintable(sel.Text())
	name = strings.TrimSpace(name)
	return innerWhitespace.ReplaceAllString(name, " ")
}

type Anchor struct {
	Name string
	Href string
	// Segments are the non-empty path segments of Href, "//a.com/team/12/"
	// yields ["team", "12"].
	Segments []string
}

// Segment returns the i-th path segment or "" when the path is shorter.
func (a Anchor) Segment(i int) string {
	if i < 0 || i >= len(a.Segments) {
		return ""
	}
	return a.Segments[i]
}

// GetAnchor reads the first <a> in the selection (or the selection itself
// when it is an anchor). ok is false when there is no anchor with a
// parseable href.
func GetAnchor(sel *goquery.Selection) (Anchor, bool) {
	a := sel
	if goquery.NodeName(sel) != "a" {
		a = sel.Find("a").First()
	}
	href, exists := a.Attr("href")
	if !exists {
		return Anchor{}, false
	}

	link, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return Anchor{}, false
	}

	var segments []string
	for _, s := range strings.Split(link.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	return Anchor{
		Name:     CleanText(a),
		Href:     link.String(),
		Segments: segments,
	}, true
}
