package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestGetAnchor(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<table><tr><td id="host">[3] <a href="//liansai.500.com/team/1234/"> Arsenal
		 FC </a></td><td id="none">plain</td></tr></table>`,
	))
	require.NoError(t, err)

	anchor, ok := GetAnchor(doc.Find("#host"))
	require.True(t, ok)
	require.Equal(t, "Arsenal FC", anchor.Name)
	require.Equal(t, []string{"team", "1234"}, anchor.Segments)
	require.Equal(t, "1234", anchor.Segment(1))
	require.Equal(t, "", anchor.Segment(5))

	_, ok = GetAnchor(doc.Find("#none"))
	require.False(t, ok)
}

func TestCleanText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<p>  a \n\t  b  </p>"))
	require.NoError(t, err)
	require.Equal(t, "a b", CleanText(doc.Find("p")))
}
