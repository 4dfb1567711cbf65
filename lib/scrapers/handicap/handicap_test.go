package handicap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"precisebet/lib/fetch"
	"precisebet/lib/scrapers"
	"precisebet/lib/useragent"

	"github.com/stretchr/testify/require"
)

const page = `<html><body><table>
<tr xls="row"><td>1</td><td>澳门</td><td></td><td>0.90</td><td>0.25</td><td>0.95</td></tr>
<tr xls="footer">
  <td colspan="2">平均值</td><td></td><td></td>
  <td>0.92</td><td>0.25</td><td>0.91</td>
  <td></td><td></td><td></td>
  <td>0.88</td><td>&nbsp;</td><td>1.01</td>
</tr>
</table></body></html>`

func TestParse(t *testing.T) {
	result, err := Parse(page)
	require.NoError(t, err)
	require.Equal(t, Handicap{0.92, 0.25, 0.91, 0.88, 0, 1.01}, result)
}

func TestParseMissingFooter(t *testing.T) {
	_, err := Parse("<html><body><table><tr><td>1</td></tr></table></body></html>")
	require.True(t, errors.Is(err, scrapers.ErrNotFound))
}

func newScraper(t *testing.T, body string) Scraper {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/fenxi/yazhi-1145141.shtml", r.URL.Path)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	client, err := fetch.NewClient(fetch.Options{})
	require.NoError(t, err)
	return Scraper{
		Options: scrapers.Options{
			Fetcher:  client,
			Agent:    useragent.Fixed("test"),
			Attempts: 1,
		},
		URLFormat: srv.URL + "/fenxi/yazhi-%s.shtml",
	}
}

func TestHandicap(t *testing.T) {
	result, err := newScraper(t, page).Handicap(context.Background(), "a1145141")
	require.NoError(t, err)
	require.Equal(t, 0.92, result[0])
}

func TestHandicapMissingPolicy(t *testing.T) {
	scraper := newScraper(t, "<html></html>")

	_, err := scraper.Handicap(context.Background(), "a1145141")
	require.True(t, errors.Is(err, scrapers.ErrNotFound))

	scraper.ZeroOnMissing = true
	result, err := scraper.Handicap(context.Background(), "a1145141")
	require.NoError(t, err)
	require.Equal(t, Handicap{}, result)
}
