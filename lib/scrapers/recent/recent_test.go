package recent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"precisebet/lib/fetch"
	"precisebet/lib/scrapers"
	"precisebet/lib/testutil"
	"precisebet/lib/useragent"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

// resultTable renders a team's match table: two header rows, one row per
// (competition, result) pair and a summary row.
func resultTable(rows ...[2]string) string {
	var b strings.Builder
	b.WriteString("<table><tr><th>赛事</th></tr><tr><th>日期</th></tr>")
	for _, r := range rows {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>d</td><td>h</td><td>s</td><td>g</td><td>%s</td></tr>", r[0], r[1])
	}
	b.WriteString("<tr><td colspan=\"6\">近6场 胜2 平1 负3</td></tr></table>")
	return b.String()
}

const recordCheck = `<div class="record_check">
<span class="mar_right15"><input type="checkbox" value="11">英超</span>
<span class="mar_right15"><input type="checkbox" value="54">球会友谊</span>
</div>`

func teamPanel(id string, table string) string {
	return fmt.Sprintf(`<div id="%s">%s%s</div>`, id, recordCheck, table)
}

func page() string {
	full := resultTable([2]string{"英超", "胜"}, [2]string{"球会友谊", "负"}, [2]string{"英超", "平"}, [2]string{"英超", "负"}, [2]string{"英超", "胜"})
	short := resultTable([2]string{"英超", "胜"})
	return `<html><body><input id="hash" value="abc123"/>
<div class="M_box record">
<div class="odds_zj_tubiao">` +
		teamPanel("team_zhanji1_1", full) +
		teamPanel("team_zhanji1_0", full) +
		`<div id="ignored">` + resultTable([2]string{"英超", "胜"}) + `</div>` +
		`</div>
<div class="odds_zj_tubiao">` +
		teamPanel("team_zhanji2_1", full) +
		teamPanel("team_zhanji2_0", short) +
		`</div>
</div></body></html>`
}

func TestParseResults(t *testing.T) {
	doc := resultTable([2]string{"球会友谊", "胜"}, [2]string{"英超", "平"}, [2]string{"英超", "?"}, [2]string{"英超", "负"}, [2]string{"英超", "胜"}, [2]string{"英超", "胜"})
	results := parseResultsFromHTML(t, doc)
	require.Equal(t, []string{Draw, Lose, Win}, results)
	require.Equal(t, []string{Win, Unknown, Unknown}, pad([]string{Win}))
}

func newScraper(t *testing.T, body string, detailHits *atomic.Int32) Scraper {
	encoded := testutil.EncodeGBK(t, body)

	mux := http.NewServeMux()
	mux.HandleFunc("/fenxi/shuju-1145141.shtml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, encoded)
	})
	mux.HandleFunc("/fenxi1/inc/shuju_zhanji2.php", func(w http.ResponseWriter, r *http.Request) {
		if detailHits != nil {
			detailHits.Add(1)
		}
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "1145141", r.PostForm.Get("id"))
		require.Equal(t, "abc123", r.PostForm.Get("hash"))
		require.Equal(t, "0", r.PostForm.Get("hoa"))
		require.Equal(t, "6", r.PostForm.Get("limit"))
		require.Equal(t, "1", r.PostForm.Get("match[11]"))
		require.Equal(t, "-1", r.PostForm.Get("match[54]"))
		fmt.Fprint(w, resultTable([2]string{"英超", "胜"}, [2]string{"英超", "负"}))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := fetch.NewClient(fetch.Options{})
	require.NoError(t, err)
	return Scraper{
		Options: scrapers.Options{
			Fetcher:  client,
			Agent:    useragent.Fixed("test"),
			Attempts: 1,
		},
		PageURLFormat:   srv.URL + "/fenxi/shuju-%s.shtml",
		DetailURLFormat: srv.URL + "/fenxi1/inc/shuju_zhanji%s.php",
	}
}

func TestRecent(t *testing.T) {
	var hits atomic.Int32
	scraper := newScraper(t, page(), &hits)

	results, err := scraper.Recent(context.Background(), "a1145141")
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{Win, Draw, Lose},
		{Win, Draw, Lose},
		{Win, Draw, Lose},
		{Win, Lose, Unknown},
	}, results)
	require.EqualValues(t, 1, hits.Load())
}

func TestRecentMissingHash(t *testing.T) {
	scraper := newScraper(t, "<html><body></body></html>", nil)
	_, err := scraper.Recent(context.Background(), "a1145141")
	require.True(t, errors.Is(err, scrapers.ErrNotFound))
}

func parseResultsFromHTML(t *testing.T, html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return parseResults(doc.Selection)
}
