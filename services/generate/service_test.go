package generate

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"precisebet/lib/dataset"
	"precisebet/lib/fetch"
	"precisebet/lib/scrapers"
	"precisebet/lib/table"
	"precisebet/lib/timezone"

	"github.com/stretchr/testify/require"
)

const page = `<html><body>
<select id="sel_expect"><option value="24100" selected>24100</option></select>
<table><tbody>
<tr id="a900" status="%d">
  <td>1</td>
  <td bgcolor="#112233"><a href="//liansai.500.com/zuqiu-77/">德甲</a></td>
  <td>第1轮</td>
  <td>08-20 21:30</td>
  <td></td>
  <td><a href="//liansai.500.com/team/11/">拜仁</a></td>
  <td><div class="pk"><a class="clt1">%s</a><a class="fgreen">一球</a><a class="clt3">%s</a></div></td>
  <td><a href="//liansai.500.com/team/22/">多特</a></td>
  <td></td>
</tr>
</tbody></table>
<script>var liveOddsList = {"900":{"0":["1.5","4.0","6.0"]}};</script>
</body></html>`

type fakeFetcher struct {
	pages    []string
	requests []fetch.Request
}

func (f *fakeFetcher) Fetch(_ context.Context, req fetch.Request) (string, error) {
	f.requests = append(f.requests, req)
	if len(f.pages) == 0 {
		return "", fmt.Errorf("no page left for %s", req.URL)
	}
	next := f.pages[0]
	f.pages = f.pages[1:]
	return next, nil
}

func TestGenerate(t *testing.T) {
	fetcher := &fakeFetcher{pages: []string{
		fmt.Sprintf(page, dataset.StatusNotStarted, "", ""),
		fmt.Sprintf(page, dataset.StatusEnded, "3", "1"),
	}}
	project := dataset.Project{Dir: t.TempDir()}
	service := Service{
		Project:    project,
		Options:    scrapers.Options{Fetcher: fetcher},
		ListingURL: "https://listing.test/zqdc.php",
		Clock:      timezone.FixedClock{T: time.Date(2024, 8, 20, 12, 0, 0, 0, timezone.Location)},
	}

	result, err := service.Generate(context.Background(), 24100)
	require.NoError(t, err)
	require.Equal(t, int64(24100), result.Period)
	require.Equal(t, 1, result.Matches)
	require.Equal(t, "https://listing.test/zqdc.php?e=24100", fetcher.requests[0].URL)
	require.Equal(t, scrapers.PageEncoding, fetcher.requests[0].Encoding)

	for _, name := range []string{"data", "score", "value", "handicap", "odd", "recent", "league", "team"} {
		require.FileExists(t, filepath.Join(project.Dir, name+".csv"))
	}
	layout, err := os.ReadFile(filepath.Join(project.Dir, "layout"))
	require.NoError(t, err)
	require.Equal(t, "2", strings.TrimSpace(string(layout)))

	// a valuation fetched between two listings survives the second one
	d, err := project.Load()
	require.NoError(t, err)
	require.NoError(t, d.Value.Upsert("a900", table.Row{dataset.KeyHostValue: 100, dataset.KeyGuestValue: 90}))
	require.NoError(t, project.Save(d, d.Value))

	_, err = service.Generate(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, "https://listing.test/zqdc.php", fetcher.requests[1].URL)

	d, err = project.Load()
	require.NoError(t, err)
	require.Equal(t, []string{"a900"}, d.Match.Keys())
	require.Equal(t, int64(dataset.StatusEnded), d.Match.Int("a900", dataset.KeyStatus))
	require.Equal(t, int64(3), d.Score.Int("a900", dataset.KeyHostScore))
	host, ok := d.Value.NullableInt("a900", dataset.KeyHostValue)
	require.True(t, ok)
	require.Equal(t, int64(100), host)
	require.Equal(t, 1.5, d.Odd.Float("a900", dataset.KeyWin))
	require.Equal(t, "德甲", d.League.String("zuqiu-77", dataset.KeyName))
	require.Equal(t, "多特", d.Team.String("22", dataset.KeyName))
}

func TestGenerateFetchError(t *testing.T) {
	project := dataset.Project{Dir: t.TempDir()}
	service := Service{Project: project, Options: scrapers.Options{Fetcher: &fakeFetcher{}}}

	_, err := service.Generate(context.Background(), 0)
	require.Error(t, err)
	require.NoFileExists(t, filepath.Join(project.Dir, "data.csv"))
}

func TestGenerateLogsDuplicateOnce(t *testing.T) {
	var logs bytes.Buffer
	defer slog.SetDefault(slog.Default())
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))

	earlier := strings.ReplaceAll(fmt.Sprintf(page, dataset.StatusEnded, "1", "0"), "24100", "24099")
	fetcher := &fakeFetcher{pages: []string{earlier, fmt.Sprintf(page, dataset.StatusEnded, "3", "1")}}
	project := dataset.Project{Dir: t.TempDir()}
	service := Service{Project: project, Options: scrapers.Options{Fetcher: fetcher}}

	_, err := service.Generate(context.Background(), 24099)
	require.NoError(t, err)
	result, err := service.Generate(context.Background(), 24100)
	require.NoError(t, err)
	require.Len(t, result.Duplicates, 1)
	require.Equal(t, 1, strings.Count(logs.String(), "match=a900 period=24100"))

	d, err := project.Load()
	require.NoError(t, err)
	require.Equal(t, int64(24099), d.Match.Int("a900", dataset.KeyPeriod))
}
