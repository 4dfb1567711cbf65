package listing

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"precisebet/lib/dataset"
	"precisebet/lib/fetch"
	"precisebet/lib/scrapers"
	"precisebet/lib/table"
	"precisebet/lib/testutil"
	"precisebet/lib/timezone"
	"precisebet/lib/useragent"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/listing.html
var listingFixture string

var now = time.Date(2024, 6, 15, 21, 0, 0, 0, timezone.Location)

func row(t *testing.T, tbl *table.Table, key string) table.Row {
	r, ok := tbl.Row(key)
	require.True(t, ok, "missing row %s in %s", key, tbl.Schema.Name)
	return r
}

func TestParse(t *testing.T) {
	d := dataset.New()
	result, err := Parse(context.Background(), listingFixture, d, now)
	require.NoError(t, err)

	require.Equal(t, int64(24066), result.Period)
	require.Equal(t, 2, result.Matches)
	require.Equal(t, 1+1, result.Odds)
	require.Empty(t, result.Duplicates)
	require.Equal(t, []string{"a1145141", "a1145142"}, d.Match.Keys())

	kickoff := time.Date(2024, 6, 15, 20, 0, 0, 0, timezone.Location).Unix()
	want := table.Row{
		dataset.KeyPeriod:       int64(24066),
		dataset.KeySequence:     int64(1),
		dataset.KeyLeague:       "zuqiu-4820",
		dataset.KeyRound:        "第3轮",
		dataset.KeyKickoff:      kickoff,
		dataset.KeyStatus:       int64(4),
		dataset.KeyHostID:       int64(1234),
		dataset.KeyHostName:     "[5]阿森纳",
		dataset.KeyGuestID:      int64(5678),
		dataset.KeyGuestName:    "切尔西[8]",
		dataset.KeyHalfScore:    "1 - 0",
		dataset.KeyHandicapName: "受半球",
	}
	if diff := cmp.Diff(want, row(t, d.Match, "a1145141")); diff != "" {
		t.Fatalf("match row mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, int64(2), d.Score.Int("a1145141", dataset.KeyHostScore))
	require.Equal(t, int64(1), d.Score.Int("a1145141", dataset.KeyGuestScore))
	require.Equal(t, int64(4), d.Score.Int("a1145141", table.KeyUpdatedMatchStatus))
	require.Equal(t, float64(now.Unix()), d.Score.Float("a1145141", table.KeyUpdatedTime))
	require.Equal(t, int64(0), d.Score.Int("a1145142", dataset.KeyHostScore))

	for _, tbl := range []*table.Table{d.Value, d.Handicap, d.Recent} {
		require.True(t, tbl.Has("a1145141"), tbl.Schema.Name)
		require.False(t, dataset.Refreshed(tbl, "a1145141"), tbl.Schema.Name)
	}

	require.Equal(t, 1.85, d.Odd.Float("a1145141", dataset.KeyWin))
	require.Equal(t, 3.40, d.Odd.Float("a1145141", dataset.KeyDraw))
	require.Equal(t, 4.20, d.Odd.Float("a1145141", dataset.KeyLose))
	require.Equal(t, int64(4), d.Odd.Int("a1145141", table.KeyUpdatedMatchStatus))
	require.Equal(t, float64(0), d.Odd.Float("a1145142", dataset.KeyWin))
	require.True(t, dataset.Refreshed(d.Odd, "a1145142"))
	require.False(t, d.Odd.Has("a9999999"))

	require.Equal(t, "英超", d.League.String("zuqiu-4820", dataset.KeyName))
	require.Equal(t, "#FF6600", d.League.String("zuqiu-4820", dataset.KeyColor))
	require.Equal(t, dataset.LeagueTypeUnknown, d.League.String("zuqiu-4820", dataset.KeyType))

	require.Equal(t, []string{"42", "1234", "5678"}, d.Team.Keys())
	require.Equal(t, "阿森纳", d.Team.String("1234", dataset.KeyName))
	require.False(t, dataset.Refreshed(d.Team, "1234"))
}

func TestParseKeepsTeamValue(t *testing.T) {
	d := dataset.New()
	require.NoError(t, d.Team.Upsert("42", table.Row{
		dataset.KeyName:      "old name",
		dataset.KeyValue:     80000,
		table.KeyUpdatedTime: 100.0,
	}))
	require.NoError(t, d.League.Upsert("zuqiu-5000", table.Row{dataset.KeyType: dataset.LeagueTypeLeague}))

	_, err := Parse(context.Background(), listingFixture, d, now)
	require.NoError(t, err)

	require.Equal(t, "皇家马德里", d.Team.String("42", dataset.KeyName))
	value, ok := d.Team.NullableInt("42", dataset.KeyValue)
	require.True(t, ok)
	require.Equal(t, int64(80000), value)
	require.Equal(t, 100.0, d.Team.Float("42", table.KeyUpdatedTime))
	require.Equal(t, dataset.LeagueTypeLeague, d.League.String("zuqiu-5000", dataset.KeyType))
}

func withPeriod(period int64, half string) string {
	html := strings.Replace(listingFixture, `value="24066" selected="selected">24066`, fmt.Sprintf(`selected>%d`, period), 1)
	return strings.Replace(html, " 1 - 0 ", half, 1)
}

func TestParseDeduplicatesPeriods(t *testing.T) {
	earlier := withPeriod(24065, "early")
	later := withPeriod(24066, "late")

	inOrder := dataset.New()
	_, err := Parse(context.Background(), earlier, inOrder, now)
	require.NoError(t, err)
	result, err := Parse(context.Background(), later, inOrder, now)
	require.NoError(t, err)
	require.Len(t, result.Duplicates, 2)
	require.Equal(t, Duplicate{MatchKey: "a1145141", Period: 24066, ExistingPeriod: 24065}, result.Duplicates[0])
	require.Equal(t, 0, result.Matches)

	reversed := dataset.New()
	_, err = Parse(context.Background(), later, reversed, now)
	require.NoError(t, err)
	result, err = Parse(context.Background(), earlier, reversed, now)
	require.NoError(t, err)
	require.Empty(t, result.Duplicates)

	for _, d := range []*dataset.DataSet{inOrder, reversed} {
		require.Equal(t, int64(24065), d.Match.Int("a1145141", dataset.KeyPeriod))
		require.Equal(t, "early", d.Match.String("a1145141", dataset.KeyHalfScore))
	}
	if diff := cmp.Diff(row(t, inOrder.Match, "a1145141"), row(t, reversed.Match, "a1145141")); diff != "" {
		t.Fatalf("fetch order changed the result (-in order +reversed):\n%s", diff)
	}
}

func TestParseMissingPeriod(t *testing.T) {
	_, err := Parse(context.Background(), "<html><body><table><tbody></tbody></table></body></html>", dataset.New(), now)
	require.True(t, errors.Is(err, scrapers.ErrNotFound))
}

func TestParseWithoutOdds(t *testing.T) {
	html := strings.Replace(listingFixture, "var liveOddsList", "var other", 1)
	d := dataset.New()
	result, err := Parse(context.Background(), html, d, now)
	require.NoError(t, err)
	require.Equal(t, 0, result.Odds)
	require.False(t, dataset.Refreshed(d.Odd, "a1145141"))
}

func TestParseKickoff(t *testing.T) {
	ts, err := parseKickoff(24125, "12-31 23:59")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 12, 31, 23, 59, 0, 0, timezone.Location).Unix(), ts)
	require.Equal(t, time.Date(2024, 12, 31, 15, 59, 0, 0, time.UTC).Unix(), ts)

	_, err = parseKickoff(24125, "bad")
	require.Error(t, err)
}

func TestParseKickoffYearRollover(t *testing.T) {
	kickoff, err := ParseKickoff(25011, "12-31 20:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 12, 31, 20, 0, 0, 0, timezone.Location).Unix(), kickoff.Unix())

	kickoff, err = ParseKickoff(25011, "01-02 20:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 1, 2, 20, 0, 0, 0, timezone.Location).Unix(), kickoff.Unix())

	kickoff, err = ParseKickoff(24125, "12-31 20:00")
	require.NoError(t, err)
	require.Equal(t, 2024, kickoff.Year())
}

func TestFetch(t *testing.T) {
	encoded := testutil.EncodeGBK(t, listingFixture)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "24066", r.URL.Query().Get("e"))
		fmt.Fprint(w, encoded)
	}))
	defer srv.Close()

	client, err := fetch.NewClient(fetch.Options{})
	require.NoError(t, err)

	text, err := Fetch(context.Background(), scrapers.Options{
		Fetcher:  client,
		Agent:    useragent.Fixed("test"),
		Attempts: 1,
	}, srv.URL, 24066)
	require.NoError(t, err)
	require.Equal(t, listingFixture, text)
}
