package listing

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"precisebet/lib/dataset"
	"precisebet/lib/htmlutil"
	"precisebet/lib/scrapers"
	"precisebet/lib/table"
	"precisebet/lib/telemetry"
	"precisebet/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("precisebet.lib.scrapers.listing")

const DefaultURL = "https://live.500.com/zqdc.php"

// Fetch downloads the listing of a period, the current period when period is
// 0.
func Fetch(ctx context.Context, opts scrapers.Options, baseURL string, period int64) (string, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	link, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	if period != 0 {
		query := link.Query()
		query.Set("e", strconv.FormatInt(period, 10))
		link.RawQuery = query.Encode()
	}

	text, err := opts.Fetcher.Fetch(ctx, opts.Get(link.String(), scrapers.PageEncoding))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch listing")
		return "", err
	}
	return text, nil
}

// Duplicate is a match skipped because an earlier period already owns it.
type Duplicate struct {
	MatchKey       string
	Period         int64
	ExistingPeriod int64
}

type Result struct {
	Period     int64
	Matches    int
	Odds       int
	Duplicates []Duplicate
}

type match struct {
	key      string
	status   int
	sequence int64
	league   htmlutil.Anchor
	color    string
	round    string
	kickoff  int64

	hostID    int64
	hostName  string
	host      string
	guestID   int64
	guestName string
	guest     string

	hostScore    int64
	guestScore   int64
	handicapName string
	halfScore    string
}

// Parse merges a listing page into d. now stamps the rows refreshed by the
// listing itself (scores and odds).
func Parse(ctx context.Context, html string, d *dataset.DataSet, now time.Time) (Result, error) {
	ctx, span := tracer.Start(ctx, "Parse")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return Result{}, err
	}

	period, err := parsePeriod(doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to find period")
		return Result{}, err
	}
	span.SetAttributes(attribute.Int64("period", period))

	result := Result{Period: period}
	skipped := map[string]bool{}

	var rowErr error
	doc.Find("tbody").First().ChildrenFiltered("tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if _, child := tr.Attr("parentid"); child {
			return true
		}

		m, err := parseRow(tr, period)
		if err != nil {
			rowErr = fmt.Errorf("row %d: %w", i, err)
			return false
		}

		if d.Match.Has(m.key) {
			existing := d.Match.Int(m.key, dataset.KeyPeriod)
			if existing < period {
				slog.WarnContext(
					ctx, "duplicate match, keeping the earlier period",
					"match", m.key,
					"period", period,
					"existing_period", existing,
				)
				result.Duplicates = append(result.Duplicates, Duplicate{
					MatchKey:       m.key,
					Period:         period,
					ExistingPeriod: existing,
				})
				skipped[m.key] = true
				return true
			}
		}

		if err := store(d, m, period, now); err != nil {
			rowErr = err
			return false
		}
		result.Matches++
		return true
	})
	if rowErr != nil {
		span.RecordError(rowErr)
		span.SetStatus(codes.Error, "failed to parse match row")
		return Result{}, rowErr
	}

	odds, err := parseOdds(html)
	if err != nil {
		slog.WarnContext(ctx, "no live odds on listing page", "err", err)
	}
	for id, values := range odds {
		key := "a" + id
		if !d.Match.Has(key) || skipped[key] {
			continue
		}
		row := dataset.Provenance(dataset.OddSchema, now, int(d.Match.Int(key, dataset.KeyStatus)))
		row[dataset.KeyWin] = values[0]
		row[dataset.KeyDraw] = values[1]
		row[dataset.KeyLose] = values[2]
		if err := d.Odd.Upsert(key, row); err != nil {
			return Result{}, err
		}
		result.Odds++
	}

	d.Sort()
	return result, nil
}

func parsePeriod(doc *goquery.Document) (int64, error) {
	sel := doc.Find("#sel_expect").First()
	if sel.Length() == 0 {
		return 0, fmt.Errorf("period selector: %w", scrapers.ErrNotFound)
	}
	if selected := sel.Find("option[selected]").First(); selected.Length() > 0 {
		sel = selected
	}
	text := htmlutil.CleanText(sel)
	period, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("period %q: %w", text, err)
	}
	return period, nil
}

func parseRow(tr *goquery.Selection, period int64) (match, error) {
	key, ok := tr.Attr("id")
	if !ok || key == "" {
		return match{}, fmt.Errorf("match id: %w", scrapers.ErrNotFound)
	}
	status, err := strconv.Atoi(strings.TrimSpace(tr.AttrOr("status", "")))
	if err != nil {
		return match{}, fmt.Errorf("match %s status: %w", key, err)
	}

	tds := tr.ChildrenFiltered("td")
	if tds.Length() < 9 {
		return match{}, fmt.Errorf("match %s has %d cells: %w", key, tds.Length(), scrapers.ErrNotFound)
	}

	m := match{key: key, status: status}

	m.sequence, err = strconv.ParseInt(htmlutil.CleanText(tds.Eq(0)), 10, 64)
	if err != nil {
		return match{}, fmt.Errorf("match %s sequence: %w", key, err)
	}

	leagueTd := tds.Eq(1)
	m.league, ok = htmlutil.GetAnchor(leagueTd)
	if !ok || m.league.Segment(0) == "" {
		return match{}, fmt.Errorf("match %s league link: %w", key, scrapers.ErrNotFound)
	}
	m.league.Name = htmlutil.CleanText(leagueTd)
	m.color = leagueTd.AttrOr("bgcolor", "")
	m.round = htmlutil.CleanText(tds.Eq(2))

	m.kickoff, err = parseKickoff(period, htmlutil.CleanText(tds.Eq(3)))
	if err != nil {
		return match{}, fmt.Errorf("match %s kickoff: %w", key, err)
	}

	m.hostID, m.hostName, m.host, err = parseTeam(tds.Eq(5))
	if err != nil {
		return match{}, fmt.Errorf("match %s host: %w", key, err)
	}
	m.guestID, m.guestName, m.guest, err = parseTeam(tds.Eq(7))
	if err != nil {
		return match{}, fmt.Errorf("match %s guest: %w", key, err)
	}

	scoreTd := tds.Eq(6)
	m.hostScore, err = parseScore(scoreTd.Find("a.clt1").First())
	if err != nil {
		return match{}, fmt.Errorf("match %s host score: %w", key, err)
	}
	m.guestScore, err = parseScore(scoreTd.Find("a.clt3").First())
	if err != nil {
		return match{}, fmt.Errorf("match %s guest score: %w", key, err)
	}
	m.handicapName = htmlutil.CleanText(scoreTd.Find("a").Eq(1))
	m.halfScore = htmlutil.CleanText(tds.Eq(8))

	return m, nil
}

// firstIssues is how many periods at the start of a year can still list
// matches played the December before.
const firstIssues = 30

// KickoffInYear reads "MM-DD HH:MM", the year comes from the first two digits
// of the period.
func KickoffInYear(period int64, text string) (time.Time, error) {
	digits := strconv.FormatInt(period, 10)
	if len(digits) < 2 {
		return time.Time{}, fmt.Errorf("period %d has no year prefix", period)
	}
	return time.ParseInLocation("0601-02 15:04", digits[:2]+text, timezone.Location)
}

// ParseKickoff is KickoffInYear for listing periods, a December kickoff in
// one of the first issues of a year belongs to the year before.
func ParseKickoff(period int64, text string) (time.Time, error) {
	t, err := KickoffInYear(period, text)
	if err != nil {
		return time.Time{}, err
	}
	if t.Month() == time.December && period%1000 <= firstIssues {
		t = t.AddDate(-1, 0, 0)
	}
	return t, nil
}

func parseKickoff(period int64, text string) (int64, error) {
	t, err := ParseKickoff(period, text)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

// parseTeam returns the team code, the text of the whole cell (which may
// include a ranking) and the team name from its link.
func parseTeam(td *goquery.Selection) (int64, string, string, error) {
	anchor, ok := htmlutil.GetAnchor(td)
	if !ok {
		return 0, "", "", fmt.Errorf("team link: %w", scrapers.ErrNotFound)
	}
	id, err := strconv.ParseInt(anchor.Segment(1), 10, 64)
	if err != nil {
		return 0, "", "", fmt.Errorf("team code in %q: %w", anchor.Href, err)
	}
	return id, htmlutil.CleanText(td), anchor.Name, nil
}

func parseScore(sel *goquery.Selection) (int64, error) {
	text := htmlutil.CleanText(sel)
	if text == "" {
		return 0, nil
	}
	return strconv.ParseInt(text, 10, 64)
}

func store(d *dataset.DataSet, m match, period int64, now time.Time) error {
	err := d.Match.Upsert(m.key, table.Row{
		dataset.KeyPeriod:       period,
		dataset.KeySequence:     m.sequence,
		dataset.KeyLeague:       m.league.Segment(0),
		dataset.KeyRound:        m.round,
		dataset.KeyKickoff:      m.kickoff,
		dataset.KeyStatus:       m.status,
		dataset.KeyHostID:       m.hostID,
		dataset.KeyHostName:     m.hostName,
		dataset.KeyGuestID:      m.guestID,
		dataset.KeyGuestName:    m.guestName,
		dataset.KeyHalfScore:    m.halfScore,
		dataset.KeyHandicapName: m.handicapName,
	})
	if err != nil {
		return err
	}

	score := dataset.Provenance(dataset.ScoreSchema, now, m.status)
	score[dataset.KeyHostScore] = m.hostScore
	score[dataset.KeyGuestScore] = m.guestScore
	if err := d.Score.Upsert(m.key, score); err != nil {
		return err
	}

	for _, t := range []*table.Table{d.Value, d.Handicap, d.Odd, d.Recent} {
		if t.Has(m.key) {
			continue
		}
		if err := t.Upsert(m.key, table.Row{}); err != nil {
			return err
		}
	}

	err = d.League.Upsert(m.league.Segment(0), table.Row{
		dataset.KeyName:  m.league.Name,
		dataset.KeyColor: m.color,
	})
	if err != nil {
		return err
	}

	teams := map[int64]string{m.hostID: m.host, m.guestID: m.guest}
	for id, name := range teams {
		if err := d.Team.Upsert(strconv.FormatInt(id, 10), table.Row{dataset.KeyName: name}); err != nil {
			return err
		}
	}
	return nil
}

var liveOddsRegex = regexp.MustCompile(`var liveOddsList = ({.*});`)

// parseOdds reads the script blob keyed by numeric match id, entry "0" holds
// the win/draw/lose odds.
func parseOdds(html string) (map[string][3]float64, error) {
	groups := liveOddsRegex.FindStringSubmatch(html)
	if len(groups) < 2 {
		return nil, fmt.Errorf("liveOddsList: %w", scrapers.ErrNotFound)
	}

	var raw map[string]any
	if err := json5.Unmarshal([]byte(groups[1]), &raw); err != nil {
		return nil, fmt.Errorf("decode liveOddsList: %w", err)
	}

	result := make(map[string][3]float64, len(raw))
	for id, entry := range raw {
		var odds [3]float64
		companies, _ := entry.(map[string]any)
		list, _ := companies["0"].([]any)
		if len(list) >= 3 {
			for i := range odds {
				odds[i] = toFloat(list[i])
			}
		}
		result[id] = odds
	}
	return result, nil
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}
