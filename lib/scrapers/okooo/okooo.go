// Package okooo scrapes the danchang live center of okooo.com, a second
// source for the results and starting prices of the same lottery.
package okooo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"precisebet/lib/dataset"
	"precisebet/lib/fetch"
	"precisebet/lib/htmlutil"
	"precisebet/lib/scrapers"
	"precisebet/lib/scrapers/listing"
	"precisebet/lib/table"
	"precisebet/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("precisebet.lib.scrapers.okooo")

const DefaultURL = "https://www.okooo.com/livecenter/danchang"

const (
	ResultWin  = "胜"
	ResultDraw = "平"
	ResultLose = "负"
)

// Warmup visits the live center once so the session gets its cookies. The
// site turns the first visit of a session away with a 405, which is fine.
func Warmup(ctx context.Context, opts scrapers.Options, baseURL string) error {
	ctx, span := tracer.Start(ctx, "Warmup")
	defer span.End()

	req := opts.Get(baseURL, scrapers.PageEncoding)
	req.Attempts = 1
	_, err := opts.Fetcher.Fetch(ctx, req)

	var reqErr *fetch.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusMethodNotAllowed {
		slog.InfoContext(ctx, "first visit answered with 405, continuing")
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "warmup failed")
	}
	return err
}

// Fetch downloads the live center of a period, the current one when period
// is 0.
func Fetch(ctx context.Context, opts scrapers.Options, baseURL string, period int64) (string, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.Int64("period", period))

	link, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	if period != 0 {
		query := link.Query()
		query.Set("date", strconv.FormatInt(period, 10))
		link.RawQuery = query.Encode()
	}

	text, err := opts.Fetcher.Fetch(ctx, opts.Get(link.String(), scrapers.PageEncoding))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch live center")
		return "", err
	}
	return text, nil
}

type Match struct {
	Key      string
	Period   int64
	Sequence int64
	League   string
	Kickoff  time.Time
	Host     string
	// Score is the score cell as shown, half time included.
	Score  string
	Guest  string
	Result string

	Win, Draw, Lose float64
}

type Page struct {
	Period  int64
	Matches []Match
}

// NextPeriod steps to the following period: five issues per month, the
// month after December is January of the next year.
func NextPeriod(period int64) int64 {
	if period%10 == 5 {
		period += 6
	} else {
		period++
	}
	if period%1000/10 == 13 {
		period += 880
	}
	return period
}

// Kickoff reads "MM-DD HH:MM" of a period. The first issue of January lists
// matches of the December before.
func Kickoff(period int64, text string) (time.Time, error) {
	t, err := listing.KickoffInYear(period, text)
	if err != nil {
		return time.Time{}, err
	}
	if period%100 == 11 && t.Month() == time.December {
		t = t.AddDate(-1, 0, 0)
	}
	return t, nil
}

func parsePeriod(doc *goquery.Document) (int64, error) {
	sel := doc.Find("#select_qihao").First()
	if sel.Length() == 0 {
		return 0, fmt.Errorf("period selector: %w", scrapers.ErrNotFound)
	}
	text := strings.TrimRightFunc(htmlutil.CleanText(sel), func(r rune) bool {
		return !unicode.IsDigit(r)
	})
	period, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("period %q: %w", text, err)
	}
	return period, nil
}

func parseResult(text string) string {
	switch text {
	case "3":
		return ResultWin
	case "1":
		return ResultDraw
	case "0":
		return ResultLose
	}
	return ""
}

func parseRow(tr *goquery.Selection, key string, period int64) (Match, error) {
	tds := tr.ChildrenFiltered("td")
	if tds.Length() < 11 {
		return Match{}, fmt.Errorf("match %s has %d cells: %w", key, tds.Length(), scrapers.ErrNotFound)
	}

	m := Match{
		Key:    key,
		Period: period,
		League: tr.AttrOr("type", ""),
		Host:   htmlutil.CleanText(tds.Eq(4).Find("a").First()),
		Score:  htmlutil.CleanText(tds.Eq(5)),
		Guest:  htmlutil.CleanText(tds.Eq(6).Find("a").First()),
		Result: parseResult(htmlutil.CleanText(tds.Eq(10))),
	}

	var err error
	m.Sequence, err = strconv.ParseInt(htmlutil.CleanText(tds.Eq(0)), 10, 64)
	if err != nil {
		return Match{}, fmt.Errorf("match %s sequence: %w", key, err)
	}
	m.Kickoff, err = Kickoff(period, htmlutil.CleanText(tds.Eq(2)))
	if err != nil {
		return Match{}, fmt.Errorf("match %s kickoff: %w", key, err)
	}

	spans := tds.Eq(9).Find("span")
	if spans.Length() < 3 {
		return Match{}, fmt.Errorf("match %s prices: %w", key, scrapers.ErrNotFound)
	}
	prices := make([]float64, 3)
	for i := range prices {
		prices[i], err = strconv.ParseFloat(htmlutil.CleanText(spans.Eq(i)), 64)
		if err != nil {
			return Match{}, fmt.Errorf("match %s price %d: %w", key, i, err)
		}
	}
	m.Win, m.Draw, m.Lose = prices[0], prices[1], prices[2]
	return m, nil
}

// Parse reads every match row of a live center page.
func Parse(ctx context.Context, html string) (Page, error) {
	ctx, span := tracer.Start(ctx, "Parse")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Page{}, err
	}
	period, err := parsePeriod(doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read period")
		return Page{}, err
	}
	span.SetAttributes(attribute.Int64("period", period))

	page := Page{Period: period}
	var rowErr error
	doc.Find("tbody").First().Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		key, ok := tr.Attr("matchid")
		if !ok {
			return true
		}
		m, err := parseRow(tr, key, period)
		if err != nil {
			rowErr = err
			return false
		}
		page.Matches = append(page.Matches, m)
		return true
	})
	if rowErr != nil {
		span.RecordError(rowErr)
		span.SetStatus(codes.Error, "failed to parse match row")
		return Page{}, rowErr
	}

	slog.DebugContext(ctx, "parsed live center", "period", period, "matches", len(page.Matches))
	return page, nil
}

// Merge upserts the matches of page into t and returns the keys written. A
// match already stored under a later period is kept there.
func Merge(ctx context.Context, t *table.Table, page Page, now time.Time) ([]string, error) {
	provenance := dataset.Provenance(t.Schema, now, 0)

	var written []string
	for _, m := range page.Matches {
		if t.Has(m.Key) {
			existing := t.Int(m.Key, dataset.KeyPeriod)
			if existing > m.Period {
				slog.WarnContext(
					ctx, "duplicate match, keeping the later period",
					"match", m.Key,
					"period", m.Period,
					"existing_period", existing,
				)
				continue
			}
		}

		row := table.Row{
			dataset.KeyPeriod:     m.Period,
			dataset.KeySequence:   m.Sequence,
			dataset.KeyLeagueName: m.League,
			dataset.KeyKickoff:    m.Kickoff.Unix(),
			dataset.KeyHostName:   m.Host,
			dataset.KeyScore:      m.Score,
			dataset.KeyGuestName:  m.Guest,
			dataset.KeyResult:     m.Result,
			dataset.KeyWin:        m.Win,
			dataset.KeyDraw:       m.Draw,
			dataset.KeyLose:       m.Lose,
		}
		for k, v := range provenance {
			row[k] = v
		}
		if err := t.Upsert(m.Key, row); err != nil {
			return written, fmt.Errorf("match %s: %w", m.Key, err)
		}
		written = append(written, m.Key)
	}
	return written, nil
}
