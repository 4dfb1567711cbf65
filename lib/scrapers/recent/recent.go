package recent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"precisebet/lib/dataset"
	"precisebet/lib/htmlutil"
	"precisebet/lib/scrapers"
	"precisebet/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("precisebet.lib.scrapers.recent")

const (
	DefaultPageURL   = "https://odds.500.com/fenxi/shuju-%s.shtml"
	DefaultDetailURL = "https://odds.500.com/fenxi1/inc/shuju_zhanji%s.php"
)

const (
	Win     = "win"
	Draw    = "draw"
	Lose    = "lose"
	Unknown = "unknown"
)

// Count is how many results are kept per list.
const Count = 3

const friendly = "球会友谊"

var outcomes = map[string]string{
	"胜": Win,
	"平": Draw,
	"负": Lose,
}

type Scraper struct {
	Options scrapers.Options
	// PageURLFormat and DetailURLFormat receive the numeric match id and the
	// endpoint variant respectively.
	PageURLFormat   string
	DetailURLFormat string
}

// Recent returns one list of Count results per team panel of the match data
// page, in page order: host, guest, host at home, guest away.
func (s Scraper) Recent(ctx context.Context, matchKey string) ([][]string, error) {
	ctx, span := tracer.Start(ctx, "Recent")
	defer span.End()
	span.SetAttributes(attribute.String("match", matchKey))

	format := s.PageURLFormat
	if format == "" {
		format = DefaultPageURL
	}
	text, err := s.Options.Fetcher.Fetch(ctx, s.Options.Get(fmt.Sprintf(format, dataset.NumericID(matchKey)), scrapers.PageEncoding))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch match data page")
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, err
	}

	hash, ok := doc.Find("#hash").First().Attr("value")
	if !ok {
		err := fmt.Errorf("match %s query hash: %w", matchKey, scrapers.ErrNotFound)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to find query hash")
		return nil, err
	}

	record := doc.Find("div.M_box.record").First()
	if record.Length() == 0 {
		err := fmt.Errorf("match %s record box: %w", matchKey, scrapers.ErrNotFound)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to find record box")
		return nil, err
	}

	var result [][]string
	var panelErr error
	record.Find("div.odds_zj_tubiao").EachWithBreak(func(_ int, panel *goquery.Selection) bool {
		teams := panel.ChildrenFiltered("div")
		teams.Slice(0, min(2, teams.Length())).EachWithBreak(func(_ int, team *goquery.Selection) bool {
			results := parseResults(team)
			if len(results) < Count {
				results, panelErr = s.detailed(ctx, matchKey, hash, team, results)
				if panelErr != nil {
					return false
				}
			}
			result = append(result, pad(results))
			return true
		})
		return panelErr == nil
	})
	if panelErr != nil {
		span.RecordError(panelErr)
		span.SetStatus(codes.Error, "failed to fetch detailed results")
		return nil, panelErr
	}
	return result, nil
}

// detailed asks the ajax endpoint for more results of the team panel, leaving
// out friendlies. The results already found are kept when the panel has no
// query form.
func (s Scraper) detailed(ctx context.Context, matchKey, hash string, team *goquery.Selection, found []string) ([]string, error) {
	id := team.AttrOr("id", "")
	if len(id) <= 11 {
		slog.DebugContext(ctx, "team panel without variant id", "match", matchKey, "id", id)
		return found, nil
	}
	variant := strings.Split(id[11:], "_")
	if len(variant) < 2 {
		slog.DebugContext(ctx, "team panel without variant id", "match", matchKey, "id", id)
		return found, nil
	}

	form := map[string]string{
		"id":       dataset.NumericID(matchKey),
		"hash":     hash,
		"limit":    "6",
		"hoa":      variant[1],
		"bhbc":     "0",
		"callback": "ajax",
		"r":        "1",
	}
	team.Find("div.record_check span.mar_right15").Each(func(_ int, option *goquery.Selection) {
		matchType, ok := option.Find("input").First().Attr("value")
		if !ok {
			return
		}
		if htmlutil.CleanText(option) == friendly {
			form[fmt.Sprintf("match[%s]", matchType)] = "-1"
			return
		}
		form[fmt.Sprintf("match[%s]", matchType)] = "1"
	})

	format := s.DetailURLFormat
	if format == "" {
		format = DefaultDetailURL
	}
	slog.InfoContext(ctx, "not enough recent results, requesting more", "match", matchKey, "found", len(found))

	text, err := s.Options.Fetcher.Fetch(ctx, s.Options.Post(fmt.Sprintf(format, variant[0]), "utf-8", form))
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	return parseResults(doc.Selection), nil
}

// parseResults reads the result column of a team's match table, skipping the
// two header rows, the trailing summary row and friendlies.
func parseResults(sel *goquery.Selection) []string {
	trs := sel.Find("tr")
	if trs.Length() < 3 {
		return nil
	}

	var result []string
	trs.Slice(2, trs.Length()-1).EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		if len(result) >= Count {
			return false
		}
		tds := tr.ChildrenFiltered("td")
		if tds.Length() < 6 || htmlutil.CleanText(tds.Eq(0)) == friendly {
			return true
		}
		if outcome, ok := outcomes[htmlutil.CleanText(tds.Eq(5))]; ok {
			result = append(result, outcome)
		}
		return true
	})
	return result
}

func pad(results []string) []string {
	for len(results) < Count {
		results = append(results, Unknown)
	}
	return results
}
