package handicap

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"precisebet/lib/dataset"
	"precisebet/lib/htmlutil"
	"precisebet/lib/scrapers"
	"precisebet/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("precisebet.lib.scrapers.handicap")

const DefaultURL = "https://odds.500.com/fenxi/yazhi-%s.shtml"

// Handicap holds the average live line then the average early line, each as
// water, handicap, water.
type Handicap [6]float64

// cells of the footer row that hold the averages
var footerCells = [6]int{3, 4, 5, 9, 10, 11}

type Scraper struct {
	Options scrapers.Options
	// URLFormat receives the numeric match id.
	URLFormat string
	// ZeroOnMissing returns an all zero handicap instead of ErrNotFound when
	// the page has no footer row.
	ZeroOnMissing bool
}

func (s Scraper) Handicap(ctx context.Context, matchKey string) (Handicap, error) {
	ctx, span := tracer.Start(ctx, "Handicap")
	defer span.End()
	span.SetAttributes(attribute.String("match", matchKey))

	format := s.URLFormat
	if format == "" {
		format = DefaultURL
	}
	link := fmt.Sprintf(format, dataset.NumericID(matchKey))

	text, err := s.Options.Fetcher.Fetch(ctx, s.Options.Get(link, scrapers.PageEncoding))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch handicap page")
		return Handicap{}, err
	}

	result, err := Parse(text)
	if err != nil {
		if s.ZeroOnMissing {
			slog.WarnContext(ctx, "handicap not found, using zeros", "match", matchKey, "err", err)
			return Handicap{}, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse handicap page")
		return Handicap{}, fmt.Errorf("match %s: %w", matchKey, err)
	}
	return result, nil
}

// Parse reads the averages from the footer row of the odds table, blank cells
// are 0.
func Parse(html string) (Handicap, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Handicap{}, err
	}

	footer := doc.Find(`tr[xls="footer"]`).First()
	if footer.Length() == 0 {
		return Handicap{}, fmt.Errorf("handicap footer: %w", scrapers.ErrNotFound)
	}
	tds := footer.ChildrenFiltered("td")
	if tds.Length() <= footerCells[len(footerCells)-1] {
		return Handicap{}, fmt.Errorf("handicap footer has %d cells: %w", tds.Length(), scrapers.ErrNotFound)
	}

	var result Handicap
	for i, pos := range footerCells {
		text := htmlutil.CleanText(tds.Eq(pos))
		if text == "" {
			continue
		}
		value, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Handicap{}, fmt.Errorf("handicap cell %d %q: %w", pos, text, err)
		}
		result[i] = value
	}
	return result, nil
}
