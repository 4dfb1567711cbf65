package team

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"precisebet/lib/scrapers"
	"precisebet/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("precisebet.lib.scrapers.team")

const DefaultURL = "https://liansai.500.com/team/"

var (
	nameRegex  = regexp.MustCompile(`<h2 class="lsnav_qdnav_name">(.+?)</h2>`)
	valueRegex = regexp.MustCompile(`球队身价[：:]\s*(?:&euro;|€)?\s*([\d.]+)\s*(万|亿)`)
)

type Scraper struct {
	Options scrapers.Options
	// BaseURL is the team page prefix, the team code is appended to it.
	BaseURL string
}

// Value returns the valuation of a team in ten-thousands of euros, 0 when the
// page does not show one.
func (s Scraper) Value(ctx context.Context, teamID int64) (int64, error) {
	ctx, span := tracer.Start(ctx, "Value")
	defer span.End()
	span.SetAttributes(attribute.Int64("team_id", teamID))

	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = DefaultURL
	}
	link := baseURL + strconv.FormatInt(teamID, 10)

	text, err := s.Options.Fetcher.Fetch(ctx, s.Options.Get(link, scrapers.PageEncoding))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch team page")
		return 0, err
	}

	if groups := nameRegex.FindStringSubmatch(text); len(groups) == 2 {
		slog.InfoContext(ctx, "team page", "team_id", teamID, "name", strings.TrimSpace(groups[1]))
	} else {
		slog.WarnContext(ctx, "team name not found", "team_id", teamID)
	}

	value, err := ParseValue(text)
	if err != nil {
		slog.WarnContext(ctx, "team value not found, using 0", "team_id", teamID, "err", err)
		return 0, nil
	}
	return value, nil
}

// ParseValue finds the labelled valuation in a team page and converts it to
// ten-thousands: "1.5亿" is 15000.
func ParseValue(text string) (int64, error) {
	groups := valueRegex.FindStringSubmatch(text)
	if len(groups) != 3 {
		return 0, fmt.Errorf("team value: %w", scrapers.ErrNotFound)
	}
	amount, err := strconv.ParseFloat(groups[1], 64)
	if err != nil {
		return 0, fmt.Errorf("team value %q: %w", groups[1], err)
	}
	if groups[2] == "亿" {
		amount *= 10000
	}
	return int64(amount + 0.5), nil
}
