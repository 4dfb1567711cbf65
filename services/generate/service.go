// Package generate refreshes the project from a listing page: it creates the
// rows of new matches and updates scores, statuses and odds of known ones.
package generate

import (
	"context"
	"log/slog"

	"precisebet/lib/dataset"
	"precisebet/lib/scrapers"
	"precisebet/lib/scrapers/listing"
	"precisebet/lib/telemetry"
	"precisebet/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("precisebet.services.generate")

type Service struct {
	Project dataset.Project
	Options scrapers.Options
	// ListingURL defaults to listing.DefaultURL.
	ListingURL string
	Clock      timezone.Clock
}

func (s Service) listingURL() string {
	if s.ListingURL == "" {
		return listing.DefaultURL
	}
	return s.ListingURL
}

func (s Service) now() timezone.Clock {
	if s.Clock == nil {
		return timezone.SystemClock{}
	}
	return s.Clock
}

// Generate merges the listing of period, the current one when period is 0,
// into the project and saves every table.
func (s Service) Generate(ctx context.Context, period int64) (listing.Result, error) {
	ctx, span := tracer.Start(ctx, "Generate")
	defer span.End()
	span.SetAttributes(attribute.Int64("period", period))

	slog.InfoContext(ctx, "fetching listing", "period", period)
	html, err := listing.Fetch(ctx, s.Options, s.listingURL(), period)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch listing")
		return listing.Result{}, err
	}

	d, err := s.Project.Load()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load project")
		return listing.Result{}, err
	}

	slog.InfoContext(ctx, "parsing listing")
	result, err := listing.Parse(ctx, html, d, s.now().Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse listing")
		return listing.Result{}, err
	}

	if err := s.Project.Save(d); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save project")
		return listing.Result{}, err
	}

	slog.InfoContext(
		ctx, "listing parsed",
		"period", result.Period,
		"matches", result.Matches,
		"odds", result.Odds,
		"duplicates", len(result.Duplicates),
	)
	return result, nil
}
