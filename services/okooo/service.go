// Package okooo collects the danchang results of okooo.com over a range of
// periods and writes one report per period.
package okooo

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"precisebet/lib/dataset"
	"precisebet/lib/scrapers"
	"precisebet/lib/scrapers/okooo"
	"precisebet/lib/table"
	"precisebet/lib/telemetry"
	"precisebet/lib/timezone"
	"precisebet/services/export"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("precisebet.services.okooo")

// ReportDir is the directory of the per period reports inside the project.
const ReportDir = "okooo"

type Options struct {
	Start, End int64
	// Interval is the wait between two periods.
	Interval time.Duration
	Format   export.Format
}

func (o Options) validate() error {
	if o.End < o.Start {
		return fmt.Errorf("end period %d is before start period %d", o.End, o.Start)
	}
	if o.Format == export.FormatSQLite {
		return fmt.Errorf("format %s is not available for period reports", o.Format)
	}
	return nil
}

type Service struct {
	Project dataset.Project
	Options scrapers.Options
	// URL defaults to okooo.DefaultURL.
	URL   string
	Clock timezone.Clock
	// Sleep replaces the wait between periods.
	Sleep func(ctx context.Context, d time.Duration) error
}

type Result struct {
	Periods     []int64
	Reports     []string
	Interrupted bool
}

func (s Service) url() string {
	if s.URL == "" {
		return okooo.DefaultURL
	}
	return s.URL
}

func (s Service) clock() timezone.Clock {
	if s.Clock == nil {
		return timezone.SystemClock{}
	}
	return s.Clock
}

func (s Service) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s Service) tablePath() string {
	return s.Project.Path(dataset.OkoooSchema)
}

// Run walks the periods from Start to End. Each page is merged into the
// project table and its matches written as a report. An interrupt stops the
// walk before the next period.
func (s Service) Run(ctx context.Context, opts Options) (Result, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("start", opts.Start),
		attribute.Int64("end", opts.End),
	)

	fail := func(err error, msg string) (Result, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		return Result{}, err
	}

	if err := opts.validate(); err != nil {
		return fail(err, "invalid options")
	}

	stored, err := table.ReadFile(s.tablePath(), dataset.OkoooSchema)
	if err != nil {
		return fail(err, "failed to read table")
	}

	if err := okooo.Warmup(ctx, s.Options, s.url()); err != nil {
		return fail(err, "warmup failed")
	}

	var result Result
	for period := opts.Start; period <= opts.End; period = okooo.NextPeriod(period) {
		if period != opts.Start {
			slog.InfoContext(ctx, "waiting before the next period", "wait", opts.Interval)
			if err := s.sleep(ctx, opts.Interval); err != nil {
				result.Interrupted = true
				return result, nil
			}
		}

		report, err := s.period(ctx, stored, period, opts.Format)
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			result.Interrupted = true
			return result, nil
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "period failed")
			return result, fmt.Errorf("period %d: %w", period, err)
		}
		result.Periods = append(result.Periods, period)
		result.Reports = append(result.Reports, report)
	}
	return result, nil
}

func (s Service) period(ctx context.Context, stored *table.Table, period int64, format export.Format) (string, error) {
	html, err := okooo.Fetch(ctx, s.Options, s.url(), period)
	if err != nil {
		return "", err
	}
	page, err := okooo.Parse(ctx, html)
	if err != nil {
		return "", err
	}

	written, err := okooo.Merge(ctx, stored, page, s.clock().Now())
	if err != nil {
		return "", err
	}
	if err := stored.WriteFile(s.tablePath()); err != nil {
		return "", err
	}

	dir := filepath.Join(s.Project.Dir, ReportDir)
	if err := os.MkdirAll(dir, 0777); err != nil {
		return "", err
	}
	path := filepath.Join(dir, strconv.FormatInt(page.Period, 10)+format.Extension())
	if err := export.WriteSheetFile(path, Sheet(stored, page.Period, timezone.Location), format); err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "period collected", "period", page.Period, "matches", len(written), "report", path)
	return path, nil
}

var Header = []string{
	"期号", "场次", "赛事", "比赛时间", "主队名称", "比分", "客队名称", "结果", "胜", "平", "负",
}

// index of the win price in Header
const winCell = 8

// Sheet lays out the matches of one period ordered by sequence, the price
// matching the result is marked.
func Sheet(t *table.Table, period int64, loc *time.Location) export.Sheet {
	var keys []string
	for _, key := range t.Keys() {
		if t.Int(key, dataset.KeyPeriod) == period {
			keys = append(keys, key)
		}
	}
	slices.SortStableFunc(keys, func(a, b string) int {
		return cmp.Compare(t.Int(a, dataset.KeySequence), t.Int(b, dataset.KeySequence))
	})

	s := export.Sheet{Name: strconv.FormatInt(period, 10), Header: Header}
	for _, key := range keys {
		result := t.String(key, dataset.KeyResult)
		s.Rows = append(s.Rows, []string{
			strconv.FormatInt(period, 10),
			strconv.FormatInt(t.Int(key, dataset.KeySequence), 10),
			t.String(key, dataset.KeyLeagueName),
			time.Unix(t.Int(key, dataset.KeyKickoff), 0).In(loc).Format(export.KickoffLayout),
			t.String(key, dataset.KeyHostName),
			t.String(key, dataset.KeyScore),
			t.String(key, dataset.KeyGuestName),
			result,
			strconv.FormatFloat(t.Float(key, dataset.KeyWin), 'f', -1, 64),
			strconv.FormatFloat(t.Float(key, dataset.KeyDraw), 'f', -1, 64),
			strconv.FormatFloat(t.Float(key, dataset.KeyLose), 'f', -1, 64),
		})

		classes := map[int]string{}
		for i, r := range []string{okooo.ResultWin, okooo.ResultDraw, okooo.ResultLose} {
			if result == r {
				classes[winCell+i] = export.ClassResult
			}
		}
		s.Classes = append(s.Classes, classes)
	}
	return s
}
