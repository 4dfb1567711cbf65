// Package flow chains the other services: it generates the listing of a
// period, refreshes valuations and handicaps, repeats, then exports a report.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"precisebet/lib/schedule"
	"precisebet/lib/scrapers/listing"
	"precisebet/lib/telemetry"
	"precisebet/services/export"
	"precisebet/services/update"

	"go.opentelemetry.io/otel/attribute"
)

var tracer = telemetry.Tracer("precisebet.services.flow")

type Generator interface {
	Generate(ctx context.Context, period int64) (listing.Result, error)
}

type Updater interface {
	Update(ctx context.Context, action update.Action, opts update.Options) (schedule.Summary, error)
}

type Exporter interface {
	Export(ctx context.Context, format export.Format, fileName string) (string, error)
}

type Options struct {
	Period int64
	// FullUpdate also refreshes the valuations of matches never valued.
	FullUpdate bool
	// Interval is the wait between two executions.
	Interval time.Duration
	// RetryTimes is how many failures in a row are tolerated.
	RetryTimes int
	// ExecuteTimes is how many executions to run, 0 runs until interrupted.
	ExecuteTimes int
	// Update is the base of the options of both update steps.
	Update       update.Options
	ExportFormat export.Format
}

func DefaultOptions() Options {
	return Options{
		FullUpdate:   true,
		RetryTimes:   3,
		ExecuteTimes: 1,
		Update:       update.DefaultOptions(),
		ExportFormat: export.FormatHTML,
	}
}

type Service struct {
	Generator Generator
	Updater   Updater
	Exporter  Exporter
	Value     update.Action
	Handicap  update.Action
	// Sleep replaces the wait between executions.
	Sleep func(ctx context.Context, d time.Duration) error
}

type Result struct {
	Executions  int
	Interrupted bool
	// Report is the path of the exported report.
	Report string
}

type step struct {
	name string
	run  func(ctx context.Context) (interrupted bool, err error)
}

func (s Service) steps(opts Options) []step {
	updateStep := func(action update.Action, options update.Options) func(ctx context.Context) (bool, error) {
		return func(ctx context.Context) (bool, error) {
			summary, err := s.Updater.Update(ctx, action, options)
			return summary.Interrupted, err
		}
	}

	steps := []step{{
		name: "generate",
		run: func(ctx context.Context) (bool, error) {
			_, err := s.Generator.Generate(ctx, opts.Period)
			return false, err
		},
	}}

	if opts.FullUpdate {
		valueOptions := opts.Update
		valueOptions.Period = opts.Period
		valueOptions.Filter.OnlyNew = true
		steps = append(steps, step{name: s.Value.Name(), run: updateStep(s.Value, valueOptions)})
	}

	handicapOptions := opts.Update
	handicapOptions.Period = opts.Period
	steps = append(steps, step{name: s.Handicap.Name(), run: updateStep(s.Handicap, handicapOptions)})
	return steps
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

// Run executes the flow. A failed step is retried from where it failed, the
// run gives up once more than RetryTimes failures happen in a row. The report
// is exported even when the run is interrupted.
func (s Service) Run(ctx context.Context, opts Options) (Result, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("period", opts.Period),
		attribute.Int("execute_times", opts.ExecuteTimes),
	)

	retryTimes := max(opts.RetryTimes, 0)
	steps := s.steps(opts)

	var result Result
	next := 0
	failures := 0

	for opts.ExecuteTimes < 1 || result.Executions < opts.ExecuteTimes {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}

		slog.InfoContext(
			ctx, "starting execution",
			"execution", result.Executions+1,
			"of", opts.ExecuteTimes,
			"resume", next > 0,
		)

		interrupted, err := s.execute(ctx, steps, &next)
		if interrupted || (err != nil && ctx.Err() != nil) {
			result.Interrupted = true
			break
		}
		if err != nil {
			failures++
			if failures > retryTimes {
				span.RecordError(err)
				return result, fmt.Errorf("flow step %s: %w", steps[next].name, err)
			}
			slog.WarnContext(ctx, "flow step failed, retrying", "step", steps[next].name, "failure", failures, "of", retryTimes, "err", err)
			continue
		}

		result.Executions++
		next = 0
		failures = 0

		if opts.Interval > 0 && (opts.ExecuteTimes < 1 || result.Executions < opts.ExecuteTimes) {
			if err := s.sleep(ctx, opts.Interval); err != nil {
				result.Interrupted = true
				break
			}
		}
	}

	if result.Interrupted {
		slog.WarnContext(ctx, "flow interrupted", "executions", result.Executions)
	}

	path, err := s.Exporter.Export(context.WithoutCancel(ctx), opts.ExportFormat, "")
	if err != nil {
		span.RecordError(err)
		return result, err
	}
	result.Report = path
	return result, nil
}

// execute runs steps from *next on, leaving *next at the failed step.
func (s Service) execute(ctx context.Context, steps []step, next *int) (bool, error) {
	for ; *next < len(steps); *next++ {
		slog.InfoContext(ctx, "running flow step", "step", steps[*next].name)
		interrupted, err := steps[*next].run(ctx)
		if err != nil {
			return false, err
		}
		if interrupted {
			return true, nil
		}
	}
	return false, nil
}
