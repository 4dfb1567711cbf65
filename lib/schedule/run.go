package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"precisebet/lib/telemetry"
	"precisebet/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("precisebet.lib.schedule")
var meter = telemetry.Meter("precisebet.lib.schedule")

var rowCounter, _ = meter.Int64Counter("schedule.rows")

// UpdateFunc refreshes one planned row, index is its position in the plan.
type UpdateFunc func(ctx context.Context, index int, c Candidate) error

type Runner struct {
	Policy IntervalPolicy
	Rand   *rand.Rand
	Clock  timezone.Clock
	// Sleep waits between rows, it must return early once ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
	// BetweenRows runs after every wait, before the next row.
	BetweenRows func()
}

type Summary struct {
	Planned   int
	Processed int
	// Extended is how many waits of the plan use the extended interval.
	Extended    int
	Interrupted bool
	ETA         time.Duration
	Elapsed     time.Duration
}

// Overrun is how much longer than estimated the run took, negative when it
// was faster.
func (s Summary) Overrun() time.Duration {
	return s.Elapsed - s.ETA
}

func (r Runner) clock() timezone.Clock {
	if r.Clock == nil {
		return timezone.SystemClock{}
	}
	return r.Clock
}

func (r Runner) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
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

// Run updates rows in order, waiting a drawn interval between two rows. A
// cancelled ctx stops the run before the next row and is reported through
// Summary.Interrupted, any other error from fn aborts the run.
func (r Runner) Run(ctx context.Context, rows []Candidate, fn UpdateFunc) (Summary, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	rng := r.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	intervals := r.Policy.Intervals(len(rows), rng)

	summary := Summary{
		Planned:  len(rows),
		Extended: ExtendedCount(intervals),
		ETA:      ETA(intervals, len(rows)),
	}
	span.SetAttributes(
		attribute.Int("rows", len(rows)),
		attribute.Int("extended", summary.Extended),
	)
	slog.InfoContext(ctx, "starting update run", "rows", len(rows), "extended_intervals", summary.Extended, "eta", summary.ETA)

	start := r.clock().Now()

	interrupted := func() (Summary, error) {
		summary.Interrupted = true
		summary.Elapsed = r.clock().Now().Sub(start)
		slog.WarnContext(ctx, "update run interrupted", "processed", summary.Processed, "planned", summary.Planned)
		return summary, nil
	}

	for i, row := range rows {
		if ctx.Err() != nil {
			return interrupted()
		}

		slog.InfoContext(ctx, "remaining", "eta", ETA(intervals[min(i, len(intervals)):], len(rows)-i), "row", i+1, "of", len(rows))

		if err := fn(ctx, i, row); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return interrupted()
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "row update failed")
			summary.Elapsed = r.clock().Now().Sub(start)
			return summary, fmt.Errorf("update %s: %w", row.Key, err)
		}
		summary.Processed++
		rowCounter.Add(ctx, 1)

		if i == len(rows)-1 {
			break
		}

		wait := intervals[i]
		if wait.Extended {
			slog.InfoContext(ctx, "using the extended interval", "wait", wait.Duration)
		}
		if err := r.sleep(ctx, wait.Duration); err != nil {
			return interrupted()
		}
		if r.BetweenRows != nil {
			r.BetweenRows()
		}
	}

	summary.Elapsed = r.clock().Now().Sub(start)
	return summary, nil
}
