package schedule

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"precisebet/lib/dataset"
	"precisebet/lib/table"
	"precisebet/lib/timezone"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, timezone.Location)

func keys(candidates []Candidate) []string {
	result := make([]string, len(candidates))
	for i, c := range candidates {
		result[i] = c.Key
	}
	return result
}

func TestParseStatusList(t *testing.T) {
	codes, err := ParseStatusList("3, 0,12,0")
	require.NoError(t, err)
	require.Equal(t, []int{0, 3, 12}, codes)

	codes, err = ParseStatusList("e1,2,3,12")
	require.NoError(t, err)
	require.Equal(t, []int{-2, -1, 0, 4, 5, 6, 7, 8, 9, 10, 11}, codes)

	codes, err = ParseStatusList(" ")
	require.NoError(t, err)
	require.Nil(t, codes)

	_, err = ParseStatusList("1,x")
	require.Error(t, err)

	require.Equal(t, "0(未开始),4(已结束)", FormatStatusList([]int{0, 4}))
}

func TestPlanOrder(t *testing.T) {
	statuses := []int{3, 0, 4, 0}
	ages := []float64{10, 5, 1, 100}

	var candidates []Candidate
	for i := range statuses {
		candidates = append(candidates, Candidate{
			Key:           string(rune('a' + i)),
			Status:        statuses[i],
			Kickoff:       now,
			UpdatedTime:   float64(now.Unix()) - ages[i],
			UpdatedStatus: dataset.StatusNotStarted,
		})
	}

	planned := Plan(candidates, Filter{}, now)
	require.Equal(t, []string{"c", "a", "d", "b"}, keys(planned))

	planned = Plan(candidates, Filter{Limit: 2}, now)
	require.Equal(t, []string{"c", "a"}, keys(planned))
}

func TestPlanNeverUpdatedFirst(t *testing.T) {
	candidates := []Candidate{
		{Key: "old", Status: 0, Kickoff: now, UpdatedTime: 1, UpdatedStatus: 0},
		{Key: "new", Status: 0, Kickoff: now, UpdatedTime: -1, UpdatedStatus: -1},
		{Key: "new2", Status: 0, Kickoff: now, UpdatedTime: -1, UpdatedStatus: -1},
	}
	require.Equal(t, []string{"new", "new2", "old"}, keys(Plan(candidates, DefaultFilter(), now)))
	require.Equal(t, []string{"new", "new2"}, keys(Plan(candidates, Filter{OnlyNew: true}, now)))
}

func TestPlanFilters(t *testing.T) {
	candidates := []Candidate{
		{Key: "live", Status: dataset.StatusSecondHalf, UpdatedStatus: dataset.StatusNotStarted, UpdatedTime: 1},
		{Key: "ended", Status: dataset.StatusEnded, UpdatedStatus: dataset.StatusEnded, UpdatedTime: 1},
		{Key: "resumed", Status: dataset.StatusEnded, UpdatedStatus: dataset.StatusPostponed, UpdatedTime: 1},
		{Key: "still postponed", Status: dataset.StatusPostponed, UpdatedStatus: dataset.StatusPostponed, UpdatedTime: 1},
		{Key: "imported", Status: dataset.StatusEnded, UpdatedStatus: dataset.StatusImported, UpdatedTime: 1},
	}

	f := DefaultFilter()
	require.Equal(t, []string{"resumed"}, keys(Plan(candidates, f, now)))

	f.Readmit = false
	require.Empty(t, Plan(candidates, f, now))

	require.Len(t, Plan(candidates, Filter{}, now), len(candidates))
}

func TestPlanBreakHours(t *testing.T) {
	candidates := []Candidate{
		{Key: "soon", Status: 0, Kickoff: now.Add(5 * time.Hour), UpdatedTime: -1, UpdatedStatus: -1},
		{Key: "later", Status: 0, Kickoff: now.Add(7 * time.Hour), UpdatedTime: -1, UpdatedStatus: -1},
	}
	require.Equal(t, []string{"soon"}, keys(Plan(candidates, Filter{BreakHours: 6}, now)))
	require.Len(t, Plan(candidates, Filter{BreakHours: 0}, now), 2)
	require.Len(t, Plan(candidates, Filter{BreakHours: -3}, now), 2)
}

// A single match goes through the default plan as its state changes.
func TestPlanLifecycle(t *testing.T) {
	d := dataset.New()
	require.NoError(t, d.Match.Upsert("a1", table.Row{
		dataset.KeyStatus:  dataset.StatusNotStarted,
		dataset.KeyKickoff: now.Add(8 * time.Hour).Unix(),
	}))
	require.NoError(t, d.Value.Upsert("a1", table.Row{}))

	plan := func() []string {
		return keys(Plan(Candidates(d, d.Value, d.Match.Keys()), DefaultFilter(), now))
	}

	require.Empty(t, plan())

	require.NoError(t, d.Match.Upsert("a1", table.Row{dataset.KeyKickoff: now.Add(2 * time.Hour).Unix()}))
	require.Equal(t, []string{"a1"}, plan())

	require.NoError(t, d.Value.Upsert("a1", dataset.Provenance(dataset.ValueSchema, now, dataset.StatusNotStarted)))
	require.NoError(t, d.Match.Upsert("a1", table.Row{dataset.KeyStatus: dataset.StatusEnded}))
	require.Equal(t, []string{"a1"}, plan())

	require.NoError(t, d.Value.Upsert("a1", dataset.Provenance(dataset.ValueSchema, now, dataset.StatusEnded)))
	require.Empty(t, plan())
	require.Empty(t, plan())
}

func TestIntervals(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	policy := DefaultIntervalPolicy()
	intervals := policy.Intervals(50, rng)
	require.Len(t, intervals, 49)
	for _, i := range intervals {
		require.False(t, i.Extended)
		require.GreaterOrEqual(t, i.Duration, policy.Normal-policy.Offset)
		require.LessOrEqual(t, i.Duration, policy.Normal+policy.Offset)
	}

	policy.ExtendedProbability = 1
	for _, i := range policy.Intervals(50, rng) {
		require.True(t, i.Extended)
		require.GreaterOrEqual(t, i.Duration, policy.Extended-policy.Offset)
		require.LessOrEqual(t, i.Duration, policy.Extended+policy.Offset)
	}

	clamped := IntervalPolicy{Normal: time.Second, Offset: 10 * time.Second}
	for _, i := range clamped.Intervals(50, rng) {
		require.GreaterOrEqual(t, i.Duration, time.Duration(0))
	}

	require.Nil(t, policy.Intervals(1, rng))
	require.Nil(t, policy.Intervals(0, rng))
}

func TestETA(t *testing.T) {
	intervals := []Interval{{Duration: 5 * time.Second}, {Duration: 60 * time.Second, Extended: true}}
	require.Equal(t, 65*time.Second+3*RowEstimate, ETA(intervals, 3))
	require.Equal(t, 1, ExtendedCount(intervals))
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func newRunner(clock *fakeClock, slept *[]time.Duration) Runner {
	return Runner{
		Policy: IntervalPolicy{Normal: 5 * time.Second},
		Rand:   rand.New(rand.NewSource(1)),
		Clock:  clock,
		Sleep: func(ctx context.Context, d time.Duration) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			*slept = append(*slept, d)
			clock.t = clock.t.Add(d)
			return nil
		},
	}
}

func TestRun(t *testing.T) {
	clock := &fakeClock{t: now}
	var slept []time.Duration
	runner := newRunner(clock, &slept)
	rotations := 0
	runner.BetweenRows = func() { rotations++ }

	rows := []Candidate{{Key: "a"}, {Key: "b"}, {Key: "c"}}
	var seen []string
	summary, err := runner.Run(context.Background(), rows, func(ctx context.Context, index int, c Candidate) error {
		seen = append(seen, c.Key)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, seen)
	require.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, slept)
	require.Equal(t, 2, rotations)
	require.Equal(t, Summary{
		Planned:   3,
		Processed: 3,
		ETA:       10*time.Second + 3*RowEstimate,
		Elapsed:   10 * time.Second,
	}, summary)
	require.Equal(t, -3*RowEstimate, summary.Overrun())
}

func TestRunAbortsOnError(t *testing.T) {
	clock := &fakeClock{t: now}
	var slept []time.Duration
	failure := errors.New("banned")

	rows := []Candidate{{Key: "a"}, {Key: "b"}, {Key: "c"}}
	summary, err := newRunner(clock, &slept).Run(context.Background(), rows, func(ctx context.Context, index int, c Candidate) error {
		if c.Key == "b" {
			return failure
		}
		return nil
	})
	require.True(t, errors.Is(err, failure))
	require.Equal(t, 1, summary.Processed)
	require.False(t, summary.Interrupted)
}

func TestRunInterrupt(t *testing.T) {
	clock := &fakeClock{t: now}
	var slept []time.Duration
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rows := []Candidate{{Key: "a"}, {Key: "b"}, {Key: "c"}}
	var seen []string
	summary, err := newRunner(clock, &slept).Run(ctx, rows, func(ctx context.Context, index int, c Candidate) error {
		seen = append(seen, c.Key)
		if c.Key == "b" {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)
	require.True(t, summary.Interrupted)
	require.Equal(t, 2, summary.Processed)
	require.Equal(t, []string{"a", "b"}, seen)
}
