package schedule

import (
	"cmp"
	"slices"
	"time"

	"precisebet/lib/dataset"
	"precisebet/lib/table"
)

// Candidate is a row of an updatable table joined with the current state of
// its match.
type Candidate struct {
	Key     string
	Status  int
	Kickoff time.Time
	// UpdatedTime is the unix time of the last refresh, -1 when never.
	UpdatedTime   float64
	UpdatedStatus int
}

func (c Candidate) NeverUpdated() bool {
	return c.UpdatedTime == table.NeverUpdated
}

// Candidates joins the rows of target with the match table, keys missing from
// either table are left out.
func Candidates(d *dataset.DataSet, target *table.Table, keys []string) []Candidate {
	var result []Candidate
	for _, key := range keys {
		if !target.Has(key) || !d.Match.Has(key) {
			continue
		}
		c := Candidate{
			Key:           key,
			Status:        int(d.Match.Int(key, dataset.KeyStatus)),
			Kickoff:       time.Unix(d.Match.Int(key, dataset.KeyKickoff), 0),
			UpdatedTime:   target.Float(key, table.KeyUpdatedTime),
			UpdatedStatus: table.NeverUpdated,
		}
		if target.Schema.MatchInformation() {
			c.UpdatedStatus = int(target.Int(key, table.KeyUpdatedMatchStatus))
		}
		result = append(result, c)
	}
	return result
}

type Filter struct {
	// LastUpdatedStatus restricts the status seen at the last refresh, rows
	// never refreshed always pass. nil allows any.
	LastUpdatedStatus []int
	// Status restricts the current match status, nil allows any.
	Status []int
	// Readmit lets rows last refreshed while interrupted (postponed,
	// abandoned, suspended, pending) through once their status changes.
	Readmit bool
	OnlyNew bool
	// BreakHours drops not started matches kicking off later than this from
	// now, 0 disables it.
	BreakHours float64
	// Limit caps the plan after sorting, 0 is unlimited.
	Limit int
}

const (
	DefaultLastUpdatedStatus = "0,1,2,3,12"
	DefaultStatus            = "e1,2,3,12"
	DefaultBreakHours        = 6
)

func DefaultFilter() Filter {
	last, _ := ParseStatusList(DefaultLastUpdatedStatus)
	status, _ := ParseStatusList(DefaultStatus)
	return Filter{
		LastUpdatedStatus: last,
		Status:            status,
		Readmit:           true,
		BreakHours:        DefaultBreakHours,
	}
}

func (f Filter) lastUpdatedAllowed(c Candidate) bool {
	if f.LastUpdatedStatus == nil || c.UpdatedStatus == dataset.StatusNone {
		return true
	}
	if slices.Contains(f.LastUpdatedStatus, c.UpdatedStatus) {
		return true
	}
	return f.Readmit && dataset.IsInterrupted(c.UpdatedStatus) && c.Status != c.UpdatedStatus
}

func (f Filter) statusAllowed(c Candidate) bool {
	return f.Status == nil || slices.Contains(f.Status, c.Status)
}

// Plan filters candidates and orders them: current status descending, then
// least recently updated first. Equal rows keep their input order.
func Plan(candidates []Candidate, f Filter, now time.Time) []Candidate {
	breakHours := max(f.BreakHours, 0)
	horizon := now.Add(time.Duration(breakHours * float64(time.Hour)))

	var planned []Candidate
	for _, c := range candidates {
		if !f.lastUpdatedAllowed(c) || !f.statusAllowed(c) {
			continue
		}
		if f.OnlyNew && !c.NeverUpdated() {
			continue
		}
		if breakHours > 0 && c.Status == dataset.StatusNotStarted && c.Kickoff.After(horizon) {
			continue
		}
		planned = append(planned, c)
	}

	slices.SortStableFunc(planned, func(a, b Candidate) int {
		if c := cmp.Compare(b.Status, a.Status); c != 0 {
			return c
		}
		return cmp.Compare(a.UpdatedTime, b.UpdatedTime)
	})

	if f.Limit > 0 && len(planned) > f.Limit {
		planned = planned[:f.Limit]
	}
	return planned
}
