package update

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"precisebet/lib/dataset"
	"precisebet/lib/scrapers/handicap"
	"precisebet/lib/scrapers/recent"
	"precisebet/lib/scrapers/team"
	"precisebet/lib/table"
)

// Change is the refreshed part of a row before and after an update.
type Change struct {
	Before table.Row
	After  table.Row
}

func (c Change) Changed() bool {
	return !maps.Equal(c.Before, c.After)
}

// Action refreshes one updatable table from a detail scraper.
type Action interface {
	// Name is the command line name of the action.
	Name() string
	// Label is shown to the user, in the language of the upstream site.
	Label() string
	// Table is the table the scheduler plans on.
	Table(d *dataset.DataSet) *table.Table
	// Tables are saved after every row.
	Tables(d *dataset.DataSet) []*table.Table
	// Update refreshes the row of a match and stamps it with now.
	Update(ctx context.Context, d *dataset.DataSet, matchKey string, now time.Time) (Change, error)
}

func snapshot(t *table.Table, key string) table.Row {
	row := table.Row{}
	for _, f := range t.Schema.Fields() {
		if f.Order == table.OrderContent {
			row[f.Key] = t.Get(key, f.Key)
		}
	}
	return row
}

// apply upserts after with the provenance of now and the current match status.
func apply(d *dataset.DataSet, t *table.Table, key string, after table.Row, now time.Time) (Change, error) {
	change := Change{Before: snapshot(t, key)}

	status := int(d.Match.Int(key, dataset.KeyStatus))
	partial := dataset.Provenance(t.Schema, now, status)
	maps.Copy(partial, after)
	if err := t.Upsert(key, partial); err != nil {
		return Change{}, err
	}

	change.After = snapshot(t, key)
	return change, nil
}

type ValueAction struct {
	Scraper team.Scraper
}

func (ValueAction) Name() string  { return "value" }
func (ValueAction) Label() string { return "球队价值" }

func (ValueAction) Table(d *dataset.DataSet) *table.Table {
	return d.Value
}

func (ValueAction) Tables(d *dataset.DataSet) []*table.Table {
	return []*table.Table{d.Value, d.Team}
}

func (a ValueAction) Update(ctx context.Context, d *dataset.DataSet, matchKey string, now time.Time) (Change, error) {
	after := table.Row{}
	for _, side := range []struct{ id, value string }{
		{dataset.KeyHostID, dataset.KeyHostValue},
		{dataset.KeyGuestID, dataset.KeyGuestValue},
	} {
		teamID := d.Match.Int(matchKey, side.id)
		value, err := a.Scraper.Value(ctx, teamID)
		if err != nil {
			return Change{}, fmt.Errorf("team %d: %w", teamID, err)
		}
		after[side.value] = value

		row := dataset.Provenance(dataset.TeamSchema, now, 0)
		row[dataset.KeyValue] = value
		if err := d.Team.Upsert(strconv.FormatInt(teamID, 10), row); err != nil {
			return Change{}, err
		}
	}
	return apply(d, d.Value, matchKey, after, now)
}

type HandicapAction struct {
	Scraper handicap.Scraper
}

func (HandicapAction) Name() string  { return "handicap" }
func (HandicapAction) Label() string { return "亚盘" }

func (HandicapAction) Table(d *dataset.DataSet) *table.Table {
	return d.Handicap
}

func (HandicapAction) Tables(d *dataset.DataSet) []*table.Table {
	return []*table.Table{d.Handicap}
}

func (a HandicapAction) Update(ctx context.Context, d *dataset.DataSet, matchKey string, now time.Time) (Change, error) {
	figures, err := a.Scraper.Handicap(ctx, matchKey)
	if err != nil {
		return Change{}, err
	}
	after := table.Row{}
	for i, key := range dataset.HandicapKeys {
		after[key] = figures[i]
	}
	return apply(d, d.Handicap, matchKey, after, now)
}

type RecentAction struct {
	Scraper recent.Scraper
}

func (RecentAction) Name() string  { return "recent" }
func (RecentAction) Label() string { return "近期战绩" }

func (RecentAction) Table(d *dataset.DataSet) *table.Table {
	return d.Recent
}

func (RecentAction) Tables(d *dataset.DataSet) []*table.Table {
	return []*table.Table{d.Recent}
}

// unknownResults fills the lists a page did not have.
var unknownResults = strings.Repeat(recent.Unknown+",", recent.Count-1) + recent.Unknown

func (a RecentAction) Update(ctx context.Context, d *dataset.DataSet, matchKey string, now time.Time) (Change, error) {
	lists, err := a.Scraper.Recent(ctx, matchKey)
	if err != nil {
		return Change{}, err
	}
	after := table.Row{}
	for i, key := range dataset.RecentKeys {
		after[key] = unknownResults
		if i < len(lists) {
			after[key] = strings.Join(lists[i], ",")
		}
	}
	return apply(d, d.Recent, matchKey, after, now)
}

// Actions are the actions selectable by name.
func Actions(actions ...Action) map[string]Action {
	byName := make(map[string]Action, len(actions))
	for _, a := range actions {
		byName[a.Name()] = a
	}
	return byName
}
