package dataset

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"precisebet/lib/table"
)

// LayoutVersion identifies the on-disk layout: every table is a single CSV
// file in the project directory, match scoped tables carry the period in the
// match table.
const LayoutVersion = 2

const layoutFile = "layout"

var ErrLayout = errors.New("unsupported project layout")

type DataSet struct {
	Match    *table.Table
	Score    *table.Table
	Value    *table.Table
	Handicap *table.Table
	Odd      *table.Table
	Recent   *table.Table
	League   *table.Table
	Team     *table.Table
}

func New() *DataSet {
	return &DataSet{
		Match:    table.New(MatchSchema),
		Score:    table.New(ScoreSchema),
		Value:    table.New(ValueSchema),
		Handicap: table.New(HandicapSchema),
		Odd:      table.New(OddSchema),
		Recent:   table.New(RecentSchema),
		League:   table.New(LeagueSchema),
		Team:     table.New(TeamSchema),
	}
}

func (d *DataSet) Tables() []*table.Table {
	return []*table.Table{
		d.Match, d.Score, d.Value, d.Handicap, d.Odd, d.Recent, d.League, d.Team,
	}
}

// Project is a directory holding one data set.
type Project struct {
	Dir string
}

func (p Project) Path(schema *table.Schema) string {
	return filepath.Join(p.Dir, schema.Name+".csv")
}

func (p Project) checkLayout() error {
	contents, err := os.ReadFile(filepath.Join(p.Dir, layoutFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || version != LayoutVersion {
		return fmt.Errorf("%w: %q in %s", ErrLayout, strings.TrimSpace(string(contents)), p.Dir)
	}
	return nil
}

// Load reads every table, missing files load as empty tables.
func (p Project) Load() (*DataSet, error) {
	if err := p.checkLayout(); err != nil {
		return nil, err
	}

	d := New()
	targets := []**table.Table{
		&d.Match, &d.Score, &d.Value, &d.Handicap, &d.Odd, &d.Recent, &d.League, &d.Team,
	}
	for _, target := range targets {
		schema := (*target).Schema
		loaded, err := table.ReadFile(p.Path(schema), schema)
		if err != nil {
			return nil, err
		}
		*target = loaded
	}
	return d, nil
}

// Save writes the given tables, or every table of d when none are given.
func (p Project) Save(d *DataSet, tables ...*table.Table) error {
	if len(tables) == 0 {
		tables = d.Tables()
	}
	if err := os.MkdirAll(p.Dir, 0777); err != nil {
		return err
	}
	err := os.WriteFile(filepath.Join(p.Dir, layoutFile), []byte(strconv.Itoa(LayoutVersion)+"\n"), 0666)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if err := t.WriteFile(p.Path(t.Schema)); err != nil {
			return err
		}
	}
	return nil
}

// Provenance is the partial row marking a successful refresh at now, with
// status being the match status observed at that moment. Tables without a
// match status column only get the time.
func Provenance(schema *table.Schema, now time.Time, status int) table.Row {
	row := table.Row{table.KeyUpdatedTime: float64(now.Unix()) + float64(now.Nanosecond())/float64(time.Second)}
	if schema.MatchInformation() {
		row[table.KeyUpdatedMatchStatus] = status
	}
	return row
}

// Refreshed reports whether the row was ever updated.
func Refreshed(t *table.Table, key string) bool {
	return t.Float(key, table.KeyUpdatedTime) != table.NeverUpdated
}

// SortMatches orders the match table by period then sequence.
func (d *DataSet) SortMatches() {
	d.Match.SortFunc(func(a, b string) int {
		if c := cmp.Compare(d.Match.Int(a, KeyPeriod), d.Match.Int(b, KeyPeriod)); c != 0 {
			return c
		}
		return cmp.Compare(d.Match.Int(a, KeySequence), d.Match.Int(b, KeySequence))
	})
}

// Sort orders matches by period and sequence, leagues and teams by code.
func (d *DataSet) Sort() {
	d.SortMatches()
	d.League.SortFunc(strings.Compare)
	d.Team.SortFunc(func(a, b string) int {
		x, _ := strconv.ParseInt(a, 10, 64)
		y, _ := strconv.ParseInt(b, 10, 64)
		return cmp.Compare(x, y)
	})
}

// MatchKeys returns the match keys of the given period, all periods when
// period is 0.
func (d *DataSet) MatchKeys(period int64) []string {
	var keys []string
	for _, key := range d.Match.Keys() {
		if period != 0 && d.Match.Int(key, KeyPeriod) != period {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// NumericID strips the letter prefix of a match key, "a123" is 123 on the
// detail pages.
func NumericID(matchKey string) string {
	return strings.TrimLeft(matchKey, "abcdefghijklmnopqrstuvwxyz")
}

// TableNames lists the file names, without extension, of the project tables.
func TableNames() []string {
	var names []string
	for _, t := range New().Tables() {
		names = append(names, t.Schema.Name)
	}
	return append(names, OkoooSchema.Name)
}
