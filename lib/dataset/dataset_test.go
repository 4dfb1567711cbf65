package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"precisebet/lib/table"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestStatuses(t *testing.T) {
	codes := Statuses()
	require.Len(t, codes, 15)
	require.Equal(t, StatusImported, codes[0])
	require.Equal(t, StatusPenalties, codes[len(codes)-1])
	require.Equal(t, "点球", StatusName(StatusPenalties))
	require.Equal(t, "未知(99)", StatusName(99))

	require.True(t, IsInterrupted(StatusPostponed))
	require.True(t, IsInterrupted(StatusPending))
	require.False(t, IsInterrupted(StatusEnded))
}

func TestNewRowsAreNeverUpdated(t *testing.T) {
	d := New()
	for _, tbl := range d.Tables() {
		if !tbl.Schema.Updatable() {
			continue
		}
		require.NoError(t, tbl.Upsert("1", table.Row{}))
		require.False(t, Refreshed(tbl, "1"), tbl.Schema.Name)
		if tbl.Schema.MatchInformation() {
			require.Equal(t, int64(table.NeverUpdated), tbl.Int("1", table.KeyUpdatedMatchStatus))
		}
	}
}

func TestProvenance(t *testing.T) {
	now := time.Unix(1718000000, 500_000_000)
	row := Provenance(ValueSchema, now, StatusEnded)
	require.Equal(t, table.Row{
		table.KeyUpdatedTime:        1718000000.5,
		table.KeyUpdatedMatchStatus: StatusEnded,
	}, row)

	row = Provenance(TeamSchema, now, StatusEnded)
	require.NotContains(t, row, table.KeyUpdatedMatchStatus)
}

func TestProjectRoundTrip(t *testing.T) {
	project := Project{Dir: filepath.Join(t.TempDir(), "project")}

	d := New()
	require.NoError(t, d.Match.Upsert("a2", table.Row{KeyPeriod: 24100, KeySequence: 2, KeyHostName: "主"}))
	require.NoError(t, d.Match.Upsert("a1", table.Row{KeyPeriod: 24100, KeySequence: 1}))
	require.NoError(t, d.Match.Upsert("a0", table.Row{KeyPeriod: 24099, KeySequence: 9}))
	require.NoError(t, d.Team.Upsert("12", table.Row{KeyName: "team", KeyValue: 300}))
	require.NoError(t, d.League.Upsert("9", table.Row{KeyName: "英超", KeyColor: "#ff0000"}))
	d.SortMatches()
	require.Equal(t, []string{"a0", "a1", "a2"}, d.Match.Keys())
	require.Equal(t, []string{"a1", "a2"}, d.MatchKeys(24100))

	require.NoError(t, project.Save(d))

	loaded, err := project.Load()
	require.NoError(t, err)
	for i, tbl := range d.Tables() {
		other := loaded.Tables()[i]
		require.Equal(t, tbl.Keys(), other.Keys(), tbl.Schema.Name)
		for _, key := range tbl.Keys() {
			want, _ := tbl.Row(key)
			got, _ := other.Row(key)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("%s/%s mismatch (-want +got):\n%s", tbl.Schema.Name, key, diff)
			}
		}
	}
	require.Equal(t, LeagueTypeUnknown, loaded.League.String("9", KeyType))
}

func TestProjectLayoutMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, layoutFile), []byte("1\n"), 0666))

	_, err := Project{Dir: dir}.Load()
	require.True(t, errors.Is(err, ErrLayout))
}

func TestNumericID(t *testing.T) {
	require.Equal(t, "1145141", NumericID("a1145141"))
	require.Equal(t, "42", NumericID("42"))
}

func TestSort(t *testing.T) {
	d := New()
	for _, id := range []string{"100", "20", "3"} {
		require.NoError(t, d.Team.Upsert(id, table.Row{}))
		require.NoError(t, d.League.Upsert(id, table.Row{}))
	}
	d.Sort()
	require.Equal(t, []string{"3", "20", "100"}, d.Team.Keys())
	require.Equal(t, []string{"100", "20", "3"}, d.League.Keys())
}
