package export

import (
	"fmt"
	"strconv"
	"time"

	"precisebet/lib/dataset"
	"precisebet/lib/table"
)

// Row is one match of the report.
type Row struct {
	MatchKey    string
	Period      int64
	Sequence    int64
	League      string
	LeagueColor string
	Round       string
	Kickoff     time.Time
	Status      int
	Host        string
	Guest       string
	// Score and Result are only set once the match has ended.
	Score     string
	HalfScore string
	Result    string

	Win, Draw, Lose float64

	HostValue, GuestValue *int64
	// Handicap is live water, line, water then early water, line, water.
	Handicap [6]*float64
}

const (
	ResultWin  = "胜"
	ResultDraw = "平"
	ResultLose = "负"
)

var Header = []string{
	"期号", "场次", "赛事", "轮次", "比赛时间", "状态",
	"主队", "比分", "客队", "半场比分", "结果",
	"胜", "平", "负",
	"主队价值", "客队价值",
	"平即水1", "平即盘", "平即水2", "平初水1", "平初盘", "平初水2",
}

const KickoffLayout = "2006/01/02 15:04"

// Build flattens d into one row per match, ordered by period then sequence.
func Build(d *dataset.DataSet) []Row {
	d.SortMatches()

	rows := make([]Row, 0, d.Match.Len())
	for _, key := range d.Match.Keys() {
		leagueID := d.Match.String(key, dataset.KeyLeague)
		league := leagueID
		if d.League.Has(leagueID) {
			league = d.League.String(leagueID, dataset.KeyName)
		}

		r := Row{
			MatchKey:    key,
			Period:      d.Match.Int(key, dataset.KeyPeriod),
			Sequence:    d.Match.Int(key, dataset.KeySequence),
			League:      league,
			LeagueColor: d.League.String(leagueID, dataset.KeyColor),
			Round:       d.Match.String(key, dataset.KeyRound),
			Kickoff:     time.Unix(d.Match.Int(key, dataset.KeyKickoff), 0),
			Status:      int(d.Match.Int(key, dataset.KeyStatus)),
			Host:        d.Match.String(key, dataset.KeyHostName),
			Guest:       d.Match.String(key, dataset.KeyGuestName),
			HalfScore:   d.Match.String(key, dataset.KeyHalfScore),
			Win:         d.Odd.Float(key, dataset.KeyWin),
			Draw:        d.Odd.Float(key, dataset.KeyDraw),
			Lose:        d.Odd.Float(key, dataset.KeyLose),
			HostValue:   nullableInt(d.Value, key, dataset.KeyHostValue),
			GuestValue:  nullableInt(d.Value, key, dataset.KeyGuestValue),
		}
		for i, field := range dataset.HandicapKeys {
			r.Handicap[i] = nullableFloat(d.Handicap, key, field)
		}

		if r.Status == dataset.StatusEnded && d.Score.Has(key) {
			host := d.Score.Int(key, dataset.KeyHostScore)
			guest := d.Score.Int(key, dataset.KeyGuestScore)
			r.Score = fmt.Sprintf("%d - %d", host, guest)
			switch {
			case host > guest:
				r.Result = ResultWin
			case host == guest:
				r.Result = ResultDraw
			default:
				r.Result = ResultLose
			}
		}
		rows = append(rows, r)
	}
	return rows
}

// HighlightHandicap reports whether the handicap favours the host: a positive
// early line, or a level early line with a positive live line.
func (r Row) HighlightHandicap() bool {
	early := valueOr(r.Handicap[4], 0)
	if early > 0 {
		return true
	}
	return early == 0 && valueOr(r.Handicap[1], 0) > 0
}

// Cells renders the row in Header order, loc is the zone kickoff times are
// shown in.
func (r Row) Cells(loc *time.Location) []string {
	score := r.Score
	if score == "" {
		score = "-"
	}
	result := r.Result
	if result == "" {
		result = "-"
	}

	cells := []string{
		strconv.FormatInt(r.Period, 10),
		strconv.FormatInt(r.Sequence, 10),
		r.League,
		r.Round,
		r.Kickoff.In(loc).Format(KickoffLayout),
		dataset.StatusName(r.Status),
		r.Host,
		score,
		r.Guest,
		r.HalfScore,
		result,
		formatFloat(&r.Win),
		formatFloat(&r.Draw),
		formatFloat(&r.Lose),
		formatInt(r.HostValue),
		formatInt(r.GuestValue),
	}
	for _, h := range r.Handicap {
		cells = append(cells, formatFloat(h))
	}
	return cells
}

func nullableInt(t *table.Table, key, field string) *int64 {
	v, ok := t.NullableInt(key, field)
	if !ok {
		return nil
	}
	return &v
}

func nullableFloat(t *table.Table, key, field string) *float64 {
	v, ok := t.NullableFloat(key, field)
	if !ok {
		return nil
	}
	return &v
}

func valueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}

func formatInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
