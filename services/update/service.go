// Package update refreshes the detail tables of a project one match at a
// time, in the order and at the pace chosen by the scheduler.
package update

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"precisebet/lib/dataset"
	"precisebet/lib/schedule"
	"precisebet/lib/table"
	"precisebet/lib/telemetry"
	"precisebet/lib/timezone"
	"precisebet/lib/useragent"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("precisebet.services.update")

type Options struct {
	// Period restricts the run to one period, 0 is every period.
	Period          int64
	Filter          schedule.Filter
	Policy          schedule.IntervalPolicy
	RotateUserAgent bool
	// Debug writes the planned rows to processing.csv in the project.
	Debug bool
}

func DefaultOptions() Options {
	return Options{
		Filter: schedule.DefaultFilter(),
		Policy: schedule.DefaultIntervalPolicy(),
	}
}

type Service struct {
	Project dataset.Project
	// Agent is the user agent shared with the scrapers of the actions, it is
	// rotated between rows when asked to.
	Agent *useragent.Sticky
	// Out receives the tables shown to the user, os.Stdout when nil.
	Out   io.Writer
	Clock timezone.Clock
	Rand  *rand.Rand
	// Sleep replaces the wait between rows.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (s Service) out() io.Writer {
	if s.Out == nil {
		return os.Stdout
	}
	return s.Out
}

func (s Service) clock() timezone.Clock {
	if s.Clock == nil {
		return timezone.SystemClock{}
	}
	return s.Clock
}

func (s Service) newTable() prettytable.Writer {
	t := prettytable.NewWriter()
	t.SetStyle(prettytable.StyleRounded)
	t.SetOutputMirror(s.out())
	return t
}

// Update plans the rows of the action's table and refreshes them in order.
// Each refreshed row is saved right away so an interrupted run keeps its
// progress.
func (s Service) Update(ctx context.Context, action Action, opts Options) (schedule.Summary, error) {
	ctx, span := tracer.Start(ctx, "Update")
	defer span.End()
	span.SetAttributes(
		attribute.String("action", action.Name()),
		attribute.Int64("period", opts.Period),
	)

	slog.InfoContext(ctx, "reading project", "dir", s.Project.Dir)
	d, err := s.Project.Load()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load project")
		return schedule.Summary{}, err
	}

	candidates := schedule.Candidates(d, action.Table(d), d.MatchKeys(opts.Period))
	plan := schedule.Plan(candidates, opts.Filter, s.clock().Now())

	if opts.Debug {
		path, err := s.writeProcessing(plan)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to write processing table")
			return schedule.Summary{}, err
		}
		slog.DebugContext(ctx, "wrote planned rows", "path", path)
	}

	s.printAnalysis(plan)
	fmt.Fprintln(s.out(), Describe(opts.Filter, opts.Policy))
	slog.InfoContext(ctx, "updating", "action", action.Label(), "rows", len(plan))

	runner := schedule.Runner{
		Policy: opts.Policy,
		Rand:   s.Rand,
		Clock:  s.clock(),
		Sleep:  s.Sleep,
	}
	if opts.RotateUserAgent && s.Agent != nil {
		runner.BetweenRows = s.Agent.Rotate
	}

	summary, err := runner.Run(ctx, plan, func(ctx context.Context, _ int, c schedule.Candidate) error {
		return s.updateRow(ctx, d, action, c)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update run failed")
		return summary, err
	}

	s.printSummary(summary)
	return summary, nil
}

func (s Service) updateRow(ctx context.Context, d *dataset.DataSet, action Action, c schedule.Candidate) error {
	slog.InfoContext(
		ctx, "updating match",
		"action", action.Label(),
		"match", c.Key,
		"host", d.Match.String(c.Key, dataset.KeyHostName),
		"guest", d.Match.String(c.Key, dataset.KeyGuestName),
		"status", dataset.StatusName(c.Status),
		"never_updated", c.NeverUpdated(),
	)

	change, err := action.Update(ctx, d, c.Key, s.clock().Now())
	if err != nil {
		return err
	}
	if err := s.Project.Save(d, action.Tables(d)...); err != nil {
		return err
	}

	s.printChange(action.Table(d).Schema, action.Label(), change)
	return nil
}

var processingSchema = table.NewSchema(
	"processing",
	table.Field{Key: "match_id", Name: "代号", Kind: table.KindString},
	table.Field{Key: dataset.KeyStatus, Name: "状态", Kind: table.KindInt},
	table.Field{Key: dataset.KeyKickoff, Name: "比赛时间", Kind: table.KindInt},
	table.UpdatedTime,
	table.UpdatedMatchStatus,
)

func (s Service) writeProcessing(plan []schedule.Candidate) (string, error) {
	t := table.New(processingSchema)
	for _, c := range plan {
		err := t.Upsert(c.Key, table.Row{
			dataset.KeyStatus:           c.Status,
			dataset.KeyKickoff:          c.Kickoff.Unix(),
			table.KeyUpdatedTime:        c.UpdatedTime,
			table.KeyUpdatedMatchStatus: c.UpdatedStatus,
		})
		if err != nil {
			return "", err
		}
	}
	path := s.Project.Path(processingSchema)
	return path, t.WriteFile(path)
}

// Analysis counts the planned rows: all of them, the never updated ones and
// one entry per current status in plan order.
func Analysis(plan []schedule.Candidate) []prettytable.Row {
	never := 0
	var statuses []int
	perStatus := map[int]int{}
	for _, c := range plan {
		if c.NeverUpdated() {
			never++
		}
		if _, ok := perStatus[c.Status]; !ok {
			statuses = append(statuses, c.Status)
		}
		perStatus[c.Status]++
	}

	rows := []prettytable.Row{
		{"全部", len(plan)},
		{"从未获取", never},
	}
	for _, status := range statuses {
		rows = append(rows, prettytable.Row{dataset.StatusName(status), perStatus[status]})
	}
	return rows
}

func (s Service) printAnalysis(plan []schedule.Candidate) {
	fmt.Fprintln(s.out(), "处理数据分析：")
	t := s.newTable()
	t.AppendHeader(prettytable.Row{"", "数量"})
	t.AppendRows(Analysis(plan))
	t.Render()
}

func statusNames(statuses []int) string {
	names := make([]string, len(statuses))
	for i, code := range statuses {
		names[i] = dataset.StatusName(code)
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// Describe explains in one sentence what a run with f and p will do.
func Describe(f schedule.Filter, p schedule.IntervalPolicy) string {
	var parts []string
	parts = append(parts,
		fmt.Sprintf("本次更新将采取基准更新间隔 %s", text.FgBlue.Sprint(p.Normal)),
		fmt.Sprintf("额外更新间隔 %s", text.FgBlue.Sprint(p.Extended)),
		fmt.Sprintf("使用额外更新间隔的概率 %s", text.FgBlue.Sprint(p.ExtendedProbability)),
		fmt.Sprintf("更新间隔偏移量范围 %s", text.FgBlue.Sprint(p.Offset)),
	)

	if f.LastUpdatedStatus != nil {
		parts = append(parts, fmt.Sprintf("只更新上次更新时状态为 %s 的比赛", text.FgYellow.Sprint(statusNames(f.LastUpdatedStatus))))
	} else {
		parts = append(parts, "不对上次更新时比赛状态进行限制")
	}
	if f.Status != nil {
		parts = append(parts, fmt.Sprintf("只更新状态为 %s 的比赛", text.FgYellow.Sprint(statusNames(f.Status))))
	} else {
		parts = append(parts, "不对比赛状态进行限制")
	}

	notStarted := f.Status == nil
	for _, code := range f.Status {
		if code == dataset.StatusNotStarted {
			notStarted = true
		}
	}
	switch {
	case notStarted && f.BreakHours > 0:
		parts = append(parts, fmt.Sprintf("跳过 %s 小时后的未开始的比赛", text.FgBlue.Sprint(f.BreakHours)))
	case notStarted:
		parts = append(parts, "不跳过未开始的比赛")
	default:
		parts = append(parts, "未开始的比赛不在更新列表中，跳过未开始比赛的选项将被忽略")
	}

	if f.OnlyNew {
		parts = append(parts, text.FgYellow.Sprint("只更新从未获取过的比赛"))
	} else {
		parts = append(parts, "不对比赛是否已获取过进行限制")
	}
	if f.Limit > 0 {
		parts = append(parts, fmt.Sprintf("只更新 %s 场比赛", text.FgYellow.Sprint(f.Limit)))
	} else {
		parts = append(parts, "不对更新数量进行限制")
	}
	return strings.Join(parts, "，")
}

func (s Service) printChange(schema *table.Schema, label string, change Change) {
	t := s.newTable()

	var keys []string
	header := prettytable.Row{""}
	for _, f := range schema.Fields() {
		if _, ok := change.After[f.Key]; ok {
			keys = append(keys, f.Key)
			header = append(header, f.Name)
		}
	}
	t.AppendHeader(header)

	row := func(name string, values table.Row, color text.Color) prettytable.Row {
		r := prettytable.Row{name}
		for _, key := range keys {
			r = append(r, color.Sprint(formatValue(values[key])))
		}
		return r
	}

	if change.Changed() {
		fmt.Fprintf(s.out(), "该场比赛的%s信息已更新\n", label)
		t.AppendRow(row("更新前", change.Before, text.FgRed))
		t.AppendRow(row("更新后", change.After, text.FgBlue))
	} else {
		fmt.Fprintf(s.out(), "该场比赛的%s信息未发生变化\n", label)
		t.AppendRow(row("当前", change.After, text.FgBlue))
	}
	t.Render()
}

func formatValue(v any) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(v)
}

func (s Service) printSummary(summary schedule.Summary) {
	elapsed := summary.Elapsed.Round(time.Second)
	overrun := summary.Overrun().Round(time.Second)
	var comparison string
	switch {
	case summary.Interrupted:
		comparison = fmt.Sprintf("已中断，完成 %d / %d 场", summary.Processed, summary.Planned)
	case overrun > 0:
		comparison = fmt.Sprintf("%s预计时间 %s", text.FgYellow.Sprint("超出"), overrun)
	case overrun < 0:
		comparison = fmt.Sprintf("%s预计时间 %s", text.FgBlue.Sprint("少于"), -overrun)
	default:
		comparison = "正巧与预计时间相等"
	}
	fmt.Fprintf(s.out(), "更新完成，用时 %s，%s\n", elapsed, comparison)
}
