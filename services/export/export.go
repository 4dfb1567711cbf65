package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"precisebet/lib/dataset"
	"precisebet/lib/telemetry"
	"precisebet/lib/timezone"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	_ "modernc.org/sqlite"
)

var tracer = telemetry.Tracer("precisebet.services.export")

type Format string

const (
	FormatCSV      Format = "csv"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatSQLite   Format = "sqlite"
	FormatXLSX     Format = "xlsx"
)

var Formats = []Format{FormatCSV, FormatHTML, FormatMarkdown, FormatSQLite, FormatXLSX}

// ErrReservedName is returned for report names that would overwrite a
// project table.
var ErrReservedName = errors.New("file name is reserved by the project")

func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q, expected one of %v", s, Formats)
}

func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatSQLite:
		return ".db"
	}
	return "." + string(f)
}

// CSS classes of the html report.
const (
	ClassResult    = "result"
	ClassHighlight = "highlight"
)

func newWriter(s Sheet, escape bool) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)

	header := make(table.Row, len(s.Header))
	for i, h := range s.Header {
		header[i] = h
	}
	t.AppendHeader(header)

	for i, cells := range s.Rows {
		row := make(table.Row, len(cells))
		for j, c := range cells {
			if escape {
				c = html.EscapeString(c)
				if class := s.class(i, j); class != "" {
					c = fmt.Sprintf(`<span class="%s">%s</span>`, class, c)
				}
			}
			row[j] = c
		}
		t.AppendRow(row)
	}
	return t
}

// indexes of the odds and handicap cells in Header
const (
	winCell      = 11
	handicapCell = 16
)

// Classes returns the css class of the marked cells of r, keyed by their
// index in Header.
func (r Row) Classes() map[int]string {
	classes := map[int]string{}
	for i, result := range []string{ResultWin, ResultDraw, ResultLose} {
		if r.Result == result {
			classes[winCell+i] = ClassResult
		}
	}
	if r.HighlightHandicap() {
		for i := handicapCell; i < handicapCell+6; i++ {
			classes[i] = ClassHighlight
		}
	}
	return classes
}

// ReportSheet lays rows out in Header order.
func ReportSheet(rows []Row, loc *time.Location) Sheet {
	s := Sheet{Name: "report", Header: Header}
	for _, r := range rows {
		s.Rows = append(s.Rows, r.Cells(loc))
		s.Classes = append(s.Classes, r.Classes())
	}
	return s
}

// Write renders rows as csv, html or markdown.
func Write(w io.Writer, rows []Row, format Format, loc *time.Location) error {
	return WriteSheet(w, ReportSheet(rows, loc), format)
}

// WriteSheet renders s as csv, html or markdown.
func WriteSheet(w io.Writer, s Sheet, format Format) error {
	var out string
	switch format {
	case FormatCSV:
		out = newWriter(s, false).RenderCSV()
	case FormatMarkdown:
		out = newWriter(s, false).RenderMarkdown()
	case FormatHTML:
		t := newWriter(s, true)
		t.Style().HTML = table.HTMLOptions{
			CSSClass:    "precisebet-report",
			EmptyColumn: "&nbsp;",
			EscapeText:  false,
			Newline:     "<br/>",
		}
		out = t.RenderHTML()
	default:
		return fmt.Errorf("format %s cannot be written as text", format)
	}
	_, err := io.WriteString(w, out+"\n")
	return err
}

// WriteSheetFile writes s to path in any format but sqlite.
func WriteSheetFile(path string, s Sheet, format Format) error {
	if format == FormatXLSX {
		return WriteXLSX(path, s)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSheet(f, s, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

const sqliteSchema = `
DROP TABLE IF EXISTS report;
CREATE TABLE report (
	match_id TEXT PRIMARY KEY,
	period INTEGER NOT NULL,
	sequence INTEGER NOT NULL,
	league TEXT NOT NULL,
	league_color TEXT NOT NULL,
	round TEXT NOT NULL,
	kickoff INTEGER NOT NULL,
	status INTEGER NOT NULL,
	status_name TEXT NOT NULL,
	host TEXT NOT NULL,
	guest TEXT NOT NULL,
	score TEXT,
	half_score TEXT NOT NULL,
	result TEXT,
	win REAL NOT NULL,
	draw REAL NOT NULL,
	lose REAL NOT NULL,
	host_value INTEGER,
	guest_value INTEGER,
	live_water1 REAL,
	live_handicap REAL,
	live_water2 REAL,
	early_water1 REAL,
	early_handicap REAL,
	early_water2 REAL
);
`

// WriteSQLite recreates the report table in the database at path.
func WriteSQLite(ctx context.Context, path string, rows []Row) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, sqliteSchema); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO report VALUES (
		?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
	)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		args := []any{
			r.MatchKey, r.Period, r.Sequence, r.League, r.LeagueColor, r.Round,
			r.Kickoff.Unix(), r.Status, dataset.StatusName(r.Status),
			r.Host, r.Guest, nullString(r.Score), r.HalfScore, nullString(r.Result),
			r.Win, r.Draw, r.Lose, nullInt(r.HostValue), nullInt(r.GuestValue),
		}
		for _, h := range r.Handicap {
			args = append(args, nullFloat(h))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert %s: %w", r.MatchKey, err)
		}
	}
	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

type Service struct {
	Project dataset.Project
	// Location is the zone kickoff times are shown in.
	Location *time.Location
}

// Export writes the report of the whole project next to its tables and
// returns the written path.
func (s Service) Export(ctx context.Context, format Format, fileName string) (string, error) {
	ctx, span := tracer.Start(ctx, "Export")
	defer span.End()
	span.SetAttributes(attribute.String("format", string(format)))

	d, err := s.Project.Load()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load project")
		return "", err
	}
	rows := Build(d)

	if fileName == "" {
		fileName = "report"
	}
	if err := checkFileName(fileName, format); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reserved file name")
		return "", err
	}
	path := filepath.Join(s.Project.Dir, fileName+format.Extension())

	loc := s.Location
	if loc == nil {
		loc = timezone.Location
	}

	if format == FormatSQLite {
		err = WriteSQLite(ctx, path, rows)
	} else {
		err = WriteSheetFile(path, ReportSheet(rows, loc), format)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write report")
		return "", err
	}

	slog.InfoContext(ctx, "exported report", "path", path, "rows", len(rows))
	return path, nil
}

// checkFileName refuses csv reports named after a project table, those would
// replace the table on disk.
func checkFileName(fileName string, format Format) error {
	if format != FormatCSV {
		return nil
	}
	for _, name := range dataset.TableNames() {
		if strings.EqualFold(fileName, name) {
			return fmt.Errorf("%w: %s%s", ErrReservedName, fileName, format.Extension())
		}
	}
	return nil
}
