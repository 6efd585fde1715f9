package stats

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "crime_by_census_tract"

// records renders the table as header plus data rows.
func (t *Table) records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, t.Header())
	for _, r := range t.Rows {
		rec := make([]string, 0, 3+len(t.Columns))
		rec = append(rec, r.TractID, r.TractLabel, strconv.Itoa(r.Total))
		for _, c := range t.Columns {
			rec = append(rec, strconv.Itoa(r.ByType[c.Name]))
		}
		out = append(out, rec)
	}
	return out
}

// WriteCSV writes the table with a header row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.records()); err != nil {
		return eris.Wrap(err, "stats: write csv")
	}
	return nil
}

// WriteCSVFile writes the table to path.
func (t *Table) WriteCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "stats: create %s", path)
	}
	if err := t.WriteCSV(f); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "stats: close %s", path)
}

// ReadCSV reads a table written by WriteCSV. Every column after the fixed
// ones is a crime-type column. Counts written as floats ("12.0") are
// accepted.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "stats: read csv")
	}
	return fromRecords(records)
}

// ReadCSVFile reads the table at path.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "stats: open %s", path)
	}
	defer func() { _ = f.Close() }()
	return ReadCSV(f)
}

// WriteXLSX saves the table as a single-sheet workbook.
func (t *Table) WriteXLSX(path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range t.Header() {
		header.AddCell().SetString(h)
	}
	for _, r := range t.Rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.TractID)
		row.AddCell().SetString(r.TractLabel)
		row.AddCell().SetInt(r.Total)
		for _, c := range t.Columns {
			row.AddCell().SetInt(r.ByType[c.Name])
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

// ReadXLSX reads a workbook written by WriteXLSX.
func ReadXLSX(path string) (*Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	sheet, ok := f.Sheet[SheetName]
	if !ok {
		if len(f.Sheets) == 0 {
			return nil, eris.Errorf("xlsx: %s has no sheets", path)
		}
		sheet = f.Sheets[0]
	}

	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		records = append(records, cells)
	}
	return fromRecords(records)
}

func fromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, eris.New("stats: table has no header")
	}
	header := records[0]

	idIdx, labelIdx, totalIdx := -1, -1, -1
	var typeIdx []int
	t := &Table{}
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case ColTractID:
			idIdx = i
		case ColTractLabel:
			labelIdx = i
		case ColTotal:
			totalIdx = i
		default:
			typeIdx = append(typeIdx, i)
			t.Columns = append(t.Columns, TypeColumn{Name: strings.TrimSpace(h)})
		}
	}
	if idIdx < 0 || totalIdx < 0 {
		return nil, eris.Errorf("stats: table header must contain %s and %s", ColTractID, ColTotal)
	}

	cell := func(rec []string, i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	for n, rec := range records[1:] {
		line := n + 2
		total, err := parseCount(cell(rec, totalIdx))
		if err != nil {
			return nil, eris.Wrapf(err, "stats: line %d: %s", line, ColTotal)
		}
		row := Row{
			TractID:    cell(rec, idIdx),
			TractLabel: cell(rec, labelIdx),
			Total:      total,
			ByType:     make(map[string]int, len(typeIdx)),
		}
		for j, i := range typeIdx {
			v, err := parseCount(cell(rec, i))
			if err != nil {
				return nil, eris.Wrapf(err, "stats: line %d: %s", line, t.Columns[j].Name)
			}
			row.ByType[t.Columns[j].Name] = v
		}
		t.Rows = append(t.Rows, row)
	}

	for i := range t.Columns {
		for _, r := range t.Rows {
			t.Columns[i].Total += r.ByType[t.Columns[i].Name]
		}
	}

	return t, nil
}

var errNotCount = errors.New("not a non-negative integer count")

func parseCount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, eris.Wrapf(errNotCount, "%q", s)
	}
	return int(f), nil
}
