// Package stats aggregates tract-enriched incidents into per-tract crime
// statistics and classifies tracts into hotspot tiers.
package stats

import (
	"iter"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/la-crime/crimetracts/internal/incident"
	"github.com/la-crime/crimetracts/internal/tract"
)

const (
	// DefaultTopN is the number of crime types pivoted into columns.
	DefaultTopN = 10

	// ColumnPrefix starts every crime-type column name.
	ColumnPrefix = "crime_"

	maxSlugLen = 20
)

// Fixed leading columns of the statistics table.
const (
	ColTractID    = "census_tract_id"
	ColTractLabel = "census_tract_label"
	ColTotal      = "total_crimes"
)

// reserved names a crime-type column may not take.
var reserved = map[string]bool{"crime_id": true}

// TypeColumn is one pivoted crime type.
type TypeColumn struct {
	Name      string // column name, e.g. crime_vehicle_stolen
	CrimeType string // source label; empty when the table was read back from disk
	Total     int    // incidents of this type across all tracts
}

// Row is the statistics of one tract.
type Row struct {
	TractID    string
	TractLabel string
	Total      int
	ByType     map[string]int // keyed by TypeColumn.Name, zero-filled
}

// Table is the per-tract statistics table. Rows are sorted by (TractID,
// TractLabel); tracts without matched incidents are absent.
type Table struct {
	Columns []TypeColumn
	Rows    []Row
}

// Header returns the table's column names in file order.
func (t *Table) Header() []string {
	h := []string{ColTractID, ColTractLabel, ColTotal}
	for _, c := range t.Columns {
		h = append(h, c.Name)
	}
	return h
}

// Sum returns the total incidents across all rows.
func (t *Table) Sum() int {
	var n int
	for _, r := range t.Rows {
		n += r.Total
	}
	return n
}

// ByID indexes rows by normalized tract id. The first row wins when an id
// appears with more than one label.
func (t *Table) ByID() map[string]*Row {
	m := make(map[string]*Row, len(t.Rows))
	for i := range t.Rows {
		id := tract.NormalizeID(t.Rows[i].TractID)
		if _, ok := m[id]; !ok {
			m[id] = &t.Rows[i]
		}
	}
	return m
}

// TypeTotals returns each column's sum over the rows, in column order.
func (t *Table) TypeTotals() []TypeColumn {
	out := make([]TypeColumn, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = TypeColumn{Name: c.Name, CrimeType: c.CrimeType}
		for _, r := range t.Rows {
			out[i].Total += r.ByType[c.Name]
		}
	}
	return out
}

type tractKey struct{ id, label string }

// Aggregate builds the statistics table from enriched incidents. Rows without
// a tract are skipped. The topN most frequent crime types (ties broken by
// name) become zero-filled columns.
func Aggregate(rows iter.Seq2[incident.Enriched, error], topN int) (*Table, error) {
	if topN < 0 {
		return nil, eris.Errorf("stats: top-n must not be negative, got %d", topN)
	}

	totals := make(map[tractKey]int)
	perType := make(map[string]map[string]int) // tract id -> crime type -> count
	typeTotals := make(map[string]int)
	var read, skipped int

	for e, err := range rows {
		if err != nil {
			return nil, eris.Wrap(err, "stats: read enriched incidents")
		}
		read++
		if !e.Matched() {
			skipped++
			continue
		}
		id := *e.TractID
		label := ""
		if e.TractLabel != nil {
			label = *e.TractLabel
		}
		totals[tractKey{id, label}]++

		if perType[id] == nil {
			perType[id] = make(map[string]int)
		}
		perType[id][e.CrimeType]++
		typeTotals[e.CrimeType]++
	}

	top := rankTypes(typeTotals, topN)
	names := ColumnNames(top)

	t := &Table{Columns: make([]TypeColumn, len(top))}
	for i, ct := range top {
		t.Columns[i] = TypeColumn{Name: names[i], CrimeType: ct, Total: typeTotals[ct]}
	}

	keys := make([]tractKey, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].id != keys[j].id {
			return keys[i].id < keys[j].id
		}
		return keys[i].label < keys[j].label
	})

	t.Rows = make([]Row, len(keys))
	for i, k := range keys {
		byType := make(map[string]int, len(top))
		for j, ct := range top {
			byType[names[j]] = perType[k.id][ct]
		}
		t.Rows[i] = Row{TractID: k.id, TractLabel: k.label, Total: totals[k], ByType: byType}
	}

	zap.L().Info("stats: aggregated incidents",
		zap.String("component", "stats"),
		zap.Int("read", read),
		zap.Int("without_tract", skipped),
		zap.Int("tracts", len(t.Rows)),
		zap.Int("crime_types", len(typeTotals)),
	)

	return t, nil
}

// rankTypes returns up to n crime types by descending count, ties by name.
func rankTypes(counts map[string]int, n int) []string {
	types := make([]string, 0, len(counts))
	for ct := range counts {
		types = append(types, ct)
	}
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return types[i] < types[j]
	})
	if len(types) > n {
		types = types[:n]
	}
	return types
}

// ColumnName derives the column name of a crime type: the prefix followed by
// the lower-cased label with runs of non-alphanumeric characters collapsed to
// a single underscore, truncated to 20 characters.
func ColumnName(crimeType string) string {
	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(crimeType) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = false
			b.WriteRune(r)
			continue
		}
		sep = true
	}

	slug := []rune(b.String())
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}
	s := strings.TrimRight(string(slug), "_")
	if s == "" {
		s = "other"
	}
	return ColumnPrefix + s
}

// ColumnNames derives column names for types in order. A name already taken
// by an earlier type, or reserved, gets a numeric suffix (_2, _3, ...).
func ColumnNames(types []string) []string {
	used := make(map[string]bool, len(types))
	out := make([]string, len(types))
	for i, ct := range types {
		base := ColumnName(ct)
		name := base
		for n := 2; used[name] || reserved[name]; n++ {
			name = base + "_" + strconv.Itoa(n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// DisplayName turns a column name back into a chart label, e.g.
// crime_vehicle_stolen -> "Vehicle Stolen".
func DisplayName(column string) string {
	s := strings.TrimPrefix(column, ColumnPrefix)
	s = strings.ReplaceAll(s, "_", " ")
	return cases.Title(language.English).String(s)
}
