package incident

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"iter"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// EnrichedHeader is the column order of the enriched incident file.
var EnrichedHeader = []string{
	"crime_id", "date", "area_name", "crime_type",
	"latitude", "longitude", "census_tract_id", "census_tract_label",
}

// Enriched is an incident with its assigned tract. TractID and TractLabel are
// nil when no tract contains the incident.
type Enriched struct {
	CrimeID    string  `csv:"crime_id"`
	Date       string  `csv:"date"`
	AreaName   string  `csv:"area_name"`
	CrimeType  string  `csv:"crime_type"`
	Latitude   float64 `csv:"latitude"`
	Longitude  float64 `csv:"longitude"`
	TractID    *string `csv:"census_tract_id"`
	TractLabel *string `csv:"census_tract_label"`
}

// Enrich copies in onto an Enriched row without a tract. in must have a
// location.
func Enrich(in Incident) Enriched {
	e := Enriched{
		CrimeID:   in.CrimeID,
		Date:      in.Date,
		AreaName:  in.AreaName,
		CrimeType: in.CrimeType,
	}
	if in.Latitude != nil {
		e.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		e.Longitude = *in.Longitude
	}
	return e
}

// Matched reports whether the row was assigned a tract.
func (e Enriched) Matched() bool {
	return e.TractID != nil && *e.TractID != ""
}

// Writer appends enriched rows to a CSV file. The header is written once
// when the file is created.
type Writer struct {
	f   *os.File
	cw  *csv.Writer
	enc *csvutil.Encoder
	n   int
}

// Create truncates path and writes the enriched header.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "incident: create %s", path)
	}
	w := NewWriter(f)
	w.f = f
	if err := w.cw.Write(EnrichedHeader); err != nil {
		_ = f.Close()
		return nil, eris.Wrap(err, "incident: write header")
	}
	w.cw.Flush()
	if err := w.cw.Error(); err != nil {
		_ = f.Close()
		return nil, eris.Wrap(err, "incident: write header")
	}
	return w, nil
}

// NewWriter returns a Writer over w that writes rows only; callers own the
// header.
func NewWriter(w io.Writer) *Writer {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false
	return &Writer{cw: cw, enc: enc}
}

// Write appends rows and flushes them to the underlying file.
func (w *Writer) Write(rows []Enriched) error {
	for i := range rows {
		if err := w.enc.Encode(rows[i]); err != nil {
			return eris.Wrapf(err, "incident: encode %s", rows[i].CrimeID)
		}
	}
	w.cw.Flush()
	if err := w.cw.Error(); err != nil {
		return eris.Wrap(err, "incident: flush rows")
	}
	w.n += len(rows)
	return nil
}

// Rows returns the number of rows written so far.
func (w *Writer) Rows() int { return w.n }

// Close flushes and closes the file opened by Create.
func (w *Writer) Close() error {
	w.cw.Flush()
	err := w.cw.Error()
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return eris.Wrap(err, "incident: close writer")
	}
	return nil
}

// ScanEnriched returns a lazy sequence over an enriched incident file.
func ScanEnriched(r io.Reader) iter.Seq2[Enriched, error] {
	return func(yield func(Enriched, error) bool) {
		dec, err := newDecoder(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			yield(Enriched{}, eris.Wrap(err, "incident: read enriched header"))
			return
		}
		dec.DisallowMissingColumns = true

		for row := 1; ; row++ {
			var e Enriched
			if err := dec.Decode(&e); err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				yield(Enriched{}, eris.Wrapf(err, "incident: decode enriched row %d", row))
				return
			}
			if e.TractID != nil && *e.TractID == "" {
				e.TractID = nil
			}
			if e.TractLabel != nil && *e.TractLabel == "" {
				e.TractLabel = nil
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

// CountRows returns the number of data lines in a CSV file (lines minus the
// header). Quoted fields containing newlines are over-counted; the result is
// only used for progress reporting.
func CountRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrapf(err, "incident: open %s", path)
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 64*1024)
	lines, last := 0, byte('\n')
	for {
		n, err := f.Read(buf)
		if n > 0 {
			lines += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, eris.Wrapf(err, "incident: count rows in %s", path)
		}
	}
	if last != '\n' {
		lines++
	}
	if lines > 0 {
		lines--
	}
	return lines, nil
}
