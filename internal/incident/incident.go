// Package incident reads crime incident CSVs as lazy sequences and writes the
// tract-enriched incident file.
package incident

import (
	"encoding/csv"
	"errors"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// Source column names in the city's crime data export.
const (
	ColLatitude  = "LAT"
	ColLongitude = "LON"
	ColCrimeID   = "DR_NO"
	ColDate      = "DATE OCC"
	ColAreaName  = "AREA NAME"
	ColCrimeType = "Crm Cd Desc"
)

// Incident is one crime record with canonical field names. Latitude and
// Longitude are nil when the source value is empty or not a number.
type Incident struct {
	Row       int // 1-based data row number in the source file
	CrimeID   string
	Date      string
	AreaName  string
	CrimeType string
	Latitude  *float64
	Longitude *float64
}

// HasLocation reports whether both coordinates are present and non-zero.
// Zero is the source's sentinel for "no location".
func (in Incident) HasLocation() bool {
	return in.Latitude != nil && in.Longitude != nil &&
		*in.Latitude != 0 && *in.Longitude != 0
}

// record selects only the needed source columns.
type record struct {
	CrimeID   string `csv:"DR_NO"`
	Date      string `csv:"DATE OCC"`
	AreaName  string `csv:"AREA NAME"`
	CrimeType string `csv:"Crm Cd Desc"`
	Latitude  string `csv:"LAT"`
	Longitude string `csv:"LON"`
}

// Scan returns a lazy sequence over the incidents in r. The first row must be
// the header. A malformed row yields a non-nil error and ends the sequence.
func Scan(r io.Reader) iter.Seq2[Incident, error] {
	return func(yield func(Incident, error) bool) {
		dec, err := newDecoder(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			yield(Incident{}, eris.Wrap(err, "incident: read header"))
			return
		}
		dec.DisallowMissingColumns = true

		for row := 1; ; row++ {
			var rec record
			if err := dec.Decode(&rec); err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				yield(Incident{}, eris.Wrapf(err, "incident: decode row %d", row))
				return
			}
			in := Incident{
				Row:       row,
				CrimeID:   rec.CrimeID,
				Date:      rec.Date,
				AreaName:  rec.AreaName,
				CrimeType: rec.CrimeType,
				Latitude:  parseCoord(rec.Latitude),
				Longitude: parseCoord(rec.Longitude),
			}
			if !yield(in, nil) {
				return
			}
		}
	}
}

func newDecoder(r io.Reader, header ...string) (*csvutil.Decoder, error) {
	return csvutil.NewDecoder(csv.NewReader(r), header...)
}

func parseCoord(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// Chunk batches seq into slices of at most size elements. The final chunk may
// be shorter. An error from seq is yielded with the rows read before it.
func Chunk[T any](seq iter.Seq2[T, error], size int) iter.Seq2[[]T, error] {
	if size < 1 {
		size = 1
	}
	return func(yield func([]T, error) bool) {
		buf := make([]T, 0, size)
		for v, err := range seq {
			if err != nil {
				yield(buf, err)
				return
			}
			buf = append(buf, v)
			if len(buf) == size {
				if !yield(buf, nil) {
					return
				}
				buf = make([]T, 0, size)
			}
		}
		if len(buf) > 0 {
			yield(buf, nil)
		}
	}
}
