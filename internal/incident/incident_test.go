package incident

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `DR_NO,Date Rptd,DATE OCC,AREA,AREA NAME,Crm Cd,Crm Cd Desc,LOCATION,LAT,LON
190326475,03/01/2020 12:00:00 AM,03/01/2020 12:00:00 AM,07,Wilshire,510,VEHICLE - STOLEN,1900 S LONGWOOD AV,34.0375,-118.3506
200106753,02/09/2020 12:00:00 AM,02/08/2020 12:00:00 AM,01,Central,330,BURGLARY FROM VEHICLE,1000 S FLOWER ST,0,0
200320258,11/11/2020 12:00:00 AM,11/04/2020 12:00:00 AM,03,Southwest,480,BIKE - STOLEN,1400 W 37TH ST,,-118.3004
200907217,05/10/2023 12:00:00 AM,03/10/2020 12:00:00 AM,09,Van Nuys,343,"SHOPLIFTING-GRAND THEFT ($950.01 & OVER)",14000 RIVERSIDE DR,34.1576,n/a
`

func collect(t *testing.T, csvText string) []Incident {
	t.Helper()
	var out []Incident
	for in, err := range Scan(strings.NewReader(csvText)) {
		require.NoError(t, err)
		out = append(out, in)
	}
	return out
}

func TestScan_SelectsAndRenamesColumns(t *testing.T) {
	rows := collect(t, sampleCSV)
	require.Len(t, rows, 4)

	first := rows[0]
	assert.Equal(t, 1, first.Row)
	assert.Equal(t, "190326475", first.CrimeID)
	assert.Equal(t, "03/01/2020 12:00:00 AM", first.Date)
	assert.Equal(t, "Wilshire", first.AreaName)
	assert.Equal(t, "VEHICLE - STOLEN", first.CrimeType)
	require.NotNil(t, first.Latitude)
	assert.InDelta(t, 34.0375, *first.Latitude, 1e-9)
	assert.InDelta(t, -118.3506, *first.Longitude, 1e-9)
	assert.True(t, first.HasLocation())

	assert.Equal(t, "SHOPLIFTING-GRAND THEFT ($950.01 & OVER)", rows[3].CrimeType)
}

func TestHasLocation(t *testing.T) {
	rows := collect(t, sampleCSV)

	assert.True(t, rows[0].HasLocation())
	assert.False(t, rows[1].HasLocation(), "zero coordinates are the no-location sentinel")
	assert.False(t, rows[2].HasLocation(), "missing latitude")
	assert.Nil(t, rows[2].Latitude)
	assert.False(t, rows[3].HasLocation(), "unparsable longitude")
	assert.Nil(t, rows[3].Longitude)
}

func TestScan_MissingColumn(t *testing.T) {
	csvText := "DR_NO,DATE OCC,AREA NAME,Crm Cd Desc,LAT\n1,d,a,t,34.0\n"
	var gotErr error
	for _, err := range Scan(strings.NewReader(csvText)) {
		gotErr = err
	}
	require.Error(t, gotErr)
}

func TestScan_MalformedRowAborts(t *testing.T) {
	csvText := "DR_NO,DATE OCC,AREA NAME,Crm Cd Desc,LAT,LON\n1,d,a,t,34.0,-118.2\n2,d,a\n3,d,a,t,34.0,-118.2\n"
	var good int
	var gotErr error
	for _, err := range Scan(strings.NewReader(csvText)) {
		if err != nil {
			gotErr = err
			continue
		}
		good++
	}
	assert.Equal(t, 1, good)
	require.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "row 2")
}

func TestScan_Empty(t *testing.T) {
	assert.Empty(t, collect(t, ""))
}

func TestScan_StopsEarly(t *testing.T) {
	n := 0
	for range Scan(strings.NewReader(sampleCSV)) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestChunk(t *testing.T) {
	seq := func(yield func(int, error) bool) {
		for i := range 7 {
			if !yield(i, nil) {
				return
			}
		}
	}

	var sizes []int
	for c, err := range Chunk(seq, 3) {
		require.NoError(t, err)
		sizes = append(sizes, len(c))
	}
	assert.Equal(t, []int{3, 3, 1}, sizes)
}

func TestChunk_ExactMultipleAndNonPositiveSize(t *testing.T) {
	seq := func(yield func(int, error) bool) {
		for i := range 4 {
			if !yield(i, nil) {
				return
			}
		}
	}

	var sizes []int
	for c, err := range Chunk(seq, 2) {
		require.NoError(t, err)
		sizes = append(sizes, len(c))
	}
	assert.Equal(t, []int{2, 2}, sizes)

	sizes = nil
	for c, err := range Chunk(seq, 0) {
		require.NoError(t, err)
		sizes = append(sizes, len(c))
	}
	assert.Equal(t, []int{1, 1, 1, 1}, sizes)
}

func TestChunk_PropagatesError(t *testing.T) {
	boom := assert.AnError
	seq := func(yield func(int, error) bool) {
		if !yield(1, nil) {
			return
		}
		yield(0, boom)
	}

	var got []error
	for _, err := range Chunk(seq, 10) {
		got = append(got, err)
	}
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0], boom)
}

func ptr(s string) *string { return &s }

func TestWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enriched.csv")
	w, err := Create(path)
	require.NoError(t, err)

	lat, lon := 34.0375, -118.3506
	matched := Enrich(Incident{CrimeID: "1", Date: "d1", AreaName: "Wilshire", CrimeType: "VEHICLE - STOLEN", Latitude: &lat, Longitude: &lon})
	matched.TractID, matched.TractLabel = ptr("218220"), ptr("2182.20")
	unmatched := Enrich(Incident{CrimeID: "2", Date: "d2", AreaName: "Central", CrimeType: "BIKE - STOLEN", Latitude: &lat, Longitude: &lon})

	require.NoError(t, w.Write([]Enriched{matched}))
	require.NoError(t, w.Write([]Enriched{unmatched}))
	assert.Equal(t, 2, w.Rows())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "crime_id,date,area_name,crime_type,latitude,longitude,census_tract_id,census_tract_label", lines[0])
	assert.True(t, strings.HasSuffix(lines[2], ",,"), "unmatched rows leave tract columns empty")

	var got []Enriched
	for e, err := range ScanEnriched(bytes.NewReader(data)) {
		require.NoError(t, err)
		got = append(got, e)
	}
	require.Len(t, got, 2)
	assert.True(t, got[0].Matched())
	assert.Equal(t, "218220", *got[0].TractID)
	assert.Equal(t, "2182.20", *got[0].TractLabel)
	assert.InDelta(t, lat, got[0].Latitude, 1e-9)
	assert.False(t, got[1].Matched())
	assert.Nil(t, got[1].TractID)
	assert.Nil(t, got[1].TractLabel)
}

func TestCountRows(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"header only", "a,b\n", 0},
		{"trailing newline", "a,b\n1,2\n3,4\n", 2},
		{"no trailing newline", "a,b\n1,2\n3,4", 2},
		{"empty", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			n, err := CountRows(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}
