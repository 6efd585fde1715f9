package assign

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/la-crime/crimetracts/internal/incident"
	"github.com/la-crime/crimetracts/internal/tract"
	"github.com/la-crime/crimetracts/internal/tract/tracttest"
)

func loadLayer(t *testing.T) *tract.Layer {
	t.Helper()
	path := tracttest.Write(t, t.TempDir(), "tracts", tracttest.LA())
	layer, err := tract.Load(path, tract.LoadOptions{})
	require.NoError(t, err)
	return layer
}

func f(v float64) *float64 { return &v }

func TestJoin_ThreeRowChunk(t *testing.T) {
	layer := loadLayer(t)

	chunk := []incident.Incident{
		{Row: 1, CrimeID: "a", Latitude: f(34.05), Longitude: f(-118.25)},
		{Row: 2, CrimeID: "b", Latitude: f(0), Longitude: f(-118.25)},
		{Row: 3, CrimeID: "c", Latitude: f(33.5), Longitude: f(-118.5)},
	}

	rows, stats := Join(layer, chunk)

	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].CrimeID)
	assert.Equal(t, "c", rows[1].CrimeID)
	require.NotNil(t, rows[0].TractID)
	assert.Equal(t, "101110", *rows[0].TractID)
	assert.Equal(t, "1011.10", *rows[0].TractLabel)
	assert.Nil(t, rows[1].TractID)

	assert.Equal(t, Stats{Read: 3, Dropped: 1, Processed: 2, Found: 1, NotFound: 1, Chunks: 1}, stats)
	assert.Equal(t, 2, stats.Found+stats.NotFound)
}

// rejectingLocator behaves like a projected layer whose projection rejects
// latitudes outside [-90, 90].
type rejectingLocator struct{ layer *tract.Layer }

func (l rejectingLocator) Lookup(lat, lon float64) (*tract.Tract, error) {
	if lat < -90 || lat > 90 {
		return nil, eris.Errorf("tract: project point (%f, %f): Invalid coordinate", lat, lon)
	}
	return l.layer.Lookup(lat, lon)
}

func TestJoin_UnlocatableRowIsUnmatched(t *testing.T) {
	chunk := []incident.Incident{
		{Row: 1, CrimeID: "a", Latitude: f(34.05), Longitude: f(-118.25)},
		{Row: 2, CrimeID: "b", Latitude: f(95.0), Longitude: f(-118.25)},
		{Row: 3, CrimeID: "c", Latitude: f(34.05), Longitude: f(-118.25)},
	}

	rows, stats := Join(rejectingLocator{loadLayer(t)}, chunk)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{rows[0].CrimeID, rows[1].CrimeID, rows[2].CrimeID})
	assert.NotNil(t, rows[0].TractID)
	assert.Nil(t, rows[1].TractID)
	assert.Nil(t, rows[1].TractLabel)
	assert.NotNil(t, rows[2].TractID)

	assert.Equal(t, Stats{Read: 3, Processed: 3, Found: 2, NotFound: 1, Unlocatable: 1, Chunks: 1}, stats)
	assert.Equal(t, stats.Processed, stats.Found+stats.NotFound)
}

const header = "DR_NO,DATE OCC,AREA NAME,Crm Cd Desc,LAT,LON\n"

func writeInput(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crimes.csv")
	require.NoError(t, os.WriteFile(path, []byte(header+strings.Join(rows, "\n")+"\n"), 0o644))
	return path
}

func TestRun_PreservesCountsAcrossChunks(t *testing.T) {
	layer := loadLayer(t)
	input := writeInput(t,
		"1,01/01/2020,Central,BURGLARY,34.05,-118.25",
		"2,01/01/2020,Central,BURGLARY,34.05,-118.15",
		"3,01/01/2020,Central,ROBBERY,0,0",
		"4,01/01/2020,Central,ROBBERY,34.15,-118.25",
		"5,01/01/2020,Central,ROBBERY,,",
		"6,01/01/2020,Central,VANDALISM,34.15,-118.15",
		"7,01/01/2020,Central,VANDALISM,33.0,-117.0",
	)
	output := filepath.Join(t.TempDir(), "enriched.csv")

	stats, err := Run(context.Background(), layer, Options{Input: input, Output: output, ChunkSize: 3, ReportEvery: 1})
	require.NoError(t, err)

	assert.Equal(t, 7, stats.Read)
	assert.Equal(t, 2, stats.Dropped)
	assert.Equal(t, 5, stats.Processed)
	assert.Equal(t, 3, stats.Found)
	assert.Equal(t, 2, stats.NotFound)
	assert.Equal(t, 3, stats.Chunks)
	assert.Equal(t, stats.Read-stats.Dropped, stats.Processed)
	assert.Equal(t, stats.Processed, stats.Found+stats.NotFound)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	var ids []string
	var tracts []string
	for e, err := range incident.ScanEnriched(bytes.NewReader(data)) {
		require.NoError(t, err)
		ids = append(ids, e.CrimeID)
		if e.Matched() {
			tracts = append(tracts, *e.TractID)
		} else {
			tracts = append(tracts, "")
		}
	}
	assert.Equal(t, []string{"1", "2", "4", "6", "7"}, ids)
	assert.Equal(t, []string{"101110", "101122", "", "201400", ""}, tracts, "row 4 falls in the hole of tract 201300")
	assert.Equal(t, 1, strings.Count(string(data), "crime_id,"), "header is written once")
}

func TestRun_ContinuesPastUnlocatableRow(t *testing.T) {
	input := writeInput(t,
		"1,01/01/2020,Central,BURGLARY,34.05,-118.25",
		"2,01/01/2020,Central,BURGLARY,95.0,-118.25",
		"3,01/01/2020,Central,BURGLARY,34.05,-118.25",
	)
	output := filepath.Join(t.TempDir(), "enriched.csv")

	stats, err := Run(context.Background(), rejectingLocator{loadLayer(t)}, Options{Input: input, Output: output})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 2, stats.Found)
	assert.Equal(t, 1, stats.NotFound)
	assert.Equal(t, 1, stats.Unlocatable)
	assert.Contains(t, stats.Summary(), "Unlocatable:        1")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var matched int
	for e, err := range incident.ScanEnriched(bytes.NewReader(data)) {
		require.NoError(t, err)
		if e.Matched() {
			matched++
		}
	}
	assert.Equal(t, stats.Found, matched)
}

func TestRun_ReportsEveryNthChunk(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	input := writeInput(t,
		"1,01/01/2020,Central,BURGLARY,34.05,-118.25",
		"2,01/01/2020,Central,BURGLARY,34.05,-118.25",
		"3,01/01/2020,Central,BURGLARY,34.05,-118.25",
		"4,01/01/2020,Central,BURGLARY,34.05,-118.25",
		"5,01/01/2020,Central,BURGLARY,34.05,-118.25",
	)
	_, err := Run(context.Background(), loadLayer(t), Options{
		Input:       input,
		Output:      filepath.Join(t.TempDir(), "out.csv"),
		ChunkSize:   1,
		ReportEvery: 2,
	})
	require.NoError(t, err)

	var chunks []int64
	for _, e := range logs.FilterMessage("assignment progress").All() {
		chunks = append(chunks, e.ContextMap()["chunks"].(int64))
	}
	assert.Equal(t, []int64{2, 4}, chunks)
}

func TestRun_MalformedInputAborts(t *testing.T) {
	layer := loadLayer(t)
	input := writeInput(t,
		"1,01/01/2020,Central,BURGLARY,34.05,-118.25",
		"2,01/01/2020,Central",
	)

	_, err := Run(context.Background(), layer, Options{
		Input:  input,
		Output: filepath.Join(t.TempDir(), "out.csv"),
	})
	require.Error(t, err)
}

func TestRun_Cancelled(t *testing.T) {
	layer := loadLayer(t)
	input := writeInput(t, "1,01/01/2020,Central,BURGLARY,34.05,-118.25")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, layer, Options{Input: input, Output: filepath.Join(t.TempDir(), "out.csv")})
	require.Error(t, err)
	assert.True(t, eris.Is(err, context.Canceled))
}

func TestRun_MissingInput(t *testing.T) {
	layer := loadLayer(t)
	_, err := Run(context.Background(), layer, Options{
		Input:  filepath.Join(t.TempDir(), "missing.csv"),
		Output: filepath.Join(t.TempDir(), "out.csv"),
	})
	require.Error(t, err)
}

func TestRun_ProgressBar(t *testing.T) {
	layer := loadLayer(t)
	input := writeInput(t, "1,01/01/2020,Central,BURGLARY,34.05,-118.25")

	var buf bytes.Buffer
	_, err := Run(context.Background(), layer, Options{
		Input:    input,
		Output:   filepath.Join(t.TempDir(), "out.csv"),
		Progress: &buf,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "assigning tracts")
}

func TestStats_Summary(t *testing.T) {
	s := Stats{Read: 1_250_000, Dropped: 250_000, Processed: 1_000_000, Found: 990_000, NotFound: 10_000}
	out := s.Summary()
	assert.Contains(t, out, "1,000,000")
	assert.Contains(t, out, "990,000 (99.0%)")
	assert.Contains(t, out, "10,000 (1.0%)")

	assert.NotContains(t, out, "Unlocatable")

	s.Unlocatable = 1_200
	assert.Contains(t, s.Summary(), "Unlocatable:        1,200 (counted as no census tract)")

	assert.Zero(t, Stats{}.FoundRate())
}
