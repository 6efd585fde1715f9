package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/la-crime/crimetracts/internal/stats"
	"github.com/la-crime/crimetracts/internal/tract/tracttest"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// fixtureEnv writes the LA tract fixture and points the configuration at it.
func fixtureEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := tracttest.Write(t, dir, "tracts", tracttest.LA())
	t.Setenv("CRIMETRACTS_TRACTS_SHAPEFILE", path)
	t.Setenv("CRIMETRACTS_LOG_LEVEL", "error")
	return dir
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"lookup", "tracts", "assign", "aggregate", "render", "run"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "crimetracts", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		cmd   string
		flags []string
	}{
		{"lookup", []string{"lat", "lon", "wkt", "shapefile", "id-field", "label-field"}},
		{"tracts", []string{"shapefile"}},
		{"assign", []string{"input", "output", "chunk-size", "progress", "shapefile"}},
		{"aggregate", []string{"input", "stats", "xlsx", "top"}},
		{"render", []string{"stats", "heatmap", "types-chart", "hotspots", "geojson", "basic-map-fallback", "concurrency"}},
		{"run", []string{"input", "output", "stats", "heatmap", "geojson", "shapefile"}},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{tt.cmd})
			require.NoError(t, err)
			for _, name := range tt.flags {
				assert.NotNil(t, cmd.Flags().Lookup(name), "%s should have --%s flag", tt.cmd, name)
			}
		})
	}
}

func TestLookupCommand(t *testing.T) {
	fixtureEnv(t)

	out, err := execute(t, "lookup", "--lat", "34.05", "--lon", "-118.25", "--wkt")
	require.NoError(t, err)

	var res lookupResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.True(t, res.Found)
	assert.Equal(t, "101110", res.TractID)
	assert.Equal(t, "1011.10", res.TractLabel)
	assert.Equal(t, "101110", res.Attributes["CT20"])
	assert.True(t, strings.HasPrefix(res.WKT, "MULTIPOLYGON"), res.WKT)

	out, err = execute(t, "lookup", "--lat", "33.0", "--lon", "-117.0")
	require.NoError(t, err)
	res = lookupResult{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.False(t, res.Found)
	assert.Empty(t, res.TractID)
}

func TestTractsCommand(t *testing.T) {
	fixtureEnv(t)

	out, err := execute(t, "tracts")
	require.NoError(t, err)

	var info layerInfo
	require.NoError(t, yaml.Unmarshal([]byte(out), &info))
	assert.Equal(t, 4, info.Count)
	assert.Equal(t, []string{"CT20", "LABEL"}, info.Fields)
	assert.Equal(t, "101110", info.FirstRecord["CT20"])
	assert.Contains(t, info.CRS, "assumed WGS84")
}

func TestTractsCommand_MissingShapefile(t *testing.T) {
	t.Setenv("CRIMETRACTS_TRACTS_SHAPEFILE", filepath.Join(t.TempDir(), "missing.shp"))
	t.Setenv("CRIMETRACTS_LOG_LEVEL", "error")

	_, err := execute(t, "tracts")
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	dir := fixtureEnv(t)

	input := filepath.Join(dir, "crimes.csv")
	require.NoError(t, os.WriteFile(input, []byte(strings.Join([]string{
		"DR_NO,DATE OCC,AREA NAME,Crm Cd Desc,LAT,LON",
		"1,01/01/2024,Central,VEHICLE - STOLEN,34.05,-118.25",
		"2,01/02/2024,Central,VEHICLE - STOLEN,34.06,-118.26",
		"3,01/03/2024,Central,BATTERY - SIMPLE ASSAULT,34.15,-118.15",
		"4,01/04/2024,Central,BATTERY - SIMPLE ASSAULT,0,0",
		"5,01/05/2024,Hollywood,VEHICLE - STOLEN,33.0,-117.0",
	}, "\n")+"\n"), 0o644))

	for key, value := range map[string]string{
		"ASSIGN_INPUT":          input,
		"ASSIGN_OUTPUT":         filepath.Join(dir, "enriched.csv"),
		"ASSIGN_CHUNK_SIZE":     "2",
		"AGGREGATE_OUTPUT":      filepath.Join(dir, "stats.csv"),
		"RENDER_HEATMAP":        filepath.Join(dir, "heatmap.png"),
		"RENDER_TYPES_CHART":    filepath.Join(dir, "types.png"),
		"RENDER_HOTSPOTS":       filepath.Join(dir, "hotspots.png"),
		"RENDER_GEOJSON_OUTPUT": filepath.Join(dir, "tracts.geojson"),
		"RENDER_WIDTH":          "300",
		"RENDER_HEIGHT":         "200",
	} {
		t.Setenv("CRIMETRACTS_"+key, value)
	}

	out, err := execute(t, "run")
	require.NoError(t, err)

	assert.Contains(t, out, "Processed 4 crime records (1 dropped without location)")
	assert.Contains(t, out, "Found census tract: 3 (75.0%)")
	assert.Contains(t, out, "All visualization charts generated successfully!")

	for _, name := range []string{"enriched.csv", "stats.csv", "heatmap.png", "types.png", "hotspots.png", "tracts.geojson"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	table, err := stats.ReadCSVFile(filepath.Join(dir, "stats.csv"))
	require.NoError(t, err)
	assert.Equal(t, 3, table.Sum())
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "101110", table.Rows[0].TractID)
	assert.Equal(t, 2, table.Rows[0].Total)
	assert.Equal(t, "201400", table.Rows[1].TractID)
}
