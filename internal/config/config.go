package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Tracts    TractsConfig    `yaml:"tracts" mapstructure:"tracts"`
	Assign    AssignConfig    `yaml:"assign" mapstructure:"assign"`
	Aggregate AggregateConfig `yaml:"aggregate" mapstructure:"aggregate"`
	Render    RenderConfig    `yaml:"render" mapstructure:"render"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// TractsConfig configures the census tract layer.
type TractsConfig struct {
	Shapefile    string `yaml:"shapefile" mapstructure:"shapefile"`
	IDField      string `yaml:"id_field" mapstructure:"id_field"`
	LabelField   string `yaml:"label_field" mapstructure:"label_field"`
	RestoreIndex bool   `yaml:"restore_index" mapstructure:"restore_index"`
}

// AssignConfig configures bulk tract assignment.
type AssignConfig struct {
	Input       string `yaml:"input" mapstructure:"input"`
	Output      string `yaml:"output" mapstructure:"output"`
	ChunkSize   int    `yaml:"chunk_size" mapstructure:"chunk_size"`
	ReportEvery int    `yaml:"report_every" mapstructure:"report_every"`
	ProgressBar bool   `yaml:"progress_bar" mapstructure:"progress_bar"`
}

// AggregateConfig configures per-tract statistics.
type AggregateConfig struct {
	Output     string `yaml:"output" mapstructure:"output"`
	TopN       int    `yaml:"top_n" mapstructure:"top_n"`
	XLSXOutput string `yaml:"xlsx_output" mapstructure:"xlsx_output"`
}

// RenderConfig configures chart and map output.
type RenderConfig struct {
	Heatmap          string `yaml:"heatmap" mapstructure:"heatmap"`
	TypesChart       string `yaml:"types_chart" mapstructure:"types_chart"`
	Hotspots         string `yaml:"hotspots" mapstructure:"hotspots"`
	Width            int    `yaml:"width" mapstructure:"width"`
	Height           int    `yaml:"height" mapstructure:"height"`
	BasicMapFallback bool   `yaml:"basic_map_fallback" mapstructure:"basic_map_fallback"`
	GeoJSONOutput    string `yaml:"geojson_output" mapstructure:"geojson_output"`
	Concurrency      int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CRIMETRACTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("tracts.shapefile", "LA_City_2020_Census_Tracts_.shp")
	v.SetDefault("tracts.id_field", "CT20")
	v.SetDefault("tracts.label_field", "LABEL")
	v.SetDefault("tracts.restore_index", true)
	v.SetDefault("assign.input", "Crime_Data_from_2020_to_Present.csv")
	v.SetDefault("assign.output", "crime_data_with_census_tracts.csv")
	v.SetDefault("assign.chunk_size", 50000)
	v.SetDefault("assign.report_every", 10)
	v.SetDefault("assign.progress_bar", true)
	v.SetDefault("aggregate.output", "crime_by_census_tract.csv")
	v.SetDefault("aggregate.top_n", 10)
	v.SetDefault("aggregate.xlsx_output", "")
	v.SetDefault("render.heatmap", "crime_heatmap.png")
	v.SetDefault("render.types_chart", "crime_types_chart.png")
	v.SetDefault("render.hotspots", "crime_hotspots.png")
	v.SetDefault("render.width", 1500)
	v.SetDefault("render.height", 1000)
	v.SetDefault("render.basic_map_fallback", false)
	v.SetDefault("render.geojson_output", "")
	v.SetDefault("render.concurrency", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings that would make a run meaningless.
func (c *Config) Validate() error {
	if c.Tracts.IDField == "" {
		return eris.New("config: tracts.id_field is required")
	}
	if c.Assign.ChunkSize <= 0 {
		return eris.Errorf("config: assign.chunk_size must be positive, got %d", c.Assign.ChunkSize)
	}
	if c.Aggregate.TopN < 0 {
		return eris.Errorf("config: aggregate.top_n must not be negative, got %d", c.Aggregate.TopN)
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return eris.Errorf("config: render size %dx%d is invalid", c.Render.Width, c.Render.Height)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
