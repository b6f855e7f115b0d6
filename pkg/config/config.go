// Package config holds the settings shared by every churnctl command.
// Values start from Default, are overlaid by an optional YAML file and
// finally by CHURN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/data"
)

var ErrInvalid = errors.New("config: invalid value")

// Config holds all application configuration
type Config struct {
	// Files
	InputPath   string
	OutputPath  string
	SummaryPath string
	ReportPath  string

	// Columns
	Schema         data.Schema
	ProfileColumns []string

	// Model
	Forest    ForestConfig
	TestRatio float64 // held-out share used by evaluate
	CVFolds   int     // 0 => no cross-validation

	// Dashboard
	ListenAddr string

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"
}

// ForestConfig are the random forest hyperparameters.
type ForestConfig struct {
	Trees           int   `yaml:"trees"`
	MaxDepth        int   `yaml:"max_depth"`
	MinSamplesSplit int   `yaml:"min_samples_split"`
	MinSamplesLeaf  int   `yaml:"min_samples_leaf"`
	MaxFeatures     int   `yaml:"max_features"` // 0 => sqrt, -1 => all
	Seed            int64 `yaml:"seed"`
}

type configFile struct {
	Paths struct {
		Input   string `yaml:"input"`
		Output  string `yaml:"output"`
		Summary string `yaml:"summary"`
		Report  string `yaml:"report"`
	} `yaml:"paths"`
	Schema         *data.Schema  `yaml:"schema"`
	ProfileColumns []string      `yaml:"profile_columns"`
	Forest         *ForestConfig `yaml:"forest"`
	Evaluation     struct {
		TestRatio float64 `yaml:"test_ratio"`
		CVFolds   *int    `yaml:"cv_folds"`
	} `yaml:"evaluation"`
	Dashboard struct {
		Addr string `yaml:"addr"`
	} `yaml:"dashboard"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		InputPath:      "data/ecommerce_churn.csv",
		OutputPath:     "out/churn_segments.csv",
		SummaryPath:    "out/churn_summary.json",
		ReportPath:     "out/churn_report.html",
		Schema:         data.DefaultSchema(),
		ProfileColumns: []string{"Tenure", "CashbackAmount", "SatisfactionScore", "DaySinceLastOrder"},
		Forest: ForestConfig{
			Trees:           100,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  1,
			Seed:            42,
		},
		TestRatio:  0.2,
		CVFolds:    5,
		ListenAddr: ":8050",
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// Load reads path when it exists and applies environment overrides.
// An empty path or a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := cfg.apply(raw); err != nil {
				return Config{}, err
			}
		case !errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.InputPath = envOrDefault("CHURN_INPUT", cfg.InputPath)
	cfg.OutputPath = envOrDefault("CHURN_OUTPUT", cfg.OutputPath)
	cfg.SummaryPath = envOrDefault("CHURN_SUMMARY", cfg.SummaryPath)
	cfg.ReportPath = envOrDefault("CHURN_REPORT", cfg.ReportPath)
	cfg.ListenAddr = envOrDefault("CHURN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = envOrDefault("CHURN_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOrDefault("CHURN_LOG_FORMAT", cfg.LogFormat)
	cfg.Forest.Trees = envInt("CHURN_TREES", cfg.Forest.Trees)
	cfg.Forest.MaxDepth = envInt("CHURN_MAX_DEPTH", cfg.Forest.MaxDepth)
	cfg.Forest.Seed = int64(envInt("CHURN_SEED", int(cfg.Forest.Seed)))
	cfg.TestRatio = envFloat("CHURN_TEST_RATIO", cfg.TestRatio)
	cfg.CVFolds = envInt("CHURN_CV_FOLDS", cfg.CVFolds)
	return cfg, nil
}

func (c *Config) apply(raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if f.Paths.Input != "" {
		c.InputPath = f.Paths.Input
	}
	if f.Paths.Output != "" {
		c.OutputPath = f.Paths.Output
	}
	if f.Paths.Summary != "" {
		c.SummaryPath = f.Paths.Summary
	}
	if f.Paths.Report != "" {
		c.ReportPath = f.Paths.Report
	}
	if f.Schema != nil {
		c.Schema = *f.Schema
	}
	if len(f.ProfileColumns) > 0 {
		c.ProfileColumns = f.ProfileColumns
	}
	if f.Forest != nil {
		c.Forest = *f.Forest
	}
	if f.Evaluation.TestRatio != 0 {
		c.TestRatio = f.Evaluation.TestRatio
	}
	if f.Evaluation.CVFolds != nil {
		c.CVFolds = *f.Evaluation.CVFolds
	}
	if f.Dashboard.Addr != "" {
		c.ListenAddr = f.Dashboard.Addr
	}
	if f.Log.Level != "" {
		c.LogLevel = f.Log.Level
	}
	if f.Log.Format != "" {
		c.LogFormat = f.Log.Format
	}
	return nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var problems []string
	if c.InputPath == "" {
		problems = append(problems, "input path is empty")
	}
	if c.OutputPath == "" {
		problems = append(problems, "output path is empty")
	}
	if c.Schema.Label == "" {
		problems = append(problems, "schema label is empty")
	}
	if len(c.Schema.Numeric)+len(c.Schema.Categorical) == 0 {
		problems = append(problems, "schema has no feature columns")
	}
	if c.Forest.Trees < 1 {
		problems = append(problems, "forest trees must be positive")
	}
	if c.Forest.MinSamplesSplit < 2 {
		problems = append(problems, "forest min_samples_split must be at least 2")
	}
	if c.Forest.MinSamplesLeaf < 1 {
		problems = append(problems, "forest min_samples_leaf must be at least 1")
	}
	if c.Forest.MaxDepth < 0 {
		problems = append(problems, "forest max_depth must not be negative")
	}
	if c.TestRatio <= 0 || c.TestRatio >= 1 {
		problems = append(problems, "test ratio must be in (0, 1)")
	}
	if c.CVFolds < 0 || c.CVFolds == 1 {
		problems = append(problems, "cv folds must be 0 or at least 2")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("unknown log format %q", c.LogFormat))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func envOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
