package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/config"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/dashboard"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/data"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/pipeline"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/report"
)

type command func(ctx context.Context, args []string, stdout, stderr io.Writer) error

var commands = map[string]command{
	"eda":      runEDA,
	"evaluate": runEvaluate,
	"segment":  runSegment,
	"report":   runReport,
	"serve":    runServe,
}

// flags are the options shared by every command. Zero values leave the
// configuration untouched.
type flags struct {
	fs         *flag.FlagSet
	configPath string
	input      string
	logLevel   string
	trees      int
	seed       int64
	seedSet    bool
}

func newFlags(name string, stderr io.Writer) *flags {
	f := &flags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	f.fs.SetOutput(stderr)
	f.fs.StringVar(&f.configPath, "config", "churn.yaml", "Path to YAML config file")
	f.fs.StringVar(&f.input, "input", "", "Path to input customer CSV")
	f.fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	return f
}

func (f *flags) forestFlags() {
	f.fs.IntVar(&f.trees, "trees", 0, "Number of trees in the forest")
	f.fs.Func("seed", "Random seed", func(s string) error {
		_, err := fmt.Sscan(s, &f.seed)
		f.seedSet = err == nil
		return err
	})
}

// load parses args and returns the configuration with flags applied.
func (f *flags) load(args []string, stderr io.Writer) (config.Config, *log.Logger, error) {
	if err := f.fs.Parse(args); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if f.input != "" {
		cfg.InputPath = f.input
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.trees > 0 {
		cfg.Forest.Trees = f.trees
	}
	if f.seedSet {
		cfg.Forest.Seed = f.seed
	}
	logger := config.NewLogger(cfg)
	logger.SetOutput(stderr)
	return cfg, logger, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runEDA(_ context.Context, args []string, stdout, stderr io.Writer) error {
	f := newFlags("eda", stderr)
	cleanOut := f.fs.String("clean-output", "", "Write the imputed table to this CSV path")
	recencyCol := f.fs.String("recency-column", "DaySinceLastOrder", "Column used for the recency analysis")
	idCol := f.fs.String("id-column", "CustomerID", "Column ignored when looking for duplicates")
	cfg, logger, err := f.load(args, stderr)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	t, ds, err := pipeline.Load(pipeline.FromConfig(cfg, logger))
	if err != nil {
		return err
	}
	ex := pipeline.Explore(t, ds, *idCol)
	recency, err := pipeline.RecencyAnalysis(ds, *recencyCol, pipeline.DefaultRecencyThresholds)
	if err != nil {
		return err
	}
	if recency.Overlaps() {
		logger.WithField("column", *recencyCol).Warn("Recency ranges of churned and active customers overlap")
	}
	if *cleanOut != "" {
		if err := data.WriteTable(*cleanOut, ex.Cleaned); err != nil {
			return err
		}
		logger.WithField("path", *cleanOut).Info("Cleaned table saved")
	}
	return printJSON(stdout, struct {
		*pipeline.Exploration
		Recency *pipeline.Recency `json:"recency"`
	}{ex, recency})
}

func runEvaluate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f := newFlags("evaluate", stderr)
	f.forestFlags()
	testRatio := f.fs.Float64("test-ratio", 0, "Held-out share of rows")
	cfg, logger, err := f.load(args, stderr)
	if err != nil {
		return err
	}
	if *testRatio > 0 {
		cfg.TestRatio = *testRatio
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ev, err := pipeline.Evaluate(ctx, pipeline.FromConfig(cfg, logger))
	if err != nil {
		return err
	}
	return printJSON(stdout, ev)
}

func runSegment(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f := newFlags("segment", stderr)
	f.forestFlags()
	output := f.fs.String("output", "", "Path of the scored CSV")
	summary := f.fs.String("summary", "", "Path of the JSON run summary")
	cfg, logger, err := f.load(args, stderr)
	if err != nil {
		return err
	}
	if *output != "" {
		cfg.OutputPath = *output
	}
	if *summary != "" {
		cfg.SummaryPath = *summary
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	res, err := pipeline.Run(ctx, pipeline.FromConfig(cfg, logger))
	if err != nil {
		if pipeline.IsDataError(err) {
			logger.WithField("input", cfg.InputPath).Error("Input could not be loaded, no output written")
		}
		return err
	}
	for _, c := range res.Distribution {
		fmt.Fprintf(stdout, "%-6s %7d %6.1f%%\n", c.Segment, c.Count, c.Share*100)
	}
	return nil
}

func runReport(_ context.Context, args []string, stdout, stderr io.Writer) error {
	f := newFlags("report", stderr)
	scored := f.fs.String("scored", "", "Scored CSV written by segment")
	summary := f.fs.String("summary", "", "JSON summary written by segment")
	out := f.fs.String("output", "", "Path of the HTML report")
	chartDir := f.fs.String("charts", "", "Also write every chart as PNG into this folder")
	cfg, logger, err := f.load(args, stderr)
	if err != nil {
		return err
	}
	if *scored != "" {
		cfg.OutputPath = *scored
	}
	if *summary != "" {
		cfg.SummaryPath = *summary
	}
	if *out != "" {
		cfg.ReportPath = *out
	}

	t, err := data.ReadScored(cfg.OutputPath)
	if err != nil {
		return err
	}
	cs, err := report.ParseScored(t, cfg.Schema.Label)
	if err != nil {
		return err
	}
	opts := report.Options{}
	if sum, err := readSummary(cfg.SummaryPath); err != nil {
		return err
	} else if sum != nil {
		opts.RunID = sum.RunID
		opts.Profile = sum.Profile
		opts.Importances = sum.TopFeatures
		opts.Metrics = &sum.TrainingMetrics
	} else {
		logger.WithField("path", cfg.SummaryPath).Warn("No run summary, report omits profile and importances")
	}

	r, err := report.Build(cs, opts)
	if err != nil {
		return err
	}
	if err := r.WriteFile(cfg.ReportPath); err != nil {
		return err
	}
	if *chartDir != "" {
		if err := r.WriteCharts(*chartDir); err != nil {
			return err
		}
	}
	logger.WithFields(log.Fields{
		"path":      cfg.ReportPath,
		"customers": len(cs),
		"charts":    len(r.Charts),
	}).Info("Report written")
	fmt.Fprintln(stdout, cfg.ReportPath)
	return nil
}

// readSummary returns nil without error when path is empty or missing.
func readSummary(path string) (*pipeline.Summary, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s pipeline.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("read summary %s: %w", path, err)
	}
	return &s, nil
}

func runServe(ctx context.Context, args []string, _, stderr io.Writer) error {
	f := newFlags("serve", stderr)
	addr := f.fs.String("addr", "", "Listen address")
	scored := f.fs.String("scored", "", "Scored CSV to serve")
	cfg, logger, err := f.load(args, stderr)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *scored != "" {
		cfg.OutputPath = *scored
	}

	store := dashboard.NewStore(cfg.OutputPath, cfg.Schema.Label)
	if _, err := store.Snapshot(); err != nil {
		logger.WithError(err).Warn("Scored file not readable yet, serving errors until it is")
	}
	h := dashboard.NewRouter(dashboard.NewHandler(store, logger))
	return dashboard.Serve(ctx, cfg.ListenAddr, h, logger)
}
