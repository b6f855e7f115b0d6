// Package pipeline runs the churn segmentation end to end:
// load, fit, score, segment, aggregate and persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/config"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/data"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/dataprep"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/model"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/segment"
)

// ErrUnknownProfileColumn is returned by Run when a profile column is not a numeric schema column.
var ErrUnknownProfileColumn = errors.New("pipeline: profile column is not a numeric schema column")

// Config drives one run.
type Config struct {
	InputPath   string
	OutputPath  string
	SummaryPath string // empty => no summary file

	Schema         data.Schema
	ProfileColumns []string
	Forest         config.ForestConfig
	TopFeatures    int
	TestRatio      float64
	CVFolds        int

	Logger log.FieldLogger
}

// FromConfig maps the application configuration onto a run configuration.
func FromConfig(c config.Config, logger log.FieldLogger) Config {
	return Config{
		InputPath:      c.InputPath,
		OutputPath:     c.OutputPath,
		SummaryPath:    c.SummaryPath,
		Schema:         c.Schema,
		ProfileColumns: c.ProfileColumns,
		Forest:         c.Forest,
		TopFeatures:    10,
		TestRatio:      c.TestRatio,
		CVFolds:        c.CVFolds,
		Logger:         logger,
	}
}

func (c Config) logger() log.FieldLogger {
	if c.Logger == nil {
		return log.StandardLogger()
	}
	return c.Logger
}

// ScoredCustomer is a customer with its churn probability and risk tier.
type ScoredCustomer struct {
	data.CustomerRecord
	Probability float64
	Segment     segment.RiskSegment
}

// Result is everything a run produced.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Scored       []ScoredCustomer
	Distribution []segment.Count
	Profile      []segment.ProfileRow
	Importances  []model.Importance
	Imputations  []dataprep.Imputation

	// TrainingMetrics are measured on the rows the forest was fit on.
	TrainingMetrics model.Scores

	// Warnings are non-fatal, e.g. *segment.EmptySegmentError.
	Warnings []error
}

// Step is one named stage of a run.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pipeline chains steps and stops at the first failure.
type Pipeline struct {
	steps  []Step
	logger log.FieldLogger
}

func NewPipeline(logger log.FieldLogger, steps ...Step) *Pipeline {
	return &Pipeline{steps: steps, logger: logger}
}

// Execute runs every step in order. Cancellation is checked between steps.
func (p *Pipeline) Execute(ctx context.Context) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		if err := step.Run(ctx); err != nil {
			p.logger.WithError(err).WithField("stage", step.Name).Error("Stage failed")
			return fmt.Errorf("%s: %w", step.Name, err)
		}
		p.logger.WithFields(log.Fields{
			"stage":    step.Name,
			"duration": time.Since(start).Round(time.Millisecond).String(),
		}).Debug("Stage complete")
	}
	return nil
}

// Run loads the input, fits the forest on the whole population, scores
// and segments every customer, and writes the summary and then the scored
// table only when every earlier stage succeeded. The scored table is the
// commit point: it is never replaced by a run that returns an error.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := checkProfileColumns(cfg); err != nil {
		return nil, err
	}
	res := &Result{RunID: uuid.NewString(), StartedAt: time.Now().UTC()}
	logger := cfg.logger().WithField("run_id", res.RunID)

	var (
		table *data.Table
		ds    *data.Dataset
		fit   *Model
		probs []float64
	)
	p := NewPipeline(logger,
		Step{Name: "load", Run: func(context.Context) (err error) {
			table, ds, err = Load(cfg)
			if err == nil {
				logger.WithFields(log.Fields{"rows": ds.Len(), "path": cfg.InputPath}).Info("Loaded customers")
			}
			return err
		}},
		Step{Name: "fit", Run: func(context.Context) (err error) {
			fit, err = Fit(ds, cfg.Forest)
			if err == nil {
				res.Imputations = fit.Imputations
				res.Importances = fit.Importances(cfg.TopFeatures)
			}
			return err
		}},
		Step{Name: "score", Run: func(context.Context) (err error) {
			probs, err = Score(fit, ds)
			if err == nil {
				res.TrainingMetrics = model.Score(ds.Labels, probs, 0.5)
			}
			return err
		}},
		Step{Name: "segment", Run: func(context.Context) error {
			res.Scored = Segment(ds, probs)
			return nil
		}},
		Step{Name: "aggregate", Run: func(context.Context) error {
			agg, err := Aggregate(res.Scored, ds, cfg.ProfileColumns)
			if err != nil {
				return err
			}
			res.Distribution, res.Profile, res.Warnings = agg.Distribution, agg.Profile, agg.Warnings
			for _, w := range agg.Warnings {
				var empty *segment.EmptySegmentError
				if errors.As(w, &empty) {
					logger.WithField("segment", empty.Segment.String()).Warn("Risk segment is empty")
				}
			}
			return nil
		}},
		Step{Name: "persist", Run: func(context.Context) error {
			res.FinishedAt = time.Now().UTC()
			if cfg.SummaryPath != "" {
				if err := data.WriteJSON(cfg.SummaryPath, NewSummary(cfg, res)); err != nil {
					return err
				}
			}
			return Persist(table, res.Scored, cfg.OutputPath)
		}},
	)
	if err := p.Execute(ctx); err != nil {
		return nil, err
	}

	fields := log.Fields{"rows": len(res.Scored), "output": cfg.OutputPath}
	for _, c := range res.Distribution {
		fields[c.Segment.String()] = c.Count
	}
	logger.WithFields(fields).Info("Segmentation complete")
	return res, nil
}

func checkProfileColumns(cfg Config) error {
	numeric := make(map[string]bool, len(cfg.Schema.Numeric))
	for _, n := range cfg.Schema.Numeric {
		numeric[n] = true
	}
	for _, c := range cfg.ProfileColumns {
		if !numeric[c] {
			return fmt.Errorf("%w: %q", ErrUnknownProfileColumn, c)
		}
	}
	return nil
}
