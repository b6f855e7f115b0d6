package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/data"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/dataprep"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/loader"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/model"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/stats"
)

// ModelEvaluation holds the held-out scores of one classifier.
type ModelEvaluation struct {
	Name   string       `json:"name"`
	Scores model.Scores `json:"scores"`
}

// CrossValidation is the forest's ROC AUC on each of k folds.
type CrossValidation struct {
	Folds  int       `json:"folds"`
	ROCAUC []float64 `json:"roc_auc"`
	Mean   float64   `json:"mean"`
	Std    float64   `json:"std"`
}

// Evaluation compares classifiers on a stratified train/test split.
type Evaluation struct {
	RunID           string             `json:"run_id"`
	TrainRows       int                `json:"train_rows"`
	TestRows        int                `json:"test_rows"`
	Models          []ModelEvaluation  `json:"models"`
	TopFeatures     []model.Importance `json:"top_features"`
	CrossValidation *CrossValidation   `json:"cross_validation,omitempty"`
}

// candidate is a classifier under comparison.
type candidate struct {
	name string
	clf  model.Classifier
}

func candidates(cfg Config) []candidate {
	return []candidate{
		{"logistic_regression", model.NewLogisticRegression(0.1, 500, 0)},
		{"decision_tree", model.NewDecisionTreeClassifier(model.WithRandomState(cfg.Forest.Seed))},
		{"random_forest", NewForest(cfg.Forest)},
	}
}

// Evaluate measures how well each classifier generalizes. The
// preprocessor is fit on the training rows only.
func Evaluate(ctx context.Context, cfg Config) (*Evaluation, error) {
	logger := cfg.logger()
	_, ds, err := Load(cfg)
	if err != nil {
		return nil, err
	}
	filled, _ := dataprep.Impute(ds)

	trainIdx, testIdx, err := loader.StratifiedSplit(filled.Labels, cfg.TestRatio, cfg.Forest.Seed)
	if err != nil {
		return nil, err
	}
	train, test := subset(filled, trainIdx), subset(filled, testIdx)

	pre := dataprep.NewPreprocessor(cfg.Schema)
	Xtrain, err := pre.FitTransform(train)
	if err != nil {
		return nil, err
	}
	Xtest, err := pre.Transform(test)
	if err != nil {
		return nil, err
	}

	ev := &Evaluation{RunID: uuid.NewString(), TrainRows: train.Len(), TestRows: test.Len()}
	for _, c := range candidates(cfg) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.clf.Fit(Xtrain, train.Labels); err != nil {
			return nil, fmt.Errorf("fit %s: %w", c.name, err)
		}
		scores := model.Score(test.Labels, c.clf.PredictProba(Xtest), 0.5)
		ev.Models = append(ev.Models, ModelEvaluation{Name: c.name, Scores: scores})
		logger.WithFields(log.Fields{
			"run_id":   ev.RunID,
			"model":    c.name,
			"accuracy": scores.Accuracy,
			"f1":       scores.F1,
			"roc_auc":  scores.ROCAUC,
		}).Info("Evaluated model")

		if rf, ok := c.clf.(*model.RandomForest); ok {
			ev.TopFeatures = model.RankImportances(pre.FeatureNames(), rf.FeatureImportances(), cfg.TopFeatures)
		}
	}

	if cfg.CVFolds >= 2 {
		cv, err := crossValidate(ctx, cfg, filled)
		if err != nil {
			return nil, err
		}
		ev.CrossValidation = cv
		logger.WithFields(log.Fields{
			"run_id": ev.RunID,
			"folds":  cv.Folds,
			"mean":   cv.Mean,
			"std":    cv.Std,
		}).Info("Cross-validated forest")
	}
	return ev, nil
}

// crossValidate refits the preprocessor and the forest on every fold.
func crossValidate(ctx context.Context, cfg Config, ds *data.Dataset) (*CrossValidation, error) {
	if ds.Len() < cfg.CVFolds {
		return nil, fmt.Errorf("cross-validation: %d rows for %d folds", ds.Len(), cfg.CVFolds)
	}
	folds := loader.KFoldSplit(ds.Len(), cfg.CVFolds, cfg.Forest.Seed)
	cv := &CrossValidation{Folds: len(folds)}
	for f, testIdx := range folds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var trainIdx []int
		for g, idx := range folds {
			if g != f {
				trainIdx = append(trainIdx, idx...)
			}
		}
		train, test := subset(ds, trainIdx), subset(ds, testIdx)

		pre := dataprep.NewPreprocessor(cfg.Schema)
		Xtrain, err := pre.FitTransform(train)
		if err != nil {
			return nil, err
		}
		Xtest, err := pre.Transform(test)
		if err != nil {
			return nil, err
		}
		rf := NewForest(cfg.Forest)
		if err := rf.Fit(Xtrain, train.Labels); err != nil {
			return nil, fmt.Errorf("fit fold %d: %w", f+1, err)
		}
		cv.ROCAUC = append(cv.ROCAUC, model.ROCAUC(test.Labels, rf.PredictProba(Xtest)))
	}
	cv.Mean, cv.Std = stats.Mean(cv.ROCAUC), stats.Std(cv.ROCAUC)
	return cv, nil
}

func subset(ds *data.Dataset, idx []int) *data.Dataset {
	out := &data.Dataset{
		Schema:      ds.Schema,
		Numeric:     make([][]float64, len(idx)),
		Categorical: make([][]string, len(idx)),
		Labels:      make([]int, len(idx)),
	}
	for k, i := range idx {
		out.Numeric[k] = ds.Numeric[i]
		out.Categorical[k] = ds.Categorical[i]
		out.Labels[k] = ds.Labels[i]
	}
	return out
}
