package ports

import (
	"context"

	"assocdesign/domain/run"
)

// FitRecord is one (simulation model, fit model, experiment, subject) fit.
type FitRecord struct {
	SimModel   string  `csv:"sim_model"`
	FitModel   string  `csv:"fit_model"`
	Experiment int     `csv:"experiment"`
	Subject    int     `csv:"subject"`
	LogLik     float64 `csv:"loglik"`
	LogPost    float64 `csv:"logpost"`
	BIC        float64 `csv:"bic"`
	AIC        float64 `csv:"aic"`
	K          int     `csv:"k"`
	Params     string  `csv:"params"`
}

// TruthRecord is one sampled ground-truth parameter set.
type TruthRecord struct {
	SimModel   string `csv:"sim_model"`
	Experiment int    `csv:"experiment"`
	Subject    int    `csv:"subject"`
	Params     string `csv:"params"`
}

// SummaryRecord is one named scalar of an evaluation.
type SummaryRecord struct {
	Key   string  `csv:"key"`
	Value float64 `csv:"value"`
}

// ExportBundle is the flattened, read-only view of a design evaluation handed
// to persistence and reporting collaborators.
type ExportBundle struct {
	Manifest *run.EvaluationManifest
	Summary  []SummaryRecord
	Truth    []TruthRecord
	Fits     []FitRecord
	// Confusion is [true model][selected model], labelled by SimModels and
	// FitModels; nil for criteria without one.
	Confusion [][]float64
	SimModels []string
	FitModels []string
	History   []OptimizationStep
}

// OutcomeExporter writes an evaluation to some durable form.
type OutcomeExporter interface {
	Format() string
	Export(ctx context.Context, bundle *ExportBundle, path string) error
}
