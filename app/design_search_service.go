package app

import (
	"context"
	"fmt"
	"time"

	"assocdesign/internal"
	"assocdesign/internal/design"
	"assocdesign/ports"
)

// DesignSearchService drives an external optimizer over the evaluator.
type DesignSearchService struct {
	evaluator *Evaluator
	optimizer ports.Optimizer
	log       *internal.Logger
}

// SearchRequest configures one search.
type SearchRequest struct {
	MaxEvaluations int
	Seed           uint64
	// Init is the starting point; missing variables start at the center.
	Init design.Vars
}

// SearchResult is the best design found and its full report.
type SearchResult struct {
	Best         design.Vars
	Loss         float64
	Optimization *ports.OptimizationResult
	Report       *Outcome
	Runtime      time.Duration
}

// NewDesignSearchService wires an evaluator to an optimizer.
func NewDesignSearchService(evaluator *Evaluator, optimizer ports.Optimizer) *DesignSearchService {
	return &DesignSearchService{
		evaluator: evaluator,
		optimizer: optimizer,
		log:       evaluator.setup.Logger.With("search"),
	}
}

// Run searches the design space and re-evaluates the best point with the run
// seed, keeping its outputs.
func (s *DesignSearchService) Run(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	start := time.Now()
	space := s.evaluator.setup.Space
	if space.Dim() == 0 {
		return nil, fmt.Errorf("no design variables to search")
	}
	lower := make([]float64, space.Dim())
	upper := make([]float64, space.Dim())
	for i, v := range space.Vars {
		lower[i], upper[i] = v.Min, v.Max
	}

	s.log.Info("searching %d design variables with %s, budget %d evaluations", space.Dim(), s.optimizer.Name(), req.MaxEvaluations)
	res, err := s.optimizer.Minimize(ctx, s.evaluator.Objective(), ports.OptimizationRequest{
		Bounds:         ports.Bounds{Lower: lower, Upper: upper},
		Init:           space.Vector(req.Init),
		MaxEvaluations: req.MaxEvaluations,
		Seed:           req.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.optimizer.Name(), err)
	}

	best, err := space.Point(res.X)
	if err != nil {
		return nil, err
	}
	report, err := s.evaluator.Report(ctx, best)
	if err != nil {
		return nil, fmt.Errorf("re-evaluating best design: %w", err)
	}
	s.log.Info("best loss %.5f after %d evaluations (%s)", res.Loss, res.Evaluations, res.Status)
	return &SearchResult{
		Best:         best,
		Loss:         res.Loss,
		Optimization: res,
		Report:       report,
		Runtime:      time.Since(start),
	}, nil
}
