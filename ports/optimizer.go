package ports

import (
	"context"
)

// Objective scores one search point; lower is better.
type Objective func(ctx context.Context, x []float64) (float64, error)

// Bounds is the search box of an optimizer.
type Bounds struct {
	Lower []float64
	Upper []float64
}

// Dim returns the number of coordinates.
func (b Bounds) Dim() int {
	return len(b.Lower)
}

// OptimizationStep is one objective evaluation made by an optimizer.
type OptimizationStep struct {
	Evaluation int       `json:"evaluation" csv:"evaluation"`
	X          []float64 `json:"x" csv:"-"`
	Loss       float64   `json:"loss" csv:"loss"`
	Best       float64   `json:"best" csv:"best"`
}

// OptimizationRequest configures one optimizer run.
type OptimizationRequest struct {
	Bounds         Bounds
	Init           []float64
	MaxEvaluations int
	Seed           uint64
}

// OptimizationResult is the best point found.
type OptimizationResult struct {
	X           []float64          `json:"x"`
	Loss        float64            `json:"loss"`
	Evaluations int                `json:"evaluations"`
	Status      string             `json:"status"`
	History     []OptimizationStep `json:"history"`
}

// Optimizer is a black-box minimiser over a bounded box. It owns the search
// strategy and stopping rule; the objective knows nothing about either.
type Optimizer interface {
	Name() string
	Minimize(ctx context.Context, obj Objective, req OptimizationRequest) (*OptimizationResult, error)
}
