// Package trials holds the per-subject trial sequence consumed by learning models.
package trials

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Trials is one subject's record for one simulated experiment.
// Cues is trials x cue channels, Outcomes and Responses have one entry per trial.
// Responses is nil until a model has simulated behaviour on the sequence.
type Trials struct {
	Cues      *mat.Dense `json:"-"`
	Outcomes  []float64  `json:"outcomes"`
	Responses []float64  `json:"responses,omitempty"`
}

// New validates the cue/outcome shapes and returns a stimulus-only sequence.
func New(cues *mat.Dense, outcomes []float64) (Trials, error) {
	if cues == nil {
		return Trials{}, fmt.Errorf("cue matrix is required")
	}
	r, _ := cues.Dims()
	if r != len(outcomes) {
		return Trials{}, fmt.Errorf("cue matrix has %d trials but %d outcomes", r, len(outcomes))
	}
	return Trials{Cues: cues, Outcomes: outcomes}, nil
}

// NTrials returns the number of trials.
func (t Trials) NTrials() int {
	return len(t.Outcomes)
}

// NCues returns the number of cue channels.
func (t Trials) NCues() int {
	if t.Cues == nil {
		return 0
	}
	_, c := t.Cues.Dims()
	return c
}

// HasResponses reports whether observed responses are attached.
func (t Trials) HasResponses() bool {
	return len(t.Responses) == len(t.Outcomes) && len(t.Outcomes) > 0
}

// WithResponses returns a copy carrying the given response trace. The stimulus
// arrays are shared, never mutated.
func (t Trials) WithResponses(responses []float64) (Trials, error) {
	if len(responses) != t.NTrials() {
		return Trials{}, fmt.Errorf("got %d responses for %d trials", len(responses), t.NTrials())
	}
	out := t
	out.Responses = responses
	return out, nil
}
