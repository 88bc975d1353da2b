package run

import (
	"fmt"
	"strings"

	"assocdesign/domain/core"
)

// Shape is the size of one design evaluation.
type Shape struct {
	NSub    int `json:"n_sub"`
	NExp    int `json:"n_exp"`
	NStarts int `json:"n_starts"`
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.NSub, s.NExp, s.NStarts)
}

// EvaluationManifest records everything needed to replay one design
// evaluation. Two evaluations with equal fingerprints produce identical
// losses.
type EvaluationManifest struct {
	ID          core.EvaluationID     `json:"id"`
	Scenario    string                `json:"scenario"`
	DesignVars  map[string]float64    `json:"design_vars"`
	SimModels   []string              `json:"sim_models"`
	FitModels   []string              `json:"fit_models"`
	Criterion   string                `json:"criterion"`
	Shape       Shape                 `json:"shape"`
	Seed        uint64                `json:"seed"`
	CodeVersion string                `json:"code_version"`
	Fingerprint EvaluationFingerprint `json:"fingerprint"`
	CreatedAt   core.Timestamp        `json:"created_at"`
}

// NewEvaluationManifest stamps a fresh ID and computes the fingerprint.
func NewEvaluationManifest(scenario string, designVars map[string]float64, simModels, fitModels []string,
	criterion string, shape Shape, seed uint64) *EvaluationManifest {

	vars := make(map[string]float64, len(designVars))
	for k, v := range designVars {
		vars[k] = v
	}
	modelSpace := core.ComputeListHash(append(append([]string{"sim"}, simModels...), append([]string{"fit"}, fitModels...)...))
	fp := NewEvaluationFingerprint(scenario, core.ComputeVarsHash(vars), modelSpace, criterion, shape.String(), seed, CodeVersion)

	return &EvaluationManifest{
		ID:          core.NewEvaluationID(),
		Scenario:    scenario,
		DesignVars:  vars,
		SimModels:   append([]string(nil), simModels...),
		FitModels:   append([]string(nil), fitModels...),
		Criterion:   criterion,
		Shape:       shape,
		Seed:        seed,
		CodeVersion: CodeVersion,
		Fingerprint: fp,
		CreatedAt:   core.Now(),
	}
}

// Validate checks if the manifest is complete
func (m *EvaluationManifest) Validate() error {
	var missing []string
	if core.ID(m.ID).IsEmpty() {
		missing = append(missing, "id")
	}
	if len(m.SimModels) == 0 {
		missing = append(missing, "sim_models")
	}
	if len(m.FitModels) == 0 {
		missing = append(missing, "fit_models")
	}
	if m.Criterion == "" {
		missing = append(missing, "criterion")
	}
	if m.Fingerprint.Fingerprint.IsEmpty() {
		missing = append(missing, "fingerprint")
	}
	if len(missing) > 0 {
		return fmt.Errorf("evaluation manifest incomplete: %s", strings.Join(missing, ", "))
	}
	return nil
}
