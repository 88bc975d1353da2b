package run

import (
	"crypto/sha256"
	"fmt"

	"assocdesign/domain/core"
)

// CodeVersion is stamped into every manifest.
const CodeVersion = "0.3.0"

// EvaluationFingerprint ensures deterministic replay
type EvaluationFingerprint struct {
	Scenario       string    `json:"scenario"`
	DesignVarsHash core.Hash `json:"design_vars_hash"`
	ModelSpaceHash core.Hash `json:"model_space_hash"`
	Criterion      string    `json:"criterion"`
	Shape          string    `json:"shape"`
	Seed           uint64    `json:"seed"`
	CodeVersion    string    `json:"code_version"`
	Fingerprint    core.Hash `json:"fingerprint"` // Hash of all above
}

// NewEvaluationFingerprint creates a fingerprint from determinism parameters
func NewEvaluationFingerprint(scenario string, designVarsHash, modelSpaceHash core.Hash,
	criterion, shape string, seed uint64, codeVersion string) EvaluationFingerprint {

	return EvaluationFingerprint{
		Scenario:       scenario,
		DesignVarsHash: designVarsHash,
		ModelSpaceHash: modelSpaceHash,
		Criterion:      criterion,
		Shape:          shape,
		Seed:           seed,
		CodeVersion:    codeVersion,
		Fingerprint:    computeFingerprint(scenario, designVarsHash, modelSpaceHash, criterion, shape, seed, codeVersion),
	}
}

func computeFingerprint(scenario string, designVarsHash, modelSpaceHash core.Hash,
	criterion, shape string, seed uint64, codeVersion string) core.Hash {

	data := fmt.Sprintf("scenario:%s|design:%s|models:%s|criterion:%s|shape:%s|seed:%d|code:%s",
		scenario, designVarsHash, modelSpaceHash, criterion, shape, seed, codeVersion)

	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}
