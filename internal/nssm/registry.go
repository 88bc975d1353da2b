package nssm

import (
	"sort"
	"strings"

	"assocdesign/domain/core"
)

var evolutions = map[string]EvolutionFunc{
	"rw":     RescorlaWagner,
	"hybrid": Hybrid,
	"krw":    KalmanRW,
}

var observations = map[string]ObservationFunc{
	"linear": Linear,
	"mix":    Mix,
}

// EvolutionParams lists the parameter names each evolution function reads.
var EvolutionParams = map[string][]string{
	"rw":     {"alpha", "w0"},
	"hybrid": {"alphaInit", "eta", "kappa", "w0"},
	"krw":    {"tauSq", "sigmaRSq", "sigmaInit", "w0"},
}

// ObservationParams lists the parameter names each observation function reads.
var ObservationParams = map[string][]string{
	"linear": {"beta0", "beta1", "sd"},
	"mix":    {"mixCoef", "beta0", "beta1", "sd"},
}

// GetEvolution looks up an evolution function by name.
func GetEvolution(name string) (EvolutionFunc, error) {
	fn, ok := evolutions[strings.ToLower(name)]
	if !ok {
		return nil, core.NewUnknownComponentError("evolution function", name)
	}
	return fn, nil
}

// GetObservation looks up an observation function by name.
func GetObservation(name string) (ObservationFunc, error) {
	fn, ok := observations[strings.ToLower(name)]
	if !ok {
		return nil, core.NewUnknownComponentError("observation function", name)
	}
	return fn, nil
}

// NewModel resolves both function names up front so that configuration with
// an unknown name fails at load time.
func NewModel(name, evolution, observation string) (*Model, error) {
	evo, err := GetEvolution(evolution)
	if err != nil {
		return nil, err
	}
	obs, err := GetObservation(observation)
	if err != nil {
		return nil, err
	}
	return &Model{
		Name:            name,
		Kind:            KindNSSM,
		EvolutionName:   strings.ToLower(evolution),
		ObservationName: strings.ToLower(observation),
		Evolution:       evo,
		Observation:     obs,
	}, nil
}

// EvolutionNames returns the registered evolution functions, sorted.
func EvolutionNames() []string {
	return sortedKeys(evolutions)
}

// ObservationNames returns the registered observation functions, sorted.
func ObservationNames() []string {
	return sortedKeys(observations)
}

func sortedKeys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
