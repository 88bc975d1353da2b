// Package testkit ships the reference scenarios as embedded YAML and builds
// ready-to-run evaluator setups from them.
package testkit

import (
	"embed"
	"path"
	"sort"
	"strings"

	"assocdesign/app"
	"assocdesign/domain/core"
	"assocdesign/internal"
	"assocdesign/internal/config"
)

//go:embed scenarios/*.yaml
var scenarioFS embed.FS

// TestKit builds evaluator setups for the built-in scenarios.
type TestKit struct {
	cfg    *config.Config
	logger *internal.Logger
}

// NewTestKit uses cfg for anything a scenario leaves unset; nil cfg takes the
// scenario defaults.
func NewTestKit(cfg *config.Config, logger *internal.Logger) *TestKit {
	return &TestKit{cfg: cfg, logger: logger}
}

// Names lists the built-in scenarios.
func Names() []string {
	entries, _ := scenarioFS.ReadDir("scenarios")
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(out)
	return out
}

// Scenario parses a built-in scenario.
func Scenario(name string) (*config.Scenario, error) {
	data, err := scenarioFS.ReadFile(path.Join("scenarios", name+".yaml"))
	if err != nil {
		return nil, core.NewUnknownComponentError("scenario", name)
	}
	return config.ParseScenario(data)
}

// Setup parses a built-in scenario, lets tweak adjust it, and builds it.
func (k *TestKit) Setup(name string, tweak func(*config.Scenario)) (app.Setup, error) {
	s, err := Scenario(name)
	if err != nil {
		return app.Setup{}, err
	}
	if tweak != nil {
		tweak(s)
	}
	return app.NewSetup(s, k.cfg, k.logger)
}

// Evaluator builds an evaluator for a built-in scenario.
func (k *TestKit) Evaluator(name string, tweak func(*config.Scenario)) (*app.Evaluator, error) {
	setup, err := k.Setup(name, tweak)
	if err != nil {
		return nil, err
	}
	return app.NewEvaluator(setup)
}
