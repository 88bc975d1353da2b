package design

import (
	"fmt"
	"math"
	"math/rand/v2"

	"assocdesign/domain/core"
	"assocdesign/domain/trials"

	"gonum.org/v1/gonum/mat"
)

// Periodic presents a single cue on every trial. The reinforcement
// probability alternates between p_high and p_low every period trials,
// starting high.
type Periodic struct{}

func (Periodic) Name() string { return "periodic" }

func (Periodic) Defaults() Vars {
	return Vars{"n_trials": 40, "period": 10, "p_high": 0.8, "p_low": 0.2}
}

func (Periodic) Validate(v Vars) error {
	n, err := count(v, "n_trials")
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: n_trials must be positive", core.ErrInvalidDesign)
	}
	period, err := count(v, "period")
	if err != nil {
		return err
	}
	if period == 0 {
		return fmt.Errorf("%w: period must be positive", core.ErrInvalidDesign)
	}
	if _, err := probability(v, "p_high"); err != nil {
		return err
	}
	_, err = probability(v, "p_low")
	return err
}

func (Periodic) Generate(v Vars, rng *rand.Rand) (trials.Trials, error) {
	n := int(math.Round(v["n_trials"]))
	period := int(math.Round(v["period"]))
	cues := mat.NewDense(n, 1, nil)
	outcomes := make([]float64, n)
	for t := 0; t < n; t++ {
		cues.Set(t, 0, 1)
		p := v["p_high"]
		if (t/period)%2 == 1 {
			p = v["p_low"]
		}
		outcomes[t] = bernoulli(p, rng)
	}
	return trials.New(cues, outcomes)
}

// Compound runs three phases over cues A (column 0) and B (column 1):
// A alone reinforced with p_single; a mix of AB compounds (a p_compound
// share, shuffled) and A alone, reinforced with p_reward; and B alone
// reinforced with p_test.
type Compound struct{}

func (Compound) Name() string { return "compound" }

func (Compound) Defaults() Vars {
	return Vars{
		"n_single": 10, "p_single": 1,
		"n_compound": 20, "p_compound": 0.5, "p_reward": 1,
		"n_test": 10, "p_test": 0,
	}
}

func (Compound) Validate(v Vars) error {
	total := 0
	for _, name := range []string{"n_single", "n_compound", "n_test"} {
		n, err := count(v, name)
		if err != nil {
			return err
		}
		total += n
	}
	if total == 0 {
		return fmt.Errorf("%w: compound design has no trials", core.ErrInvalidDesign)
	}
	for _, name := range []string{"p_single", "p_compound", "p_reward", "p_test"} {
		if _, err := probability(v, name); err != nil {
			return err
		}
	}
	return nil
}

func (Compound) Generate(v Vars, rng *rand.Rand) (trials.Trials, error) {
	nSingle := int(math.Round(v["n_single"]))
	nCompound := int(math.Round(v["n_compound"]))
	nTest := int(math.Round(v["n_test"]))
	n := nSingle + nCompound + nTest

	cues := mat.NewDense(n, 2, nil)
	outcomes := make([]float64, n)
	t := 0
	for i := 0; i < nSingle; i++ {
		cues.Set(t, 0, 1)
		outcomes[t] = bernoulli(v["p_single"], rng)
		t++
	}

	withB := make([]bool, nCompound)
	for i := 0; i < int(math.Round(v["p_compound"]*float64(nCompound))); i++ {
		withB[i] = true
	}
	rng.Shuffle(len(withB), func(i, j int) { withB[i], withB[j] = withB[j], withB[i] })
	for _, b := range withB {
		cues.Set(t, 0, 1)
		if b {
			cues.Set(t, 1, 1)
		}
		outcomes[t] = bernoulli(v["p_reward"], rng)
		t++
	}

	for i := 0; i < nTest; i++ {
		cues.Set(t, 1, 1)
		outcomes[t] = bernoulli(v["p_test"], rng)
		t++
	}
	return trials.New(cues, outcomes)
}
