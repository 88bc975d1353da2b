package params

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"assocdesign/domain/core"

	"gonum.org/v1/gonum/stat/distuv"
)

// LogDensity is a univariate log prior density.
type LogDensity func(x float64) float64

// distribution is the subset of distuv behaviour used for priors.
type distribution interface {
	Rand() float64
	LogProb(x float64) float64
}

// distSpec is a parsed "name(arg, ...)" expression.
type distSpec struct {
	name string
	args []float64
}

// build instantiates the gonum distribution with the given source.
func (d distSpec) build(src rand.Source) (distribution, error) {
	arg := func(i int) float64 { return d.args[i] }
	switch d.name {
	case "uniform", "flat":
		if len(d.args) != 2 || !(arg(0) < arg(1)) {
			return nil, fmt.Errorf("uniform needs (min, max) with min < max")
		}
		return distuv.Uniform{Min: arg(0), Max: arg(1), Src: src}, nil
	case "normal", "gaussian":
		if len(d.args) != 2 || !(arg(1) > 0) {
			return nil, fmt.Errorf("normal needs (mu, sigma) with sigma > 0")
		}
		return distuv.Normal{Mu: arg(0), Sigma: arg(1), Src: src}, nil
	case "beta":
		if len(d.args) != 2 || !(arg(0) > 0 && arg(1) > 0) {
			return nil, fmt.Errorf("beta needs (alpha, beta) > 0")
		}
		return distuv.Beta{Alpha: arg(0), Beta: arg(1), Src: src}, nil
	case "gamma":
		if len(d.args) != 2 || !(arg(0) > 0 && arg(1) > 0) {
			return nil, fmt.Errorf("gamma needs (shape, rate) > 0")
		}
		return distuv.Gamma{Alpha: arg(0), Beta: arg(1), Src: src}, nil
	case "lognormal":
		if len(d.args) != 2 || !(arg(1) > 0) {
			return nil, fmt.Errorf("lognormal needs (mu, sigma) with sigma > 0")
		}
		return distuv.LogNormal{Mu: arg(0), Sigma: arg(1), Src: src}, nil
	case "exponential":
		if len(d.args) != 1 || !(arg(0) > 0) {
			return nil, fmt.Errorf("exponential needs (rate) > 0")
		}
		return distuv.Exponential{Rate: arg(0), Src: src}, nil
	default:
		return nil, fmt.Errorf("unknown distribution %q", d.name)
	}
}

func (d distSpec) String() string {
	args := make([]string, len(d.args))
	for i, a := range d.args {
		args[i] = strconv.FormatFloat(a, 'g', -1, 64)
	}
	return d.name + "(" + strings.Join(args, ",") + ")"
}

func parseDistSpec(expr string) (distSpec, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return distSpec{}, fmt.Errorf("%w: %q is not a distribution expression", core.ErrUnsupportedParameterType, expr)
	}
	spec := distSpec{name: strings.TrimSpace(s[:open])}
	body := strings.TrimSpace(s[open+1 : len(s)-1])
	if body != "" {
		for _, part := range strings.Split(body, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return distSpec{}, fmt.Errorf("%w: bad argument %q in %q", core.ErrUnsupportedParameterType, part, expr)
			}
			spec.args = append(spec.args, v)
		}
	}
	// Validate once without a source so that configuration fails fast.
	if _, err := spec.build(nil); err != nil {
		return distSpec{}, fmt.Errorf("%w: %q: %v", core.ErrUnsupportedParameterType, expr, err)
	}
	return spec, nil
}

// ParseDistribution turns a string such as "beta(2,5)" into a Sampler.
func ParseDistribution(expr string) (Sampler, error) {
	spec, err := parseDistSpec(expr)
	if err != nil {
		return Sampler{}, err
	}
	return Sampler{
		Label: spec.String(),
		Draw: func(rng *rand.Rand) float64 {
			d, _ := spec.build(rng)
			return d.Rand()
		},
	}, nil
}

// ParseLogPrior turns the same grammar into a log-density function.
func ParseLogPrior(expr string) (LogDensity, error) {
	spec, err := parseDistSpec(expr)
	if err != nil {
		return nil, err
	}
	d, _ := spec.build(nil)
	return d.LogProb, nil
}

// Uniform returns a sampler on [lo, hi).
func Uniform(lo, hi float64) Sampler {
	return Sampler{
		Label: fmt.Sprintf("uniform(%g,%g)", lo, hi),
		Draw: func(rng *rand.Rand) float64 {
			return distuv.Uniform{Min: lo, Max: hi, Src: rng}.Rand()
		},
	}
}

// Normal returns a Gaussian sampler.
func Normal(mu, sigma float64) Sampler {
	return Sampler{
		Label: fmt.Sprintf("normal(%g,%g)", mu, sigma),
		Draw: func(rng *rand.Rand) float64 {
			return distuv.Normal{Mu: mu, Sigma: sigma, Src: rng}.Rand()
		},
	}
}

// Flat is the log density of the uniform prior on [lo, hi]; outside the
// interval it is -Inf.
func Flat(lo, hi float64) LogDensity {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		// Improper flat prior.
		return func(float64) float64 { return 0 }
	}
	u := distuv.Uniform{Min: lo, Max: hi}
	return func(x float64) float64 {
		if x < lo || x > hi {
			return math.Inf(-1)
		}
		return u.LogProb(x)
	}
}
