package fit

import (
	"math"
)

// boundEps keeps start points strictly inside finite bounds, where the
// logistic map is invertible.
const boundEps = 1e-6

// transform maps unconstrained optimizer coordinates z onto the box
// [lower, upper]. Two finite bounds use a logistic map, one finite bound an
// exponential offset, no bounds the identity.
type transform struct {
	lower, upper []float64
}

func newTransform(lower, upper []float64) transform {
	return transform{lower: lower, upper: upper}
}

func (t transform) toBox(dst, z []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(z))
	}
	for i, v := range z {
		lo, hi := t.lower[i], t.upper[i]
		loFinite, hiFinite := !math.IsInf(lo, 0), !math.IsInf(hi, 0)
		switch {
		case loFinite && hiFinite:
			dst[i] = lo + (hi-lo)*logistic(v)
		case loFinite:
			dst[i] = lo + math.Exp(v)
		case hiFinite:
			dst[i] = hi - math.Exp(v)
		default:
			dst[i] = v
		}
	}
	return dst
}

func (t transform) fromBox(x []float64) []float64 {
	z := make([]float64, len(x))
	for i, v := range x {
		lo, hi := t.lower[i], t.upper[i]
		loFinite, hiFinite := !math.IsInf(lo, 0), !math.IsInf(hi, 0)
		switch {
		case loFinite && hiFinite:
			u := (v - lo) / (hi - lo)
			u = math.Min(math.Max(u, boundEps), 1-boundEps)
			z[i] = math.Log(u / (1 - u))
		case loFinite:
			z[i] = math.Log(math.Max(v-lo, boundEps))
		case hiFinite:
			z[i] = math.Log(math.Max(hi-v, boundEps))
		default:
			z[i] = v
		}
	}
	return z
}

// clamp projects x into the box in place.
func (t transform) clamp(x []float64) []float64 {
	for i := range x {
		x[i] = math.Min(math.Max(x[i], t.lower[i]), t.upper[i])
	}
	return x
}

func logistic(v float64) float64 {
	if v >= 0 {
		return 1 / (1 + math.Exp(-v))
	}
	e := math.Exp(v)
	return e / (1 + e)
}
