package nssm

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultLogLikFloor is the per-trial lower clip for log densities.
const DefaultLogLikFloor = -1000.0

// GaussianLogLik sums Normal(pred, sd) log densities of the responses,
// clipping every term at floor so the result is always finite.
func GaussianLogLik(responses, pred []float64, sd, floor float64) float64 {
	if math.IsNaN(floor) || math.IsInf(floor, 0) {
		floor = DefaultLogLikFloor
	}
	n := len(responses)
	if len(pred) < n {
		n = len(pred)
	}
	if !(sd > 0) || math.IsInf(sd, 0) {
		return floor * float64(n)
	}
	var ll float64
	for i := 0; i < n; i++ {
		lp := distuv.Normal{Mu: pred[i], Sigma: sd}.LogProb(responses[i])
		if math.IsNaN(lp) || lp < floor {
			lp = floor
		}
		ll += lp
	}
	return ll
}
