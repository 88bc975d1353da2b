// Package rng derives independent random streams from one run seed.
//
// Every unit of work (one sampled parameter set, one stimulus sequence, one
// noise trace, one fit) gets its own generator keyed by the run seed, a stage
// tag and the unit's grid indices. Units never share a generator, so results
// do not depend on scheduling order or worker count.
package rng

import (
	"math/rand/v2"
)

// Stage separates streams used for different purposes on the same indices.
type Stage uint64

const (
	StageSample Stage = iota + 1
	StageDesign
	StageNoise
	StageFit
	StageOptimizer
)

func (s Stage) String() string {
	switch s {
	case StageSample:
		return "sample"
	case StageDesign:
		return "design"
	case StageNoise:
		return "noise"
	case StageFit:
		return "fit"
	case StageOptimizer:
		return "optimizer"
	default:
		return "unknown"
	}
}

// Stream returns a PCG generator for (seed, stage, indices...).
func Stream(seed uint64, stage Stage, indices ...int) *rand.Rand {
	hi, lo := Key(seed, stage, indices...)
	return rand.New(rand.NewPCG(hi, lo))
}

// Key returns the two PCG seed words for (seed, stage, indices...).
func Key(seed uint64, stage Stage, indices ...int) (uint64, uint64) {
	h := splitmix(seed ^ splitmix(uint64(stage)))
	for _, i := range indices {
		h = splitmix(h ^ splitmix(uint64(i)+0x632be59bd9b4e019))
	}
	return h, splitmix(h ^ 0xda942042e4dd58b5)
}

// Derive mixes a counter into a seed, e.g. to give every objective call a
// fresh but reproducible seed.
func Derive(seed uint64, counter uint64) uint64 {
	return splitmix(seed ^ splitmix(counter+1))
}

// splitmix64 finaliser.
func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
