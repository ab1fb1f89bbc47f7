package service

import (
	"math"
	"math/rand/v2"
)

// RandomPricer charges a base fare plus a random distance component,
// rounded to cents. It ignores the locations.
type RandomPricer struct{}

const (
	baseFare       = 5.0
	maxDistanceFee = 20.0
)

func (RandomPricer) Estimate(_, _ string) float64 {
	return math.Round((baseFare+rand.Float64()*maxDistanceFee)*100) / 100
}

// FixedPricer always returns the same fare.
type FixedPricer float64

func (p FixedPricer) Estimate(_, _ string) float64 { return float64(p) }
