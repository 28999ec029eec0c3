package line

import (
	"fmt"
	"math"
	"math/rand"
)

// DistributionKind names a sampling distribution for station times.
type DistributionKind string

const (
	Fixed   DistributionKind = "Fixed"
	Exp     DistributionKind = "Exp"
	Normal  DistributionKind = "Normal"
	Uniform DistributionKind = "Uniform"
)

// ValidDistributions is the set of recognized distribution names.
var ValidDistributions = map[DistributionKind]bool{Fixed: true, Exp: true, Normal: true, Uniform: true}

// Distribution samples non-negative durations.
type Distribution struct {
	Kind  DistributionKind
	Mean  float64
	Stdev float64
	Min   float64
	Max   float64
}

// NewDistribution validates the parameters and returns a Distribution.
func NewDistribution(kind DistributionKind, mean, stdev, min, max float64) (Distribution, error) {
	if !ValidDistributions[kind] {
		return Distribution{}, fmt.Errorf("unknown distribution %q", kind)
	}
	if mean < 0 || stdev < 0 {
		return Distribution{}, fmt.Errorf("distribution %s: mean and stdev must be non-negative", kind)
	}
	if kind == Uniform && max < min {
		return Distribution{}, fmt.Errorf("distribution Uniform: max %v below min %v", max, min)
	}
	return Distribution{Kind: kind, Mean: mean, Stdev: stdev, Min: min, Max: max}, nil
}

// FixedTime is shorthand for a deterministic duration.
func FixedTime(v float64) Distribution {
	return Distribution{Kind: Fixed, Mean: v}
}

// Sample draws one duration. Normal samples are truncated at zero and, when
// Max > 0, at [Min, Max].
func (d Distribution) Sample(rng *rand.Rand) float64 {
	switch d.Kind {
	case "", Fixed:
		return d.Mean
	case Exp:
		return rng.ExpFloat64() * d.Mean
	case Normal:
		v := d.Mean + rng.NormFloat64()*d.Stdev
		if d.Max > 0 {
			v = math.Min(math.Max(v, d.Min), d.Max)
		}
		return math.Max(v, 0)
	case Uniform:
		return d.Min + rng.Float64()*(d.Max-d.Min)
	default:
		panic(fmt.Sprintf("unhandled distribution %q", d.Kind))
	}
}
