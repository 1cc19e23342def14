package records

import (
	"fmt"
	"math"
)

// YearCount is one bucket of a yearly distribution.
type YearCount struct {
	Year  int64
	Count int64
}

// Stats summarizes a yearly distribution.
type Stats struct {
	N             int64
	GeometricMean float64
	PVariance     float64
}

// Describe computes the geometric mean and population variance of the
// multiset in which each year appears Count times. The multiset is never
// materialized; weighting by Count gives the same result.
//
// It returns nil when the multiset is empty. Non-positive years have no
// geometric mean and are rejected.
func Describe(dist []YearCount) (*Stats, error) {
	var n int64
	var sum, logSum float64
	for _, yc := range dist {
		if yc.Count == 0 {
			continue
		}
		if yc.Year <= 0 {
			return nil, fmt.Errorf("%w: year %d has no geometric mean", ErrMalformed, yc.Year)
		}
		w := float64(yc.Count)
		n += yc.Count
		sum += w * float64(yc.Year)
		logSum += w * math.Log(float64(yc.Year))
	}
	if n == 0 {
		return nil, nil
	}

	total := float64(n)
	mean := sum / total
	var ss float64
	for _, yc := range dist {
		if yc.Count == 0 {
			continue
		}
		d := float64(yc.Year) - mean
		ss += float64(yc.Count) * d * d
	}
	return &Stats{
		N:             n,
		GeometricMean: math.Exp(logSum / total),
		PVariance:     ss / total,
	}, nil
}
