package rating

import (
	"math"

	"github.com/campushub/ratings/internal/domain"
)

// round1 matches star-display precision: one decimal place, half rounded up
// on the scaled value.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// ComputeAggregate derives the mean-score view from the given ratings.
//
// Only overall values > 0 contribute to the overall mean and count; a rating
// that sets dimension scores but no overall still counts toward the axes it
// rated. Each dimension keeps its own count, so a rater who skipped an axis
// never pulls that axis toward zero. Zero ratings yields zero means and an
// empty list, never an error.
func ComputeAggregate(dims []domain.Dimension, ratings []domain.Rating) domain.Aggregate {
	agg := domain.Aggregate{
		DimensionMeans: make(map[string]float64, len(dims)),
		Ratings:        ratings,
	}
	if agg.Ratings == nil {
		agg.Ratings = []domain.Rating{}
	}

	var sum, count int
	for _, r := range ratings {
		if r.Overall > 0 {
			sum += r.Overall
			count++
		}
	}
	agg.OverallCount = count
	if count > 0 {
		agg.OverallMean = round1(float64(sum) / float64(count))
	}

	for _, d := range dims {
		var dimSum, dimCount int
		for _, r := range ratings {
			if v, ok := r.DimensionScores[d.Key]; ok && v > 0 {
				dimSum += v
				dimCount++
			}
		}
		if dimCount > 0 {
			agg.DimensionMeans[d.Key] = round1(float64(dimSum) / float64(dimCount))
		} else {
			agg.DimensionMeans[d.Key] = 0
		}
	}
	return agg
}
