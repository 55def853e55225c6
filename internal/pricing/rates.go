// Package pricing holds the numeric primitives shared by offer generation and
// evaluation: risk adjustments, ESG conversion, rate repair and money rounding.
package pricing

import (
	"math"

	"credit-marketplace/internal/models"
)

const (
	MinRate = 0.1
	MaxRate = 50.0
)

var riskAdjustments = map[models.RiskRating]float64{
	models.RiskLow:    -0.25,
	models.RiskMedium: 0.0,
	models.RiskHigh:   0.50,
}

// RiskAdjustment returns the rate delta for a rating. Unknown ratings price
// as medium.
func RiskAdjustment(rating models.RiskRating) float64 {
	return riskAdjustments[rating]
}

// ParseRiskRating maps free text onto a rating; ok is false for anything else.
func ParseRiskRating(s string) (models.RiskRating, bool) {
	switch models.RiskRating(lower(s)) {
	case models.RiskLow:
		return models.RiskLow, true
	case models.RiskMedium, "moderate":
		return models.RiskMedium, true
	case models.RiskHigh:
		return models.RiskHigh, true
	}
	return "", false
}

// ESGAdjustment converts an average ESG score on a 0-100 scale into the rate
// discount a bank grants: (100 - avg) / 100 * multiplier.
func ESGAdjustment(avgPercent, multiplier float64) float64 {
	return (100 - avgPercent) / 100 * multiplier
}

// FinalRate combines the components and repairs the result into (0, 50].
func FinalRate(baseRate, riskAdjustment, esgAdjustment float64) float64 {
	return RepairRate(baseRate+riskAdjustment-esgAdjustment, baseRate)
}

// RepairRate replaces a non-finite rate with fallback and clamps the result
// to [MinRate, MaxRate].
func RepairRate(rate, fallback float64) float64 {
	if !isFinite(rate) {
		rate = fallback
	}
	return ClampRate(rate)
}

// ClampRate bounds a rate to [MinRate, MaxRate]. Non-finite input yields MinRate.
func ClampRate(rate float64) float64 {
	if !isFinite(rate) || rate < MinRate {
		return MinRate
	}
	if rate > MaxRate {
		return MaxRate
	}
	return rate
}

// ValidRate reports whether rate satisfies the offer invariant.
func ValidRate(rate float64) bool {
	return isFinite(rate) && rate > 0 && rate <= MaxRate
}

// ClampScore bounds an evaluation score to [0, 100].
func ClampScore(v float64) float64 {
	if !isFinite(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
