// Package evaluation scores and ranks the offers collected for one intent.
package evaluation

import (
	"fmt"
	"math"
	"time"

	"credit-marketplace/internal/common/config"
	"credit-marketplace/internal/models"
	"credit-marketplace/internal/pricing"
)

const (
	AcceptThreshold    = 80.0
	NegotiateThreshold = 60.0

	// agnosticTargetRate is the rate the intent-agnostic engine treats as ideal.
	agnosticTargetRate = 3.0
)

// Weights split the total score across the three dimensions.
type Weights struct {
	Financial float64
	ESG       float64
	Terms     float64
}

var (
	IntentAwareWeights    = Weights{Financial: 0.40, ESG: 0.30, Terms: 0.30}
	IntentAgnosticWeights = Weights{Financial: 0.40, ESG: 0.35, Terms: 0.25}
)

// Scores are the per-dimension results for one offer, each in [0, 100].
type Scores struct {
	Financial float64
	ESG       float64
	Terms     float64
	Total     float64
}

// ScoringEngine scores a single offer. intent may be nil; engines that need
// it return ok=false.
type ScoringEngine interface {
	Mode() models.ScoringMode
	Score(offer models.CreditOffer, intent *models.CreditIntent, now time.Time) (Scores, bool)
}

// NewScoringEngine selects an engine by its config name.
func NewScoringEngine(mode string) (ScoringEngine, error) {
	switch mode {
	case "", config.ScoringIntentAware:
		return IntentAwareEngine{}, nil
	case config.ScoringIntentAgnostic:
		return IntentAgnosticEngine{}, nil
	}
	return nil, fmt.Errorf("unknown scoring mode %q", mode)
}

// Recommend buckets a total score.
func Recommend(total float64) models.Recommendation {
	switch {
	case total >= AcceptThreshold:
		return models.RecommendAccept
	case total >= NegotiateThreshold:
		return models.RecommendNegotiate
	}
	return models.RecommendReject
}

func (w Weights) total(s Scores) float64 {
	return pricing.ClampScore(round2(s.Financial*w.Financial + s.ESG*w.ESG + s.Terms*w.Terms))
}

// IntentAwareEngine measures each offer against the requester's intent.
type IntentAwareEngine struct{}

func (IntentAwareEngine) Mode() models.ScoringMode { return models.ScoringIntentAware }

func (IntentAwareEngine) Score(offer models.CreditOffer, intent *models.CreditIntent, now time.Time) (Scores, bool) {
	if intent == nil || offer.IntentID != intent.IntentID {
		return Scores{}, false
	}
	s := Scores{
		Financial: financialFit(offer, *intent),
		ESG:       esgFit(offer, intent.ESGPreferences),
		Terms:     termsFit(offer, now),
	}
	s.Total = IntentAwareWeights.total(s)
	return s, true
}

func financialFit(offer models.CreditOffer, intent models.CreditIntent) float64 {
	score := 100.0

	if intent.Amount > 0 {
		shortfall := (intent.Amount - offer.ApprovedAmount) / intent.Amount
		switch {
		case shortfall >= 0.20:
			score -= 30
		case shortfall >= 0.10:
			score -= 15
		}
	}

	switch rate := offer.CarbonAdjustedRate; {
	case rate > 8:
		score -= 30
	case rate > 6:
		score -= 15
	case rate > 4:
		score -= 5
	}

	if offer.ApprovedAmount > 0 {
		switch feePct := offer.ProcessingFee / offer.ApprovedAmount * 100; {
		case feePct > 1:
			score -= 20
		case feePct > 0.5:
			score -= 10
		}
	}
	return pricing.ClampScore(score)
}

func esgFit(offer models.CreditOffer, prefs models.ESGPreferences) float64 {
	score := 100.0
	esg := offer.ESGScore

	if esg.Overall < prefs.MinESGScore {
		score -= 40
	}
	if prefs.CarbonNeutralTarget && esg.CarbonFootprintCategory != models.FootprintLow {
		score -= 30
	}
	socialDiff := math.Abs(esg.Social - prefs.SocialImpactWeight*10)
	governanceDiff := math.Abs(esg.Governance - prefs.GovernanceWeight*10)
	score -= 2 * (socialDiff + governanceDiff)

	return pricing.ClampScore(score)
}

func termsFit(offer models.CreditOffer, now time.Time) float64 {
	score := 100.0

	if offer.CollateralRequired {
		score -= 20
	}
	if offer.EarlyRepaymentPenalty {
		score -= 15
	}
	switch {
	case offer.GracePeriodDays < 15:
		score -= 10
	case offer.GracePeriodDays < 30:
		score -= 5
	}
	if offer.RepaymentSchedule != models.RepaymentMonthly {
		score -= 10
	}

	// Whole days remaining, truncated.
	switch days := int(offer.OfferValidUntil.Sub(now).Hours() / 24); {
	case days < 3:
		score -= 20
	case days < 7:
		score -= 10
	}
	return pricing.ClampScore(score)
}

// IntentAgnosticEngine scores offers on their absolute numbers alone. It is
// the degraded mode used when the intent is unavailable.
type IntentAgnosticEngine struct{}

func (IntentAgnosticEngine) Mode() models.ScoringMode { return models.ScoringIntentAgnostic }

func (IntentAgnosticEngine) Score(offer models.CreditOffer, _ *models.CreditIntent, _ time.Time) (Scores, bool) {
	rateScore := math.Min(100, math.Max(0, 100-(offer.CarbonAdjustedRate-agnosticTargetRate)*10))
	amountScore := math.Min(100, offer.ApprovedAmount/1_000_000*50)
	feeScore := math.Max(0, 100-offer.ProcessingFee/1000)

	collateral, penalty := 100.0, 100.0
	if offer.CollateralRequired {
		collateral = 50
	}
	if offer.EarlyRepaymentPenalty {
		penalty = 70
	}
	grace := math.Min(100, float64(offer.GracePeriodDays)*2)

	s := Scores{
		Financial: pricing.ClampScore(0.6*rateScore + 0.3*amountScore + 0.1*feeScore),
		ESG:       pricing.ClampScore(offer.ESGScore.Overall * 10),
		Terms:     pricing.ClampScore(0.4*collateral + 0.3*penalty + 0.3*grace),
	}
	s.Total = IntentAgnosticWeights.total(s)
	return s, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
