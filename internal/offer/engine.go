package offer

import (
	"context"
	"fmt"
	"strings"

	"credit-marketplace/internal/common/config"
	"credit-marketplace/internal/common/metrics"
	"credit-marketplace/internal/models"
	"credit-marketplace/internal/narrative"
	"credit-marketplace/internal/pricing"
)

// PricingInput is everything a RiskEngine may look at.
type PricingInput struct {
	Bank   models.BankConfig
	Intent models.CreditIntent
	Risk   models.RiskAssessment
	ESG    models.ESGScore
}

// RiskEngine turns a risk and ESG assessment into a rate.
type RiskEngine interface {
	Name() string
	Price(ctx context.Context, in PricingInput) models.PricingBreakdown
}

// NewRiskEngine selects an engine by its config name. narrator may be nil.
func NewRiskEngine(name string, narrator narrative.Narrator) (RiskEngine, error) {
	switch name {
	case "", config.RiskEngineTable:
		return TableRiskEngine{}, nil
	case config.RiskEngineDataDriven:
		return &DataDrivenRiskEngine{Narrator: narrator}, nil
	}
	return nil, fmt.Errorf("unknown risk engine %q", name)
}

func esgDiscount(bank models.BankConfig, esg models.ESGScore) float64 {
	return pricing.ESGAdjustment(esg.Average()*10, bank.ESGMultiplier)
}

// TableRiskEngine prices by the rating lookup table.
type TableRiskEngine struct{}

func (TableRiskEngine) Name() string { return config.RiskEngineTable }

func (TableRiskEngine) Price(_ context.Context, in PricingInput) models.PricingBreakdown {
	riskAdj := pricing.RiskAdjustment(in.Risk.RiskRating)
	esgAdj := esgDiscount(in.Bank, in.ESG)
	b := models.PricingBreakdown{
		Engine:         config.RiskEngineTable,
		BaseRate:       in.Bank.BaseRate,
		RiskAdjustment: riskAdj,
		ESGAdjustment:  esgAdj,
		FinalRate:      pricing.FinalRate(in.Bank.BaseRate, riskAdj, esgAdj),
		Confidence:     in.Risk.Confidence,
	}
	b.Rationale = templateRationale(in, b)
	return b
}

// DataDrivenRiskEngine adjusts by credit score and market valuation. Without
// a credit report it prices like TableRiskEngine.
type DataDrivenRiskEngine struct {
	Narrator narrative.Narrator
}

func (e *DataDrivenRiskEngine) Name() string { return config.RiskEngineDataDriven }

func (e *DataDrivenRiskEngine) Price(ctx context.Context, in PricingInput) models.PricingBreakdown {
	report := in.Risk.CreditReport
	if report == nil {
		b := TableRiskEngine{}.Price(ctx, in)
		b.Rationale += " No credit report was available, so the rating table was used."
		return b
	}

	riskAdj := CreditScoreAdjustment(report.CreditScore) + MarketAdjustment(in.Risk.MarketSnapshot)
	esgAdj := esgDiscount(in.Bank, in.ESG)
	b := models.PricingBreakdown{
		Engine:         config.RiskEngineDataDriven,
		BaseRate:       in.Bank.BaseRate,
		RiskAdjustment: riskAdj,
		ESGAdjustment:  esgAdj,
		FinalRate:      pricing.FinalRate(in.Bank.BaseRate, riskAdj, esgAdj),
		Confidence:     in.Risk.Confidence,
	}
	b.Rationale = e.rationale(ctx, in, b)
	return b
}

func (e *DataDrivenRiskEngine) rationale(ctx context.Context, in PricingInput, b models.PricingBreakdown) string {
	if e.Narrator != nil {
		text, err := e.Narrator.Generate(ctx, narrative.Request{
			Stage:  "pricing_rationale",
			Prompt: rationalePrompt(in.Bank, in.Intent, b),
		})
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		metrics.NarrativeFallbacks.WithLabelValues("pricing_rationale").Inc()
	}
	return templateRationale(in, b)
}

// CreditScoreAdjustment: 750 and above earns a discount, below 650 a premium.
func CreditScoreAdjustment(score int) float64 {
	switch {
	case score >= 750:
		return -0.5
	case score >= 650:
		return 0
	default:
		return 0.5
	}
}

// MarketAdjustment prices public valuation; private or unknown companies
// carry a small premium.
func MarketAdjustment(s *models.MarketSnapshot) float64 {
	if s == nil || !s.IsPublic || s.PERatio == nil {
		return 0.1
	}
	switch pe := *s.PERatio; {
	case pe < 10:
		return 0.3
	case pe > 20:
		return -0.2
	}
	return 0
}

func templateRationale(in PricingInput, b models.PricingBreakdown) string {
	return fmt.Sprintf(
		"Base rate %.2f%% adjusted %+.2f for %s risk and reduced %.2f for an average ESG score of %.1f/10, giving %.2f%%.",
		b.BaseRate, b.RiskAdjustment, in.Risk.RiskRating, b.ESGAdjustment, in.ESG.Average(), b.FinalRate,
	)
}
