// Package offer produces one bank's credit offer for an intent: identity,
// risk, ESG, pricing and assembly, each stage with a deterministic fallback.
package offer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"credit-marketplace/internal/common/config"
	apperrors "credit-marketplace/internal/common/errors"
	"credit-marketplace/internal/common/logger"
	"credit-marketplace/internal/common/metrics"
	"credit-marketplace/internal/common/observability"
	"credit-marketplace/internal/models"
	"credit-marketplace/internal/narrative"
	"credit-marketplace/internal/pricing"
	"credit-marketplace/internal/providers"
)

const (
	fallbackConfidence = 70.0

	defaultEnvironmental = 7.5
	defaultSocial        = 7.0
	defaultGovernance    = 8.0
	defaultOverall       = 7.5

	defaultGracePeriodDays = 30
)

// Settings are the marketplace-wide offer terms.
type Settings struct {
	ValidityDays        int
	ProcessingFeeRate   float64
	CollateralThreshold float64
}

func DefaultSettings() Settings {
	return Settings{ValidityDays: 7, ProcessingFeeRate: 0.001, CollateralThreshold: 1_000_000}
}

func SettingsFromConfig(cfg config.MarketplaceConfig) Settings {
	s := DefaultSettings()
	if cfg.OfferValidityDays > 0 {
		s.ValidityDays = cfg.OfferValidityDays
	}
	if cfg.ProcessingFeeRate > 0 {
		s.ProcessingFeeRate = cfg.ProcessingFeeRate
	}
	if cfg.CollateralThreshold > 0 {
		s.CollateralThreshold = cfg.CollateralThreshold
	}
	return s
}

// Dependencies are the generator's collaborators. Only Verifier is required;
// absent providers yield no data and an absent narrator yields fallbacks.
type Dependencies struct {
	Verifier     IdentityVerifier
	Narrator     narrative.Narrator
	CreditBureau providers.CreditBureau
	ESGRegulator providers.ESGRegulator
	MarketData   providers.MarketData
	Engine       RiskEngine

	// Observability traces generation; nil uses the global tracer.
	Observability *observability.Observability
}

// Generator produces offers for one bank. It holds no per-request state and
// is safe for concurrent use.
type Generator struct {
	bank     models.BankConfig
	settings Settings
	deps     Dependencies
	logger   logger.Logger
	now      func() time.Time
}

func NewGenerator(bank models.BankConfig, settings Settings, deps Dependencies, log logger.Logger) *Generator {
	if deps.Verifier == nil {
		deps.Verifier = BasicVerifier{}
	}
	if deps.Engine == nil {
		deps.Engine = TableRiskEngine{}
	}
	return &Generator{
		bank:     bank,
		settings: settings,
		deps:     deps,
		logger:   log.WithFields(map[string]interface{}{"bankId": bank.BankID}),
		now:      time.Now,
	}
}

// Bank returns the bank this generator prices for.
func (g *Generator) Bank() models.BankConfig {
	return g.bank
}

// Generate runs the pipeline. The only error is a failed identity check;
// every other stage degrades to its documented default.
func (g *Generator) Generate(ctx context.Context, intent models.CreditIntent) (*models.CreditOffer, error) {
	ctx, span := g.deps.Observability.StartSpan(ctx, "offer.generate",
		attribute.String("bank_id", g.bank.BankID),
		attribute.String("intent_id", intent.IntentID),
	)
	defer span.End()

	if err := g.deps.Verifier.Verify(ctx, intent); err != nil {
		metrics.OfferFailures.WithLabelValues(g.bank.BankID, "identity").Inc()
		g.logger.Warn("identity verification failed", map[string]interface{}{
			"intentId":  intent.IntentID,
			"companyId": intent.CompanyID,
			"error":     err.Error(),
		})
		return nil, apperrors.NewIdentityVerificationError(intent.CompanyID, err)
	}

	risk := g.assessRisk(ctx, intent)
	esg := g.assessESG(ctx, intent)
	breakdown := g.deps.Engine.Price(ctx, PricingInput{Bank: g.bank, Intent: intent, Risk: risk, ESG: esg})
	offer := g.assemble(intent, risk, esg, breakdown)

	metrics.OffersGenerated.WithLabelValues(g.bank.BankID).Inc()
	span.SetAttributes(attribute.Float64("carbon_adjusted_rate", offer.CarbonAdjustedRate))
	g.logger.Info("offer generated", map[string]interface{}{
		"intentId":           intent.IntentID,
		"offerId":            offer.OfferID,
		"approvedAmount":     offer.ApprovedAmount,
		"carbonAdjustedRate": offer.CarbonAdjustedRate,
		"riskSource":         risk.Source,
		"esgSource":          esg.Source,
	})
	return offer, nil
}

func (g *Generator) assessRisk(ctx context.Context, intent models.CreditIntent) models.RiskAssessment {
	report := g.creditReport(ctx, intent.CompanyID)
	snapshot := g.marketSnapshot(ctx, intent.CompanyID)

	parsed, ok := g.narrate(ctx, "risk", riskPrompt(g.bank, intent, report, snapshot), map[string]interface{}{
		"intent":          intent,
		"credit_report":   report,
		"market_snapshot": snapshot,
		"risk_appetite":   g.bank.RiskAppetite,
	})
	if ok {
		if conforms, problems := parsed.Conforms(narrative.RiskSchema); !conforms {
			g.logger.Warn("risk narrative missing required fields", map[string]interface{}{
				"intentId": intent.IntentID,
				"problems": problems,
			})
			ok = false
		}
	}
	if !ok {
		metrics.NarrativeFallbacks.WithLabelValues("risk").Inc()
		return fallbackRisk(intent, report, snapshot)
	}

	rating, known := pricing.ParseRiskRating(parsed.String("risk_rating"))
	if !known {
		rating = models.RiskMedium
	}

	confidence := fallbackConfidence
	if v, present := parsed.Value("confidence"); present {
		if c, ok := pricing.CoerceFloat(v); ok {
			confidence = pricing.ClampScore(c)
		}
	}

	exposure := intent.Amount
	if v, present := parsed.Value("recommended_maximum_exposure"); present {
		if e, ok := pricing.CoerceAmount(v); ok && e > 0 {
			exposure = e
		}
	}

	return models.RiskAssessment{
		RiskRating:                 rating,
		Confidence:                 confidence,
		RecommendedMaximumExposure: exposure,
		RiskFactors:                parsed.Strings("risk_factors"),
		MitigatingFactors:          parsed.Strings("mitigating_factors"),
		CreditReport:               report,
		MarketSnapshot:             snapshot,
		Source:                     models.SourceNarrative,
	}
}

func fallbackRisk(intent models.CreditIntent, report *models.CreditReport, snapshot *models.MarketSnapshot) models.RiskAssessment {
	return models.RiskAssessment{
		RiskRating:                 models.RiskMedium,
		Confidence:                 fallbackConfidence,
		RecommendedMaximumExposure: intent.Amount,
		RiskFactors:                []string{"Automated risk narrative unavailable; standard risk profile applied"},
		MitigatingFactors:          []string{"Standard covenants and periodic financial reporting"},
		CreditReport:               report,
		MarketSnapshot:             snapshot,
		Source:                     models.SourceFallback,
	}
}

func (g *Generator) assessESG(ctx context.Context, intent models.CreditIntent) models.ESGScore {
	report := g.bankESG(ctx)

	parsed, ok := g.narrate(ctx, "esg", esgPrompt(g.bank, intent, report), map[string]interface{}{
		"esg_preferences": intent.ESGPreferences,
		"bank_esg_report": report,
	})
	if !ok {
		metrics.NarrativeFallbacks.WithLabelValues("esg").Inc()
		parsed = narrative.ParsedNarrative{Kind: narrative.Malformed}
	}
	return resolveESG(parsed, report)
}

// resolveESG takes each score from the narrative, then the regulator report,
// then the fixed default.
func resolveESG(parsed narrative.ParsedNarrative, report *models.BankESGReport) models.ESGScore {
	score := models.ESGScore{Source: models.SourceFallback}
	if parsed.Kind == narrative.Ok {
		score.Source = models.SourceNarrative
	}

	fromReport := func(pick func(*models.BankESGReport) float64) (float64, bool) {
		if report == nil || pick(report) < 0 {
			return 0, false
		}
		return pricing.NormalizeESG(pick(report)), true
	}
	resolve := func(keys []string, pick func(*models.BankESGReport) float64, def float64) float64 {
		if v, ok := narrativeScore(parsed, keys...); ok {
			return v
		}
		if v, ok := fromReport(pick); ok {
			return v
		}
		return def
	}

	score.Environmental = resolve([]string{"environmental_score", "environmental"}, func(r *models.BankESGReport) float64 { return r.Environmental }, defaultEnvironmental)
	score.Social = resolve([]string{"social_score", "social"}, func(r *models.BankESGReport) float64 { return r.Social }, defaultSocial)
	score.Governance = resolve([]string{"governance_score", "governance"}, func(r *models.BankESGReport) float64 { return r.Governance }, defaultGovernance)
	score.Overall = resolve([]string{"overall_score", "overall"}, func(r *models.BankESGReport) float64 { return r.Overall }, defaultOverall)

	score.CarbonFootprintCategory = models.FootprintMedium
	if c, ok := parseFootprint(parsed.String("carbon_footprint_category")); ok {
		score.CarbonFootprintCategory = c
	} else if report != nil {
		if c, ok := parseFootprint(report.CarbonFootprintCategory); ok {
			score.CarbonFootprintCategory = c
		}
	}

	score.SustainabilityNotes = parsed.String("sustainability_notes")
	if score.SustainabilityNotes == "" && report != nil {
		score.SustainabilityNotes = report.SustainabilityNotes
	}
	return score
}

func narrativeScore(parsed narrative.ParsedNarrative, keys ...string) (float64, bool) {
	if parsed.Kind != narrative.Ok {
		return 0, false
	}
	for _, k := range keys {
		if v, present := parsed.Value(k); present {
			if f, ok := pricing.CoerceFloat(v); ok {
				return pricing.NormalizeESG(f), true
			}
		}
	}
	return 0, false
}

func parseFootprint(s string) (models.CarbonFootprint, bool) {
	switch c := models.CarbonFootprint(s); c {
	case models.FootprintLow, models.FootprintMedium, models.FootprintHigh:
		return c, true
	}
	return "", false
}

func (g *Generator) assemble(intent models.CreditIntent, risk models.RiskAssessment, esg models.ESGScore, b models.PricingBreakdown) *models.CreditOffer {
	now := g.now().UTC()

	approved := math.Min(intent.Amount, risk.RecommendedMaximumExposure)
	if g.bank.MaxLoanAmount > 0 {
		approved = math.Min(approved, g.bank.MaxLoanAmount)
	}
	approved = pricing.RoundMoney(approved)

	rate := pricing.RepairRate(b.FinalRate, g.bank.BaseRate)
	b.FinalRate = rate

	return &models.CreditOffer{
		OfferID:                 uuid.NewString(),
		BankID:                  g.bank.BankID,
		BankName:                g.bank.BankName,
		IntentID:                intent.IntentID,
		ApprovedAmount:          approved,
		InterestRate:            g.bank.BaseRate,
		CarbonAdjustedRate:      rate,
		ProcessingFee:           pricing.ProcessingFee(approved, g.settings.ProcessingFeeRate),
		CollateralRequired:      approved > g.settings.CollateralThreshold,
		ESGScore:                esg,
		ESGSummary:              esgSummary(esg),
		RepaymentSchedule:       models.RepaymentMonthly,
		GracePeriodDays:         defaultGracePeriodDays,
		EarlyRepaymentPenalty:   false,
		EstimatedMonthlyPayment: pricing.MonthlyPayment(approved, rate, intent.DurationMonths),
		OfferValidUntil:         now.AddDate(0, 0, g.settings.ValidityDays),
		RegulatoryCompliance:    models.RegulatoryCompliance{KYCVerified: true, ComplianceChecksPassed: true},
		RiskAssessment:          risk,
		Pricing:                 b,
		CreatedAt:               now,
	}
}

func esgSummary(s models.ESGScore) string {
	summary := fmt.Sprintf("Overall ESG score %.1f/10 with a %s carbon footprint", s.Overall, s.CarbonFootprintCategory)
	if s.SustainabilityNotes != "" {
		summary += ". " + s.SustainabilityNotes
	}
	return summary
}

// narrate calls the narrator and parses the reply. ok is false on any
// failure, with the reason logged.
func (g *Generator) narrate(ctx context.Context, stage, prompt string, extra map[string]interface{}) (narrative.ParsedNarrative, bool) {
	if g.deps.Narrator == nil {
		return narrative.ParsedNarrative{Kind: narrative.Malformed}, false
	}
	text, err := g.deps.Narrator.Generate(ctx, narrative.Request{Stage: stage, Prompt: prompt, Context: extra})
	if err != nil {
		g.logger.Warn("narrative call failed, using fallback", map[string]interface{}{"stage": stage, "error": err.Error()})
		return narrative.ParsedNarrative{Kind: narrative.Malformed}, false
	}
	parsed := narrative.Parse(text)
	if parsed.Kind != narrative.Ok {
		g.logger.Warn("narrative was not a JSON object, using fallback", map[string]interface{}{"stage": stage})
		return parsed, false
	}
	return parsed, true
}

func (g *Generator) creditReport(ctx context.Context, companyID string) *models.CreditReport {
	if g.deps.CreditBureau == nil {
		return nil
	}
	report, err := g.deps.CreditBureau.CreditReport(ctx, companyID)
	if err != nil {
		g.logger.Warn("credit bureau unavailable", map[string]interface{}{"companyId": companyID, "error": err.Error()})
		return nil
	}
	return report
}

func (g *Generator) marketSnapshot(ctx context.Context, companyID string) *models.MarketSnapshot {
	if g.deps.MarketData == nil {
		return nil
	}
	snapshot, err := g.deps.MarketData.Snapshot(ctx, companyID)
	if err != nil {
		g.logger.Warn("market data unavailable", map[string]interface{}{"companyId": companyID, "error": err.Error()})
		return nil
	}
	return snapshot
}

func (g *Generator) bankESG(ctx context.Context) *models.BankESGReport {
	if g.deps.ESGRegulator == nil {
		return nil
	}
	report, err := g.deps.ESGRegulator.BankESG(ctx, g.bank.BankID)
	if err != nil {
		g.logger.Warn("esg regulator unavailable", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return report
}
