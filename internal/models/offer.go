// internal/models/offer.go
package models

import "time"

type RiskRating string

const (
	RiskLow    RiskRating = "low"
	RiskMedium RiskRating = "medium"
	RiskHigh   RiskRating = "high"
)

type AssessmentSource string

const (
	SourceNarrative AssessmentSource = "narrative"
	SourceFallback  AssessmentSource = "fallback"
)

// RiskAssessment is produced once per bank per intent.
type RiskAssessment struct {
	RiskRating                 RiskRating       `json:"risk_rating"`
	Confidence                 float64          `json:"confidence"`
	RecommendedMaximumExposure float64          `json:"recommended_maximum_exposure"`
	RiskFactors                []string         `json:"risk_factors"`
	MitigatingFactors          []string         `json:"mitigating_factors"`
	CreditReport               *CreditReport    `json:"credit_report,omitempty"`
	MarketSnapshot             *MarketSnapshot  `json:"market_snapshot,omitempty"`
	Source                     AssessmentSource `json:"source"`
}

type CarbonFootprint string

const (
	FootprintLow    CarbonFootprint = "low"
	FootprintMedium CarbonFootprint = "medium"
	FootprintHigh   CarbonFootprint = "high"
)

// ESGScore holds scores on a 0-10 scale.
type ESGScore struct {
	Environmental           float64          `json:"environmental_score"`
	Social                  float64          `json:"social_score"`
	Governance              float64          `json:"governance_score"`
	Overall                 float64          `json:"overall_score"`
	CarbonFootprintCategory CarbonFootprint  `json:"carbon_footprint_category"`
	SustainabilityNotes     string           `json:"sustainability_notes"`
	Source                  AssessmentSource `json:"source,omitempty"`
}

// Average is the mean of the environmental, social and governance scores.
func (s ESGScore) Average() float64 {
	return (s.Environmental + s.Social + s.Governance) / 3
}

type RepaymentSchedule string

const (
	RepaymentMonthly   RepaymentSchedule = "monthly"
	RepaymentQuarterly RepaymentSchedule = "quarterly"
	RepaymentBullet    RepaymentSchedule = "bullet"
)

type RegulatoryCompliance struct {
	KYCVerified            bool `json:"kyc_verified"`
	ComplianceChecksPassed bool `json:"compliance_checks_passed"`
}

// PricingBreakdown is carried for display and audit; it never affects ranking.
type PricingBreakdown struct {
	Engine         string  `json:"engine"`
	BaseRate       float64 `json:"base_rate"`
	RiskAdjustment float64 `json:"risk_adjustment"`
	ESGAdjustment  float64 `json:"esg_adjustment"`
	FinalRate      float64 `json:"final_rate"`
	Confidence     float64 `json:"confidence"`
	Rationale      string  `json:"rationale"`
}

// CreditOffer is a bank's response to one intent.
type CreditOffer struct {
	OfferID                 string               `json:"offer_id"`
	BankID                  string               `json:"bank_id"`
	BankName                string               `json:"bank_name"`
	IntentID                string               `json:"intent_id"`
	ApprovedAmount          float64              `json:"approved_amount"`
	InterestRate            float64              `json:"interest_rate"`
	CarbonAdjustedRate      float64              `json:"carbon_adjusted_rate"`
	ProcessingFee           float64              `json:"processing_fee"`
	CollateralRequired      bool                 `json:"collateral_required"`
	ESGScore                ESGScore             `json:"esg_score"`
	ESGSummary              string               `json:"esg_summary"`
	RepaymentSchedule       RepaymentSchedule    `json:"repayment_schedule"`
	GracePeriodDays         int                  `json:"grace_period_days"`
	EarlyRepaymentPenalty   bool                 `json:"early_repayment_penalty"`
	EstimatedMonthlyPayment float64              `json:"estimated_monthly_payment"`
	OfferValidUntil         time.Time            `json:"offer_valid_until"`
	RegulatoryCompliance    RegulatoryCompliance `json:"regulatory_compliance"`
	RiskAssessment          RiskAssessment       `json:"risk_assessment"`
	Pricing                 PricingBreakdown     `json:"pricing"`
	CreatedAt               time.Time            `json:"created_at"`
}
