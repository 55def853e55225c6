// internal/models/evaluation.go
package models

type Recommendation string

const (
	RecommendAccept    Recommendation = "accept"
	RecommendNegotiate Recommendation = "negotiate"
	RecommendReject    Recommendation = "reject"
)

type ScoringMode string

const (
	ScoringIntentAware    ScoringMode = "intent_aware"
	ScoringIntentAgnostic ScoringMode = "intent_agnostic"
)

// OfferEvaluation is derived per offer per evaluation run.
type OfferEvaluation struct {
	OfferID        string         `json:"offer_id"`
	BankID         string         `json:"bank_id"`
	BankName       string         `json:"bank_name"`
	IntentID       string         `json:"intent_id"`
	FinancialScore float64        `json:"financial_score"`
	ESGScore       float64        `json:"esg_score"`
	TermsScore     float64        `json:"terms_score"`
	TotalScore     float64        `json:"total_score"`
	Recommendation Recommendation `json:"recommendation"`
	Reasoning      string         `json:"reasoning"`
	ScoringMode    ScoringMode    `json:"scoring_mode"`
}
