// internal/workers/credit/evaluate-credit-offers/models.go
package evaluatecreditoffers

import "credit-marketplace/internal/models"

// Input names the intent to evaluate. When Offers is empty the offers
// received for the intent are read from the intent cache.
type Input struct {
	IntentID     string               `json:"intentId"`
	Intent       *models.CreditIntent `json:"intent,omitempty"`
	Offers       []models.CreditOffer `json:"offers,omitempty"`
	BanksAsked   int                  `json:"banksAsked"`
	ContactEmail string               `json:"contactEmail,omitempty"`
}

type Output struct {
	IntentID       string                   `json:"intentId"`
	Evaluations    []models.OfferEvaluation `json:"evaluations"`
	OfferCount     int                      `json:"offerCount"`
	BestOfferID    string                   `json:"bestOfferId,omitempty"`
	BestBankID     string                   `json:"bestBankId,omitempty"`
	Recommendation models.Recommendation    `json:"recommendation,omitempty"`
	ScoringMode    models.ScoringMode       `json:"scoringMode"`
	Notified       bool                     `json:"notified"`
}
