// internal/workers/credit/broadcast-credit-intent/models.go
package broadcastcreditintent

import "credit-marketplace/internal/models"

// Input carries either the full intent or just its id, in which case the
// intent is read back from the intent cache.
type Input struct {
	IntentID string               `json:"intentId"`
	Intent   *models.CreditIntent `json:"intent,omitempty"`
}

type Output struct {
	IntentID   string               `json:"intentId"`
	OfferCount int                  `json:"offerCount"`
	BanksAsked int                  `json:"banksAsked"`
	Offers     []models.CreditOffer `json:"offers"`
	Failures   []models.BankFailure `json:"failures"`
}
