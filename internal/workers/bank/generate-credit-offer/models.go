// internal/workers/bank/generate-credit-offer/models.go
package generatecreditoffer

import "credit-marketplace/internal/models"

// Input is one element of a multi-instance generate step: a single bank
// asked about a single intent.
type Input struct {
	BankID string              `json:"bankId"`
	Intent models.CreditIntent `json:"intent"`
}

type Output struct {
	BankID        string              `json:"bankId"`
	OfferStatus   string              `json:"offerStatus"`
	Offer         *models.CreditOffer `json:"offer,omitempty"`
	DeclineReason string              `json:"declineReason,omitempty"`
}
