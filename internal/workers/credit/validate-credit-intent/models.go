// internal/workers/credit/validate-credit-intent/models.go
package validatecreditintent

import "credit-marketplace/internal/models"

type Input struct {
	Intent        models.CreditIntent `json:"intent"`
	FailOnInvalid bool                `json:"failOnInvalid"`
}

type Output struct {
	Valid            bool                 `json:"valid"`
	ValidationErrors []string             `json:"validationErrors"`
	IntentID         string               `json:"intentId,omitempty"`
	Intent           *models.CreditIntent `json:"intent,omitempty"`
}
