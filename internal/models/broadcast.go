package models

type FailureReason string

const (
	FailureTimeout     FailureReason = "timeout"
	FailureUnavailable FailureReason = "unavailable"
	FailureMalformed   FailureReason = "malformed"
	FailureDeclined    FailureReason = "declined"
)

// BankFailure records why one bank produced no usable offer.
type BankFailure struct {
	BankID  string        `json:"bank_id"`
	Reason  FailureReason `json:"reason"`
	Message string        `json:"message,omitempty"`
}

// BroadcastResult is the outcome of one fan-out. Offers are in completion
// order; an empty Offers slice is a normal result.
type BroadcastResult struct {
	IntentID   string        `json:"intent_id"`
	BanksAsked int           `json:"banks_asked"`
	Offers     []CreditOffer `json:"offers"`
	Failures   []BankFailure `json:"failures"`
}

const (
	AssessStatusSuccess  = "success"
	AssessStatusDeclined = "declined"
	AssessStatusError    = "error"
)

// AssessCreditResponse is the bank agent's reply to POST /wfap/assess-credit.
// The request body is the CreditIntent itself.
type AssessCreditResponse struct {
	Status string       `json:"status"`
	BankID string       `json:"bank_id,omitempty"`
	Offer  *CreditOffer `json:"offer,omitempty"`
	Error  string       `json:"error,omitempty"`
}
