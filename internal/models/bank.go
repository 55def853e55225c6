// internal/models/bank.go
package models

import "credit-marketplace/internal/common/config"

type RiskAppetite string

const (
	AppetiteConservative RiskAppetite = "conservative"
	AppetiteModerate     RiskAppetite = "moderate"
	AppetiteAggressive   RiskAppetite = "aggressive"
)

// BankConfig is static per-bank policy, shared read-only.
type BankConfig struct {
	BankID          string       `json:"bank_id"`
	BankName        string       `json:"bank_name"`
	BaseRate        float64      `json:"base_rate"`
	MinInterestRate float64      `json:"min_interest_rate"`
	MaxLoanAmount   float64      `json:"max_loan_amount"`
	ReputationScore int          `json:"reputation_score"`
	RiskAppetite    RiskAppetite `json:"risk_appetite"`
	ESGMultiplier   float64      `json:"esg_multiplier"`
	Endpoint        string       `json:"endpoint,omitempty"`
}

func BankFromConfig(c config.BankConfig) BankConfig {
	return BankConfig{
		BankID:          c.BankID,
		BankName:        c.BankName,
		BaseRate:        c.BaseRate,
		MinInterestRate: c.MinInterestRate,
		MaxLoanAmount:   c.MaxLoanAmount,
		ReputationScore: c.ReputationScore,
		RiskAppetite:    RiskAppetite(c.RiskAppetite),
		ESGMultiplier:   c.ESGMultiplier,
		Endpoint:        c.Endpoint,
	}
}

func BanksFromConfig(cs []config.BankConfig) []BankConfig {
	out := make([]BankConfig, 0, len(cs))
	for _, c := range cs {
		out = append(out, BankFromConfig(c))
	}
	return out
}
