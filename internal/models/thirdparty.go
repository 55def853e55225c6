// internal/models/thirdparty.go
package models

// CreditReport is the credit bureau view of a company.
type CreditReport struct {
	CreditScore    int    `json:"credit_score"`
	Rating         string `json:"rating"`
	HistorySummary string `json:"history_summary"`
}

// BankESGReport is the regulator's ESG profile of a bank, on a 0-10 scale.
type BankESGReport struct {
	Environmental           float64 `json:"environmental_score"`
	Social                  float64 `json:"social_score"`
	Governance              float64 `json:"governance_score"`
	Overall                 float64 `json:"overall_score"`
	CarbonFootprintCategory string  `json:"carbon_footprint_category"`
	SustainabilityNotes     string  `json:"sustainability_notes"`
}

type MarketSnapshot struct {
	IsPublic     bool      `json:"is_public"`
	RecentPrices []float64 `json:"recent_prices,omitempty"`
	MarketCap    *float64  `json:"market_cap,omitempty"`
	PERatio      *float64  `json:"pe_ratio,omitempty"`
}
