package offer

import (
	"encoding/json"
	"fmt"
	"strings"

	"credit-marketplace/internal/models"
)

func riskPrompt(bank models.BankConfig, in models.CreditIntent, report *models.CreditReport, snapshot *models.MarketSnapshot) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("You are the credit risk analyst of %s, a %s lender. Assess this credit application.", bank.BankName, bank.RiskAppetite))
	parts = append(parts, fmt.Sprintf("\nCompany: %s", in.CompanyName))
	parts = append(parts, fmt.Sprintf("Industry: %s", orUnknown(in.Industry)))
	parts = append(parts, fmt.Sprintf("Requested Amount: %s %.2f", in.Currency, in.Amount))
	parts = append(parts, fmt.Sprintf("Duration: %d months", in.DurationMonths))
	parts = append(parts, fmt.Sprintf("Purpose: %s", in.Purpose))
	if in.AnnualRevenue > 0 {
		parts = append(parts, fmt.Sprintf("Annual Revenue: %.2f", in.AnnualRevenue))
	}

	if report != nil {
		parts = append(parts, "\nCredit Bureau Report:")
		parts = append(parts, fmt.Sprintf("- Credit score: %d", report.CreditScore))
		parts = append(parts, fmt.Sprintf("- Rating: %s", report.Rating))
		if report.HistorySummary != "" {
			parts = append(parts, fmt.Sprintf("- History: %s", report.HistorySummary))
		}
	}

	if snapshot != nil {
		parts = append(parts, "\nMarket Data:")
		if snapshot.IsPublic {
			parts = append(parts, "- Publicly traded")
		} else {
			parts = append(parts, "- Privately held")
		}
		if snapshot.MarketCap != nil {
			parts = append(parts, fmt.Sprintf("- Market cap: %.0f", *snapshot.MarketCap))
		}
		if snapshot.PERatio != nil {
			parts = append(parts, fmt.Sprintf("- P/E ratio: %.1f", *snapshot.PERatio))
		}
	}

	parts = append(parts, "\nRespond with a single JSON object with these keys:")
	parts = append(parts, `- "risk_rating": "low", "medium" or "high"`)
	parts = append(parts, `- "confidence": number between 0 and 100`)
	parts = append(parts, `- "recommended_maximum_exposure": number`)
	parts = append(parts, `- "risk_factors": array of strings`)
	parts = append(parts, `- "mitigating_factors": array of strings`)

	return strings.Join(parts, "\n")
}

func esgPrompt(bank models.BankConfig, in models.CreditIntent, report *models.BankESGReport) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("You are an ESG analyst scoring the sustainability profile of the lending relationship between %s and %s.", bank.BankName, in.CompanyName))
	parts = append(parts, fmt.Sprintf("\nCompany industry: %s", orUnknown(in.Industry)))
	parts = append(parts, "Company ESG preferences:")
	parts = append(parts, fmt.Sprintf("- Minimum ESG score: %.1f", in.ESGPreferences.MinESGScore))
	parts = append(parts, fmt.Sprintf("- Carbon neutral target: %t", in.ESGPreferences.CarbonNeutralTarget))
	parts = append(parts, fmt.Sprintf("- Social impact weight: %.2f", in.ESGPreferences.SocialImpactWeight))
	parts = append(parts, fmt.Sprintf("- Governance weight: %.2f", in.ESGPreferences.GovernanceWeight))

	if report != nil {
		data, _ := json.MarshalIndent(report, "", "  ")
		parts = append(parts, "\nRegulator ESG report for the bank:")
		parts = append(parts, string(data))
	}

	parts = append(parts, "\nRespond with a single JSON object with these keys:")
	parts = append(parts, `- "environmental_score", "social_score", "governance_score", "overall_score": numbers between 0 and 10`)
	parts = append(parts, `- "carbon_footprint_category": "low", "medium" or "high"`)
	parts = append(parts, `- "sustainability_notes": string`)
	parts = append(parts, `- "esg_summary": one sentence`)

	return strings.Join(parts, "\n")
}

func rationalePrompt(bank models.BankConfig, in models.CreditIntent, b models.PricingBreakdown) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Explain in two sentences why %s prices this loan at %.2f%%.", bank.BankName, b.FinalRate))
	parts = append(parts, fmt.Sprintf("Borrower: %s, amount %.2f over %d months.", in.CompanyName, in.Amount, in.DurationMonths))
	parts = append(parts, fmt.Sprintf("Base rate %.2f%%, risk adjustment %+.2f, ESG discount %.2f.", b.BaseRate, b.RiskAdjustment, b.ESGAdjustment))
	parts = append(parts, "Answer in plain text.")

	return strings.Join(parts, "\n")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
