package evaluation

import (
	"fmt"
	"strings"

	"credit-marketplace/internal/models"
)

type dimension struct {
	name  string
	score float64
}

func templateReasoning(offer models.CreditOffer, ev models.OfferEvaluation) string {
	if ev.ScoringMode == models.ScoringIntentAgnostic {
		return fmt.Sprintf("Standard evaluation based on rate (%.2f%%), ESG score (%.1f/10), and terms.",
			offer.CarbonAdjustedRate, offer.ESGScore.Overall)
	}

	dims := []dimension{
		{"financial", ev.FinancialScore},
		{"ESG", ev.ESGScore},
		{"terms", ev.TermsScore},
	}
	best, worst := dims[0], dims[0]
	for _, d := range dims[1:] {
		if d.score > best.score {
			best = d
		}
		if d.score < worst.score {
			worst = d
		}
	}

	if best.score == worst.score {
		return fmt.Sprintf("%s scores evenly at %.0f across financial, ESG and terms; recommendation: %s.",
			offer.BankName, best.score, ev.Recommendation)
	}
	return fmt.Sprintf("%s is strongest on %s (%.0f) and weakest on %s (%.0f) at %.2f%% for %.2f; recommendation: %s.",
		offer.BankName, best.name, best.score, worst.name, worst.score,
		offer.CarbonAdjustedRate, offer.ApprovedAmount, ev.Recommendation)
}

func reasoningPrompt(offer models.CreditOffer, ev models.OfferEvaluation) string {
	var parts []string
	parts = append(parts, "Explain in two sentences how this credit offer was scored for the borrower.")
	parts = append(parts, fmt.Sprintf("Bank: %s", offer.BankName))
	parts = append(parts, fmt.Sprintf("Approved amount: %.2f at %.2f%% (base %.2f%%)", offer.ApprovedAmount, offer.CarbonAdjustedRate, offer.InterestRate))
	parts = append(parts, fmt.Sprintf("ESG overall: %.1f/10, carbon footprint %s", offer.ESGScore.Overall, offer.ESGScore.CarbonFootprintCategory))
	parts = append(parts, fmt.Sprintf("Scores: financial %.0f, ESG %.0f, terms %.0f, total %.1f", ev.FinancialScore, ev.ESGScore, ev.TermsScore, ev.TotalScore))
	parts = append(parts, fmt.Sprintf("Recommendation: %s", ev.Recommendation))
	parts = append(parts, "Name the dimension that dominated. Reply with plain text, no JSON.")
	return strings.Join(parts, "\n")
}
