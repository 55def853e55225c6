package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// RoundMoney rounds to cents.
func RoundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// ProcessingFee charges feeRate of the approved amount, rounded to cents.
func ProcessingFee(approved, feeRate float64) float64 {
	return decimal.NewFromFloat(approved).
		Mul(decimal.NewFromFloat(feeRate)).
		Round(2).
		InexactFloat64()
}

// MonthlyPayment is the fixed payment that amortizes principal over months at
// an annual percentage rate: P * r * (1+r)^n / ((1+r)^n - 1).
func MonthlyPayment(principal, annualRatePct float64, months int) float64 {
	if months <= 0 || principal <= 0 {
		return 0
	}
	p := decimal.NewFromFloat(principal)
	monthlyRate := annualRatePct / 100 / 12
	if monthlyRate <= 0 {
		return p.Div(decimal.NewFromInt(int64(months))).Round(2).InexactFloat64()
	}

	factor := math.Pow(1+monthlyRate, float64(months))
	payment := p.Mul(decimal.NewFromFloat(monthlyRate * factor / (factor - 1)))
	return payment.Round(2).InexactFloat64()
}
