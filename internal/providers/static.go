package providers

import (
	"context"

	"credit-marketplace/internal/models"
)

// Static providers serve fixed records, for local runs without the
// third-party services and for tests.
type StaticCreditBureau map[string]models.CreditReport

func (s StaticCreditBureau) CreditReport(_ context.Context, companyID string) (*models.CreditReport, error) {
	if r, ok := s[companyID]; ok {
		return &r, nil
	}
	return nil, nil
}

type StaticESGRegulator map[string]models.BankESGReport

func (s StaticESGRegulator) BankESG(_ context.Context, bankID string) (*models.BankESGReport, error) {
	if r, ok := s[bankID]; ok {
		return &r, nil
	}
	return nil, nil
}

type StaticMarketData map[string]models.MarketSnapshot

func (s StaticMarketData) Snapshot(_ context.Context, companyID string) (*models.MarketSnapshot, error) {
	if r, ok := s[companyID]; ok {
		return &r, nil
	}
	return nil, nil
}
