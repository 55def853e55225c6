// Package providers fetches third-party data used during offer generation.
// Every lookup treats "no record" as a nil result rather than an error.
package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"credit-marketplace/internal/common/config"
	commonhttp "credit-marketplace/internal/common/http"
	"credit-marketplace/internal/models"
)

type CreditBureau interface {
	CreditReport(ctx context.Context, companyID string) (*models.CreditReport, error)
}

type ESGRegulator interface {
	BankESG(ctx context.Context, bankID string) (*models.BankESGReport, error)
}

type MarketData interface {
	Snapshot(ctx context.Context, companyID string) (*models.MarketSnapshot, error)
}

type endpoint struct {
	baseURL string
	client  *commonhttp.Client
}

func newEndpoint(cfg config.ServiceEndpoint) endpoint {
	timeout := config.GetDuration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := commonhttp.NewClient(timeout)
	if cfg.APIKey != "" {
		client = client.WithHeader("X-API-Key", cfg.APIKey)
	}
	return endpoint{baseURL: strings.TrimRight(cfg.BaseURL, "/"), client: client}
}

func (e endpoint) url(resource, id string) string {
	return fmt.Sprintf("%s/%s/%s", e.baseURL, resource, url.PathEscape(id))
}

// HTTPCreditBureau calls GET {base}/credit/{company_id}.
type HTTPCreditBureau struct{ endpoint }

func NewHTTPCreditBureau(cfg config.ServiceEndpoint) *HTTPCreditBureau {
	return &HTTPCreditBureau{newEndpoint(cfg)}
}

func (b *HTTPCreditBureau) CreditReport(ctx context.Context, companyID string) (*models.CreditReport, error) {
	var report models.CreditReport
	if err := b.client.GetJSON(ctx, b.url("credit", companyID), &report); err != nil {
		if commonhttp.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("credit bureau: %w", err)
	}
	if report.CreditScore < 0 {
		return nil, nil
	}
	return &report, nil
}

// HTTPESGRegulator calls GET {base}/esg/{bank_id}.
type HTTPESGRegulator struct{ endpoint }

func NewHTTPESGRegulator(cfg config.ServiceEndpoint) *HTTPESGRegulator {
	return &HTTPESGRegulator{newEndpoint(cfg)}
}

func (r *HTTPESGRegulator) BankESG(ctx context.Context, bankID string) (*models.BankESGReport, error) {
	var report models.BankESGReport
	if err := r.client.GetJSON(ctx, r.url("esg", bankID), &report); err != nil {
		if commonhttp.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("esg regulator: %w", err)
	}
	if report.Environmental < 0 || report.Social < 0 || report.Governance < 0 || report.Overall < 0 {
		return nil, nil
	}
	return &report, nil
}

// HTTPMarketData calls GET {base}/market/{company_id}.
type HTTPMarketData struct{ endpoint }

func NewHTTPMarketData(cfg config.ServiceEndpoint) *HTTPMarketData {
	return &HTTPMarketData{newEndpoint(cfg)}
}

func (m *HTTPMarketData) Snapshot(ctx context.Context, companyID string) (*models.MarketSnapshot, error) {
	var snapshot models.MarketSnapshot
	if err := m.client.GetJSON(ctx, m.url("market", companyID), &snapshot); err != nil {
		if commonhttp.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("market data: %w", err)
	}
	return &snapshot, nil
}
