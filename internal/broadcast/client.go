package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	commonhttp "credit-marketplace/internal/common/http"
	"credit-marketplace/internal/models"
	"credit-marketplace/internal/offer"
)

const AssessCreditPath = "/wfap/assess-credit"

var (
	ErrOfferDeclined  = errors.New("OFFER_DECLINED")
	ErrMalformedOffer = errors.New("MALFORMED_OFFER")
	ErrUnknownBank    = errors.New("UNKNOWN_BANK")
)

// BankClient asks one bank for an offer.
type BankClient interface {
	RequestOffer(ctx context.Context, bank models.BankConfig, intent models.CreditIntent) (*models.CreditOffer, error)
}

// HTTPBankClient calls remote bank agents.
type HTTPBankClient struct {
	client *commonhttp.Client
}

// NewHTTPBankClient builds a client whose transport timeout backs up the
// per-bank context deadline.
func NewHTTPBankClient(timeout time.Duration) *HTTPBankClient {
	return &HTTPBankClient{client: commonhttp.NewClient(timeout)}
}

func (c *HTTPBankClient) RequestOffer(ctx context.Context, bank models.BankConfig, intent models.CreditIntent) (*models.CreditOffer, error) {
	if bank.Endpoint == "" {
		return nil, fmt.Errorf("%w: %s has no endpoint", ErrUnknownBank, bank.BankID)
	}
	url := strings.TrimRight(bank.Endpoint, "/") + AssessCreditPath

	var resp models.AssessCreditResponse
	err := c.client.PostJSON(ctx, url, intent, &resp)
	if err != nil {
		var se *commonhttp.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusUnprocessableEntity {
			return nil, fmt.Errorf("%w: %s", ErrOfferDeclined, declineReason(se.Body))
		}
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: %v", ErrMalformedOffer, err)
		}
		return nil, err
	}

	switch {
	case resp.Status == models.AssessStatusDeclined:
		return nil, fmt.Errorf("%w: %s", ErrOfferDeclined, resp.Error)
	case resp.Status != models.AssessStatusSuccess:
		return nil, fmt.Errorf("%w: status %q", ErrMalformedOffer, resp.Status)
	case resp.Offer == nil:
		return nil, fmt.Errorf("%w: success without offer", ErrMalformedOffer)
	}
	return resp.Offer, nil
}

func declineReason(body string) string {
	var resp models.AssessCreditResponse
	if err := json.Unmarshal([]byte(body), &resp); err == nil && resp.Error != "" {
		return resp.Error
	}
	return strings.TrimSpace(body)
}

// LocalBankClient runs bank generators in process.
type LocalBankClient struct {
	generators map[string]*offer.Generator
}

func NewLocalBankClient(generators ...*offer.Generator) *LocalBankClient {
	m := make(map[string]*offer.Generator, len(generators))
	for _, g := range generators {
		m[g.Bank().BankID] = g
	}
	return &LocalBankClient{generators: m}
}

func (c *LocalBankClient) RequestOffer(ctx context.Context, bank models.BankConfig, intent models.CreditIntent) (*models.CreditOffer, error) {
	g, ok := c.generators[bank.BankID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBank, bank.BankID)
	}

	type result struct {
		offer *models.CreditOffer
		err   error
	}
	done := make(chan result, 1)
	go func() {
		o, err := g.Generate(ctx, intent)
		done <- result{o, err}
	}()

	select {
	case r := <-done:
		if errors.Is(r.err, offer.ErrIdentityVerificationFailed) {
			return nil, fmt.Errorf("%w: %v", ErrOfferDeclined, r.err)
		}
		return r.offer, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RoutedBankClient sends banks with an endpoint to remote and the rest to
// local. Either side may be nil, in which case those banks are unknown.
type RoutedBankClient struct {
	Remote BankClient
	Local  BankClient
}

func (c RoutedBankClient) RequestOffer(ctx context.Context, bank models.BankConfig, intent models.CreditIntent) (*models.CreditOffer, error) {
	next := c.Local
	if bank.Endpoint != "" {
		next = c.Remote
	}
	if next == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBank, bank.BankID)
	}
	return next.RequestOffer(ctx, bank, intent)
}
