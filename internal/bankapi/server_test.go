package bankapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-marketplace/internal/broadcast"
	"credit-marketplace/internal/common/logger"
	"credit-marketplace/internal/models"
	"credit-marketplace/internal/offer"
)

func testBank() models.BankConfig {
	return models.BankConfig{
		BankID:          "BANK_A",
		BankName:        "Green Bank",
		BaseRate:        4.5,
		MaxLoanAmount:   5_000_000,
		ReputationScore: 85,
		RiskAppetite:    models.AppetiteModerate,
		ESGMultiplier:   0.8,
	}
}

func testIntent() models.CreditIntent {
	return models.CreditIntent{
		IntentID:       "intent-1",
		CompanyID:      "COMP_1",
		CompanyName:    "Acme",
		Amount:         500_000,
		Currency:       "USD",
		DurationMonths: 36,
		Purpose:        models.PurposeEquipment,
		ESGPreferences: models.DefaultESGPreferences(),
		Urgency:        models.UrgencyNormal,
	}
}

func newTestServer(t *testing.T, deps offer.Dependencies) *httptest.Server {
	log := logger.NewTestLogger(t)
	g := offer.NewGenerator(testBank(), offer.DefaultSettings(), deps, log)
	srv := httptest.NewServer(New(g, time.Second, log).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func postIntent(t *testing.T, url string, body interface{}) (*http.Response, models.AssessCreditResponse) {
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url+"/wfap/assess-credit", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out models.AssessCreditResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestAssessCredit_Success(t *testing.T) {
	srv := newTestServer(t, offer.Dependencies{})

	resp, out := postIntent(t, srv.URL, testIntent())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.AssessStatusSuccess, out.Status)
	require.NotNil(t, out.Offer)
	assert.Equal(t, "BANK_A", out.Offer.BankID)
	assert.Equal(t, "intent-1", out.Offer.IntentID)
	assert.Greater(t, out.Offer.CarbonAdjustedRate, 0.0)
	assert.LessOrEqual(t, out.Offer.ApprovedAmount, 500_000.0)
}

func TestAssessCredit_Declined(t *testing.T) {
	srv := newTestServer(t, offer.Dependencies{
		Verifier: offer.VerifierFunc(func(context.Context, models.CreditIntent) error {
			return offer.ErrIdentityVerificationFailed
		}),
	})

	resp, out := postIntent(t, srv.URL, testIntent())
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, models.AssessStatusDeclined, out.Status)
	assert.Nil(t, out.Offer)
}

func TestAssessCredit_BadRequests(t *testing.T) {
	srv := newTestServer(t, offer.Dependencies{})

	resp, err := http.Post(srv.URL+"/wfap/assess-credit", "application/json", bytes.NewBufferString("{nope"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	invalid := testIntent()
	invalid.Amount = 500
	resp, out := postIntent(t, srv.URL, invalid)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.AssessStatusError, out.Status)
}

func TestStatusAndHealth(t *testing.T) {
	srv := newTestServer(t, offer.Dependencies{})
	postIntent(t, srv.URL, testIntent())

	resp, err := http.Get(srv.URL + "/wfap/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var status map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "BANK_A", status["bank_id"])
	assert.Equal(t, "online", status["status"])
	assert.Equal(t, 1.0, status["offers_generated"])

	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestHTTPBankClientAgainstAgent(t *testing.T) {
	srv := newTestServer(t, offer.Dependencies{})
	bank := testBank()
	bank.Endpoint = srv.URL + "/"

	o, err := broadcast.NewHTTPBankClient(time.Second).RequestOffer(context.Background(), bank, testIntent())
	require.NoError(t, err)
	assert.Equal(t, "BANK_A", o.BankID)

	declining := newTestServer(t, offer.Dependencies{Verifier: offer.BasicVerifier{Blocked: map[string]bool{"COMP_1": true}}})
	bank.Endpoint = declining.URL
	_, err = broadcast.NewHTTPBankClient(time.Second).RequestOffer(context.Background(), bank, testIntent())
	require.Error(t, err)
	assert.True(t, errors.Is(err, broadcast.ErrOfferDeclined))
}
