package intent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-marketplace/internal/models"
)

func validIntent() models.CreditIntent {
	return New(Params{
		CompanyID:      "companyA",
		CompanyName:    "GreenTech Solutions",
		Amount:         500_000,
		DurationMonths: 36,
		Purpose:        models.PurposeExpansion,
		AnnualRevenue:  2_000_000,
		Industry:       "renewable_energy",
	})
}

func TestValidate_HandBuiltIntent(t *testing.T) {
	in := models.CreditIntent{
		IntentID:       "intent-hand-built",
		CompanyID:      "companyB",
		CompanyName:    "Tidal Works",
		Amount:         250_000,
		Currency:       "USD",
		DurationMonths: 24,
		Purpose:        models.PurposeWorkingCapital,
		ESGPreferences: models.DefaultESGPreferences(),
	}

	got := Validate(in)
	assert.True(t, got.Valid, "errors: %v", got.Errors)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*models.CreditIntent)
		wantValid  bool
		wantErrors []string
	}{
		{
			name:      "valid intent",
			mutate:    func(*models.CreditIntent) {},
			wantValid: true,
		},
		{
			name:       "amount below minimum",
			mutate:     func(in *models.CreditIntent) { in.Amount = 500 },
			wantErrors: []string{"amount 500.00 is below the minimum of 1000.00"},
		},
		{
			name:       "amount above maximum",
			mutate:     func(in *models.CreditIntent) { in.Amount = 12_000_000; in.AnnualRevenue = 0 },
			wantErrors: []string{"amount 12000000.00 exceeds the maximum of 10000000.00"},
		},
		{
			name: "debt to revenue ratio",
			mutate: func(in *models.CreditIntent) {
				in.Amount = 2_000_000
				in.AnnualRevenue = 300_000
			},
			wantErrors: []string{"amount 2000000.00 is 6.67x annual revenue 300000.00, above the maximum ratio of 5.0"},
		},
		{
			name:       "duration above cap",
			mutate:     func(in *models.CreditIntent) { in.DurationMonths = 150 },
			wantErrors: []string{"duration_months 150 exceeds the maximum of 120"},
		},
		{
			name:       "duration below minimum",
			mutate:     func(in *models.CreditIntent) { in.DurationMonths = 3 },
			wantErrors: []string{"duration_months 3 is below the minimum of 6"},
		},
		{
			name:      "ratio ignored without revenue",
			mutate:    func(in *models.CreditIntent) { in.Amount = 9_000_000; in.AnnualRevenue = 0 },
			wantValid: true,
		},
		{
			name: "violations are all collected",
			mutate: func(in *models.CreditIntent) {
				in.Amount = 500
				in.DurationMonths = 150
				in.Purpose = "yacht"
			},
			wantErrors: []string{
				"purpose \"yacht\" must be one of [working_capital equipment_purchase expansion refinancing]",
				"duration_months 150 exceeds the maximum of 120",
				"amount 500.00 is below the minimum of 1000.00",
			},
		},
		{
			name:       "negative amount reported once",
			mutate:     func(in *models.CreditIntent) { in.Amount = -10 },
			wantErrors: []string{"amount must be greater than 0"},
		},
		{
			name:       "missing company",
			mutate:     func(in *models.CreditIntent) { in.CompanyID = "" },
			wantErrors: []string{"company_id is required"},
		},
		{
			name:      "zero urgency accepted",
			mutate:    func(in *models.CreditIntent) { in.Urgency = "" },
			wantValid: true,
		},
		{
			name:       "unknown urgency",
			mutate:     func(in *models.CreditIntent) { in.Urgency = "asap" },
			wantErrors: []string{"urgency \"asap\" must be one of [normal high urgent]"},
		},
		{
			name:       "esg weight out of range",
			mutate:     func(in *models.CreditIntent) { in.ESGPreferences.SocialImpactWeight = 1.5 },
			wantErrors: []string{"esg_preferences.social_impact_weight must be at most 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validIntent()
			tt.mutate(&in)

			got := Validate(in)
			assert.Equal(t, tt.wantValid, got.Valid)
			if tt.wantValid {
				assert.Empty(t, got.Errors)
				return
			}
			assert.ElementsMatch(t, tt.wantErrors, got.Errors)
		})
	}
}

func TestValidate_IsPure(t *testing.T) {
	in := validIntent()
	in.Amount = 500
	before := in

	first := Validate(in)
	second := Validate(in)

	assert.Equal(t, before, in)
	assert.Equal(t, first, second)
}

func TestNew_AppliesDefaults(t *testing.T) {
	in := New(Params{CompanyID: "c", CompanyName: "C", Amount: 5000, DurationMonths: 12, Purpose: models.PurposeWorkingCapital})

	assert.NotEmpty(t, in.IntentID)
	assert.Equal(t, models.DefaultCurrency, in.Currency)
	assert.Equal(t, models.UrgencyNormal, in.Urgency)
	assert.Equal(t, models.DefaultESGPreferences(), in.ESGPreferences)
	assert.Equal(t, "UTC", in.Timestamp.Location().String())
	assert.NotEqual(t, in.IntentID, New(Params{}).IntentID)
}

func TestCreditIntent_UnmarshalDefaults(t *testing.T) {
	var in models.CreditIntent
	err := json.Unmarshal([]byte(`{
		"intent_id": "i-1", "company_id": "c", "company_name": "C",
		"amount": 250000, "duration_months": 24, "purpose": "working_capital"
	}`), &in)
	require.NoError(t, err)

	assert.Equal(t, "USD", in.Currency)
	assert.Equal(t, models.UrgencyNormal, in.Urgency)
	assert.Equal(t, 7.0, in.ESGPreferences.MinESGScore)
	assert.True(t, in.ESGPreferences.CarbonNeutralTarget)
	assert.True(t, Validate(in).Valid)
}
