// internal/models/intent.go
package models

import (
	"encoding/json"
	"time"
)

type CreditPurpose string

const (
	PurposeWorkingCapital CreditPurpose = "working_capital"
	PurposeEquipment      CreditPurpose = "equipment_purchase"
	PurposeExpansion      CreditPurpose = "expansion"
	PurposeRefinancing    CreditPurpose = "refinancing"
)

type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

const DefaultCurrency = "USD"

// ESGPreferences anchor the evaluator's ESG baseline for one intent.
type ESGPreferences struct {
	MinESGScore         float64 `json:"min_esg_score" validate:"gte=0,lte=10"`
	CarbonNeutralTarget bool    `json:"carbon_neutral_target"`
	SocialImpactWeight  float64 `json:"social_impact_weight" validate:"gte=0,lte=1"`
	GovernanceWeight    float64 `json:"governance_weight" validate:"gte=0,lte=1"`
}

func DefaultESGPreferences() ESGPreferences {
	return ESGPreferences{
		MinESGScore:         7.0,
		CarbonNeutralTarget: true,
		SocialImpactWeight:  0.3,
		GovernanceWeight:    0.2,
	}
}

// CreditIntent is a company's financing request. It is passed by value and
// never modified after creation.
type CreditIntent struct {
	IntentID       string         `json:"intent_id" validate:"required"`
	CompanyID      string         `json:"company_id" validate:"required"`
	CompanyName    string         `json:"company_name" validate:"required"`
	Amount         float64        `json:"amount" validate:"gt=0"`
	Currency       string         `json:"currency" validate:"required,len=3"`
	DurationMonths int            `json:"duration_months" validate:"gte=1,lte=120"`
	Purpose        CreditPurpose  `json:"purpose" validate:"oneof=working_capital equipment_purchase expansion refinancing"`
	AnnualRevenue  float64        `json:"annual_revenue,omitempty" validate:"gte=0"`
	Industry       string         `json:"industry,omitempty"`
	ESGPreferences ESGPreferences `json:"esg_preferences"`
	Urgency        Urgency        `json:"urgency" validate:"omitempty,oneof=normal high urgent"`
	Timestamp      time.Time      `json:"timestamp"`
}

// UnmarshalJSON fills currency, urgency and ESG preferences with their
// defaults when the payload omits them.
func (c *CreditIntent) UnmarshalJSON(data []byte) error {
	type alias CreditIntent
	a := alias{
		Currency:       DefaultCurrency,
		Urgency:        UrgencyNormal,
		ESGPreferences: DefaultESGPreferences(),
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = CreditIntent(a)
	return nil
}
