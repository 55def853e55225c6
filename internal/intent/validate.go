// Package intent validates and constructs credit intents before they enter
// the broadcast pipeline.
package intent

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"credit-marketplace/internal/models"
)

const (
	MinAmount          = 1_000.0
	MaxAmount          = 10_000_000.0
	MinDurationMonths  = 6
	MaxDurationMonths  = 120
	MaxRevenueMultiple = 5.0
)

// Result is the outcome of Validate. Errors lists every violation found.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks the struct constraints and the business rules of an intent.
// All violations are collected. Business rules are skipped for fields that
// already failed a structural check so each problem is reported once.
func Validate(in models.CreditIntent) Result {
	var errs []string
	failed := map[string]bool{}

	if err := validate.Struct(in); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				failed[fe.Field()] = true
				errs = append(errs, describe(fe))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if !failed["amount"] {
		if in.Amount < MinAmount {
			errs = append(errs, fmt.Sprintf("amount %.2f is below the minimum of %.2f", in.Amount, MinAmount))
		} else if in.Amount > MaxAmount {
			errs = append(errs, fmt.Sprintf("amount %.2f exceeds the maximum of %.2f", in.Amount, MaxAmount))
		}
	}

	if !failed["duration_months"] {
		if in.DurationMonths < MinDurationMonths {
			errs = append(errs, fmt.Sprintf("duration_months %d is below the minimum of %d", in.DurationMonths, MinDurationMonths))
		} else if in.DurationMonths > MaxDurationMonths {
			errs = append(errs, fmt.Sprintf("duration_months %d exceeds the maximum of %d", in.DurationMonths, MaxDurationMonths))
		}
	}

	if !failed["amount"] && !failed["annual_revenue"] && in.AnnualRevenue > 0 {
		ratio := in.Amount / in.AnnualRevenue
		if ratio > MaxRevenueMultiple {
			errs = append(errs, fmt.Sprintf(
				"amount %.2f is %.2fx annual revenue %.2f, above the maximum ratio of %.1f",
				in.Amount, ratio, in.AnnualRevenue, MaxRevenueMultiple,
			))
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	if ns := fe.Namespace(); strings.Count(ns, ".") > 1 {
		// nested: CreditIntent.esg_preferences.min_esg_score
		field = ns[strings.Index(ns, ".")+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		if fe.Field() == "duration_months" {
			return fmt.Sprintf("duration_months %v exceeds the maximum of %s", fe.Value(), fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters long", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s %q must be one of [%s]", field, fmt.Sprint(fe.Value()), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

// Params are the caller-supplied parts of a new intent.
type Params struct {
	CompanyID      string
	CompanyName    string
	Amount         float64
	Currency       string
	DurationMonths int
	Purpose        models.CreditPurpose
	AnnualRevenue  float64
	Industry       string
	ESGPreferences *models.ESGPreferences
	Urgency        models.Urgency
}

// New builds an intent with a fresh id and UTC timestamp, applying the
// currency, urgency and ESG-preference defaults.
func New(p Params) models.CreditIntent {
	in := models.CreditIntent{
		IntentID:       uuid.NewString(),
		CompanyID:      p.CompanyID,
		CompanyName:    p.CompanyName,
		Amount:         p.Amount,
		Currency:       p.Currency,
		DurationMonths: p.DurationMonths,
		Purpose:        p.Purpose,
		AnnualRevenue:  p.AnnualRevenue,
		Industry:       p.Industry,
		ESGPreferences: models.DefaultESGPreferences(),
		Urgency:        p.Urgency,
		Timestamp:      time.Now().UTC(),
	}
	if in.Currency == "" {
		in.Currency = models.DefaultCurrency
	}
	if in.Urgency == "" {
		in.Urgency = models.UrgencyNormal
	}
	if p.ESGPreferences != nil {
		in.ESGPreferences = *p.ESGPreferences
	}
	return in
}
