package offer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"credit-marketplace/internal/common/auth"
	"credit-marketplace/internal/models"
)

var ErrIdentityVerificationFailed = errors.New("IDENTITY_VERIFICATION_FAILED")

// IdentityVerifier confirms the requesting company is who it claims to be.
type IdentityVerifier interface {
	Verify(ctx context.Context, intent models.CreditIntent) error
}

// BasicVerifier accepts any intent that names its company, optionally
// restricted to a blocklist of company ids.
type BasicVerifier struct {
	Blocked map[string]bool
}

func (v BasicVerifier) Verify(ctx context.Context, intent models.CreditIntent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(intent.CompanyID) == "" || strings.TrimSpace(intent.CompanyName) == "" {
		return fmt.Errorf("%w: company id and name are required", ErrIdentityVerificationFailed)
	}
	if v.Blocked[intent.CompanyID] {
		return fmt.Errorf("%w: company %s is blocked", ErrIdentityVerificationFailed, intent.CompanyID)
	}
	return nil
}

// VerifierFunc adapts a function to IdentityVerifier.
type VerifierFunc func(ctx context.Context, intent models.CreditIntent) error

func (f VerifierFunc) Verify(ctx context.Context, intent models.CreditIntent) error {
	return f(ctx, intent)
}

// CompanyDirectory resolves a company id to its registration.
type CompanyDirectory interface {
	FindCompany(ctx context.Context, companyID string) (*auth.Company, error)
}

// DirectoryVerifier requires the company to be registered and enabled in the
// directory, and its registered name to match the intent when one is on file.
// A directory outage fails verification.
type DirectoryVerifier struct {
	Directory CompanyDirectory
	Basic     BasicVerifier
}

func (v DirectoryVerifier) Verify(ctx context.Context, intent models.CreditIntent) error {
	if err := v.Basic.Verify(ctx, intent); err != nil {
		return err
	}

	company, err := v.Directory.FindCompany(ctx, intent.CompanyID)
	if err != nil {
		return fmt.Errorf("%w: directory lookup: %v", ErrIdentityVerificationFailed, err)
	}
	switch {
	case company == nil:
		return fmt.Errorf("%w: company %s is not registered", ErrIdentityVerificationFailed, intent.CompanyID)
	case !company.Enabled:
		return fmt.Errorf("%w: company %s is disabled", ErrIdentityVerificationFailed, intent.CompanyID)
	}
	if name := company.Name(); name != "" && !strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(intent.CompanyName)) {
		return fmt.Errorf("%w: company name %q does not match registration", ErrIdentityVerificationFailed, intent.CompanyName)
	}
	return nil
}
