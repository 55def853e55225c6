package offer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-marketplace/internal/common/auth"
)

type directoryFunc func(ctx context.Context, companyID string) (*auth.Company, error)

func (f directoryFunc) FindCompany(ctx context.Context, companyID string) (*auth.Company, error) {
	return f(ctx, companyID)
}

func registered(name string, enabled bool) directoryFunc {
	return func(_ context.Context, companyID string) (*auth.Company, error) {
		return &auth.Company{
			Username:   companyID,
			Enabled:    enabled,
			Attributes: map[string][]string{"companyName": {name}},
		}, nil
	}
}

func TestDirectoryVerifier(t *testing.T) {
	intent := testIntent()

	tests := []struct {
		name      string
		directory directoryFunc
		wantErr   string
	}{
		{
			name:      "registered and enabled",
			directory: registered(intent.CompanyName, true),
		},
		{
			name:      "name matches ignoring case",
			directory: registered("  "+strings.ToUpper(intent.CompanyName)+" ", true),
		},
		{
			name: "not registered",
			directory: func(context.Context, string) (*auth.Company, error) {
				return nil, nil
			},
			wantErr: "not registered",
		},
		{
			name:      "disabled",
			directory: registered(intent.CompanyName, false),
			wantErr:   "disabled",
		},
		{
			name:      "name mismatch",
			directory: registered("Someone Else Ltd", true),
			wantErr:   "does not match",
		},
		{
			name: "directory unavailable",
			directory: func(context.Context, string) (*auth.Company, error) {
				return nil, errors.New("connection refused")
			},
			wantErr: "directory lookup",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DirectoryVerifier{Directory: tt.directory}.Verify(context.Background(), intent)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrIdentityVerificationFailed)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDirectoryVerifier_BasicChecksFirst(t *testing.T) {
	called := false
	v := DirectoryVerifier{
		Directory: directoryFunc(func(context.Context, string) (*auth.Company, error) {
			called = true
			return nil, nil
		}),
		Basic: BasicVerifier{Blocked: map[string]bool{testIntent().CompanyID: true}},
	}

	err := v.Verify(context.Background(), testIntent())
	assert.ErrorIs(t, err, ErrIdentityVerificationFailed)
	assert.False(t, called, "blocked company should not reach the directory")
}
