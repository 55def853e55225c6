package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEntry(id string) BankEntry {
	return BankEntry{
		ID:            id,
		DisplayName:   "Bank " + id,
		Roles:         []string{RoleBank},
		Endpoint:      "http://localhost:8101",
		Status:        StatusActive,
		BaseRate:      4.5,
		MaxLoanAmount: 5_000_000,
		RiskAppetite:  "moderate",
		ESGMultiplier: 0.8,
	}
}

func TestSaveAndLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "banks.json")
	reg := &BankRegistry{Version: "1.0.0", Banks: []BankEntry{validEntry("BANK_A")}}

	require.NoError(t, SaveRegistry(reg, path))
	assert.NotEmpty(t, reg.LastUpdated)

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, loaded.Banks, 1)
	assert.Equal(t, 0.8, loaded.Banks[0].ESGMultiplier)
	assert.NotNil(t, loaded.Find("BANK_A"))
	assert.Nil(t, loaded.Find("BANK_Z"))
}

func TestLoadRegistry_Missing(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestBankRegistry_Eligible(t *testing.T) {
	suspended := validEntry("BANK_B")
	suspended.Status = StatusSuspended
	insurer := validEntry("INS_C")
	insurer.Roles = []string{"insurer"}
	unset := validEntry("BANK_D")
	unset.Status = ""

	reg := &BankRegistry{Banks: []BankEntry{validEntry("BANK_A"), suspended, insurer, unset}}
	eligible := reg.Eligible(RoleBank)

	require.Len(t, eligible, 2)
	assert.Equal(t, "BANK_A", eligible[0].ID)
	assert.Equal(t, "BANK_D", eligible[1].ID)
}

func TestBankRegistry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *BankRegistry)
		wantErr string
	}{
		{"valid", func(r *BankRegistry) {}, ""},
		{"empty", func(r *BankRegistry) { r.Banks = nil }, "no banks"},
		{"duplicate", func(r *BankRegistry) { r.Banks = append(r.Banks, validEntry("BANK_A")) }, "duplicate bank ID"},
		{"missing name", func(r *BankRegistry) { r.Banks[0].DisplayName = "" }, "displayName"},
		{"no roles", func(r *BankRegistry) { r.Banks[0].Roles = nil }, "no roles"},
		{"zero base rate", func(r *BankRegistry) { r.Banks[0].BaseRate = 0 }, "baseRate"},
		{"bad appetite", func(r *BankRegistry) { r.Banks[0].RiskAppetite = "reckless" }, "riskAppetite"},
		{"bad status", func(r *BankRegistry) { r.Banks[0].Status = "paused" }, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &BankRegistry{Banks: []BankEntry{validEntry("BANK_A")}}
			tt.mutate(reg)
			err := reg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
