// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var validAppetites = map[string]bool{"conservative": true, "moderate": true, "aggressive": true}

func LoadRegistry(path string) (*BankRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg BankRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// SaveRegistry writes reg as indented JSON, stamping LastUpdated.
func SaveRegistry(reg *BankRegistry, path string) error {
	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

// Find returns a pointer into reg.Banks, or nil.
func (r *BankRegistry) Find(id string) *BankEntry {
	for i := range r.Banks {
		if r.Banks[i].ID == id {
			return &r.Banks[i]
		}
	}
	return nil
}

// Eligible lists active banks holding role.
func (r *BankRegistry) Eligible(role string) []BankEntry {
	var out []BankEntry
	for _, b := range r.Banks {
		if b.Active() && b.HasRole(role) {
			out = append(out, b)
		}
	}
	return out
}

// Validate checks ids are unique and every entry carries usable policy.
func (r *BankRegistry) Validate() error {
	if len(r.Banks) == 0 {
		return fmt.Errorf("registry contains no banks")
	}

	ids := make(map[string]bool)
	for _, b := range r.Banks {
		if b.ID == "" {
			return fmt.Errorf("bank missing required field: id")
		}
		if ids[b.ID] {
			return fmt.Errorf("duplicate bank ID: %s", b.ID)
		}
		ids[b.ID] = true

		if b.DisplayName == "" {
			return fmt.Errorf("bank %s missing required field: displayName", b.ID)
		}
		if len(b.Roles) == 0 {
			return fmt.Errorf("bank %s has no roles", b.ID)
		}
		if b.BaseRate <= 0 || b.BaseRate > 50 {
			return fmt.Errorf("bank %s baseRate %.2f outside (0, 50]", b.ID, b.BaseRate)
		}
		if b.MaxLoanAmount < 0 {
			return fmt.Errorf("bank %s maxLoanAmount must not be negative", b.ID)
		}
		if b.ESGMultiplier < 0 {
			return fmt.Errorf("bank %s esgMultiplier must not be negative", b.ID)
		}
		if b.RiskAppetite != "" && !validAppetites[b.RiskAppetite] {
			return fmt.Errorf("bank %s has unknown riskAppetite %q", b.ID, b.RiskAppetite)
		}
		if b.Status != "" && b.Status != StatusActive && b.Status != StatusSuspended {
			return fmt.Errorf("bank %s has unknown status %q", b.ID, b.Status)
		}
	}
	return nil
}
