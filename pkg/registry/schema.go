// pkg/registry/schema.go
package registry

const (
	RoleBank = "bank"

	StatusActive    = "active"
	StatusSuspended = "suspended"
)

type BankRegistry struct {
	Version     string      `json:"version"`
	LastUpdated string      `json:"lastUpdated"`
	Banks       []BankEntry `json:"banks"`
}

type BankEntry struct {
	ID              string   `json:"id"`
	DisplayName     string   `json:"displayName"`
	Roles           []string `json:"roles"`
	Endpoint        string   `json:"endpoint"`
	Status          string   `json:"status"`
	BaseRate        float64  `json:"baseRate"`
	MinInterestRate float64  `json:"minInterestRate"`
	MaxLoanAmount   float64  `json:"maxLoanAmount"`
	ReputationScore int      `json:"reputationScore"`
	RiskAppetite    string   `json:"riskAppetite"`
	ESGMultiplier   float64  `json:"esgMultiplier"`
	Tags            []string `json:"tags"`
}

func (e BankEntry) HasRole(role string) bool {
	for _, r := range e.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Active reports whether the bank should receive broadcasts. An empty status
// counts as active.
func (e BankEntry) Active() bool {
	return e.Status == "" || e.Status == StatusActive
}
