package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"credit-marketplace/internal/models"
	"credit-marketplace/pkg/registry"
)

const maxDiscoveredBanks = 100

// Discovery returns the authoritative bank set for one broadcast.
type Discovery interface {
	Discover(ctx context.Context, role string, amount float64) ([]models.BankConfig, error)
}

// Eligible reports whether a bank can lend amount. A non-positive cap is
// treated as uncapped.
func Eligible(bank models.BankConfig, amount float64) bool {
	return bank.MaxLoanAmount <= 0 || bank.MaxLoanAmount >= amount
}

func filterEligible(banks []models.BankConfig, amount float64) []models.BankConfig {
	out := make([]models.BankConfig, 0, len(banks))
	for _, b := range banks {
		if Eligible(b, amount) {
			out = append(out, b)
		}
	}
	return out
}

// BankFromEntry converts a registry entry into bank policy.
func BankFromEntry(e registry.BankEntry) models.BankConfig {
	return models.BankConfig{
		BankID:          e.ID,
		BankName:        e.DisplayName,
		BaseRate:        e.BaseRate,
		MinInterestRate: e.MinInterestRate,
		MaxLoanAmount:   e.MaxLoanAmount,
		ReputationScore: e.ReputationScore,
		RiskAppetite:    models.RiskAppetite(e.RiskAppetite),
		ESGMultiplier:   e.ESGMultiplier,
		Endpoint:        e.Endpoint,
	}
}

// StaticDiscovery serves a fixed bank list, all of which hold the bank role.
type StaticDiscovery struct {
	Banks []models.BankConfig
}

func (d StaticDiscovery) Discover(_ context.Context, role string, amount float64) ([]models.BankConfig, error) {
	if role != registry.RoleBank {
		return []models.BankConfig{}, nil
	}
	return filterEligible(d.Banks, amount), nil
}

// RegistryDiscovery reads the registry file on every call so edits made with
// registry-updater apply to the next broadcast.
type RegistryDiscovery struct {
	Path string
}

func (d RegistryDiscovery) Discover(_ context.Context, role string, amount float64) ([]models.BankConfig, error) {
	reg, err := registry.LoadRegistry(d.Path)
	if err != nil {
		return nil, fmt.Errorf("load bank registry %s: %w", d.Path, err)
	}
	entries := reg.Eligible(role)
	banks := make([]models.BankConfig, 0, len(entries))
	for _, e := range entries {
		banks = append(banks, BankFromEntry(e))
	}
	return filterEligible(banks, amount), nil
}

// ElasticsearchDiscovery queries the bank registry index.
type ElasticsearchDiscovery struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchDiscovery(client *elasticsearch.Client, index string) *ElasticsearchDiscovery {
	if index == "" {
		index = "banks"
	}
	return &ElasticsearchDiscovery{client: client, index: index}
}

type bankSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source registry.BankEntry `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (d *ElasticsearchDiscovery) Discover(ctx context.Context, role string, amount float64) ([]models.BankConfig, error) {
	body, err := json.Marshal(buildBankQuery(role, amount))
	if err != nil {
		return nil, fmt.Errorf("marshal bank query: %w", err)
	}

	size := maxDiscoveredBanks
	req := esapi.SearchRequest{
		Index: []string{d.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, d.client)
	if err != nil {
		return nil, fmt.Errorf("bank search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("bank search failed: %s", res.String())
	}

	var parsed bankSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode bank search: %w", err)
	}

	banks := make([]models.BankConfig, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		if !hit.Source.Active() || !hit.Source.HasRole(role) {
			continue
		}
		banks = append(banks, BankFromEntry(hit.Source))
	}
	return filterEligible(banks, amount), nil
}

func buildBankQuery(role string, amount float64) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"roles": role}},
				},
				"must_not": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"status": registry.StatusSuspended}},
				},
				"should": []interface{}{
					map[string]interface{}{"range": map[string]interface{}{"maxLoanAmount": map[string]interface{}{"gte": amount}}},
					map[string]interface{}{"range": map[string]interface{}{"maxLoanAmount": map[string]interface{}{"lte": 0}}},
				},
				"minimum_should_match": 1,
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"reputationScore": map[string]interface{}{"order": "desc"}},
		},
	}
}
