// Package marketplace assembles the domain services from configuration. It
// is shared by the marketplace-manager and bank-agent binaries.
package marketplace

import (
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"credit-marketplace/internal/broadcast"
	"credit-marketplace/internal/common/auth"
	"credit-marketplace/internal/common/config"
	"credit-marketplace/internal/common/logger"
	"credit-marketplace/internal/common/observability"
	"credit-marketplace/internal/evaluation"
	"credit-marketplace/internal/models"
	"credit-marketplace/internal/narrative"
	"credit-marketplace/internal/offer"
	"credit-marketplace/internal/providers"
)

// NewNarrator returns nil when no GenAI endpoint is configured, which makes
// every narrative stage use its fallback.
func NewNarrator(cfg *config.Config, log logger.Logger) narrative.Narrator {
	genai := cfg.APIs.GenAI
	if genai.BaseURL == "" {
		return nil
	}
	return narrative.NewGenAIClient(&narrative.Config{
		BaseURL:     genai.BaseURL,
		APIKey:      genai.APIKey,
		Timeout:     config.GetDuration(genai.Timeout),
		MaxRetries:  genai.MaxRetries,
		MaxTokens:   genai.MaxTokens,
		Temperature: genai.Temperature,
	}, log)
}

// Providers holds the third-party data feeds. Unconfigured feeds are nil.
type Providers struct {
	CreditBureau providers.CreditBureau
	ESGRegulator providers.ESGRegulator
	MarketData   providers.MarketData
}

// NewProviders builds the HTTP feeds that have a base URL, fronted by the
// Redis response cache when rdb is not nil.
func NewProviders(cfg *config.Config, rdb *redis.Client, log logger.Logger) Providers {
	var p Providers
	var cache *providers.Cache
	if rdb != nil {
		cache = providers.NewCache(rdb, config.GetDuration(cfg.APIs.ProviderCacheTTL), log)
	}

	if cfg.APIs.CreditBureau.BaseURL != "" {
		p.CreditBureau = providers.NewHTTPCreditBureau(cfg.APIs.CreditBureau)
		if cache != nil {
			p.CreditBureau = cache.CreditBureau(p.CreditBureau)
		}
	}
	if cfg.APIs.ESGRegulator.BaseURL != "" {
		p.ESGRegulator = providers.NewHTTPESGRegulator(cfg.APIs.ESGRegulator)
		if cache != nil {
			p.ESGRegulator = cache.ESGRegulator(p.ESGRegulator)
		}
	}
	if cfg.APIs.MarketData.BaseURL != "" {
		p.MarketData = providers.NewHTTPMarketData(cfg.APIs.MarketData)
		if cache != nil {
			p.MarketData = cache.MarketData(p.MarketData)
		}
	}
	return p
}

// NewGenerators builds one offer generator per configured bank, all sharing
// the narrator, providers and risk engine. obs may be nil.
func NewGenerators(cfg *config.Config, narrator narrative.Narrator, p Providers, obs *observability.Observability, log logger.Logger) ([]*offer.Generator, error) {
	engine, err := offer.NewRiskEngine(cfg.Marketplace.RiskEngine, narrator)
	if err != nil {
		return nil, err
	}

	settings := offer.SettingsFromConfig(cfg.Marketplace)
	deps := offer.Dependencies{
		Verifier:     NewVerifier(cfg),
		Narrator:     narrator,
		CreditBureau: p.CreditBureau,
		ESGRegulator: p.ESGRegulator,
		MarketData:   p.MarketData,
		Engine:       engine,

		Observability: obs,
	}

	generators := make([]*offer.Generator, 0, len(cfg.Marketplace.Banks))
	for _, bank := range models.BanksFromConfig(cfg.Marketplace.Banks) {
		generators = append(generators, offer.NewGenerator(bank, settings, deps, log))
	}
	return generators, nil
}

// NewVerifier checks identities against the Keycloak company directory when
// one is configured.
func NewVerifier(cfg *config.Config) offer.IdentityVerifier {
	id := cfg.APIs.Identity
	if id.BaseURL == "" {
		return offer.BasicVerifier{}
	}
	return offer.DirectoryVerifier{
		Directory: auth.NewKeycloakClient(id.BaseURL, id.Realm, id.ClientID, id.ClientSecret, config.GetDuration(id.Timeout)),
	}
}

// NewDiscovery selects the bank registry named by marketplace.discovery_source.
// es is only required for the elasticsearch source.
func NewDiscovery(cfg *config.Config, es *elasticsearch.Client) (broadcast.Discovery, error) {
	switch cfg.Marketplace.DiscoverySource {
	case "", config.DiscoveryStatic:
		return broadcast.StaticDiscovery{Banks: models.BanksFromConfig(cfg.Marketplace.Banks)}, nil
	case config.DiscoveryRegistryFile:
		if cfg.Marketplace.RegistryPath == "" {
			return nil, fmt.Errorf("discovery source %q requires marketplace.registry_path", config.DiscoveryRegistryFile)
		}
		return broadcast.RegistryDiscovery{Path: cfg.Marketplace.RegistryPath}, nil
	case config.DiscoveryElasticsearch:
		if es == nil {
			return nil, fmt.Errorf("discovery source %q requires an elasticsearch client", config.DiscoveryElasticsearch)
		}
		return broadcast.NewElasticsearchDiscovery(es, cfg.Database.Elasticsearch.BankIndex), nil
	}
	return nil, fmt.Errorf("unknown discovery source %q", cfg.Marketplace.DiscoverySource)
}

// NewEvaluator builds the evaluator for marketplace.scoring_mode. The
// narrator is only used for reasoning when narrative_reasoning is set.
func NewEvaluator(cfg *config.Config, narrator narrative.Narrator, state evaluation.IntentState, log logger.Logger) (*evaluation.Evaluator, error) {
	engine, err := evaluation.NewScoringEngine(cfg.Marketplace.ScoringMode)
	if err != nil {
		return nil, err
	}
	if !cfg.Marketplace.NarrativeReasoning {
		narrator = nil
	}
	return evaluation.NewEvaluator(engine, narrator, state, log), nil
}
