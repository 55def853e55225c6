package marketplace

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-marketplace/internal/broadcast"
	"credit-marketplace/internal/common/config"
	"credit-marketplace/internal/common/logger"
	"credit-marketplace/internal/models"
	"credit-marketplace/internal/offer"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Marketplace.Banks = config.DefaultBanks()
	cfg.Database.Elasticsearch.BankIndex = "bank-registry"
	return cfg
}

func TestNewNarrator(t *testing.T) {
	cfg := testConfig()
	assert.Nil(t, NewNarrator(cfg, logger.NewNoOpLogger()))

	cfg.APIs.GenAI.BaseURL = "http://genai.local"
	cfg.APIs.GenAI.Timeout = 2000
	assert.NotNil(t, NewNarrator(cfg, logger.NewNoOpLogger()))
}

func TestNewProviders(t *testing.T) {
	cfg := testConfig()
	p := NewProviders(cfg, nil, logger.NewNoOpLogger())
	assert.Nil(t, p.CreditBureau)
	assert.Nil(t, p.ESGRegulator)
	assert.Nil(t, p.MarketData)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg.APIs.CreditBureau.BaseURL = "http://bureau.local"
	cfg.APIs.MarketData.BaseURL = "http://market.local"
	cfg.APIs.ProviderCacheTTL = int((15 * time.Minute).Milliseconds())
	p = NewProviders(cfg, rdb, logger.NewNoOpLogger())
	assert.NotNil(t, p.CreditBureau)
	assert.Nil(t, p.ESGRegulator)
	assert.NotNil(t, p.MarketData)
}

func TestNewGenerators(t *testing.T) {
	cfg := testConfig()
	cfg.Marketplace.RiskEngine = config.RiskEngineDataDriven

	generators, err := NewGenerators(cfg, nil, Providers{}, nil, logger.NewNoOpLogger())
	require.NoError(t, err)
	require.Len(t, generators, len(cfg.Marketplace.Banks))

	ids := make([]string, 0, len(generators))
	for _, g := range generators {
		ids = append(ids, g.Bank().BankID)
	}
	assert.Equal(t, []string{"BANK_A", "BANK_B", "BANK_C"}, ids)

	cfg.Marketplace.RiskEngine = "astrology"
	_, err = NewGenerators(cfg, nil, Providers{}, nil, logger.NewNoOpLogger())
	assert.Error(t, err)
}

func TestNewVerifier(t *testing.T) {
	cfg := testConfig()
	assert.IsType(t, offer.BasicVerifier{}, NewVerifier(cfg))

	cfg.APIs.Identity = config.IdentityConfig{
		BaseURL:  "http://keycloak.local",
		Realm:    "marketplace",
		ClientID: "credit-marketplace",
	}
	assert.IsType(t, offer.DirectoryVerifier{}, NewVerifier(cfg))
}

func TestNewDiscovery(t *testing.T) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{"http://localhost:9200"}})
	require.NoError(t, err)

	tests := []struct {
		name    string
		source  string
		path    string
		es      *elasticsearch.Client
		want    interface{}
		wantErr bool
	}{
		{name: "default is static", source: "", want: broadcast.StaticDiscovery{}},
		{name: "static", source: config.DiscoveryStatic, want: broadcast.StaticDiscovery{}},
		{name: "registry file", source: config.DiscoveryRegistryFile, path: "configs/banks.json", want: broadcast.RegistryDiscovery{}},
		{name: "registry file without path", source: config.DiscoveryRegistryFile, wantErr: true},
		{name: "elasticsearch", source: config.DiscoveryElasticsearch, es: es, want: &broadcast.ElasticsearchDiscovery{}},
		{name: "elasticsearch without client", source: config.DiscoveryElasticsearch, wantErr: true},
		{name: "unknown", source: "carrier-pigeon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Marketplace.DiscoverySource = tt.source
			cfg.Marketplace.RegistryPath = tt.path

			d, err := NewDiscovery(cfg, tt.es)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, d)
		})
	}
}

func TestNewDiscovery_StaticBanks(t *testing.T) {
	d, err := NewDiscovery(testConfig(), nil)
	require.NoError(t, err)
	static, ok := d.(broadcast.StaticDiscovery)
	require.True(t, ok)
	assert.Len(t, static.Banks, 3)
}

func TestNewEvaluator(t *testing.T) {
	cfg := testConfig()

	e, err := NewEvaluator(cfg, nil, nil, logger.NewNoOpLogger())
	require.NoError(t, err)
	assert.Equal(t, models.ScoringIntentAware, e.Mode())

	cfg.Marketplace.ScoringMode = config.ScoringIntentAgnostic
	e, err = NewEvaluator(cfg, nil, nil, logger.NewNoOpLogger())
	require.NoError(t, err)
	assert.Equal(t, models.ScoringIntentAgnostic, e.Mode())

	cfg.Marketplace.ScoringMode = "vibes"
	_, err = NewEvaluator(cfg, nil, nil, logger.NewNoOpLogger())
	assert.Error(t, err)
}
