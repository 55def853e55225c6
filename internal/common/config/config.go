// internal/common/config/config.go
package config

import (
	"fmt"
	"net/url"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Marketplace   MarketplaceConfig       `mapstructure:"marketplace"`
	Broadcast     BroadcastConfig         `mapstructure:"broadcast"`
	APIs          APIsConfig              `mapstructure:"apis"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// GetDSN returns the lib/pq keyword connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// GetURL returns the postgres:// form expected by golang-migrate.
func (p PostgresConfig) GetURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     "/" + p.Database,
		RawQuery: "sslmode=" + p.SSLMode,
	}
	return u.String()
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"`
	BankIndex  string   `mapstructure:"bank_index"`
}

// GetURL returns the URL field or the first address.
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	IntentTTL int    `mapstructure:"intent_ttl"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// --- Marketplace ---

// BankConfig is the static per-bank configuration as it appears in YAML.
type BankConfig struct {
	BankID          string  `mapstructure:"bank_id"`
	BankName        string  `mapstructure:"bank_name"`
	BaseRate        float64 `mapstructure:"base_rate"`
	MinInterestRate float64 `mapstructure:"min_interest_rate"`
	MaxLoanAmount   float64 `mapstructure:"max_loan_amount"`
	ReputationScore int     `mapstructure:"reputation_score"`
	RiskAppetite    string  `mapstructure:"risk_appetite"`
	ESGMultiplier   float64 `mapstructure:"esg_multiplier"`
	Endpoint        string  `mapstructure:"endpoint"`
}

const (
	DiscoveryStatic        = "static"
	DiscoveryRegistryFile  = "registry_file"
	DiscoveryElasticsearch = "elasticsearch"

	ScoringIntentAware    = "intent_aware"
	ScoringIntentAgnostic = "intent_agnostic"

	RiskEngineTable      = "table"
	RiskEngineDataDriven = "data_driven"
)

type MarketplaceConfig struct {
	Banks               []BankConfig `mapstructure:"banks"`
	RegistryPath        string       `mapstructure:"registry_path"`
	DiscoverySource     string       `mapstructure:"discovery_source"`
	ScoringMode         string       `mapstructure:"scoring_mode"`
	RiskEngine          string       `mapstructure:"risk_engine"`
	OfferValidityDays   int          `mapstructure:"offer_validity_days"`
	ProcessingFeeRate   float64      `mapstructure:"processing_fee_rate"`
	CollateralThreshold float64      `mapstructure:"collateral_threshold"`
	NarrativeReasoning  bool         `mapstructure:"narrative_reasoning"`
}

// Bank looks up a configured bank by id.
func (m MarketplaceConfig) Bank(bankID string) (BankConfig, bool) {
	for _, b := range m.Banks {
		if b.BankID == bankID {
			return b, true
		}
	}
	return BankConfig{}, false
}

type BroadcastConfig struct {
	Timeout        int `mapstructure:"timeout"` // milliseconds, per bank
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

// ServiceEndpoint describes one outbound HTTP collaborator.
type ServiceEndpoint struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// IdentityConfig points at the Keycloak realm companies are registered in.
// An empty BaseURL keeps the basic in-process identity check.
type IdentityConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	Realm        string `mapstructure:"realm"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Timeout      int    `mapstructure:"timeout"` // milliseconds
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	GenAI struct {
		BaseURL     string  `mapstructure:"base_url"`
		APIKey      string  `mapstructure:"api_key"`
		Timeout     int     `mapstructure:"timeout"` // milliseconds
		MaxRetries  int     `mapstructure:"max_retries"`
		MaxTokens   int     `mapstructure:"max_tokens"`
		Temperature float64 `mapstructure:"temperature"`
	} `mapstructure:"genai"`

	CreditBureau ServiceEndpoint `mapstructure:"credit_bureau"`
	ESGRegulator ServiceEndpoint `mapstructure:"esg_regulator"`
	MarketData   ServiceEndpoint `mapstructure:"market_data"`

	ProviderCacheTTL int `mapstructure:"provider_cache_ttl"` // milliseconds

	Identity IdentityConfig `mapstructure:"identity"`
}

// NotificationConfig holds settings for the offers-ready notifier.
type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	SES struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"ses"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
