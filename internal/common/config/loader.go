// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml and
// applies environment overrides. Each call uses its own viper instance.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	if root := findProjectRoot(); root != "" {
		v.AddConfigPath(filepath.Join(root, "configs"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

func overrideEmptyConfig(cfg *Config) {
	if cfg.APIs.Identity.BaseURL == "" {
		cfg.APIs.Identity.BaseURL = os.Getenv("KEYCLOAK_URL")
	}
	if cfg.APIs.Identity.ClientSecret == "" {
		cfg.APIs.Identity.ClientSecret = os.Getenv("KEYCLOAK_CLIENT_SECRET")
	}
	if cfg.APIs.GenAI.APIKey == "" {
		cfg.APIs.GenAI.APIKey = os.Getenv("GENAI_API_KEY")
	}
	if cfg.Database.Postgres.User == "" {
		cfg.Database.Postgres.User = os.Getenv("DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		cfg.Database.Postgres.Password = os.Getenv("DB_PASSWORD")
	}
	if cfg.Notifications.SNS.TopicARN == "" {
		cfg.Notifications.SNS.TopicARN = os.Getenv("OFFERS_TOPIC_ARN")
	}
}

// DefaultBanks are the three reference banks used when none are configured.
func DefaultBanks() []BankConfig {
	return []BankConfig{
		{BankID: "BANK_A", BankName: "GreenTech Bank", BaseRate: 4.5, ESGMultiplier: 0.8, RiskAppetite: "conservative"},
		{BankID: "BANK_B", BankName: "EcoFinance Corp", BaseRate: 4.2, ESGMultiplier: 0.7, RiskAppetite: "moderate"},
		{BankID: "BANK_C", BankName: "Sustainable Credit Union", BaseRate: 4.8, ESGMultiplier: 0.9, RiskAppetite: "aggressive"},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "credit-marketplace"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Postgres.MigrationsPath == "" {
		cfg.Database.Postgres.MigrationsPath = "file://internal/store/migrations"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.BankIndex == "" {
		cfg.Database.Elasticsearch.BankIndex = "bank-registry"
	}
	if cfg.Database.Redis.IntentTTL == 0 {
		cfg.Database.Redis.IntentTTL = 7 * 24 * 60 * 60 * 1000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	m := &cfg.Marketplace
	if len(m.Banks) == 0 {
		m.Banks = DefaultBanks()
	}
	for i := range m.Banks {
		b := &m.Banks[i]
		if b.MinInterestRate == 0 {
			b.MinInterestRate = 1.0
		}
		if b.MaxLoanAmount == 0 {
			b.MaxLoanAmount = 100_000_000
		}
		if b.ReputationScore == 0 {
			b.ReputationScore = 5
		}
		if b.RiskAppetite == "" {
			b.RiskAppetite = "moderate"
		}
	}
	if m.DiscoverySource == "" {
		m.DiscoverySource = DiscoveryStatic
	}
	if m.ScoringMode == "" {
		m.ScoringMode = ScoringIntentAware
	}
	if m.RiskEngine == "" {
		m.RiskEngine = RiskEngineTable
	}
	if m.OfferValidityDays == 0 {
		m.OfferValidityDays = 7
	}
	if m.ProcessingFeeRate == 0 {
		m.ProcessingFeeRate = 0.001
	}
	if m.CollateralThreshold == 0 {
		m.CollateralThreshold = 1_000_000
	}

	if cfg.Broadcast.Timeout == 0 {
		cfg.Broadcast.Timeout = 30000
	}

	if cfg.APIs.GenAI.Timeout == 0 {
		cfg.APIs.GenAI.Timeout = 60000
	}
	if cfg.APIs.GenAI.MaxTokens == 0 {
		cfg.APIs.GenAI.MaxTokens = 800
	}
	if cfg.APIs.GenAI.Temperature == 0 {
		cfg.APIs.GenAI.Temperature = 0.2
	}
	for _, ep := range []*ServiceEndpoint{&cfg.APIs.CreditBureau, &cfg.APIs.ESGRegulator, &cfg.APIs.MarketData} {
		if ep.Timeout == 0 {
			ep.Timeout = 5000
		}
	}
	if cfg.APIs.ProviderCacheTTL == 0 {
		cfg.APIs.ProviderCacheTTL = 15 * 60 * 1000
	}

	if cfg.Notifications.AWS.Region == "" {
		cfg.Notifications.AWS.Region = "us-east-1"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	m := cfg.Marketplace
	switch m.DiscoverySource {
	case DiscoveryStatic:
	case DiscoveryRegistryFile:
		if m.RegistryPath == "" {
			return fmt.Errorf("marketplace.registry_path is required for discovery_source %q", m.DiscoverySource)
		}
	case DiscoveryElasticsearch:
		if cfg.Database.Elasticsearch.GetURL() == "" {
			return fmt.Errorf("database.elasticsearch.addresses or url is required for discovery_source %q", m.DiscoverySource)
		}
	default:
		return fmt.Errorf("marketplace.discovery_source %q is not supported", m.DiscoverySource)
	}

	if m.ScoringMode != ScoringIntentAware && m.ScoringMode != ScoringIntentAgnostic {
		return fmt.Errorf("marketplace.scoring_mode %q is not supported", m.ScoringMode)
	}
	if m.RiskEngine != RiskEngineTable && m.RiskEngine != RiskEngineDataDriven {
		return fmt.Errorf("marketplace.risk_engine %q is not supported", m.RiskEngine)
	}

	seen := make(map[string]bool, len(m.Banks))
	for _, b := range m.Banks {
		if b.BankID == "" {
			return fmt.Errorf("marketplace.banks: bank_id is required")
		}
		if seen[b.BankID] {
			return fmt.Errorf("marketplace.banks: duplicate bank_id %s", b.BankID)
		}
		seen[b.BankID] = true
		if b.BaseRate <= 0 || b.BaseRate > 50 {
			return fmt.Errorf("marketplace.banks[%s]: base_rate must be in (0, 50]", b.BankID)
		}
		if b.ReputationScore < 1 || b.ReputationScore > 10 {
			return fmt.Errorf("marketplace.banks[%s]: reputation_score must be in [1, 10]", b.BankID)
		}
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults.
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled.
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
