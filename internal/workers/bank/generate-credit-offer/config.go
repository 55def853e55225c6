// internal/workers/bank/generate-credit-offer/config.go
package generatecreditoffer

import (
	"time"

	"credit-marketplace/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	cfg := &Config{Timeout: config.GetDuration(wcfg.Timeout)}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 40 * time.Second
	}
	return cfg
}
