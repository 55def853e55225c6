// internal/workers/credit/broadcast-credit-intent/config.go
package broadcastcreditintent

import (
	"time"

	"credit-marketplace/internal/common/config"
)

// Config bounds a whole broadcast job. The per-bank window lives in the
// broadcast section and should be shorter than Timeout.
type Config struct {
	Timeout time.Duration
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	cfg := &Config{Timeout: config.GetDuration(wcfg.Timeout)}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return cfg
}
