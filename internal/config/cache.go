package config

import (
	"fmt"
	"time"
)

// CacheConfig configures execution-plan memoization.
// L1 is the in-process otter cache, L2 is Redis shared by all replicas.
type CacheConfig struct {
	Enabled bool `envconfig:"ENABLED" default:"true"`

	L1Capacity int           `envconfig:"L1_CAPACITY" default:"10000" validate:"min=1"`
	L1TTL      time.Duration `envconfig:"L1_TTL" default:"5m" validate:"gt=0"`

	L2TTL    time.Duration `envconfig:"L2_TTL" default:"1h" validate:"gt=0"`
	L2Prefix string        `envconfig:"L2_PREFIX" default:"mimir:plan:"`

	// MetricsInterval is how often L1 statistics are exported.
	MetricsInterval time.Duration `envconfig:"METRICS_INTERVAL" default:"15s" validate:"gt=0"`
}

// Validate checks CacheConfig fields that struct tags cannot express.
func (c *CacheConfig) Validate() error {
	if c.L1TTL > c.L2TTL {
		return fmt.Errorf("cache L1 TTL (%s) cannot exceed L2 TTL (%s)", c.L1TTL, c.L2TTL)
	}
	if err := validateNoWhitespace(c.L2Prefix, "cache L2 prefix"); err != nil {
		return err
	}
	return nil
}
