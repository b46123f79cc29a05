package config

import (
	"fmt"
	"time"
)

// SyncerConfig contains configuration for the registry syncer.
// The syncer reloads custom strategy definitions and context fields from
// PostgreSQL on a fixed interval and whenever a change is announced on the
// Redis channel.
type SyncerConfig struct {
	Enabled         bool          `envconfig:"ENABLED" default:"true"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"30s" validate:"gt=0"`
	Channel         string        `envconfig:"CHANNEL" default:"mimir:registry:changes"`
	MaxRetries      int           `envconfig:"MAX_RETRIES" default:"3" validate:"min=0"`
	BaseRetryDelay  time.Duration `envconfig:"BASE_RETRY_DELAY" default:"1s"`
}

// Validate checks SyncerConfig fields that struct tags cannot express.
func (c *SyncerConfig) Validate() error {
	if c.Enabled {
		if err := validateNoWhitespace(c.Channel, "syncer channel"); err != nil {
			return err
		}
	}
	if c.BaseRetryDelay < 0 {
		return fmt.Errorf("syncer base retry delay cannot be negative")
	}
	return nil
}
