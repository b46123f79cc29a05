package config

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"
	"time"
)

// ControlPlaneConfig configures the REST API that manages strategy
// definitions, context fields, plans and the playground.
type ControlPlaneConfig struct {
	Port              string        `envconfig:"PORT" default:"8080"`
	Host              string        `envconfig:"HOST" default:"0.0.0.0"`
	ReadTimeout       time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout      time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	IdleTimeout       time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes    int           `envconfig:"MAX_HEADER_BYTES" default:"524288" validate:"min=1"`

	// APIKeyHash is the hex SHA-256 of the operator key. Empty disables
	// authentication outside production.
	APIKeyHash string `envconfig:"API_KEY_HASH"`

	TLSEnabled bool   `envconfig:"TLS_ENABLED" default:"false"`
	TLSCert    string `envconfig:"TLS_CERT_FILE"`
	TLSKey     string `envconfig:"TLS_KEY_FILE"`
}

// Addr is the listen address of the REST API.
func (c *ControlPlaneConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// AuthEnabled reports whether requests must present an API key.
func (c *ControlPlaneConfig) AuthEnabled() bool {
	return c.KeyHash() != ""
}

// KeyHash returns the configured hash trimmed and lowercased, the form the
// API compares digests in.
func (c *ControlPlaneConfig) KeyHash() string {
	return strings.ToLower(strings.TrimSpace(c.APIKeyHash))
}

// Validate checks listener settings and the production security posture.
func (c *ControlPlaneConfig) Validate(environment string) error {
	if err := validatePort(c.Port, "control plane"); err != nil {
		return err
	}
	if err := validateHost(c.Host, "control plane"); err != nil {
		return err
	}

	// A malformed hash would lock every operator out, so it is rejected in
	// every environment once set.
	if hash := c.KeyHash(); hash != "" {
		if err := validateSHA256Hash(hash); err != nil {
			return fmt.Errorf("invalid API key hash: %w", err)
		}
	}

	if environment == EnvironmentProduction {
		if !c.AuthEnabled() {
			return fmt.Errorf("API key hash is required in production environment")
		}
		if !c.TLSEnabled {
			return fmt.Errorf("TLS must be enabled in production environment")
		}
	}

	if c.TLSEnabled && (c.TLSCert == "" || c.TLSKey == "") {
		return fmt.Errorf("TLS enabled but cert or key file not specified")
	}

	return nil
}

func validateSHA256Hash(hash string) error {
	raw, err := hex.DecodeString(hash)
	if err != nil {
		return fmt.Errorf("hash must be valid hexadecimal: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("SHA-256 hash must be 64 characters, got %d", len(hash))
	}
	return nil
}
