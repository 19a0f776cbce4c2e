package config

import (
	"fmt"
	"time"
)

// IdP locates the identity provider tokens are verified against.
// MinInterval throttles JWKS refreshes triggered by unknown key IDs.
type IdP struct {
	JwksURL     string        `koanf:"jwksurl"`
	Issuer      string        `koanf:"issuer"`
	ClientID    string        `koanf:"clientid"`
	MinInterval time.Duration `koanf:"mininterval"`
}

func (c *IdP) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"jwksurl", c.JwksURL},
		{"issuer", c.Issuer},
		{"clientid", c.ClientID},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("idp: %s must be set", f.name)
		}
	}
	if c.MinInterval <= 0 {
		return fmt.Errorf("idp: jwks refresh interval must be positive, got %v", c.MinInterval)
	}
	return nil
}
