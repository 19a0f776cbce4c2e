package config

import (
	"fmt"
	"strings"
	"time"
)

// NATSConfig holds the broker address and the dial timeout for the
// event publisher.
type NATSConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

func (c *NATSConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- NATS ---\n")
	fmt.Fprintf(&b, "  url: %s\n", c.URL)
	fmt.Fprintf(&b, "  timeout: %s\n", c.Timeout)
	return b.String()
}

func (c *NATSConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("nats: url must be set")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("nats: dial timeout must be positive, got %v", c.Timeout)
	}
	return nil
}
