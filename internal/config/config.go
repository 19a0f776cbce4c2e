// Package config aggregates the marketplace server configuration.
package config

import (
	"fmt"
	"net/url"
	"strings"

	pkgconfig "github.com/vendhub/marketplace/pkg/config"
)

// Config is the full configuration tree of the marketplace server.
// Values come from config.yaml overridden by MARKET_* environment
// variables.
type Config struct {
	HTTPServer pkgconfig.HTTPConfig     `koanf:"httpserver"`
	Database   pkgconfig.DatabaseConfig `koanf:"database"`
	Log        pkgconfig.LogConfig      `koanf:"log"`
	PProf      pkgconfig.PProfConfig    `koanf:"pprof"`
	Shutdown   pkgconfig.ShutdownConfig `koanf:"shutdown"`
	Retry      pkgconfig.RetryConfig    `koanf:"retry"`
	Breaker    pkgconfig.BreakerConfig  `koanf:"breaker"`
	NATS       pkgconfig.NATSConfig     `koanf:"nats"`
	IdP        pkgconfig.IdP            `koanf:"idp"`
}

// String returns a loggable representation with the database credentials
// masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("\n--- HTTP Server ---\n")
	b.WriteString(fmt.Sprintf("  port: %d\n", c.HTTPServer.Port))
	b.WriteString("\n--- Database ---\n")
	b.WriteString(fmt.Sprintf("  url: %s\n", maskURL(c.Database.URL)))
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Retry.String())
	b.WriteString(c.NATS.String())
	return b.String()
}

// Validate checks every section and returns the first failure.
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.HTTPServer,
		&c.Database,
		&c.Log,
		&c.PProf,
		&c.Shutdown,
		&c.Retry,
		&c.Breaker,
		&c.NATS,
		&c.IdP,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func maskURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	if parsed.User != nil {
		parsed.User = url.UserPassword(parsed.User.Username(), "xxxxx")
	}
	return parsed.String()
}
