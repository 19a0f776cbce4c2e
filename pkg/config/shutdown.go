package config

import (
	"fmt"
	"strings"
	"time"
)

// ShutdownConfig bounds how long a terminating process waits for
// in-flight requests before the listener is torn down.
type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

func (c *ShutdownConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Shutdown ---\n")
	fmt.Fprintf(&b, "  timeout: %s\n", c.Timeout)
	return b.String()
}

func (c *ShutdownConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("shutdown: grace period must be positive, got %v", c.Timeout)
	}
	return nil
}
