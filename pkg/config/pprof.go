package config

import (
	"fmt"
	"strings"
)

// PProfConfig controls the optional profiling listener. It binds its
// own address so the profiling surface never shares a port with the
// public API.
type PProfConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

func (c *PProfConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- PProf ---\n")
	fmt.Fprintf(&b, "  enabled: %t\n", c.Enabled)
	fmt.Fprintf(&b, "  address: %s\n", c.Addr)
	return b.String()
}

func (c *PProfConfig) Validate() error {
	if c.Enabled && c.Addr == "" {
		return fmt.Errorf("pprof: enabled without a listen address")
	}
	return nil
}
