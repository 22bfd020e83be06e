// Package config carries the run configuration: defaults in code,
// overridden by flags and the environment.
package config

import (
	"os"
	"strings"
)

// Config is the resolved run configuration.
type Config struct {
	// In is the input .epub file, directory of .epub files, or an
	// http(s) URL to download first.
	In string
	// Out is the output directory.
	Out string
	// Publisher forces a module by name instead of filename matching.
	Publisher string
	// Debug writes an uncompressed output tree instead of a .epub, to
	// aid diffing between runs.
	Debug bool
}

func Default() Config {
	return Config{In: ".", Out: "out"}
}

// ApplyEnv overlays environment toggles. EPUBNORM_DEBUG enables debug
// output unless set to 0/false.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv("EPUBNORM_DEBUG"); ok {
		c.Debug = v != "" && v != "0" && !strings.EqualFold(v, "false")
	}
}
