package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable consulted when no --config
// flag is given.
const EnvConfigPath = "JELLYPLEX_CONFIG"

// Config carries the optional settings read from the YAML config file.
type Config struct {
	// PathMappings rewrites path prefixes before the source and target roots
	// are resolved. Keys are caller-side prefixes (e.g. a container bind
	// mount), values are the prefixes this process sees.
	PathMappings map[string]string `yaml:"path_mappings"`
}

// Default returns an empty configuration.
func Default() *Config {
	return &Config{PathMappings: map[string]string{}}
}

// Load reads the config file at path, falling back to $JELLYPLEX_CONFIG when
// path is empty. A missing file yields the default config; only an explicitly
// requested file that cannot be parsed is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	if c.PathMappings == nil {
		c.PathMappings = map[string]string{}
		return
	}
	cleaned := make(map[string]string, len(c.PathMappings))
	for from, to := range c.PathMappings {
		from = strings.TrimSpace(from)
		to = strings.TrimSpace(to)
		if from == "" {
			continue
		}
		cleaned[from] = to
	}
	c.PathMappings = cleaned
}

func (c *Config) validate() error {
	for from, to := range c.PathMappings {
		if to == "" {
			return fmt.Errorf("path_mappings: mapping for %q has empty target", from)
		}
	}
	return nil
}

// MapPath applies the longest matching path-mapping prefix to path. Paths
// without a matching prefix are returned unchanged.
func (c *Config) MapPath(path string) string {
	if len(c.PathMappings) == 0 || path == "" {
		return path
	}

	prefixes := make([]string, 0, len(c.PathMappings))
	for from := range c.PathMappings {
		prefixes = append(prefixes, from)
	}
	// Longest prefix wins so nested mappings behave predictably.
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })

	for _, from := range prefixes {
		if path == from {
			return c.PathMappings[from]
		}
		if strings.HasPrefix(path, strings.TrimRight(from, "/")+"/") {
			rest := strings.TrimPrefix(path, strings.TrimRight(from, "/"))
			return filepath.Join(c.PathMappings[from], rest)
		}
	}
	return path
}
