// Package config loads project-level analysis settings from .modgraph.toml.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/agentpm/modgraph/pkg/errors"
	"github.com/agentpm/modgraph/pkg/graph"
	"github.com/agentpm/modgraph/pkg/ident"
)

// FileName is the per-project configuration file looked up at the scan root.
const FileName = ".modgraph.toml"

// Config is the on-disk configuration shape.
type Config struct {
	Scan  ScanConfig  `toml:"scan"`
	Cache CacheConfig `toml:"cache"`
	Store StoreConfig `toml:"store"`
}

// ScanConfig controls discovery and normalization.
type ScanConfig struct {
	Extensions []string `toml:"extensions"`
	IndexNames []string `toml:"index_names"`
	IgnoreDirs []string `toml:"ignore_dirs"`
	MaxNodes   int      `toml:"max_nodes"`
	MaxEdges   int      `toml:"max_edges"`
}

// CacheConfig controls report caching between runs.
type CacheConfig struct {
	Backend string `toml:"backend"` // "file", "redis", or "none"
	Dir     string `toml:"dir"`     // file backend location
	Addr    string `toml:"addr"`    // redis backend address
}

// StoreConfig controls run persistence.
type StoreConfig struct {
	MongoURI string `toml:"mongo_uri"`
	Database string `toml:"database"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	rules := ident.DefaultRules()
	return Config{
		Scan: ScanConfig{
			Extensions: rules.Extensions,
			IndexNames: rules.IndexNames,
		},
		Cache: CacheConfig{Backend: "file"},
		Store: StoreConfig{Database: "modgraph"},
	}
}

// Load reads a configuration file and fills unset fields with defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "reading %s", path)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parsing %s", path)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDir loads FileName from root if present and returns defaults otherwise.
func LoadDir(root string) (Config, error) {
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "checking %s", path)
	}
	return Load(path)
}

func (c Config) validate() error {
	if c.Scan.MaxNodes < 0 || c.Scan.MaxEdges < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "limits must be non-negative")
	}
	switch c.Cache.Backend {
	case "", "file", "redis", "none":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.Addr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "redis cache backend requires addr")
	}
	return nil
}

// Rules returns the identity normalization rules the config describes.
func (c Config) Rules() ident.Rules {
	rules := ident.DefaultRules()
	if len(c.Scan.Extensions) > 0 {
		rules.Extensions = c.Scan.Extensions
	}
	if len(c.Scan.IndexNames) > 0 {
		rules.IndexNames = c.Scan.IndexNames
	}
	return rules
}

// Limits returns the graph build ceilings. Zero values mean unlimited.
func (c Config) Limits() graph.Limits {
	return graph.Limits{MaxNodes: c.Scan.MaxNodes, MaxEdges: c.Scan.MaxEdges}
}
