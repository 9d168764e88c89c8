package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "APIGRAPH"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
	file    string
}

// NewLoader creates a new configuration loader for the given root directory.
// The config file is looked up in <rootDir>/.apigraph.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// NewFileLoader creates a loader for an explicit config file. Unlike
// NewLoader, a missing file is an error.
func NewFileLoader(path string) Loader {
	return &loader{
		file: path,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (APIGRAPH_*)
// 2. Config file (.apigraph/config.yml or .apigraph/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.file != "" {
		v.SetConfigFile(l.file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, ".apigraph"))
	}

	// Replace . with _ in env var names (e.g., APIGRAPH_OUTPUT_DIR)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("extract.target")
	v.BindEnv("extract.language")
	v.BindEnv("extract.include_private")

	v.BindEnv("output.dir")
	v.BindEnv("output.pretty")

	v.BindEnv("storage.db_path")

	v.BindEnv("cache.memo_capacity")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		var notFound viper.ConfigFileNotFoundError
		if l.file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("paths.include", defaults.Paths.Include)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)

	v.SetDefault("extract.target", defaults.Extract.Target)
	v.SetDefault("extract.language", defaults.Extract.Language)
	v.SetDefault("extract.system_headers", defaults.Extract.SystemHeaders)
	v.SetDefault("extract.include_private", defaults.Extract.IncludePrivate)

	v.SetDefault("output.dir", defaults.Output.Dir)
	v.SetDefault("output.pretty", defaults.Output.Pretty)

	v.SetDefault("storage.db_path", defaults.Storage.DBPath)

	v.SetDefault("cache.memo_capacity", defaults.Cache.MemoCapacity)
}
