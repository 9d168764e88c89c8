package config

// DefaultMemoCapacity is the number of single-symbol documents kept per library.
const DefaultMemoCapacity = 1024

// Config represents the complete apigraph configuration.
// It can be loaded from .apigraph/config.yml with environment variable overrides.
type Config struct {
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
}

// PathsConfig defines which source files to extract from and which to ignore.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for source files
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to ignore
}

// ExtractConfig controls what extraction considers part of the API.
type ExtractConfig struct {
	Target         string   `yaml:"target" mapstructure:"target"`                   // target triple recorded in symbol graphs
	Language       string   `yaml:"language" mapstructure:"language"`               // restrict to one language; empty means all
	SystemHeaders  []string `yaml:"system_headers" mapstructure:"system_headers"`   // glob patterns for system header locations
	IncludePrivate bool     `yaml:"include_private" mapstructure:"include_private"` // keep hidden and internal declarations
}

// OutputConfig controls where symbol graphs are written.
type OutputConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Pretty bool   `yaml:"pretty" mapstructure:"pretty"`
}

// StorageConfig locates the SQLite database used by export.
type StorageConfig struct {
	DBPath string `yaml:"db_path" mapstructure:"db_path"`
}

// CacheConfig sizes the single-symbol document memo.
type CacheConfig struct {
	MemoCapacity int `yaml:"memo_capacity" mapstructure:"memo_capacity"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Include: []string{
				"**/*.go",
				"**/*.c",
				"**/*.h",
				"**/*.java",
			},
			Ignore: []string{
				".git/**",
				".apigraph/**",
				"vendor/**",
				"node_modules/**",
				"build/**",
				"target/**",
				"testdata/**",
				"**/*_test.go",
			},
		},
		Extract: ExtractConfig{
			SystemHeaders: []string{
				"/usr/include/**",
				"/usr/local/include/**",
				"/Library/Developer/**",
				"/Applications/Xcode.app/**",
			},
		},
		Output: OutputConfig{
			Dir:    ".apigraph/symbols",
			Pretty: true,
		},
		Storage: StorageConfig{
			DBPath: ".apigraph/apigraph.db",
		},
		Cache: CacheConfig{
			MemoCapacity: DefaultMemoCapacity,
		},
	}
}

// SourceExtensions extracts unique file extensions from the include patterns.
// Returns extensions with leading dot (e.g., []string{".go", ".h"}) in pattern order.
func (c *Config) SourceExtensions() []string {
	seen := make(map[string]bool)
	var extensions []string
	for _, pattern := range c.Paths.Include {
		if ext := extractExtension(pattern); ext != "" && !seen[ext] {
			seen[ext] = true
			extensions = append(extensions, ext)
		}
	}
	return extensions
}

// extractExtension extracts the file extension from a glob pattern.
// Returns empty string if pattern doesn't match a simple extension pattern.
// Examples: "**/*.go" -> ".go", "*.h" -> ".h"
func extractExtension(pattern string) string {
	for i := len(pattern) - 1; i >= 1; i-- {
		if pattern[i] == '.' && pattern[i-1] == '*' {
			return pattern[i:]
		}
	}
	return ""
}
