package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrEmptyInclude indicates no source patterns were configured
	ErrEmptyInclude = errors.New("empty include patterns")

	// ErrInvalidPattern indicates a glob pattern that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrInvalidLanguage indicates an unsupported extraction language
	ErrInvalidLanguage = errors.New("invalid extraction language")

	// ErrEmptyOutputDir indicates a missing output directory
	ErrEmptyOutputDir = errors.New("empty output directory")

	// ErrEmptyDBPath indicates a missing database path
	ErrEmptyDBPath = errors.New("empty database path")

	// ErrInvalidCacheSettings indicates invalid cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")
)

// Languages lists the values accepted for extract.language.
var Languages = []string{"c", "objective-c", "c++", "objective-c++", "go", "java"}

// Validate checks that the configuration is valid and complete. Every
// problem is reported; the result matches each sentinel with errors.Is.
func Validate(cfg *Config) error {
	return errors.Join(
		validatePaths(&cfg.Paths),
		validateExtract(&cfg.Extract),
		validateOutput(&cfg.Output),
		validateStorage(&cfg.Storage),
		validateCache(&cfg.Cache),
	)
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error

	if len(cfg.Include) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one include pattern required", ErrEmptyInclude))
	}
	errs = append(errs, validatePatterns("paths.include", cfg.Include)...)
	errs = append(errs, validatePatterns("paths.ignore", cfg.Ignore)...)

	return errors.Join(errs...)
}

func validateExtract(cfg *ExtractConfig) error {
	var errs []error

	if cfg.Language != "" && !isLanguage(cfg.Language) {
		errs = append(errs, fmt.Errorf("%w: must be one of %s, got '%s'",
			ErrInvalidLanguage, strings.Join(Languages, ", "), cfg.Language))
	}
	errs = append(errs, validatePatterns("extract.system_headers", cfg.SystemHeaders)...)

	return errors.Join(errs...)
}

func validateOutput(cfg *OutputConfig) error {
	if strings.TrimSpace(cfg.Dir) == "" {
		return fmt.Errorf("%w: output.dir is required", ErrEmptyOutputDir)
	}
	return nil
}

func validateStorage(cfg *StorageConfig) error {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return fmt.Errorf("%w: storage.db_path is required", ErrEmptyDBPath)
	}
	return nil
}

func validateCache(cfg *CacheConfig) error {
	if cfg.MemoCapacity < 1 {
		return fmt.Errorf("%w: memo_capacity must be positive, got %d", ErrInvalidCacheSettings, cfg.MemoCapacity)
	}
	return nil
}

func validatePatterns(key string, patterns []string) []error {
	var errs []error
	for _, p := range patterns {
		if _, err := glob.Compile(p, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s entry '%s': %v", ErrInvalidPattern, key, p, err))
		}
	}
	return errs
}

func isLanguage(s string) bool {
	for _, l := range Languages {
		if l == s {
			return true
		}
	}
	return false
}
