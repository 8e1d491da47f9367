package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Limits checked by validation.
const (
	minChunkSize   = 512
	minTreeDegree  = 2
	maxInitialSize = 1 << 40
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig validates the configuration and returns a list of validation errors.
// An empty slice indicates the configuration is valid.
func ValidateConfig(config *Config) []error {
	var errs []error

	errs = append(errs, validateStorageConfig(&config.Storage)...)
	errs = append(errs, validateLogConfig(&config.Logging)...)

	return errs
}

// validateStorageConfig validates storage configuration.
func validateStorageConfig(config *StorageConfig) []error {
	var errs []error

	if config.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "storage.path",
			Message: "database path is required",
		})
	}

	if n, err := config.ChunkSizeBytes(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "storage.chunkSize",
			Message: err.Error(),
		})
	} else if n != 0 && (n < minChunkSize || n%8 != 0) {
		errs = append(errs, ValidationError{
			Field:   "storage.chunkSize",
			Message: fmt.Sprintf("must be a multiple of 8 and at least %d bytes", minChunkSize),
		})
	}

	if n, err := config.InitialSizeBytes(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "storage.initialSize",
			Message: err.Error(),
		})
	} else if n > maxInitialSize {
		errs = append(errs, ValidationError{
			Field:   "storage.initialSize",
			Message: "must not exceed 1TiB",
		})
	}

	if config.TreeDegree != 0 && config.TreeDegree < minTreeDegree {
		errs = append(errs, ValidationError{
			Field:   "storage.treeDegree",
			Message: fmt.Sprintf("must be at least %d", minTreeDegree),
		})
	}

	if config.IDCacheSize < 0 {
		errs = append(errs, ValidationError{
			Field:   "storage.idCacheSize",
			Message: "must be non-negative",
		})
	}

	return errs
}

// validateLogConfig validates logging configuration.
func validateLogConfig(config *LogConfig) []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if config.Level != "" && !validLevels[strings.ToLower(config.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be debug, info, warn, or error",
		})
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if config.Format != "" && !validFormats[strings.ToLower(config.Format)] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be text or json",
		})
	}

	if config.Output != "" && config.Output != "stdout" && config.Output != "stderr" {
		dir := filepath.Dir(config.Output)
		if !filepath.IsAbs(config.Output) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: "must be stdout, stderr, or an absolute file path",
			})
		} else if _, err := os.Stat(dir); os.IsNotExist(err) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: fmt.Sprintf("directory %s does not exist", dir),
			})
		}
	}

	return errs
}
