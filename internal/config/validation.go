package config

import (
	"fmt"
	"os"
	"strings"

	asseterrors "github.com/conneroisu/assetmin/internal/errors"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// Err converts the first validation error into a structured config error.
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	first := vr.Errors[0]

	return asseterrors.ErrInvalidConfig(first.Field, first.Message).
		WithContext("value", first.Value).
		WithContext("errors", len(vr.Errors))
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	for _, err := range vr.Errors {
		builder.WriteString(fmt.Sprintf("error: %s: %s\n", err.Field, err.Message))
		for _, suggestion := range err.Suggestions {
			builder.WriteString(fmt.Sprintf("  hint: %s\n", suggestion))
		}
	}

	for _, warning := range vr.Warnings {
		builder.WriteString(fmt.Sprintf("warning: %s: %s\n", warning.Field, warning.Message))
		for _, suggestion := range warning.Suggestions {
			builder.WriteString(fmt.Sprintf("  hint: %s\n", suggestion))
		}
	}

	return builder.String()
}

var knownAlgorithms = map[string]int{
	"md5":    32,
	"sha256": 64,
	"crc32":  8,
}

// Validate checks the configuration for values the engine cannot work with.
func Validate(config *Config) *ValidationResult {
	result := &ValidationResult{}

	validateFlags(&config.Merge, result)
	validateBuild(&config.Build, result)
	validateLog(&config.Log, result)

	return result
}

func validateFlags(f *Flags, result *ValidationResult) {
	if strings.TrimSpace(f.LeftFlag) == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "merge.left_flag",
			Value:   f.LeftFlag,
			Message: "must not be empty",
		})
	}
	if strings.TrimSpace(f.RightFlag) == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "merge.right_flag",
			Value:   f.RightFlag,
			Message: "must not be empty",
		})
	}

	digestLen, known := knownAlgorithms[strings.ToLower(f.Algorithm)]
	if !known {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "merge.algorithm",
			Value:       f.Algorithm,
			Message:     "unsupported digest algorithm",
			Suggestions: []string{"use one of md5, sha256, crc32"},
		})
	}

	switch {
	case f.HashLength < 1:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "merge.hash_length",
			Value:   f.HashLength,
			Message: "must be at least 1",
		})
	case known && f.HashLength > digestLen:
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "merge.hash_length",
			Value:   f.HashLength,
			Message: fmt.Sprintf("longer than the %d character %s digest, full digest will be used", digestLen, f.Algorithm),
		})
	}

	if !strings.Contains(f.NewPath, "{$stamp}") {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "merge.new_path",
			Value:       f.NewPath,
			Message:     "must contain the {$stamp} placeholder",
			Suggestions: []string{"example: " + DefaultNewPath},
		})
	}
	if !strings.Contains(f.NewPath, "{$base}") {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "merge.new_path",
			Value:   f.NewPath,
			Message: "has no {$base} placeholder, every bundle URL will share one name",
		})
	}

	if strings.ContainsAny(f.URLFunc, " \t\n'\"()") || f.URLFunc == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "merge.url_func",
			Value:   f.URLFunc,
			Message: "must be a bare function name",
		})
	}

	if info, err := os.Stat(f.RootPath); err != nil || !info.IsDir() {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "merge.root_path",
			Value:   f.RootPath,
			Message: "is not an existing directory",
		})
	}
}

func validateBuild(b *BuildConfig, result *ValidationResult) {
	for _, ext := range b.Extensions {
		if !strings.HasPrefix(ext, ".") {
			result.Errors = append(result.Errors, ValidationError{
				Field:       "build.extensions",
				Value:       ext,
				Message:     "extension must start with a dot",
				Suggestions: []string{"use ." + ext},
			})
		}
	}
	if b.Concurrency < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "build.concurrency",
			Value:   b.Concurrency,
			Message: "must not be negative",
		})
	}
	if b.Debounce < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "build.debounce",
			Value:   b.Debounce,
			Message: "must not be negative",
		})
	}
}

func validateLog(l *LogConfig, result *ValidationResult) {
	switch l.Format {
	case "text", "json":
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "log.format",
			Value:   l.Format,
			Message: "must be text or json",
		})
	}
}
