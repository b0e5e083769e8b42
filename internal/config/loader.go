// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Load .env file(s) via godotenv (non-fatal if absent).
//  2. Check that APP_ENV is present at all.
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Populate BuildInfo from linker-injected variables.
//  5. Validate the struct using go-playground/validator.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig to aid debugging.
// It wraps a ConfigErrorType and an underlying error message.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// envLookup is a function type for looking up environment variables.
// It matches the signature of os.LookupEnv and allows injection for testing.
type envLookup func(key string) (string, bool)

// loaderDeps holds the injectable dependencies for the loader.
type loaderDeps struct {
	lookupEnv   envLookup
	dotenvFiles []string
}

func defaultDeps() loaderDeps {
	return loaderDeps{
		lookupEnv:   os.LookupEnv,
		dotenvFiles: []string{".env"},
	}
}

// LoadConfig loads and validates the service configuration from the process
// environment.
func LoadConfig() (*Config, error) {
	return loadConfigWithDeps(defaultDeps())
}

func loadConfigWithDeps(deps loaderDeps) (*Config, error) {
	// godotenv does NOT override variables that are already set.
	for _, f := range deps.dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigError{
				Type:    ErrParsing,
				Message: fmt.Sprintf("failed to read dotenv file %s", f),
				Err:     err,
			}
		}
	}

	if _, ok := deps.lookupEnv("APP_ENV"); !ok {
		return nil, &ConfigError{
			Type:    ErrMissingEnv,
			Message: "APP_ENV is not set",
		}
	}

	// The empty prefix means envconfig uses the exact tag values.
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.Build = NewBuildInfo()
	cfg.Catalog.UserAgent = cfg.Build.UserAgent()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    validationErrorType(err),
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	return &cfg, nil
}

// validationErrorType reports ErrMissingEnv when every failure is a missing
// required value, and ErrValidation otherwise.
func validationErrorType(err error) ConfigErrorType {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return ErrValidation
	}
	for _, fe := range verrs {
		if !strings.HasPrefix(fe.Tag(), "required") {
			return ErrValidation
		}
	}
	return ErrMissingEnv
}
