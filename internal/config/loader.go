package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// secretRefSuffix marks a variable whose value is a secret reference rather
// than the secret itself. DATABASE_URL_FILE resolves into DATABASE_URL.
const secretRefSuffix = "_FILE"

// secretTargets are the variables that may be supplied by reference.
var secretTargets = []string{"DATABASE_URL", "ACCESS_KEY_HASH"}

const localEnv = "local"

type loaderDeps struct {
	lookupEnv func(key string) (string, bool)
	setEnv    func(key, value string) error
}

func defaultDeps() loaderDeps {
	return loaderDeps{
		lookupEnv: os.LookupEnv,
		setEnv:    os.Setenv,
	}
}

// LoadConfig loads and validates configuration:
//  1. sets the process timezone to UTC
//  2. loads .env if present
//  3. resolves *_FILE secret references through provider
//  4. populates Config from envconfig tags and build metadata
//  5. validates struct tags and cross-field rules
//
// provider may be nil when no *_FILE references are set.
func LoadConfig(provider SecretProvider) (*Config, error) {
	return loadConfigWithDeps(provider, defaultDeps())
}

func loadConfigWithDeps(provider SecretProvider, deps loaderDeps) (*Config, error) {
	time.Local = time.UTC

	// Does not override variables already in the environment.
	_ = godotenv.Load()

	if err := resolveSecretRefs(provider, deps); err != nil {
		return nil, err
	}

	if _, ok := deps.lookupEnv("APP_ENV"); !ok {
		return nil, &ConfigError{Type: ErrMissingEnv, Message: "APP_ENV is not set"}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.Build = NewBuildInfo()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	if cfg.Environment != localEnv && !cfg.Security.AccessKeyHash.IsSet() {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "ACCESS_KEY_HASH is required outside local",
		}
	}
	if _, err := time.LoadLocation(cfg.Bundle.DisplayTimezone); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "DISPLAY_TIMEZONE is not a known time zone",
			Err:     err,
		}
	}

	return &cfg, nil
}

// DisplayLocation returns the configured summary time zone.
func (c *Config) DisplayLocation() *time.Location {
	loc, err := time.LoadLocation(c.Bundle.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// resolveSecretRefs resolves <TARGET>_FILE references through the provider
// and injects the plaintext as <TARGET>. A target that is already set
// directly wins over its reference.
func resolveSecretRefs(provider SecretProvider, deps loaderDeps) error {
	refToTarget := make(map[string]string)
	var refs []string

	for _, target := range secretTargets {
		ref, ok := deps.lookupEnv(target + secretRefSuffix)
		if !ok || ref == "" {
			continue
		}
		if _, exists := deps.lookupEnv(target); exists {
			continue
		}
		refToTarget[ref] = target
		refs = append(refs, ref)
	}

	if len(refs) == 0 {
		return nil
	}
	if provider == nil {
		return &ConfigError{
			Type:    ErrSecretResolution,
			Message: fmt.Sprintf("SecretProvider is required to resolve %d secret references", len(refs)),
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resolved, err := provider.GetParametersBatch(ctx, refs)
	if err != nil {
		return &ConfigError{
			Type:    ErrSecretResolution,
			Message: fmt.Sprintf("failed to resolve %d secret references", len(refs)),
			Err:     err,
		}
	}

	var missing []string
	for _, ref := range refs {
		value, ok := resolved[ref]
		if !ok {
			missing = append(missing, refToTarget[ref])
			continue
		}
		if err := deps.setEnv(refToTarget[ref], value); err != nil {
			return &ConfigError{
				Type:    ErrSecretResolution,
				Message: fmt.Sprintf("failed to set resolved value for %s", refToTarget[ref]),
				Err:     err,
			}
		}
	}
	if len(missing) > 0 {
		return &ConfigError{
			Type:    ErrSecretResolution,
			Message: fmt.Sprintf("secret references not found for: %s", strings.Join(missing, ", ")),
		}
	}
	return nil
}
