package config

import "context"

// SecretProvider resolves secret references to plaintext. The file provider
// reads mounted secret files; the env provider reads environment variables
// and is used in tests and local development.
type SecretProvider interface {
	// GetParametersBatch returns plaintext for every key it can resolve.
	// Missing keys are omitted rather than reported as errors.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
