// Package main implements the accesskey CLI for LaborCurve operators.
//
// It generates the shared API access key (or takes one from --key), hashes
// it with bcrypt and stores the hash where the API loads it from: a secret
// file referenced by ACCESS_KEY_HASH_FILE, a .env file, or stdout.
//
// Usage:
//
//	go run ./cmd/ops/accesskey
//	go run ./cmd/ops/accesskey --secret-file=/run/secrets/access_key_hash
//	go run ./cmd/ops/accesskey --key=existing-key --export-env=.env
//
// A generated key is printed once and never stored; only the hash is.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// keyByteLength is the entropy of a generated key; hex doubles it to 64
// characters, below bcrypt's 72-byte input limit.
const keyByteLength = 32

// envKey is the variable the API reads the hash from.
const envKey = "ACCESS_KEY_HASH"

type options struct {
	key        string
	cost       int
	secretFile string
	exportEnv  string
}

func main() {
	var opts options
	flag.StringVar(&opts.key, "key", "", "Use this key instead of generating one")
	flag.IntVar(&opts.cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	flag.StringVar(&opts.secretFile, "secret-file", "", "Write the hash to this file (for ACCESS_KEY_HASH_FILE)")
	flag.StringVar(&opts.exportEnv, "export-env", "", "Set ACCESS_KEY_HASH in this .env file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "LaborCurve access key tool\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  accesskey [--key=KEY] [--cost=N] [--secret-file=PATH] [--export-env=PATH]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, out io.Writer) error {
	key := opts.key
	generated := false
	if key == "" {
		var err error
		if key, err = GenerateAccessKey(); err != nil {
			return err
		}
		generated = true
	}

	hash, err := HashAccessKey(key, opts.cost)
	if err != nil {
		return err
	}

	if generated {
		fmt.Fprintf(out, "access key (shown once): %s\n", key)
	}

	switch {
	case opts.secretFile != "":
		if err := WriteSecretFile(opts.secretFile, hash); err != nil {
			return err
		}
		fmt.Fprintf(out, "hash written to %s\n", opts.secretFile)
	case opts.exportEnv != "":
		if err := ExportEnv(opts.exportEnv, hash); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s set in %s\n", envKey, opts.exportEnv)
	default:
		fmt.Fprintf(out, "%s=%s\n", envKey, hash)
	}
	return nil
}

// GenerateAccessKey returns 32 random bytes, hex encoded.
func GenerateAccessKey() (string, error) {
	buf := make([]byte, keyByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating access key: crypto/rand failed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashAccessKey bcrypt-hashes key at cost.
func HashAccessKey(key string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return "", fmt.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if len(key) > 72 {
		return "", errors.New("access key must be at most 72 bytes")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", fmt.Errorf("hashing access key: %w", err)
	}
	return string(hash), nil
}

// WriteSecretFile writes hash with owner-only permissions.
func WriteSecretFile(path, hash string) error {
	if err := os.WriteFile(path, []byte(hash+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing secret file: %w", err)
	}
	return nil
}

// ExportEnv sets ACCESS_KEY_HASH in the .env file at path, keeping every
// other variable. The file is created when missing.
func ExportEnv(path, hash string) error {
	env := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		existing, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		env = existing
	}
	env[envKey] = hash
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
