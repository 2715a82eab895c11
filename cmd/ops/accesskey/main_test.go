package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerateAccessKey(t *testing.T) {
	a, err := GenerateAccessKey()
	if err != nil {
		t.Fatal(err)
	}
	b, err := GenerateAccessKey()
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64", len(a))
	}
	if a == b {
		t.Error("two generated keys are identical")
	}
}

func TestHashAccessKey(t *testing.T) {
	hash, err := HashAccessKey("ward-7-key", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("ward-7-key")); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}

	if _, err := HashAccessKey("k", 99); err == nil {
		t.Error("expected error for out-of-range cost")
	}
	if _, err := HashAccessKey(strings.Repeat("x", 73), bcrypt.MinCost); err == nil {
		t.Error("expected error for over-long key")
	}
}

func TestExportEnvKeepsOtherVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("APP_ENV=local\nACCESS_KEY_HASH=old\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := ExportEnv(path, "new-hash"); err != nil {
		t.Fatalf("ExportEnv: %v", err)
	}

	env, err := godotenv.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if env["APP_ENV"] != "local" {
		t.Errorf("APP_ENV = %q, want local", env["APP_ENV"])
	}
	if env[envKey] != "new-hash" {
		t.Errorf("%s = %q, want new-hash", envKey, env[envKey])
	}
}

func TestExportEnvCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := ExportEnv(path, "h"); err != nil {
		t.Fatalf("ExportEnv: %v", err)
	}
	env, err := godotenv.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if env[envKey] != "h" {
		t.Errorf("%s = %q", envKey, env[envKey])
	}
}

func TestRun(t *testing.T) {
	t.Run("generated key to stdout", func(t *testing.T) {
		var out bytes.Buffer
		if err := run(options{cost: bcrypt.MinCost}, &out); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out.String(), "access key (shown once):") {
			t.Errorf("output missing generated key: %q", out.String())
		}
		if !strings.Contains(out.String(), envKey+"=$2a$") {
			t.Errorf("output missing hash: %q", out.String())
		}
	})

	t.Run("given key to secret file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hash")
		var out bytes.Buffer
		if err := run(options{key: "ward-7-key", cost: bcrypt.MinCost, secretFile: path}, &out); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(out.String(), "ward-7-key") {
			t.Error("a supplied key must not be echoed")
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		hash := strings.TrimSpace(string(raw))
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("ward-7-key")); err != nil {
			t.Errorf("stored hash does not verify: %v", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("mode = %v, want 0600", info.Mode().Perm())
		}
	})
}
