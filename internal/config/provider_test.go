package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

var (
	_ SecretProvider = (*EnvVarProvider)(nil)
	_ SecretProvider = (*FileProvider)(nil)
)

func TestEnvVarProviderOmitsMissingVariables(t *testing.T) {
	t.Setenv("LC_TEST_PRESENT", "value")
	t.Setenv("LC_TEST_EMPTY", "")

	got, err := NewEnvVarProvider().GetParametersBatch(context.Background(),
		[]string{"LC_TEST_PRESENT", "LC_TEST_EMPTY", "LC_TEST_DEFINITELY_MISSING"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (%v)", len(got), got)
	}
	if got["LC_TEST_PRESENT"] != "value" {
		t.Errorf("LC_TEST_PRESENT = %q", got["LC_TEST_PRESENT"])
	}
	if v, ok := got["LC_TEST_EMPTY"]; !ok || v != "" {
		t.Errorf("empty variable should be present with empty value")
	}
}

func TestFileProviderReadsAndTrims(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "database_url")
	if err := os.WriteFile(path, []byte("postgres://u:p@db:5432/lc\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := NewFileProvider().GetParametersBatch(context.Background(),
		[]string{path, filepath.Join(dir, "missing")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[path] != "postgres://u:p@db:5432/lc" {
		t.Errorf("value = %q", got[path])
	}
}

func TestFileProviderReadError(t *testing.T) {
	p := &FileProvider{readFile: func(string) ([]byte, error) {
		return nil, fs.ErrPermission
	}}

	_, err := p.GetParametersBatch(context.Background(), []string{"/run/secrets/x"})
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("err = %v, want ErrPermission", err)
	}
}

func TestFileProviderContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileProvider().GetParametersBatch(ctx, []string{"/run/secrets/x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
