package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveUpstream(t *testing.T) {
	env := MapEnv{
		EnvUpstreamBaseURL: " https://api.example.com/ ",
		EnvUpstreamAPIKey:  "key-123",
	}

	got := ResolveUpstream(env)
	if got.BaseURL != "https://api.example.com" {
		t.Errorf("BaseURL = %q, want %q", got.BaseURL, "https://api.example.com")
	}
	if got.APIKey != "key-123" {
		t.Errorf("APIKey = %q, want %q", got.APIKey, "key-123")
	}
}

func TestValidateUpstream(t *testing.T) {
	tests := []struct {
		name    string
		env     MapEnv
		wantErr bool
		wantVar string
	}{
		{"both set", MapEnv{EnvUpstreamBaseURL: "https://a", EnvUpstreamAPIKey: "k"}, false, ""},
		{"missing base url", MapEnv{EnvUpstreamAPIKey: "k"}, true, EnvUpstreamBaseURL},
		{"missing api key", MapEnv{EnvUpstreamBaseURL: "https://a"}, true, EnvUpstreamAPIKey},
		{"blank api key", MapEnv{EnvUpstreamBaseURL: "https://a", EnvUpstreamAPIKey: "  "}, true, EnvUpstreamAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpstream(ResolveUpstream(tt.env))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateUpstream() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !errors.Is(err, ErrMissingConfig) {
				t.Errorf("error = %v, want ErrMissingConfig", err)
			}
			if got := err.Error(); !strings.Contains(got, tt.wantVar) {
				t.Errorf("error = %q, want mention of %s", got, tt.wantVar)
			}
		})
	}
}

func TestLayeredEnv_FirstNonEmptyWins(t *testing.T) {
	env := LayeredEnv{
		MapEnv{"A": "", "B": "primary"},
		MapEnv{"A": "fallback", "B": "fallback"},
	}

	if v, _ := env.Lookup("A"); v != "fallback" {
		t.Errorf("A = %q, want %q", v, "fallback")
	}
	if v, _ := env.Lookup("B"); v != "primary" {
		t.Errorf("B = %q, want %q", v, "primary")
	}
	if _, ok := env.Lookup("C"); ok {
		t.Error("C should be absent")
	}
}

func TestUpstreamEnv_ProcessEnvOverridesFile(t *testing.T) {
	t.Setenv(EnvUpstreamBaseURL, "https://from-env.example.com")
	t.Setenv(EnvUpstreamAPIKey, "")

	cfg := &Config{Upstream: UpstreamConfig{
		BaseURL: "https://from-file.example.com",
		APIKey:  "file-key",
	}}

	got := ResolveUpstream(cfg.UpstreamEnv())
	if got.BaseURL != "https://from-env.example.com" {
		t.Errorf("BaseURL = %q, want env value", got.BaseURL)
	}
	if got.APIKey != "file-key" {
		t.Errorf("APIKey = %q, want file fallback", got.APIKey)
	}
}

func TestUpstreamEnv_ReadsPerLookup(t *testing.T) {
	cfg := &Config{}
	env := cfg.UpstreamEnv()

	t.Setenv(EnvUpstreamAPIKey, "first")
	if got := ResolveUpstream(env).APIKey; got != "first" {
		t.Fatalf("APIKey = %q, want %q", got, "first")
	}
	t.Setenv(EnvUpstreamAPIKey, "second")
	if got := ResolveUpstream(env).APIKey; got != "second" {
		t.Errorf("APIKey = %q, want %q after env change", got, "second")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("BFF_TEST_ENV_FILE_VALUE=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("BFF_TEST_ENV_FILE_VALUE") })

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv("BFF_TEST_ENV_FILE_VALUE"); got != "loaded" {
		t.Errorf("BFF_TEST_ENV_FILE_VALUE = %q, want %q", got, "loaded")
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	if err := LoadEnvFile("/nonexistent/.env"); err == nil {
		t.Fatal("LoadEnvFile() expected error for missing file, got nil")
	}
	if err := LoadEnvFile(""); err != nil {
		t.Errorf("LoadEnvFile(\"\") error = %v, want nil", err)
	}
}
