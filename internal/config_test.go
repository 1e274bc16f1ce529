package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenMode(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}

	cfg.Token = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("empty token error = %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Page.FetchTimeout != 5*time.Second || cfg.Page.Retries != 2 || cfg.I18n.Locale != "ja" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestStorageConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StorageConfig
		wantErr bool
	}{
		{"sqlite", StorageConfig{Driver: "sqlite", Path: "x.db"}, false},
		{"file", StorageConfig{Driver: "file", Path: "notes.json"}, false},
		{"memory without path", StorageConfig{Driver: "memory"}, false},
		{"file without path", StorageConfig{Driver: "file"}, true},
		{"unknown driver", StorageConfig{Driver: "redis", Path: "x"}, true},
		{"empty", StorageConfig{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPageAndLocaleValidation(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Page.FetchTimeout = time.Millisecond
	if err := cfg.Validate(); err == nil {
		t.Error("tiny fetch timeout should fail")
	}

	cfg = NewDefaultConfig()
	cfg.I18n.Locale = "fr"
	if err := cfg.Validate(); err == nil {
		t.Error("unsupported locale should fail")
	}

	cfg = NewDefaultConfig()
	cfg.Page.Retries = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero retries should pass: %v", err)
	}
	if got := cfg.Page.Loader(); got.FetchTimeout != cfg.Page.FetchTimeout || got.Retries != 0 {
		t.Errorf("Loader() = %+v", got)
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = AuthModeToken
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
