package notestore

import (
	"context"
	"testing"

	"github.com/starford/webnote/internal/models"
)

func TestLoadSettings_Defaults(t *testing.T) {
	s, _ := testStore(t)
	st, err := s.LoadSettings(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st != DefaultSettings() {
		t.Errorf("settings = %+v, want defaults", st)
	}
}

func TestSaveAndLoadSettings(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	in := models.Settings{APIKey: "sk-1", Model: "gemini-1.5-flash", Provider: models.ProviderGemini}
	if err := s.SaveSettings(ctx, in); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	out, _ := s.LoadSettings(ctx)
	if out.APIKey != "sk-1" || out.Model != "gemini-1.5-flash" || out.Provider != models.ProviderGemini {
		t.Errorf("settings = %+v", out)
	}
	if out.BaseURL != DefaultBaseURL {
		t.Errorf("baseUrl = %q, want default", out.BaseURL)
	}
}

func TestLegacySettingsWithoutProvider(t *testing.T) {
	s, kv := testStore(t)
	ctx := context.Background()
	_ = kv.Set(ctx, SettingsKey, []byte(`{"apiKey":"k","model":"gpt-4o","baseUrl":"https://proxy.test/v1"}`))

	st, _ := s.LoadSettings(ctx)
	if st.Provider != models.ProviderOpenAI || st.BaseURL != "https://proxy.test/v1" {
		t.Errorf("settings = %+v", st)
	}
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		in      models.Settings
		wantErr bool
	}{
		{"defaults", DefaultSettings(), false},
		{"unknown provider", models.Settings{Model: "m", Provider: "llama"}, true},
		{"missing model", models.Settings{Provider: models.ProviderOpenAI}, true},
		{"bad url", models.Settings{Model: "m", Provider: models.ProviderOpenAI, BaseURL: "not a url"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSettings(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
