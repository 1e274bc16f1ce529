package notestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/webnote/internal/apperr"
	"github.com/starford/webnote/internal/models"
)

// Settings defaults.
const (
	DefaultModel   = "gpt-4.1-nano"
	DefaultBaseURL = "https://api.openai.com/v1"
)

// DefaultSettings returns the settings used when none are stored.
func DefaultSettings() models.Settings {
	return models.Settings{
		Model:    DefaultModel,
		BaseURL:  DefaultBaseURL,
		Provider: models.ProviderOpenAI,
	}
}

// LoadSettings returns the stored AI settings with defaults filled in for
// missing fields. An unreadable value yields the defaults.
func (s *Store) LoadSettings(ctx context.Context) (models.Settings, error) {
	out := DefaultSettings()
	raw, err := s.kv.Get(ctx, SettingsKey)
	if errors.Is(err, apperr.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return out, s.unavailable("load settings", SettingsKey, err)
	}

	var stored models.Settings
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.logger.Warn("notestore: undecodable settings", slog.String("error", err.Error()))
		return out, nil
	}
	out.APIKey = stored.APIKey
	if stored.Model != "" {
		out.Model = stored.Model
	}
	if stored.BaseURL != "" {
		out.BaseURL = stored.BaseURL
	}
	if stored.Provider != "" {
		out.Provider = stored.Provider
	}
	return out, nil
}

// SaveSettings validates and persists the AI settings.
func (s *Store) SaveSettings(ctx context.Context, st models.Settings) error {
	if err := ValidateSettings(st); err != nil {
		return err
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("notestore: encode settings: %w", err)
	}
	if err := s.kv.Set(ctx, SettingsKey, data); err != nil {
		return s.unavailable("save settings", SettingsKey, err)
	}
	return nil
}

// ValidateSettings checks provider and base URL.
func ValidateSettings(st models.Settings) error {
	return validation.ValidateStruct(&st,
		validation.Field(&st.Provider, validation.Required,
			validation.In(models.ProviderOpenAI, models.ProviderGemini, models.ProviderAnthropic)),
		validation.Field(&st.Model, validation.Required),
		validation.Field(&st.BaseURL, is.URL),
	)
}
