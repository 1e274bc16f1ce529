// Package ai is the chat capability behind summaries and questions. A
// Provider is chosen from the persisted settings.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/webnote/internal/models"
)

// Role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role
	Content string
}

// ChatRequest is a single non-streaming completion request.
type ChatRequest struct {
	Model    string
	Messages []Message
}

// Provider is implemented by each vendor adapter.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}

var (
	// ErrNoAPIKey is returned by New when the settings carry no key.
	ErrNoAPIKey = errors.New("ai: no api key configured")
	// ErrEmptyResponse means the model answered with no text.
	ErrEmptyResponse = errors.New("ai: empty response")
)

// UnknownProviderError is returned by New for an unsupported provider.
type UnknownProviderError struct {
	Provider string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("ai: unknown provider %q", e.Provider)
}

// openAIBaseURL is the stock endpoint. Other vendors treat it as unset.
const openAIBaseURL = "https://api.openai.com/v1"

// New builds the provider named by s.Provider.
func New(ctx context.Context, s models.Settings) (Provider, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	switch s.Provider {
	case models.ProviderOpenAI, "":
		return NewOpenAI(s.APIKey, s.BaseURL), nil
	case models.ProviderAnthropic:
		return NewAnthropic(s.APIKey, vendorBaseURL(s.BaseURL)), nil
	case models.ProviderGemini:
		return NewGemini(ctx, s.APIKey, vendorBaseURL(s.BaseURL))
	default:
		return nil, &UnknownProviderError{Provider: s.Provider}
	}
}

func vendorBaseURL(u string) string {
	if strings.TrimRight(u, "/") == openAIBaseURL {
		return ""
	}
	return u
}
