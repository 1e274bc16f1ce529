package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// geminiModels is offered in place of a live listing.
var geminiModels = []string{
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
	"gemini-2.5-pro",
	"gemini-2.0-flash",
	"gemini-1.5-flash",
	"gemini-1.5-pro",
}

// Gemini adapts the Gemini API. It has no system role, so system messages
// are prepended to the prompt.
type Gemini struct {
	client *genai.Client
}

func NewGemini(ctx context.Context, apiKey, baseURL string) (*Gemini, error) {
	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ai: gemini client: %w", err)
	}
	return &Gemini{client: client}, nil
}

func (p *Gemini) Chat(ctx context.Context, req ChatRequest) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, req.Model, genai.Text(geminiPrompt(req.Messages)), nil)
	if err != nil {
		return "", fmt.Errorf("ai: gemini chat: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (p *Gemini) ListModels(context.Context) ([]string, error) {
	return append([]string(nil), geminiModels...), nil
}

// geminiPrompt joins system messages, then user messages, with blank lines.
// Assistant turns are dropped.
func geminiPrompt(msgs []Message) string {
	var system, user []string
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleUser:
			user = append(user, m.Content)
		}
	}
	var b strings.Builder
	if len(system) > 0 {
		b.WriteString(strings.Join(system, "\n\n"))
		b.WriteString("\n\n")
	}
	b.WriteString(strings.Join(user, "\n\n"))
	return b.String()
}
