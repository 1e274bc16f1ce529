// Package assistant builds the summary and question prompts for a page and
// runs them against the configured AI provider.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/webnote/internal/ai"
	"github.com/starford/webnote/internal/i18n"
	"github.com/starford/webnote/internal/models"
)

// SettingsSource loads the current AI settings.
type SettingsSource interface {
	LoadSettings(ctx context.Context) (models.Settings, error)
}

// Factory builds a provider from settings. ai.New in production.
type Factory func(ctx context.Context, s models.Settings) (ai.Provider, error)

// Result is the model output ready to be shown or clipped. Err is set when
// Text is a localized failure message instead of model output.
type Result struct {
	Heading string `json:"heading"`
	Text    string `json:"text"`
	Err     error  `json:"-"`
}

// Markdown renders the result as a note section.
func (r Result) Markdown() string {
	return r.Heading + "\n\n" + r.Text + "\n\n"
}

// Assistant summarises pages and answers questions about them.
type Assistant struct {
	settings SettingsSource
	factory  Factory
	loc      *i18n.Localizer
	logger   *slog.Logger
}

// New returns an Assistant. A nil factory means ai.New.
func New(settings SettingsSource, factory Factory, loc *i18n.Localizer, logger *slog.Logger) *Assistant {
	if factory == nil {
		factory = ai.New
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{settings: settings, factory: factory, loc: loc, logger: logger}
}

// Summarize asks the model for a Markdown summary of the page text.
func (a *Assistant) Summarize(ctx context.Context, text, title string) Result {
	msgs := []ai.Message{
		{Role: ai.RoleSystem, Content: a.loc.T("summary.system", "Summarize the following web page in Markdown.")},
		{Role: ai.RoleUser, Content: a.loc.Format("summary.user", "{title}\n\n{text}", map[string]string{
			"title": title,
			"text":  text,
		})},
	}
	return a.run(ctx, "summary", msgs)
}

// Answer asks the model a question about the page text.
func (a *Assistant) Answer(ctx context.Context, text, title, question string) Result {
	msgs := []ai.Message{
		{Role: ai.RoleSystem, Content: a.loc.T("answer.system", "Answer the question based on the web page.")},
		{Role: ai.RoleUser, Content: a.loc.Format("answer.user", "{title}\n\n{question}\n\n{text}", map[string]string{
			"title":    title,
			"question": question,
			"text":     text,
		})},
	}
	return a.run(ctx, "answer", msgs)
}

// run sends msgs and converts every failure into the localized message for
// kind ("summary" or "answer").
func (a *Assistant) run(ctx context.Context, kind string, msgs []ai.Message) Result {
	res := Result{Heading: a.loc.T(kind+".heading", "## "+kind)}

	fail := func(key string, err error) Result {
		a.logger.Warn("assistant: "+kind+" failed", slog.String("error", err.Error()))
		res.Text = a.loc.T(key, "An error occurred.")
		res.Err = err
		return res
	}

	settings, err := a.settings.LoadSettings(ctx)
	if err != nil {
		return fail(kind+".error", err)
	}
	provider, err := a.factory(ctx, settings)
	if errors.Is(err, ai.ErrNoAPIKey) {
		return fail("summary.noApiKey", err)
	}
	if err != nil {
		return fail(kind+".error", err)
	}

	out, err := provider.Chat(ctx, ai.ChatRequest{Model: settings.Model, Messages: msgs})
	if errors.Is(err, ai.ErrEmptyResponse) {
		return fail(kind+".empty", err)
	}
	if err != nil {
		return fail(kind+".error", fmt.Errorf("%s: %w", settings.Provider, err))
	}
	res.Text = out
	return res
}
