// Package notestore persists one markdown note per page URL.
//
// Records are read through a single decoder that accepts both the legacy
// bare-string shape and the structured shape, so callers only ever see
// models.NoteRecord. Empty notes are never persisted: saving blank content
// deletes the note.
package notestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/starford/webnote/internal/apperr"
	"github.com/starford/webnote/internal/models"
	"github.com/starford/webnote/internal/storage"
)

// SettingsKey is the fixed storage key holding the AI-provider settings.
const SettingsKey = "openai_api_settings"

// Store is the per-URL note store.
type Store struct {
	kv     storage.Provider
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for lastUpdated.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger used for skipped entries and storage failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store over kv.
func New(kv storage.Provider, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the note for url. ok is false when no note exists.
// Legacy records come back with an empty title and no timestamp; storage is
// not rewritten.
func (s *Store) Get(ctx context.Context, url string) (rec models.NoteRecord, ok bool, err error) {
	raw, err := s.kv.Get(ctx, url)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.NoteRecord{}, false, nil
	}
	if err != nil {
		return models.NoteRecord{}, false, s.unavailable("get", url, err)
	}
	rec, err = decode(url, raw)
	if err != nil {
		s.logger.Warn("notestore: undecodable record", slog.String("url", url), slog.String("error", err.Error()))
		return models.NoteRecord{}, false, nil
	}
	return rec, true, nil
}

// Set saves content and title for url, fully replacing any prior record.
// Blank content deletes the note instead; the returned record is nil then.
func (s *Store) Set(ctx context.Context, url, content, title string) (*models.NoteRecord, error) {
	if strings.TrimSpace(content) == "" {
		return nil, s.Delete(ctx, url)
	}

	rec := models.NoteRecord{
		URL:         url,
		Title:       title,
		Content:     content,
		LastUpdated: s.now().UnixMilli(),
	}
	data, err := encode(rec)
	if err != nil {
		return nil, fmt.Errorf("notestore: encode: %w", err)
	}
	if err := s.kv.Set(ctx, url, data); err != nil {
		return nil, s.unavailable("set", url, err)
	}
	return &rec, nil
}

// Delete removes the note for url. A missing note is not an error.
func (s *Store) Delete(ctx context.Context, url string) error {
	if err := s.kv.Delete(ctx, url); err != nil {
		return s.unavailable("delete", url, err)
	}
	return nil
}

// ListAll returns every note with non-blank content, in no particular order.
// Entries that cannot be decoded are skipped.
func (s *Store) ListAll(ctx context.Context) ([]models.NoteRecord, error) {
	all, err := s.kv.All(ctx)
	if err != nil {
		return nil, s.unavailable("list", "", err)
	}

	out := make([]models.NoteRecord, 0, len(all))
	for key, raw := range all {
		if key == SettingsKey {
			continue
		}
		rec, err := decode(key, raw)
		if err != nil {
			s.logger.Warn("notestore: skipping entry", slog.String("url", key), slog.String("error", err.Error()))
			continue
		}
		if strings.TrimSpace(rec.Content) == "" {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Search returns notes whose url, title or content contains query
// (case-insensitive), most recently updated first.
func (s *Store) Search(ctx context.Context, query string) ([]models.NoteRecord, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		SortByRecency(all)
		return all, nil
	}
	var out []models.NoteRecord
	for _, r := range all {
		if strings.Contains(strings.ToLower(r.URL), q) ||
			strings.Contains(strings.ToLower(r.Title), q) ||
			strings.Contains(strings.ToLower(r.Content), q) {
			out = append(out, r)
		}
	}
	SortByRecency(out)
	return out, nil
}

// SortByRecency orders notes by lastUpdated descending, then by URL.
// Legacy notes without a timestamp sort last.
func SortByRecency(notes []models.NoteRecord) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].LastUpdated != notes[j].LastUpdated {
			return notes[i].LastUpdated > notes[j].LastUpdated
		}
		return notes[i].URL < notes[j].URL
	})
}

func (s *Store) unavailable(op, url string, err error) error {
	s.logger.Warn("notestore: storage failure",
		slog.String("op", op),
		slog.String("url", url),
		slog.String("error", err.Error()))
	return fmt.Errorf("%w: %s: %v", apperr.ErrStoreUnavailable, op, err)
}
