package tabs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/webnote/internal/apperr"
)

// ChangeFunc receives the active page after every change.
type ChangeFunc func(url, title string)

// Tracker keeps the URL and title of the active tab and reports changes to a
// single callback. Both the navigation and the activation signal feed the
// same callback, in delivery order.
type Tracker struct {
	browser  Browser
	onChange ChangeFunc
	logger   *slog.Logger

	// serial orders event handling so callbacks fire in delivery order.
	serial sync.Mutex

	mu       sync.Mutex
	ctx      context.Context
	tracking bool
	url      string
	title    string
	unsub    []func()
}

// NewTracker returns an uninitialized tracker. Nothing is observed until
// Start is called.
func NewTracker(b Browser, onChange ChangeFunc, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{browser: b, onChange: onChange, logger: logger}
}

// Start reports the current active tab once, if it has a URL, and subscribes
// to both tab signals. ctx bounds the browser queries made while tracking.
// Calling Start on a tracking instance is a no-op.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.tracking {
		t.mu.Unlock()
		return nil
	}
	t.tracking = true
	t.ctx = ctx
	t.mu.Unlock()

	t.serial.Lock()
	tab, err := t.browser.ActiveTab(ctx)
	switch {
	case err == nil && tab.URL != "":
		t.set(tab.URL, tab.Title)
		t.fire(tab.URL, tab.Title)
	case err != nil && !errors.Is(err, apperr.ErrTabUnavailable):
		t.logger.Warn("query active tab", slog.String("error", err.Error()))
	}
	t.serial.Unlock()

	offUpdated := t.browser.OnUpdated(t.handleUpdated)
	offActivated := t.browser.OnActivated(t.handleActivated)

	t.mu.Lock()
	t.unsub = []func(){offUpdated, offActivated}
	t.mu.Unlock()
	return ctx.Err()
}

// Stop unregisters both listeners together. The tracker may be started again.
func (t *Tracker) Stop() {
	t.mu.Lock()
	unsub := t.unsub
	t.unsub = nil
	t.tracking = false
	t.mu.Unlock()

	for _, fn := range unsub {
		fn()
	}
}

// Current returns the tracked URL and title.
func (t *Tracker) Current() (url, title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url, t.title
}

// NavigateTo loads url in the active tab and records it optimistically. The
// title is cleared until the next signal reports the real one.
func (t *Tracker) NavigateTo(ctx context.Context, url string) error {
	tab, err := t.browser.ActiveTab(ctx)
	if err != nil {
		return fmt.Errorf("tabs: navigate: %w", err)
	}
	if err := t.browser.UpdateTab(ctx, tab.ID, url); err != nil {
		return fmt.Errorf("tabs: navigate: %w", err)
	}

	t.serial.Lock()
	defer t.serial.Unlock()
	t.set(url, "")
	t.fire(url, "")
	return nil
}

func (t *Tracker) handleUpdated(u Update) {
	if u.URL == "" && u.Title == "" {
		return
	}

	t.serial.Lock()
	defer t.serial.Unlock()

	tab, err := t.browser.ActiveTab(t.context())
	if err != nil || tab.ID != u.TabID {
		return
	}

	t.mu.Lock()
	url, title := t.url, t.title
	t.mu.Unlock()

	switch {
	case u.URL != "":
		url, title = u.URL, u.Title
	default:
		title = u.Title
	}
	if url == "" {
		url = tab.URL
	}
	if url == "" {
		return
	}
	t.set(url, title)
	t.fire(url, title)
}

func (t *Tracker) handleActivated(a Activation) {
	t.serial.Lock()
	defer t.serial.Unlock()

	tab, err := t.browser.ActiveTab(t.context())
	if err != nil {
		t.logger.Debug("active tab after switch", slog.Int("tab_id", a.TabID), slog.String("error", err.Error()))
		return
	}
	if tab.URL == "" {
		return
	}
	t.set(tab.URL, tab.Title)
	t.fire(tab.URL, tab.Title)
}

func (t *Tracker) set(url, title string) {
	t.mu.Lock()
	t.url, t.title = url, title
	t.mu.Unlock()
}

func (t *Tracker) fire(url, title string) {
	if t.onChange != nil {
		t.onChange(url, title)
	}
}

func (t *Tracker) context() context.Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx == nil {
		return context.Background()
	}
	return t.ctx
}
