// Package session keeps one current note in step with the active tab.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/webnote/internal/models"
)

// Store is the note persistence the controller needs.
type Store interface {
	Get(ctx context.Context, url string) (models.NoteRecord, bool, error)
	Set(ctx context.Context, url, content, title string) (*models.NoteRecord, error)
	Delete(ctx context.Context, url string) error
	ListAll(ctx context.Context) ([]models.NoteRecord, error)
}

// Navigator loads a URL in the active tab.
type Navigator interface {
	NavigateTo(ctx context.Context, url string) error
}

// State is the session as shown to the user.
type State struct {
	CurrentURL   string              `json:"currentUrl"`
	CurrentTitle string              `json:"currentTitle"`
	CurrentNote  models.NoteRecord   `json:"currentNote"`
	AllNotes     []models.NoteRecord `json:"allNotes"`
}

// ErrNoPage is returned by edits made before any page is tracked.
var ErrNoPage = errors.New("session: no current page")

// Controller owns the session state. Note loads triggered by tab changes run
// in the background; each carries a token and only the latest issued load
// may apply its result.
type Controller struct {
	store  Store
	nav    Navigator
	logger *slog.Logger

	// base bounds background loads.
	base     context.Context
	onChange func(State)
	wg       sync.WaitGroup

	// edit serialises read-modify-write saves.
	edit sync.Mutex

	mu     sync.Mutex
	state  State
	latest uint64
	// seq stamps every captured state; pubMu orders delivery so a capture
	// is never published after a newer one.
	seq       uint64
	pubMu     sync.Mutex
	published uint64
	// beforePublish runs between capture and delivery. Tests only.
	beforePublish func(State)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithOnChange registers a hook called with a copy of the state after every
// visible change.
func WithOnChange(fn func(State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithContext sets the context background loads run under.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) { c.base = ctx }
}

// New returns a controller with empty state. nav may be set later with
// SetNavigator when the tracker is built after the controller.
func New(store Store, nav Navigator, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		nav:    nav,
		logger: slog.Default(),
		base:   context.Background(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetNavigator wires the tab navigator.
func (c *Controller) SetNavigator(nav Navigator) {
	c.mu.Lock()
	c.nav = nav
	c.mu.Unlock()
}

// OnURLChange is the tab tracker callback. It records the page and starts a
// note load for it.
func (c *Controller) OnURLChange(url, title string) {
	c.mu.Lock()
	c.state.CurrentURL = url
	c.state.CurrentTitle = title
	c.mu.Unlock()
	c.load(url, title)
}

// Snapshot returns a copy of the state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Wait blocks until all background loads issued so far have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// ChangeNote saves content for the current page and refreshes the listing.
// Blank content deletes the note.
func (c *Controller) ChangeNote(ctx context.Context, content string) (State, error) {
	c.mu.Lock()
	url, title := c.state.CurrentURL, c.state.CurrentTitle
	c.mu.Unlock()
	if url == "" {
		return c.Snapshot(), ErrNoPage
	}

	c.edit.Lock()
	err := c.save(ctx, url, content, title)
	c.edit.Unlock()
	if err != nil {
		return c.Snapshot(), fmt.Errorf("session: change note: %w", err)
	}
	return c.RefreshNotes(ctx)
}

// AppendNote adds text to the end of the note stored for url and saves it.
// The existing content is read from the store, so the target page need not
// be the one currently shown.
func (c *Controller) AppendNote(ctx context.Context, url, text string) (State, error) {
	if url == "" {
		return c.Snapshot(), ErrNoPage
	}

	c.edit.Lock()
	rec, _, err := c.store.Get(ctx, url)
	if err != nil {
		c.edit.Unlock()
		return c.Snapshot(), fmt.Errorf("session: append note: %w", err)
	}

	c.mu.Lock()
	title := rec.Title
	if c.state.CurrentURL == url && c.state.CurrentTitle != "" {
		title = c.state.CurrentTitle
	}
	c.mu.Unlock()

	err = c.save(ctx, url, joinNote(rec.Content, text), title)
	c.edit.Unlock()
	if err != nil {
		return c.Snapshot(), fmt.Errorf("session: append note: %w", err)
	}
	return c.RefreshNotes(ctx)
}

func joinNote(existing, text string) string {
	switch {
	case strings.TrimSpace(existing) == "":
		return text
	case strings.HasSuffix(existing, "\n\n"):
		return existing + text
	default:
		return strings.TrimRight(existing, "\n") + "\n\n" + text
	}
}

// save writes the note for url. When url is the current page the saved
// record becomes the current note and any load still in flight is voided.
func (c *Controller) save(ctx context.Context, url, content, title string) error {
	rec, err := c.store.Set(ctx, url, content, title)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.CurrentURL != url {
		return nil
	}
	c.latest++
	if rec != nil {
		c.state.CurrentNote = *rec
	} else {
		c.state.CurrentNote = models.NoteRecord{URL: url}
	}
	return nil
}

// ClickNote navigates the active tab to url. The note load follows from the
// tracker callback.
func (c *Controller) ClickNote(ctx context.Context, url string) error {
	c.mu.Lock()
	nav := c.nav
	c.mu.Unlock()
	if nav == nil {
		return errors.New("session: no navigator")
	}
	if err := nav.NavigateTo(ctx, url); err != nil {
		return fmt.Errorf("session: open note: %w", err)
	}
	return nil
}

// RemoveNote deletes the note for url and refreshes the listing. Removing
// the current page's note reloads it from the store.
func (c *Controller) RemoveNote(ctx context.Context, url string) (State, error) {
	if err := c.store.Delete(ctx, url); err != nil {
		return c.Snapshot(), fmt.Errorf("session: remove note: %w", err)
	}
	st, err := c.RefreshNotes(ctx)

	c.mu.Lock()
	current, title := c.state.CurrentURL, c.state.CurrentTitle
	c.mu.Unlock()
	if current == url {
		c.load(current, title)
	}
	return st, err
}

// RefreshNotes reloads the all-notes listing.
func (c *Controller) RefreshNotes(ctx context.Context) (State, error) {
	notes, err := c.store.ListAll(ctx)
	if err != nil {
		return c.Snapshot(), fmt.Errorf("session: list notes: %w", err)
	}

	c.mu.Lock()
	c.state.AllNotes = notes
	st, seq := c.captureLocked()
	c.mu.Unlock()

	c.notify(st, seq)
	return st, nil
}

// Reload re-reads the current note and the listing, for when the backing
// store changed underneath the session.
func (c *Controller) Reload(ctx context.Context) {
	c.mu.Lock()
	url, title := c.state.CurrentURL, c.state.CurrentTitle
	c.mu.Unlock()
	if url != "" {
		c.load(url, title)
	}
	if _, err := c.RefreshNotes(ctx); err != nil {
		c.logger.Warn("reload listing", slog.String("error", err.Error()))
	}
}

// load reads the note for url in the background. Its result is applied only
// if no newer load was issued in the meantime.
func (c *Controller) load(url, title string) {
	c.mu.Lock()
	c.latest++
	token := c.latest
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		rec, ok, err := c.store.Get(c.base, url)
		if err != nil {
			c.logger.Warn("load note", slog.String("url", url), slog.String("error", err.Error()))
			ok = false
		}
		if !ok {
			rec = models.NoteRecord{URL: url}
		}

		c.mu.Lock()
		if token != c.latest {
			c.mu.Unlock()
			c.logger.Debug("discard stale load", slog.String("url", url))
			return
		}
		c.state.CurrentURL = url
		c.state.CurrentTitle = title
		c.state.CurrentNote = rec
		st, seq := c.captureLocked()
		c.mu.Unlock()

		c.notify(st, seq)
	}()
}

func (c *Controller) snapshotLocked() State {
	st := c.state
	st.AllNotes = append([]models.NoteRecord(nil), c.state.AllNotes...)
	return st
}

// captureLocked copies the state and stamps it with the next sequence.
func (c *Controller) captureLocked() (State, uint64) {
	c.seq++
	return c.snapshotLocked(), c.seq
}

// notify delivers st unless a newer capture has already been delivered.
func (c *Controller) notify(st State, seq uint64) {
	if c.beforePublish != nil {
		c.beforePublish(st)
	}

	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	if seq <= c.published {
		c.logger.Debug("drop superseded state", slog.String("url", st.CurrentURL))
		return
	}
	c.published = seq
	if c.onChange != nil {
		c.onChange(st)
	}
}
