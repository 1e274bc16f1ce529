package tabs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/starford/webnote/internal/apperr"
	"github.com/starford/webnote/internal/models"
)

// NavigateFunc asks the extension to load url in tab tabID.
type NavigateFunc func(ctx context.Context, tabID int, url string) error

// Bridge is a Browser whose state is pushed by the extension: a snapshot on
// connect, then one call per tab event. Listeners run on the caller's
// goroutine, one event at a time, in registration order.
type Bridge struct {
	navigate NavigateFunc

	mu        sync.Mutex
	tabs      map[int]models.Tab
	active    int
	hasActive bool
	nextID    int
	updated   []listener[Update]
	activated []listener[Activation]

	dispatch sync.Mutex
}

type listener[E any] struct {
	id int
	fn func(E)
}

// NewBridge returns an empty bridge. navigate carries UpdateTab requests
// back to the extension.
func NewBridge(navigate NavigateFunc) *Bridge {
	return &Bridge{navigate: navigate, tabs: make(map[int]models.Tab)}
}

// ActiveTab implements Browser.
func (b *Bridge) ActiveTab(ctx context.Context) (models.Tab, error) {
	if err := ctx.Err(); err != nil {
		return models.Tab{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasActive {
		return models.Tab{}, apperr.ErrTabUnavailable
	}
	return b.tabs[b.active], nil
}

// UpdateTab implements Browser.
func (b *Bridge) UpdateTab(ctx context.Context, tabID int, url string) error {
	if b.navigate == nil {
		return errors.New("tabs: no navigation channel")
	}
	b.mu.Lock()
	_, known := b.tabs[tabID]
	b.mu.Unlock()
	if !known {
		return fmt.Errorf("tabs: tab %d: %w", tabID, apperr.ErrTabUnavailable)
	}
	return b.navigate(ctx, tabID, url)
}

// OnUpdated implements Browser.
func (b *Bridge) OnUpdated(fn func(Update)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.updated = append(b.updated, listener[Update]{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.updated = remove(b.updated, id)
	}
}

// OnActivated implements Browser.
func (b *Bridge) OnActivated(fn func(Activation)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.activated = append(b.activated, listener[Activation]{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.activated = remove(b.activated, id)
	}
}

// Snapshot replaces the known tabs. When the active tab differs from the
// previous one an activation is delivered.
func (b *Bridge) Snapshot(tabs []models.Tab, activeID int) error {
	next := make(map[int]models.Tab, len(tabs))
	for _, t := range tabs {
		next[t.ID] = t
	}
	if _, ok := next[activeID]; !ok && activeID != 0 {
		return fmt.Errorf("tabs: active tab %d not in snapshot: %w", activeID, apperr.ErrTabUnavailable)
	}

	b.dispatch.Lock()
	defer b.dispatch.Unlock()

	b.mu.Lock()
	changed := activeID != 0 && (!b.hasActive || b.active != activeID || b.tabs[activeID].URL != next[activeID].URL)
	b.tabs = next
	b.active, b.hasActive = activeID, activeID != 0
	fns := listeners(b.activated)
	b.mu.Unlock()

	if changed {
		for _, fn := range fns {
			fn(Activation{TabID: activeID})
		}
	}
	return nil
}

// Updated records an in-place tab change and delivers it.
func (b *Bridge) Updated(u Update) {
	b.dispatch.Lock()
	defer b.dispatch.Unlock()

	b.mu.Lock()
	tab := b.tabs[u.TabID]
	tab.ID = u.TabID
	if u.URL != "" {
		tab.URL = u.URL
		tab.Title = u.Title
	}
	if u.Title != "" {
		tab.Title = u.Title
	}
	if u.Status != "" {
		tab.Status = u.Status
	}
	b.tabs[u.TabID] = tab
	fns := listeners(b.updated)
	b.mu.Unlock()

	for _, fn := range fns {
		fn(u)
	}
}

// Activated records a tab switch and delivers it.
func (b *Bridge) Activated(a Activation) {
	b.dispatch.Lock()
	defer b.dispatch.Unlock()

	b.mu.Lock()
	if _, ok := b.tabs[a.TabID]; !ok {
		b.tabs[a.TabID] = models.Tab{ID: a.TabID}
	}
	b.active, b.hasActive = a.TabID, true
	fns := listeners(b.activated)
	b.mu.Unlock()

	for _, fn := range fns {
		fn(a)
	}
}

// Closed forgets a tab.
func (b *Bridge) Closed(tabID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tabs, tabID)
	if b.hasActive && b.active == tabID {
		b.hasActive = false
	}
}

func listeners[E any](ls []listener[E]) []func(E) {
	out := make([]func(E), len(ls))
	for i, l := range ls {
		out[i] = l.fn
	}
	return out
}

func remove[E any](ls []listener[E], id int) []listener[E] {
	out := ls[:0:0]
	for _, l := range ls {
		if l.id != id {
			out = append(out, l)
		}
	}
	return out
}
