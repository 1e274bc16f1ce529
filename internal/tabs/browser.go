// Package tabs mirrors the browser's active tab. The Tracker turns tab
// navigation and tab switching into one (url, title) change stream; the
// Bridge is the Browser fed by the extension over HTTP.
package tabs

import (
	"context"

	"github.com/starford/webnote/internal/models"
)

// Update is an in-place change to one tab. URL and Title are set only when
// that field changed.
type Update struct {
	TabID  int    `json:"tabId"`
	URL    string `json:"url,omitempty"`
	Title  string `json:"title,omitempty"`
	Status string `json:"status,omitempty"`
}

// Activation reports that the user switched to another tab.
type Activation struct {
	TabID int `json:"tabId"`
}

// Browser is the tab capability the Tracker consumes.
type Browser interface {
	// ActiveTab returns the active tab of the current window, or
	// apperr.ErrTabUnavailable when there is none.
	ActiveTab(ctx context.Context) (models.Tab, error)
	// UpdateTab loads url in the given tab.
	UpdateTab(ctx context.Context, tabID int, url string) error
	// OnUpdated registers fn for tab updates and returns its unsubscribe func.
	OnUpdated(fn func(Update)) (unsubscribe func())
	// OnActivated registers fn for tab switches and returns its unsubscribe func.
	OnActivated(fn func(Activation)) (unsubscribe func())
}
