// Package models defines the domain types for webnote.
package models

import "time"

// NoteRecord is the persisted note for one URL.
type NoteRecord struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	// LastUpdated is milliseconds since the epoch; zero for legacy records.
	LastUpdated int64 `json:"lastUpdated,omitempty"`
}

// HasTimestamp reports whether the record carries a save time.
func (r NoteRecord) HasTimestamp() bool {
	return r.LastUpdated != 0
}

// UpdatedAt converts LastUpdated to a time. Zero time when absent.
func (r NoteRecord) UpdatedAt() time.Time {
	if r.LastUpdated == 0 {
		return time.Time{}
	}
	return time.UnixMilli(r.LastUpdated)
}
