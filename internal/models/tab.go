package models

// Tab is the browser's view of one tab.
type Tab struct {
	ID     int    `json:"id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Status string `json:"status,omitempty"` // "loading" or "complete"
}
