// Package format renders notes and URLs for listings.
package format

import (
	"net/url"
	"strings"

	"github.com/starford/webnote/internal/models"
)

const (
	urlMaxLen     = 40
	urlKeepLen    = 37
	previewMaxLen = 50
	ellipsis      = "..."
)

// DisplayURL shortens a URL to host+path, cut to 37 characters plus an
// ellipsis when longer than 40. Unparseable input is cut the same way.
func DisplayURL(raw string) string {
	s := raw
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		s = u.Hostname() + u.EscapedPath()
		if u.Path == "" {
			s += "/"
		}
	}
	return clip(s, urlMaxLen, urlKeepLen)
}

// NotePreview returns the first 50 characters of content.
func NotePreview(content string) string {
	return clip(content, previewMaxLen, previewMaxLen)
}

// DisplayTitle picks the record's title, then the first level-one heading of
// its content, then the shortened URL.
func DisplayTitle(rec models.NoteRecord) string {
	if t := strings.TrimSpace(rec.Title); t != "" {
		return t
	}
	for _, line := range strings.Split(rec.Content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			if h := strings.TrimSpace(line[2:]); h != "" {
				return h
			}
		}
	}
	return DisplayURL(rec.URL)
}

func clip(s string, max, keep int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:keep]) + ellipsis
}
