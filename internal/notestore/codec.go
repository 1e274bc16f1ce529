package notestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/webnote/internal/models"
)

var errMalformed = errors.New("malformed record")

// storedNote is the structured on-disk shape.
type storedNote struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	LastUpdated int64  `json:"lastUpdated"`
}

// decode turns a raw stored value into the canonical record. The value is
// either a bare JSON string (legacy: content only) or a structured object
// that must carry a content field.
func decode(url string, raw []byte) (models.NoteRecord, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return models.NoteRecord{}, errMalformed
	}

	switch raw[0] {
	case '"':
		var content string
		if err := json.Unmarshal(raw, &content); err != nil {
			return models.NoteRecord{}, fmt.Errorf("%w: %v", errMalformed, err)
		}
		return models.NoteRecord{URL: url, Content: content}, nil

	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return models.NoteRecord{}, fmt.Errorf("%w: %v", errMalformed, err)
		}
		if _, ok := fields["content"]; !ok {
			return models.NoteRecord{}, fmt.Errorf("%w: no content field", errMalformed)
		}
		var n storedNote
		if err := json.Unmarshal(raw, &n); err != nil {
			return models.NoteRecord{}, fmt.Errorf("%w: %v", errMalformed, err)
		}
		return models.NoteRecord{
			URL:         url,
			Title:       n.Title,
			Content:     n.Content,
			LastUpdated: n.LastUpdated,
		}, nil

	default:
		return models.NoteRecord{}, errMalformed
	}
}

// encode produces the structured shape. The legacy shape is never written.
func encode(r models.NoteRecord) ([]byte, error) {
	return json.Marshal(storedNote{
		Title:       r.Title,
		Content:     r.Content,
		LastUpdated: r.LastUpdated,
	})
}
