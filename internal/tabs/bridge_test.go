package tabs

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/webnote/internal/apperr"
	"github.com/starford/webnote/internal/models"
)

func TestBridge_ActiveTabUnavailable(t *testing.T) {
	b := NewBridge(nil)
	if _, err := b.ActiveTab(context.Background()); !errors.Is(err, apperr.ErrTabUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestBridge_SnapshotUnknownActive(t *testing.T) {
	b := NewBridge(nil)
	err := b.Snapshot([]models.Tab{{ID: 1}}, 2)
	if !errors.Is(err, apperr.ErrTabUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestBridge_SnapshotActivatesOnlyOnChange(t *testing.T) {
	b := NewBridge(nil)
	var n int
	b.OnActivated(func(Activation) { n++ })

	tabs := []models.Tab{{ID: 1, URL: "https://a.test"}}
	_ = b.Snapshot(tabs, 1)
	_ = b.Snapshot(tabs, 1)
	if n != 1 {
		t.Errorf("activations = %d, want 1", n)
	}
}

func TestBridge_UpdatedMergesState(t *testing.T) {
	b := NewBridge(nil)
	_ = b.Snapshot([]models.Tab{{ID: 1, URL: "https://a.test", Title: "A"}}, 1)

	b.Updated(Update{TabID: 1, URL: "https://b.test", Status: "loading"})
	tab, _ := b.ActiveTab(context.Background())
	if tab.URL != "https://b.test" || tab.Title != "" || tab.Status != "loading" {
		t.Errorf("tab = %+v", tab)
	}

	b.Updated(Update{TabID: 1, Title: "B", Status: "complete"})
	tab, _ = b.ActiveTab(context.Background())
	if tab.URL != "https://b.test" || tab.Title != "B" || tab.Status != "complete" {
		t.Errorf("tab = %+v", tab)
	}
}

func TestBridge_UpdateTab(t *testing.T) {
	if err := NewBridge(nil).UpdateTab(context.Background(), 1, "x"); err == nil {
		t.Error("expected error without navigation channel")
	}

	var got string
	b := NewBridge(func(_ context.Context, _ int, url string) error { got = url; return nil })
	if err := b.UpdateTab(context.Background(), 3, "https://x.test"); !errors.Is(err, apperr.ErrTabUnavailable) {
		t.Errorf("unknown tab: err = %v", err)
	}
	_ = b.Snapshot([]models.Tab{{ID: 3}}, 3)
	if err := b.UpdateTab(context.Background(), 3, "https://x.test"); err != nil {
		t.Fatal(err)
	}
	if got != "https://x.test" {
		t.Errorf("navigate got %q", got)
	}
}

func TestBridge_Closed(t *testing.T) {
	b := NewBridge(nil)
	_ = b.Snapshot([]models.Tab{{ID: 1, URL: "https://a.test"}}, 1)
	b.Closed(1)
	if _, err := b.ActiveTab(context.Background()); !errors.Is(err, apperr.ErrTabUnavailable) {
		t.Errorf("err = %v", err)
	}
}

func TestBridge_Unsubscribe(t *testing.T) {
	b := NewBridge(nil)
	var a, c int
	offA := b.OnUpdated(func(Update) { a++ })
	b.OnUpdated(func(Update) { c++ })
	offA()
	b.Updated(Update{TabID: 1, URL: "https://x.test"})
	if a != 0 || c != 1 {
		t.Errorf("a=%d c=%d", a, c)
	}
}
