package page

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/webnote/internal/apperr"
	"github.com/starford/webnote/internal/testutil"
)

var article = "<html><body><nav>menu</nav><main>" +
	strings.Repeat("<p>The quick brown fox jumps over the lazy dog near the river bank.</p>", 5) +
	"</main></body></html>"

func fastConfig() Config {
	return Config{FetchTimeout: 100 * time.Millisecond, Retries: 2, RetryDelay: 10 * time.Millisecond}
}

func TestLoader_Snapshot(t *testing.T) {
	l := NewLoader(fastConfig(), nil, testutil.Logger())
	text, err := l.Content(context.Background(), Request{URL: "chrome://ignored", HTML: article})
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if strings.Contains(text, "menu") || !strings.Contains(text, "quick brown fox") {
		t.Errorf("text = %q", text)
	}
}

func TestLoader_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing user agent")
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(article))
	}))
	defer srv.Close()

	l := NewLoader(fastConfig(), srv.Client(), testutil.Logger())
	text, err := l.Content(context.Background(), Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if !strings.Contains(text, "lazy dog") {
		t.Errorf("text = %q", text)
	}
}

func TestLoader_InternalPages(t *testing.T) {
	l := NewLoader(fastConfig(), nil, testutil.Logger())
	for _, u := range []string{"chrome://extensions", "chrome-extension://abc/sidepanel.html", "about:blank"} {
		_, err := l.Content(context.Background(), Request{URL: u})
		if !errors.Is(err, ErrInternalPage) && !errors.Is(err, apperr.ErrContentUnavailable) {
			t.Errorf("%s: err = %v", u, err)
		}
	}
	if err := CheckURL("chrome://extensions"); !errors.Is(err, ErrInternalPage) {
		t.Errorf("CheckURL = %v", err)
	}
}

func TestLoader_RetriesTimeouts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		w.Write([]byte(article))
	}))
	defer srv.Close()

	l := NewLoader(fastConfig(), srv.Client(), testutil.Logger())
	if _, err := l.Content(context.Background(), Request{URL: srv.URL}); err != nil {
		t.Fatalf("Content after retries: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestLoader_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	l := NewLoader(fastConfig(), srv.Client(), testutil.Logger())
	_, err := l.Content(context.Background(), Request{URL: srv.URL})
	if err == nil || !isTimeout(err) {
		t.Fatalf("err = %v, want timeout", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestLoader_HTTPErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	l := NewLoader(fastConfig(), srv.Client(), testutil.Logger())
	_, err := l.Content(context.Background(), Request{URL: srv.URL})
	if !errors.Is(err, apperr.ErrContentUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}
