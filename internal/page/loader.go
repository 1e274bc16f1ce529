// Package page obtains the DOM of the page being summarised: either the
// snapshot the extension posted, or a bounded fetch of the URL.
package page

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/starford/webnote/internal/apperr"
	"github.com/starford/webnote/internal/extract"
)

const (
	maxBodySize = 5 * 1024 * 1024
	userAgent   = "webnote/1.0 (+page summary)"
)

// ErrInternalPage is returned for browser-internal and extension pages,
// which cannot be read.
var ErrInternalPage = errors.New("page: browser internal page")

// Request names the page to load. HTML, when set, is used instead of
// fetching URL.
type Request struct {
	URL  string `json:"url"`
	HTML string `json:"html,omitempty"`
}

// Config bounds fetching.
type Config struct {
	FetchTimeout time.Duration
	Retries      int
	RetryDelay   time.Duration
}

// DefaultConfig waits 5s per attempt and retries timeouts twice, one second
// apart.
func DefaultConfig() Config {
	return Config{FetchTimeout: 5 * time.Second, Retries: 2, RetryDelay: time.Second}
}

// Loader loads page documents.
type Loader struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewLoader returns a Loader. A nil client uses a default http.Client.
func NewLoader(cfg Config, client *http.Client, logger *slog.Logger) *Loader {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{cfg: cfg, client: client, logger: logger}
}

// Document returns the parsed page for req.
func (l *Loader) Document(ctx context.Context, req Request) (*goquery.Document, error) {
	if strings.TrimSpace(req.HTML) != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(req.HTML))
		if err != nil {
			return nil, fmt.Errorf("%w: parse snapshot: %v", apperr.ErrContentUnavailable, err)
		}
		return doc, nil
	}
	if err := CheckURL(req.URL); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= l.cfg.Retries; attempt++ {
		if attempt > 0 {
			l.logger.Debug("page: retrying fetch", slog.String("url", req.URL), slog.Int("attempt", attempt))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(l.cfg.RetryDelay):
			}
		}
		doc, err := l.fetch(ctx, req.URL)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if !isTimeout(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// Content returns the extracted text of the page for req.
func (l *Loader) Content(ctx context.Context, req Request) (string, error) {
	doc, err := l.Document(ctx, req)
	if err != nil {
		return "", err
	}
	return extract.Extract(doc)
}

func (l *Loader) fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	if l.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.FetchTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrContentUnavailable, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("page: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", apperr.ErrContentUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("page: read %s: %w", rawURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %v", apperr.ErrContentUnavailable, err)
	}
	return doc, nil
}

// CheckURL refuses anything that is not an http(s) page.
func CheckURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: invalid url %q", apperr.ErrContentUnavailable, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %s", ErrInternalPage, u.Scheme)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
