// Package extract turns a page's DOM snapshot into the plain text of its
// primary content, suitable for summarisation.
package extract

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/starford/webnote/internal/apperr"
)

const (
	// MaxLength is the output cap in characters.
	MaxLength = 8000

	minLength     = 50
	primaryMinLen = 200
	sentenceSlack = 100
)

// boilerplate is removed from the clone before any text is read.
var boilerplate = []string{
	"script", "style", "noscript", "iframe", "template",
	"nav", "header", "footer", "aside",
	"[role='navigation']", "[role='banner']", "[role='contentinfo']", "[role='complementary']",
	".advertisement", ".ads", ".ad", ".sidebar", ".menu", ".navigation", ".nav",
	".breadcrumb", ".social", ".share", ".comments", ".comment",
	".popup", ".modal", ".overlay", ".cookie", ".gdpr",
	"[class*='ad-']", "[class*='ads-']", "[id*='ad-']", "[id*='ads-']",
}

// primaryCandidates are probed in order for the main content region.
var primaryCandidates = []string{
	"main",
	"[role='main']",
	".main-content",
	".content",
	".post-content",
	".entry-content",
	".article-content",
	"article",
	".article",
}

var (
	inlineSpace = regexp.MustCompile(`[^\S\n]+`)
	noiseLines  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(skip to|jump to|go to)\b`),
		regexp.MustCompile(`(?i)^(cookies?|privacy|terms)\b`),
		regexp.MustCompile(`(?i)^(advertisements?|sponsored|ads?)\s*:?$`),
	}
)

// FromReader parses an HTML document and extracts its text.
func FromReader(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %v", apperr.ErrContentUnavailable, err)
	}
	return Extract(doc)
}

// Extract returns the cleaned text of doc's primary content. The document is
// not modified. It fails with apperr.ErrContentUnavailable when there is no
// body or fewer than 50 characters survive cleaning.
func Extract(doc *goquery.Document) (string, error) {
	root, err := primaryRegion(doc)
	if err != nil {
		return "", err
	}

	text := dropNoise(normalize(innerText(root)))
	if utf8.RuneCountInString(text) < minLength {
		return "", fmt.Errorf("%w: insufficient content found on page", apperr.ErrContentUnavailable)
	}
	return truncate(text, MaxLength), nil
}

// primaryRegion clones the body, strips boilerplate from the clone and
// returns the first candidate region with enough text, else the whole clone.
func primaryRegion(doc *goquery.Document) (*goquery.Selection, error) {
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return nil, fmt.Errorf("%w: document body not available", apperr.ErrContentUnavailable)
	}

	clone := body.Clone()
	clone.Find(strings.Join(boilerplate, ", ")).Remove()

	for _, sel := range primaryCandidates {
		cand := clone.Find(sel).First()
		if cand.Length() == 0 {
			continue
		}
		if utf8.RuneCountInString(strings.TrimSpace(innerText(cand))) > primaryMinLen {
			return cand, nil
		}
	}
	return clone, nil
}

// normalize collapses whitespace runs inside each line, trims every line and
// drops blank lines.
func normalize(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(inlineSpace.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// dropNoise removes skip-navigation, legal-notice and ad-label lines.
func dropNoise(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
next:
	for _, line := range lines {
		for _, re := range noiseLines {
			if re.MatchString(line) {
				continue next
			}
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// truncate caps s at max characters, cutting after the last full stop when
// that keeps more than half the budget, otherwise hard-cutting with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	limit := max - sentenceSlack
	cut := -1
	for i := limit; i >= 0; i-- {
		if r[i] == '.' {
			cut = i
			break
		}
	}
	if cut > max/2 {
		return string(r[:cut+1])
	}
	return string(r[:max]) + "..."
}
