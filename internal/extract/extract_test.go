package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/starford/webnote/internal/apperr"
)

func parse(t *testing.T, src string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

var paragraph = strings.Repeat("Go is an open source programming language that makes it simple to build software. ", 4)

func TestExtract_OnlyNavAndFooter(t *testing.T) {
	doc := parse(t, `<html><body>
		<nav>Home About Contact Blog Archive Tags Search Login Register Help</nav>
		<footer>Copyright 2025 Example Corporation. All rights reserved worldwide.</footer>
	</body></html>`)
	_, err := Extract(doc)
	if !errors.Is(err, apperr.ErrContentUnavailable) {
		t.Fatalf("err = %v, want ErrContentUnavailable", err)
	}
}

func TestExtract_EmptyDocument(t *testing.T) {
	_, err := FromReader(strings.NewReader(""))
	if !errors.Is(err, apperr.ErrContentUnavailable) {
		t.Fatalf("err = %v, want ErrContentUnavailable", err)
	}
}

func TestExtract_RemovesBoilerplate(t *testing.T) {
	doc := parse(t, `<html><body>
		<header>Site header text</header>
		<script>var tracking = "secret";</script>
		<style>.x { color: red }</style>
		<div class="ad-banner">Buy now buy now</div>
		<div id="ads-top">More ads</div>
		<div role="navigation">Role nav</div>
		<p>`+paragraph+`</p>
		<aside>Related links</aside>
	</body></html>`)
	text, err := Extract(doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, junk := range []string{"Site header", "tracking", "color: red", "Buy now", "More ads", "Role nav", "Related links"} {
		if strings.Contains(text, junk) {
			t.Errorf("output contains %q:\n%s", junk, text)
		}
	}
	if !strings.Contains(text, "open source programming language") {
		t.Errorf("main text missing:\n%s", text)
	}
}

func TestExtract_PrefersPrimaryRegion(t *testing.T) {
	doc := parse(t, `<html><body>
		<div class="teaser">Teaser text outside the article that should not appear at all.</div>
		<article><h1>Title</h1><p>`+paragraph+`</p></article>
	</body></html>`)
	text, err := Extract(doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if strings.Contains(text, "Teaser") {
		t.Errorf("text outside primary region leaked:\n%s", text)
	}
	if !strings.HasPrefix(text, "Title\n") {
		t.Errorf("expected heading on its own line, got:\n%s", text)
	}
}

func TestExtract_ShortPrimaryFallsBackToBody(t *testing.T) {
	doc := parse(t, `<html><body>
		<main>Too short.</main>
		<div><p>`+paragraph+`</p></div>
	</body></html>`)
	text, err := Extract(doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(text, "Too short.") || !strings.Contains(text, "open source") {
		t.Errorf("expected whole body, got:\n%s", text)
	}
}

func TestExtract_DoesNotMutateDocument(t *testing.T) {
	doc := parse(t, `<html><body><nav>menu</nav><p>`+paragraph+`</p></body></html>`)
	if _, err := Extract(doc); err != nil {
		t.Fatal(err)
	}
	if doc.Find("nav").Length() != 1 {
		t.Error("live document was modified")
	}
}

func TestExtract_DropsNoiseLines(t *testing.T) {
	doc := parse(t, `<html><body>
		<p>Skip to main content</p>
		<p>Cookie settings and preferences</p>
		<p>Privacy Policy</p>
		<p>Advertisement</p>
		<p>`+paragraph+`</p>
	</body></html>`)
	text, err := Extract(doc)
	if err != nil {
		t.Fatal(err)
	}
	for _, junk := range []string{"Skip to", "Cookie", "Privacy", "Advertisement"} {
		if strings.Contains(text, junk) {
			t.Errorf("noise %q survived:\n%s", junk, text)
		}
	}
}

func TestExtract_KeepsProseStartingWithAd(t *testing.T) {
	doc := parse(t, `<html><body>
		<p>Ad</p>
		<p>Sponsored</p>
		<p>Ad hoc routing lets nodes forward packets without fixed infrastructure.</p>
		<p>Advertisement revenue funds the site, the editors say.</p>
		<p>`+paragraph+`</p>
	</body></html>`)
	text, err := Extract(doc)
	if err != nil {
		t.Fatal(err)
	}
	for _, keep := range []string{"Ad hoc routing", "Advertisement revenue"} {
		if !strings.Contains(text, keep) {
			t.Errorf("content line %q dropped:\n%s", keep, text)
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if line == "Ad" || line == "Sponsored" {
			t.Errorf("label line %q survived", line)
		}
	}
}

func TestNormalize(t *testing.T) {
	in := "  a   b\t\tc  \n\n   \n d  \n"
	if got := normalize(in); got != "a b c\nd" {
		t.Errorf("normalize = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Run("short untouched", func(t *testing.T) {
		if got := truncate("hello.", 10); got != "hello." {
			t.Errorf("got %q", got)
		}
	})

	t.Run("cuts at sentence", func(t *testing.T) {
		s := strings.Repeat("x", 6000) + "." + strings.Repeat("y", 3000)
		got := truncate(s, MaxLength)
		if len(got) != 6001 || !strings.HasSuffix(got, ".") {
			t.Errorf("len = %d, suffix %q", len(got), got[len(got)-1:])
		}
	})

	t.Run("hard cut when boundary too early", func(t *testing.T) {
		s := strings.Repeat("x", 100) + "." + strings.Repeat("y", 9000)
		got := truncate(s, MaxLength)
		if len([]rune(got)) != MaxLength+3 || !strings.HasSuffix(got, "...") {
			t.Errorf("len = %d", len([]rune(got)))
		}
	})

	t.Run("counts characters not bytes", func(t *testing.T) {
		s := strings.Repeat("日本語", 3000)
		got := truncate(s, MaxLength)
		if n := len([]rune(got)); n != MaxLength+3 {
			t.Errorf("runes = %d", n)
		}
	})
}

func TestMarkdown(t *testing.T) {
	doc := parse(t, `<html><body>
		<nav>menu</nav>
		<article><h1>Clip me</h1><p>`+paragraph+`</p><p><a href="https://go.dev">link</a></p></article>
	</body></html>`)
	md, err := Markdown(doc)
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	if !strings.Contains(md, "# Clip me") {
		t.Errorf("heading missing:\n%s", md)
	}
	if !strings.Contains(md, "[link](https://go.dev)") {
		t.Errorf("link missing:\n%s", md)
	}
	if strings.Contains(md, "menu") {
		t.Errorf("boilerplate leaked:\n%s", md)
	}
}
