// Package i18n holds the UI and prompt string catalogues. A Localizer is
// constructed explicitly and passed to the components that need it; it
// answers with the caller's fallback until Load has completed.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Supported locales.
const (
	LocaleJA = "ja"
	LocaleEN = "en"
)

// DefaultLocale is used when none is configured.
const DefaultLocale = LocaleJA

//go:embed locales/*.yaml
var embedded embed.FS

// Locales lists the supported locales.
func Locales() []string {
	return []string{LocaleJA, LocaleEN}
}

// Localizer translates dotted keys for the current locale.
type Localizer struct {
	mu       sync.RWMutex
	locale   string
	catalogs map[string]map[string]any
	src      fs.FS
}

// New returns a Localizer for locale that has not loaded any catalogue yet.
func New(locale string) (*Localizer, error) {
	if err := checkLocale(locale); err != nil {
		return nil, err
	}
	return &Localizer{locale: locale, src: embedded}, nil
}

// Load parses every catalogue. After it returns nil, Ready reports true.
func (l *Localizer) Load() error {
	catalogs := make(map[string]map[string]any, len(Locales()))
	for _, loc := range Locales() {
		data, err := fs.ReadFile(l.src, path.Join("locales", loc+".yaml"))
		if err != nil {
			return fmt.Errorf("i18n: read %s: %w", loc, err)
		}
		var tree map[string]any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return fmt.Errorf("i18n: parse %s: %w", loc, err)
		}
		catalogs[loc] = tree
	}

	l.mu.Lock()
	l.catalogs = catalogs
	l.mu.Unlock()
	return nil
}

// Ready reports whether Load has completed.
func (l *Localizer) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.catalogs != nil
}

// Locale returns the current locale.
func (l *Localizer) Locale() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.locale
}

// SetLocale switches the current locale.
func (l *Localizer) SetLocale(locale string) error {
	if err := checkLocale(locale); err != nil {
		return err
	}
	l.mu.Lock()
	l.locale = locale
	l.mu.Unlock()
	return nil
}

// T looks up a dotted key such as "summary.error". When the catalogue is
// not loaded or the key does not resolve to a string it returns fallback,
// or the key itself when fallback is empty.
func (l *Localizer) T(key, fallback string) string {
	if fallback == "" {
		fallback = key
	}

	l.mu.RLock()
	tree := l.catalogs[l.locale]
	l.mu.RUnlock()
	if tree == nil {
		return fallback
	}

	var node any = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return fallback
		}
		if node, ok = m[part]; !ok {
			return fallback
		}
	}
	if s, ok := node.(string); ok {
		return s
	}
	return fallback
}

// Format is T followed by substitution of {name} placeholders.
func (l *Localizer) Format(key, fallback string, args map[string]string) string {
	s := l.T(key, fallback)
	if len(args) == 0 {
		return s
	}
	pairs := make([]string, 0, len(args)*2)
	for k, v := range args {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

func checkLocale(locale string) error {
	for _, l := range Locales() {
		if l == locale {
			return nil
		}
	}
	return fmt.Errorf("i18n: unsupported locale %q", locale)
}
