package extract

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/starford/webnote/internal/apperr"
)

// Markdown converts the primary content region of doc to Markdown, for
// clipping a page into a note. Boilerplate is stripped first, as in Extract.
func Markdown(doc *goquery.Document) (string, error) {
	root, err := primaryRegion(doc)
	if err != nil {
		return "", err
	}
	fragment, err := goquery.OuterHtml(root)
	if err != nil {
		return "", fmt.Errorf("%w: render region: %v", apperr.ErrContentUnavailable, err)
	}
	md, err := htmltomarkdown.ConvertString(fragment)
	if err != nil {
		return "", fmt.Errorf("%w: convert: %v", apperr.ErrContentUnavailable, err)
	}
	md = strings.TrimSpace(md)
	if md == "" {
		return "", fmt.Errorf("%w: nothing to clip", apperr.ErrContentUnavailable)
	}
	return md, nil
}
