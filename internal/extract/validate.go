package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tobyhearn/newshound/internal/types"
)

// Floors are measured in characters, not bytes, so non-ASCII text is
// held to the same standard as ASCII.
const (
	minTitleLen   = 10
	minContentLen = 100
)

// failureSentinels are phrases the cascade (or an upstream scraper)
// emits in place of real content. A record carrying one is a disguised
// failure, not an article.
var failureSentinels = []string{
	"failed to extract",
	"content extraction failed",
	"no title extracted",
	"no content extracted",
	"extraction failed",
	"error:",
}

// Validate rejects records that are too thin or are extraction
// failures dressed up as articles. A nil return means the record is
// safe to persist.
func Validate(a *types.Article) error {
	if strings.TrimSpace(a.URL) == "" {
		return fmt.Errorf("%w: missing URL", types.ErrInvalidArticle)
	}

	title := strings.TrimSpace(a.Title)
	content := strings.TrimSpace(a.Content)

	if sentinel := findSentinel(title); sentinel != "" {
		return fmt.Errorf("%w: title carries failure marker %q", types.ErrInvalidArticle, sentinel)
	}
	if sentinel := findSentinel(content); sentinel != "" {
		return fmt.Errorf("%w: content carries failure marker %q", types.ErrInvalidArticle, sentinel)
	}

	if n := utf8.RuneCountInString(title); n < minTitleLen {
		return fmt.Errorf("%w: title too short (%d chars)", types.ErrInvalidArticle, n)
	}
	if n := utf8.RuneCountInString(content); n < minContentLen {
		return fmt.Errorf("%w: content too short (%d chars)", types.ErrInvalidArticle, n)
	}

	return nil
}

func findSentinel(text string) string {
	lower := strings.ToLower(text)
	for _, s := range failureSentinels {
		if strings.Contains(lower, s) {
			return s
		}
	}
	return ""
}
