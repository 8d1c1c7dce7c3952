package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/tobyhearn/newshound/internal/types"
)

func validArticle() *types.Article {
	return &types.Article{
		URL:     "https://example.com/article/fed-holds-rates",
		Title:   "Fed Holds Rates Steady Through Summer",
		Content: strings.Repeat("The central bank kept its benchmark rate unchanged. ", 5),
	}
}

func TestValidateAcceptsGoodArticle(t *testing.T) {
	if err := Validate(validArticle()); err != nil {
		t.Errorf("expected valid article, got %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Article)
	}{
		{"missing URL", func(a *types.Article) { a.URL = "  " }},
		{"short title", func(a *types.Article) { a.Title = "Brief" }},
		{"short content", func(a *types.Article) { a.Content = "not enough body text" }},
		{"whitespace-padded short content", func(a *types.Article) {
			a.Content = "   " + strings.Repeat(" ", 200) + "thin   "
		}},
		{"sentinel title", func(a *types.Article) { a.Title = "Failed to extract title" }},
		{"sentinel content", func(a *types.Article) {
			a.Content = "Content extraction failed for https://example.com: timeout" + strings.Repeat(" pad", 50)
		}},
		{"error marker in content", func(a *types.Article) {
			a.Content = "Error: upstream scraper returned nothing usable" + strings.Repeat(" pad", 50)
		}},
		{"sentinel casing ignored", func(a *types.Article) { a.Title = "EXTRACTION FAILED entirely" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validArticle()
			tt.mutate(a)
			err := Validate(a)
			if err == nil {
				t.Fatal("expected rejection")
			}
			if !errors.Is(err, types.ErrInvalidArticle) {
				t.Errorf("expected ErrInvalidArticle, got %v", err)
			}
		})
	}
}

func TestValidateBoundaryLengths(t *testing.T) {
	a := validArticle()
	a.Title = strings.Repeat("t", minTitleLen)
	a.Content = strings.Repeat("c", minContentLen)
	if err := Validate(a); err != nil {
		t.Errorf("boundary lengths should pass, got %v", err)
	}

	a.Title = strings.Repeat("t", minTitleLen-1)
	if err := Validate(a); err == nil {
		t.Error("title one under the floor should fail")
	}
}

func TestValidateCountsCharactersNotBytes(t *testing.T) {
	// Each CJK character is three bytes; byte counting would let half
	// the required content through.
	a := validArticle()
	a.Title = strings.Repeat("株", minTitleLen)
	a.Content = strings.Repeat("日", minContentLen-1)
	if err := Validate(a); err == nil {
		t.Error("multi-byte content under the character floor should fail")
	}

	a.Content = strings.Repeat("日", minContentLen)
	if err := Validate(a); err != nil {
		t.Errorf("multi-byte boundary lengths should pass, got %v", err)
	}

	a.Title = strings.Repeat("株", minTitleLen-1)
	if err := Validate(a); err == nil {
		t.Error("multi-byte title under the character floor should fail")
	}
}

func BenchmarkValidate(b *testing.B) {
	a := validArticle()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := Validate(a); err != nil {
			b.Fatal(err)
		}
	}
}
