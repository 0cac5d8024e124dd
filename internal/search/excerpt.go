package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const maxExcerptLen = 800

// PageExcerpter pulls a short paragraph excerpt from an article page to
// enrich snippet-only evidence. This is best effort; callers treat any
// failure as "no excerpt".
type PageExcerpter struct {
	client *resty.Client
}

func NewPageExcerpter() *PageExcerpter {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	client.SetHeader("User-Agent", "marketbrief/1.0")
	return &PageExcerpter{client: client}
}

func (pe *PageExcerpter) Excerpt(ctx context.Context, url string) (string, error) {
	resp, err := pe.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", url, err)
	}

	var b strings.Builder
	doc.Find("article p, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if len(text) < 40 {
			return true
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(text)
		return b.Len() < maxExcerptLen
	})

	excerpt := b.String()
	if excerpt == "" {
		return "", fmt.Errorf("no readable paragraphs at %s", url)
	}
	if len(excerpt) > maxExcerptLen {
		excerpt = excerpt[:maxExcerptLen]
	}
	return excerpt, nil
}
