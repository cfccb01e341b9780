package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// contentSelectors are tried in order to find the main content region of a
// page before falling back to the whole body.
var contentSelectors = []string{
	"main",
	"article",
	"[role='main']",
	"#content",
	".content",
	"#main-content",
	".main-content",
	".post-content",
}

// minContentLength is the threshold below which a selector match is treated
// as boilerplate and skipped.
const minContentLength = 100

const userAgent = "kotae/1.0 (+https://github.com/hyperjump/kotae)"

// LoadURL fetches an http(s) page and extracts its readable text as one
// document.
func (l *Loader) LoadURL(ctx context.Context, pageURL string) ([]models.Document, models.SourceRef, error) {
	ref := models.SourceRef{
		ID:   pageURL,
		Type: models.SourceTypeURL,
		Kind: models.KindWebpage,
	}

	resp, err := l.http.R().
		SetContext(ctx).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		Get(pageURL)
	if err != nil {
		return nil, ref, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	if !resp.IsSuccess() {
		return nil, ref, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode())
	}

	doc, err := parseWebpage(resp.String(), pageURL)
	if err != nil {
		return nil, ref, err
	}

	l.logger.Debug("loaded webpage",
		zap.String("url", pageURL),
		zap.Int("bytes", len(resp.String())))
	return []models.Document{doc}, ref, nil
}

// parseWebpage extracts title and main content from raw HTML. Script, style,
// and noscript subtrees are dropped before text extraction.
func parseWebpage(html, pageURL string) (models.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.Document{}, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())

	var content string
	for _, sel := range contentSelectors {
		text := normalizeSpace(doc.Find(sel).First().Text())
		if len(text) >= minContentLength {
			content = text
			break
		}
	}
	if content == "" {
		content = normalizeSpace(doc.Find("body").Text())
	}

	text := content
	if title != "" {
		text = title + "\n\n" + content
	}

	meta := make(map[string]string)
	if title != "" {
		meta["title"] = title
	}
	if pageURL != "" {
		meta["url"] = pageURL
	}
	if len(meta) == 0 {
		meta = nil
	}

	return models.Document{Text: text, Metadata: meta}, nil
}

// normalizeSpace collapses all whitespace runs to single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
