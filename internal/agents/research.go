package agents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"agentd/internal/memory"
)

const (
	researchUserAgent = "agentd/1.0"
	maxFetchBytes     = 2 << 20 // 2MB page cap
	excerptLen        = 500
)

var researchClient = &http.Client{
	Timeout: 20 * time.Second,
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return fmt.Errorf("too many redirects")
		}
		return nil
	},
}

// Research fetches a URL, extracts the readable article text, and writes an
// observation record to the session's short-term memory. Params: "url"
// (required), "confidence" (default 0.5).
func Research(ctx context.Context, params map[string]any, mem memory.Handle) (map[string]any, error) {
	rawURL, _ := params["url"].(string)
	if rawURL == "" {
		return nil, errors.New("research: missing url parameter")
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		return nil, fmt.Errorf("research: invalid url %q", rawURL)
	}

	html, err := fetchHTML(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("research: %w", err)
	}

	title, text := extractReadable(html, parsedURL)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("research: no readable content at %s", rawURL)
	}

	confidence := 0.5
	if v, ok := params["confidence"].(float64); ok && v >= 0 && v <= 1 {
		confidence = v
	}

	rec := &memory.Record{
		Content:    fmt.Sprintf("%s\n\n%s", title, truncate(text, 2000)),
		Confidence: confidence,
		Metadata: map[string]any{
			"source": rawURL,
			"kind":   "research",
		},
	}
	if err := mem.Write(ctx, rec); err != nil {
		return nil, err
	}

	return map[string]any{
		"url":       rawURL,
		"title":     title,
		"excerpt":   truncate(text, excerptLen),
		"record_id": rec.ID,
	}, nil
}

func fetchHTML(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", researchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := researchClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(body), nil
}

// extractReadable prefers readability's article extraction and falls back
// to a plain goquery paragraph scrape for pages readability rejects.
func extractReadable(html string, pageURL *url.URL) (title, text string) {
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.Title, article.TextContent
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())
	var sb strings.Builder
	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			sb.WriteString(t)
			sb.WriteString("\n")
		}
	})
	return title, sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
