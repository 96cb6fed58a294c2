// Package fetch downloads a web page and reduces it to readable text
// for summarization.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// maxBodyBytes caps how much of a response is read (2 MB).
	maxBodyBytes int64 = 2 * 1024 * 1024

	// DefaultMaxChars is the extraction limit handed to the LLM.
	DefaultMaxChars = 8000
)

// Page is the readable content of a fetched URL.
type Page struct {
	URL       string
	Title     string
	Content   string
	Truncated bool
}

// Fetcher downloads pages over HTTP.
type Fetcher struct {
	httpClient *http.Client
}

// New creates a Fetcher.
func New() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch downloads rawURL and extracts its title and visible text.
// maxChars <= 0 uses DefaultMaxChars.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, maxChars int) (*Page, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("fetch: url is required")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: invalid url: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,text/plain;q=0.8,*/*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: HTTP %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch: read response: %w", err)
	}

	page := &Page{URL: rawURL}
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		page.Title, page.Content = extract(string(body))
	} else {
		page.Content = strings.TrimSpace(string(body))
	}

	if len(page.Content) > maxChars {
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(page.Content[cut]) {
			cut--
		}
		page.Content = page.Content[:cut]
		page.Truncated = true
	}
	return page, nil
}
