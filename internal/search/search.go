// Package search answers web queries through the Brave Search API.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// defaultCount is how many results a query returns unless asked
// otherwise.
const defaultCount = 5

// Result is a single search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Client talks to the Brave web search endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Brave search client.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: "https://api.search.brave.com/res/v1/web/search",
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search runs a query and returns up to count results. count <= 0
// means the default.
func (c *Client) Search(ctx context.Context, query string, count int) ([]Result, error) {
	if count <= 0 {
		count = defaultCount
	}

	params := url.Values{
		"q":     {query},
		"count": {strconv.Itoa(count)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("search: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var br braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("search: decode response: %w", err)
	}

	results := make([]Result, 0, count)
	for i, r := range br.Web.Results {
		if i >= count {
			break
		}
		results = append(results, Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Description,
		})
	}

	return results, nil
}

// FormatResults renders hits as a chat-friendly numbered list.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No results found."
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. %s\n%s", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			b.WriteString("\n")
			b.WriteString(r.Snippet)
		}
	}
	return b.String()
}
