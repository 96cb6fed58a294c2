// Package weather reads current conditions from a wttr.in-compatible
// endpoint.
package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNoTemperature means the report came back without a parseable
// temperature.
var ErrNoTemperature = errors.New("weather: no temperature in report")

// tempPattern matches the "+31°C" fragment of a one-line report.
var tempPattern = regexp.MustCompile(`([+-]?\d+)°C`)

// Client fetches one-line weather reports.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a weather client. baseURL defaults to the public
// wttr.in instance when empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://wttr.in"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Current returns a one-line report such as "Lisbon: ☀️ +31°C".
func (c *Client) Current(ctx context.Context, city string) (string, error) {
	reqURL := fmt.Sprintf("%s/%s?format=%s", c.baseURL, url.PathEscape(city), url.QueryEscape("%l: %c %t"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("weather: build request: %w", err)
	}
	req.Header.Set("User-Agent", "curl/8.0") // wttr.in serves HTML to browser agents

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("weather: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("weather: HTTP %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("weather: read response: %w", err)
	}

	return strings.TrimSpace(string(body)), nil
}

// CurrentTemperature returns the current temperature for a city in °C.
func (c *Client) CurrentTemperature(ctx context.Context, city string) (int, error) {
	report, err := c.Current(ctx, city)
	if err != nil {
		return 0, err
	}

	m := tempPattern.FindStringSubmatch(report)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrNoTemperature, report)
	}

	temp, err := strconv.Atoi(strings.TrimPrefix(m[1], "+"))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNoTemperature, report)
	}
	return temp, nil
}
