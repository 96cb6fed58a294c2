package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is a minimal Telegram Bot API client: long-polling getUpdates
// plus sendMessage. That is the whole surface the agent needs.
type Client struct {
	baseURL     string // "https://api.telegram.org/bot<token>"
	pollTimeout int    // seconds, for getUpdates long polls
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a Bot API client. pollTimeout is the long-poll
// timeout in seconds; values below 1 become 30.
func NewClient(token string, pollTimeout int, logger *slog.Logger) *Client {
	if pollTimeout < 1 {
		pollTimeout = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:     "https://api.telegram.org/bot" + token,
		pollTimeout: pollTimeout,
		httpClient: &http.Client{
			// Long polls hold the connection for pollTimeout seconds;
			// the client timeout must sit comfortably above that.
			Timeout: time.Duration(pollTimeout+15) * time.Second,
		},
		logger: logger,
	}
}

// apiResponse is the Bot API envelope around every method result.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (c *Client) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram: build %s request: %w", method, err)
	}
	req.URL.RawQuery = params.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("telegram: read %s response: %w", method, err)
	}

	var api apiResponse
	if err := json.Unmarshal(body, &api); err != nil {
		return nil, fmt.Errorf("telegram: decode %s response: %w", method, err)
	}
	if !api.OK {
		return nil, fmt.Errorf("telegram: %s rejected: %s", method, api.Description)
	}
	return api.Result, nil
}

// GetUpdates long-polls for new updates with IDs greater than or equal
// to offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	params := url.Values{
		"timeout": {strconv.Itoa(c.pollTimeout)},
	}
	if offset != 0 {
		params.Set("offset", strconv.FormatInt(offset, 10))
	}

	result, err := c.call(ctx, "getUpdates", params)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("telegram: decode updates: %w", err)
	}
	return updates, nil
}

// Send delivers a text message to a chat.
func (c *Client) Send(ctx context.Context, chatID int64, text string) error {
	params := url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"text":    {text},
	}
	_, err := c.call(ctx, "sendMessage", params)
	return err
}
