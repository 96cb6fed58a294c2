// Package email reads the user's inbox over IMAP for the email skill.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/caioagent/caio/internal/config"
)

// Client is a single-account IMAP client with lazy connection and
// mutex-serialized access. All public methods are goroutine-safe.
type Client struct {
	cfg    config.EmailConfig
	logger *slog.Logger

	mu   sync.Mutex
	imap *imapclient.Client
}

// NewClient creates an IMAP client. The connection is established on
// first use.
func NewClient(cfg config.EmailConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, logger: logger}
}

// connectLocked dials and authenticates. Caller must hold c.mu.
func (c *Client) connectLocked() error {
	if c.imap != nil {
		_ = c.imap.Close()
		c.imap = nil
	}

	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))

	var opts imapclient.Options
	var client *imapclient.Client
	var err error
	if c.cfg.TLS {
		opts.TLSConfig = &tls.Config{ServerName: c.cfg.Host}
		client, err = imapclient.DialTLS(addr, &opts)
	} else {
		client, err = imapclient.DialInsecure(addr, &opts)
	}
	if err != nil {
		return fmt.Errorf("dial IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.cfg.Username, c.cfg.Password).Wait(); err != nil {
		_ = client.Close()
		return fmt.Errorf("login as %s: %w", c.cfg.Username, err)
	}

	c.imap = client
	c.logger.Info("IMAP connected", "host", c.cfg.Host, "user", c.cfg.Username)
	return nil
}

// ensureConnected reconnects when the session has gone stale. Caller
// must hold c.mu.
func (c *Client) ensureConnected(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.imap != nil {
		if err := c.imap.Noop().Wait(); err == nil {
			return nil
		}
		c.logger.Debug("IMAP connection stale, reconnecting", "host", c.cfg.Host)
	}
	return c.connectLocked()
}

// Close logs out and drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.imap == nil {
		return nil
	}
	err := c.imap.Close()
	c.imap = nil
	return err
}
