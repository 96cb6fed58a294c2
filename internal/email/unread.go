package email

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

// maxPreviewBytes caps the plain-text body carried per message.
const maxPreviewBytes = 2048

// Unread is one unseen inbox message with a short body preview.
type Unread struct {
	UID     uint32
	Date    time.Time
	From    string
	Subject string
	Preview string
}

// ListUnread returns up to limit unseen INBOX messages, newest first,
// each with a plain-text preview. limit <= 0 means 5.
func (c *Client) ListUnread(ctx context.Context, limit int) ([]Unread, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	if _, err := c.imap.Select("INBOX", nil).Wait(); err != nil {
		return nil, fmt.Errorf("select INBOX: %w", err)
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	searchData, err := c.imap.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	// Highest UIDs are newest; keep the most recent limit.
	if len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	uidSet := imap.UIDSet{}
	for _, uid := range uids {
		uidSet.AddNum(uid)
	}

	fetchOpts := &imap.FetchOptions{
		UID:      true,
		Envelope: true,
		BodySection: []*imap.FetchItemBodySection{
			{Peek: true}, // a summary must not mark anything read
		},
	}

	fetchCmd := c.imap.Fetch(uidSet, fetchOpts)
	var messages []Unread
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		m, err := c.parseUnread(msg)
		if err != nil {
			c.logger.Debug("skipping message", "error", err)
			continue
		}
		messages = append(messages, m)
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	// Newest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (c *Client) parseUnread(msg *imapclient.FetchMessageData) (Unread, error) {
	var m Unread

	for {
		item := msg.Next()
		if item == nil {
			break
		}

		switch data := item.(type) {
		case imapclient.FetchItemDataUID:
			m.UID = uint32(data.UID)
		case imapclient.FetchItemDataEnvelope:
			if data.Envelope != nil {
				m.Date = data.Envelope.Date
				m.Subject = data.Envelope.Subject
				if len(data.Envelope.From) > 0 {
					m.From = formatAddress(data.Envelope.From[0])
				}
			}
		case imapclient.FetchItemDataBodySection:
			// The literal streams from the connection; it has to be
			// consumed before msg.Next() advances past it.
			if data.Literal == nil {
				continue
			}
			preview, err := textPreview(data.Literal)
			// Drain the remainder to keep the IMAP stream in sync.
			_, _ = io.Copy(io.Discard, data.Literal)
			if err != nil {
				c.logger.Debug("body parse failed", "uid", m.UID, "error", err)
				continue
			}
			m.Preview = preview
		}
	}

	if m.UID == 0 {
		return m, fmt.Errorf("message missing UID")
	}
	return m, nil
}

// textPreview extracts the first text/plain part of a raw message,
// truncated to maxPreviewBytes.
func textPreview(r io.Reader) (string, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return "", fmt.Errorf("create mail reader: %w", err)
	}
	if mr == nil {
		return "", fmt.Errorf("create mail reader: %w", err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return "", nil
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return "", fmt.Errorf("next part: %w", err)
		}
		if part == nil {
			continue
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if contentType != "text/plain" {
			continue
		}

		body, err := io.ReadAll(io.LimitReader(part.Body, maxPreviewBytes))
		if err != nil {
			return "", fmt.Errorf("read text part: %w", err)
		}
		return strings.TrimSpace(string(body)), nil
	}
}

func formatAddress(addr imap.Address) string {
	email := addr.Addr()
	if addr.Name != "" {
		return fmt.Sprintf("%s <%s>", addr.Name, email)
	}
	return email
}

// FormatUnread renders the unread listing as a chat reply.
func FormatUnread(messages []Unread) string {
	if len(messages) == 0 {
		return "📭 Inbox zero! No unread emails."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📬 You have %d unread email(s):\n", len(messages))
	for i, m := range messages {
		fmt.Fprintf(&b, "\n%d. %s\n   From: %s", i+1, m.Subject, m.From)
		if m.Preview != "" {
			preview := m.Preview
			if idx := strings.IndexByte(preview, '\n'); idx >= 0 {
				preview = preview[:idx]
			}
			if r := []rune(preview); len(r) > 120 {
				preview = string(r[:120]) + "…"
			}
			fmt.Fprintf(&b, "\n   %s", preview)
		}
	}
	return b.String()
}
