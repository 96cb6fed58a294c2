package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caioagent/caio/internal/outbox"
	"github.com/caioagent/caio/internal/router"
)

// handleTimeout bounds how long a single inbound message may be
// processed.
const handleTimeout = 2 * time.Minute

// pollRetryDelay is the backoff after a failed getUpdates call.
const pollRetryDelay = 5 * time.Second

// Dispatcher processes one inbound message. The real implementation
// is *router.Dispatcher.
type Dispatcher interface {
	HandleMessage(ctx context.Context, in router.Inbound)
}

// Recipients learns where proactive messages should go. The real
// implementation is *monitor.Monitor.
type Recipients interface {
	SetRecipient(chatID int64)
}

// Mailbox carries the bridge's own replies (the /start greeting).
type Mailbox interface {
	Enqueue(m outbox.Message) bool
}

// Preferences reads stored profile values. The real implementation is
// *memory.Service.
type Preferences interface {
	GetPreference(key, def string) string
}

// Bridge long-polls Telegram and routes each text message through the
// dispatcher.
type Bridge struct {
	client     *Client
	dispatcher Dispatcher
	recipients Recipients
	mail       Mailbox
	prefs      Preferences
	agentName  string
	logger     *slog.Logger

	offset int64
}

// BridgeConfig holds the dependencies for a Bridge.
type BridgeConfig struct {
	Client     *Client
	Dispatcher Dispatcher
	Recipients Recipients
	Mail       Mailbox
	Prefs      Preferences
	AgentName  string
	Logger     *slog.Logger
}

// NewBridge creates a Telegram message bridge.
func NewBridge(cfg BridgeConfig) *Bridge {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.AgentName
	if name == "" {
		name = "Caio"
	}
	return &Bridge{
		client:     cfg.Client,
		dispatcher: cfg.Dispatcher,
		recipients: cfg.Recipients,
		mail:       cfg.Mail,
		prefs:      cfg.Prefs,
		agentName:  name,
		logger:     logger,
	}
}

// Start polls for updates and dispatches them until ctx is cancelled.
// It blocks.
func (b *Bridge) Start(ctx context.Context) {
	b.logger.Info("telegram bridge started")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("telegram bridge shutting down")
			return
		default:
		}

		updates, err := b.client.GetUpdates(ctx, b.offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("telegram poll failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= b.offset {
				b.offset = u.UpdateID + 1
			}
			b.handleUpdate(ctx, u)
		}
	}
}

func (b *Bridge) handleUpdate(ctx context.Context, u Update) {
	if u.Message == nil || strings.TrimSpace(u.Message.Text) == "" {
		b.logger.Debug("telegram ignoring non-text update", "update_id", u.UpdateID)
		return
	}

	chatID := u.Message.Chat.ID
	text := strings.TrimSpace(u.Message.Text)

	// Any inbound message teaches the monitor where the user lives.
	if b.recipients != nil {
		b.recipients.SetRecipient(chatID)
	}

	if text == "/start" {
		b.greet(chatID, u.Message.From)
		return
	}

	b.logger.Info("telegram message received", "chat_id", chatID, "chars", len(text))

	handleCtx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()
	b.dispatcher.HandleMessage(handleCtx, router.Inbound{ChatID: chatID, Text: text})
}

// greet answers /start. The stored name preference wins over the
// Telegram profile name, since the user may have told us what to call
// them.
func (b *Bridge) greet(chatID int64, from *User) {
	who := ""
	if b.prefs != nil {
		if name := b.prefs.GetPreference("name", ""); name != "" {
			who = " " + name
		}
	}
	if who == "" && from != nil && from.FirstName != "" {
		who = " " + from.FirstName
	}
	b.mail.Enqueue(outbox.Message{
		ChatID: chatID,
		Text: fmt.Sprintf("👋 Hey%s! I'm %s, your personal assistant. "+
			"I can set reminders, watch your calendar, check email and weather, and just chat. "+
			"Tell me something like \"remind me to stretch in 20 minutes\".", who, b.agentName),
	})
}
