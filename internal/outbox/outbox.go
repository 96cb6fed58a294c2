// Package outbox serializes outbound message delivery. Background
// components (reminder engine, proactive monitor) and the intent
// dispatcher all run on their own goroutines; instead of calling the
// transport directly they enqueue messages here, and a single consumer
// goroutine drains the queue and performs the sends. This keeps the
// transport single-threaded without exposing locks to producers.
package outbox

import (
	"context"
	"log/slog"
)

// Message is a single outbound chat message.
type Message struct {
	ChatID int64
	Text   string
}

// SendFunc delivers one message over the transport.
type SendFunc func(ctx context.Context, chatID int64, text string) error

// queueSize bounds the number of undelivered messages. Producers never
// block: when the queue is full the message is dropped and logged,
// matching the no-retry delivery contract.
const queueSize = 64

// Outbox is a single-consumer mailbox for outbound messages.
type Outbox struct {
	logger *slog.Logger
	send   SendFunc
	ch     chan Message
}

// New creates an outbox that delivers messages via send.
func New(send SendFunc, logger *slog.Logger) *Outbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Outbox{
		logger: logger,
		send:   send,
		ch:     make(chan Message, queueSize),
	}
}

// Enqueue hands a message to the consumer goroutine. It is safe to call
// from any goroutine and never blocks. Returns false if the queue was
// full and the message was dropped.
func (o *Outbox) Enqueue(m Message) bool {
	select {
	case o.ch <- m:
		return true
	default:
		o.logger.Warn("outbox full, dropping message",
			"chat_id", m.ChatID,
			"text_len", len(m.Text),
		)
		return false
	}
}

// Run drains the queue until ctx is cancelled. It blocks. Delivery
// failures are logged and the message is dropped; there is no retry.
func (o *Outbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-o.ch:
			if err := o.send(ctx, m.ChatID, m.Text); err != nil {
				o.logger.Error("outbound send failed",
					"chat_id", m.ChatID,
					"error", err,
				)
			}
		}
	}
}
