// Package router receives inbound chat messages, classifies them into
// intents, and dispatches each intent to its handler. A failing
// handler never takes the rest of the batch down with it.
package router

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/caioagent/caio/internal/email"
	"github.com/caioagent/caio/internal/fetch"
	"github.com/caioagent/caio/internal/intent"
	"github.com/caioagent/caio/internal/llm"
	"github.com/caioagent/caio/internal/memory"
	"github.com/caioagent/caio/internal/monitor"
	"github.com/caioagent/caio/internal/outbox"
	"github.com/caioagent/caio/internal/search"
)

// errorReply is the user-visible reply for any handler failure. The
// real error goes to the log, never to chat.
const errorReply = "😕 Sorry, something went wrong with part of that. Please try again."

// Inbound is one message as received from the chat transport.
type Inbound struct {
	ChatID int64
	Text   string
}

// Classifier turns text into an ordered intent list.
type Classifier interface {
	Classify(ctx context.Context, text string) []intent.Intent
}

// Memory is the slice of the memory service the dispatcher uses.
type Memory interface {
	Store(content, source string, importance float64)
	Recall(query string, limit int) []memory.Entry
	SetPreference(key, value string)
	GetPreference(key, def string) string
}

// Scheduler registers reminders.
type Scheduler interface {
	ScheduleOnce(chatID int64, delayMinutes int, message string) (string, error)
	ScheduleDaily(chatID int64, timeOfDay, message string) (string, error)
}

// Calendar is the calendar skill surface.
type Calendar interface {
	CreateEvent(ctx context.Context, summary string, start time.Time, duration time.Duration) error
	UpcomingEvents(ctx context.Context, from, until time.Time) ([]monitor.Event, error)
}

// Inbox lists unread email.
type Inbox interface {
	ListUnread(ctx context.Context, limit int) ([]email.Unread, error)
}

// Searcher runs web queries.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]search.Result, error)
}

// PageFetcher pulls readable text out of a result URL so search
// summaries can draw on more than snippets.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string, maxChars int) (*fetch.Page, error)
}

// WeatherSource reports current conditions.
type WeatherSource interface {
	Current(ctx context.Context, city string) (string, error)
}

// Files is the workspace skill surface.
type Files interface {
	List(rel string) (string, error)
	Preview(rel string) (string, error)
	CreateFolder(rel string) error
}

// Mailbox is where replies are handed off for delivery.
type Mailbox interface {
	Enqueue(m outbox.Message) bool
}

// Config wires a Dispatcher. Classifier, Memory, Scheduler, and Mail
// are required; every skill field may be nil, which turns the matching
// intent into a polite "not configured" reply.
type Config struct {
	AgentName  string
	Classifier Classifier
	LLM        llm.Client
	Memory     Memory
	Scheduler  Scheduler
	Calendar   Calendar
	Email      Inbox
	Search     Searcher
	Fetcher    PageFetcher
	Weather    WeatherSource
	Files      Files
	Mail       Mailbox
	Logger     *slog.Logger
}

// Dispatcher is the intent router.
type Dispatcher struct {
	cfg     Config
	logger  *slog.Logger
	nowFunc func() time.Time
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AgentName == "" {
		cfg.AgentName = "Caio"
	}
	return &Dispatcher{
		cfg:     cfg,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// HandleMessage processes one inbound message end to end: record it,
// peel off pattern-matched reminders, classify the rest, and run each
// intent in order. Handler errors are isolated per intent.
func (d *Dispatcher) HandleMessage(ctx context.Context, in Inbound) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return
	}

	d.cfg.Memory.Store(text, "user", 1.0)

	// Cheap regex pre-pass: unambiguous reminder phrasings skip the
	// LLM round-trip entirely.
	remainder, reminders := ExtractReminders(text)
	for _, r := range reminders {
		reply, err := d.scheduleReminder(in.ChatID, r)
		d.deliver(in.ChatID, reply, err)
	}
	if strings.TrimSpace(remainder) == "" {
		return
	}

	intents := d.cfg.Classifier.Classify(ctx, remainder)
	for _, it := range intents {
		reply, err := d.dispatch(ctx, in.ChatID, it, remainder)
		d.deliver(in.ChatID, reply, err)
	}
}

// deliver enqueues a reply, substituting the generic error reply when
// the handler failed. Empty successful replies are dropped.
func (d *Dispatcher) deliver(chatID int64, reply string, err error) {
	if err != nil {
		d.logger.Error("intent handler failed", "chat_id", chatID, "error", err)
		reply = errorReply
	}
	if reply == "" {
		return
	}
	d.cfg.Mail.Enqueue(outbox.Message{ChatID: chatID, Text: reply})
	d.cfg.Memory.Store(reply, "agent", 0.5)
}

// dispatch routes one intent to its handler.
func (d *Dispatcher) dispatch(ctx context.Context, chatID int64, it intent.Intent, text string) (string, error) {
	d.logger.Debug("dispatching intent", "action", it.Action.String(), "chat_id", chatID)

	switch it.Action {
	case intent.ActionReminderSet:
		return d.handleReminder(chatID, it)
	case intent.ActionCalendarAdd:
		return d.handleCalendarAdd(ctx, it)
	case intent.ActionCalendarList:
		return d.handleCalendarList(ctx)
	case intent.ActionEmailCheck:
		return d.handleEmailCheck(ctx)
	case intent.ActionConfigUpdate:
		return d.handleConfigUpdate(it)
	case intent.ActionWebSearch:
		return d.handleWebSearch(ctx, it, text)
	case intent.ActionWeather:
		return d.handleWeather(ctx, it)
	case intent.ActionFilesystem:
		return d.handleFilesystem(it)
	default:
		// Chat, plus anything the classifier could not place.
		return d.handleChat(ctx, text)
	}
}
