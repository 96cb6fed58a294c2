// Package monitor is the proactive loop: it watches the calendar for
// imminent events and the weather for heat, and nudges the user over
// the outbox without being asked.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/caioagent/caio/internal/outbox"
)

const (
	// pollInterval is how often the monitor wakes up.
	pollInterval = time.Minute

	// wellnessInterval throttles weather checks to one per hour.
	wellnessInterval = time.Hour

	// Events starting between windowNear and windowFar from now get
	// an alert. The window is wider than one poll so a tick landing
	// anywhere inside it still catches the event.
	windowNear = 10 * time.Minute
	windowFar  = 15 * time.Minute

	// hotThreshold is the temperature in °C above which the hydration
	// nudge fires. Strictly above: 28 exactly stays quiet.
	hotThreshold = 28
)

// Event is a calendar entry as the monitor sees it.
type Event struct {
	ID      string
	Summary string
	Start   time.Time
	AllDay  bool
}

// EventSource lists calendar events starting inside a time range.
type EventSource interface {
	UpcomingEvents(ctx context.Context, from, until time.Time) ([]Event, error)
}

// TemperatureSource reports the current temperature for a city in °C.
type TemperatureSource interface {
	CurrentTemperature(ctx context.Context, city string) (int, error)
}

// Preferences is the slice of the memory service the monitor needs.
type Preferences interface {
	GetPreference(key, def string) string
}

// Mailbox is where alerts are handed off for delivery.
type Mailbox interface {
	Enqueue(m outbox.Message) bool
}

// Monitor runs the proactive checks. It stays silent until a recipient
// chat is known.
type Monitor struct {
	logger *slog.Logger
	events EventSource       // nil disables calendar alerts
	temps  TemperatureSource // nil disables wellness checks
	prefs  Preferences
	mail   Mailbox

	mu           sync.Mutex
	recipient    int64
	alerted      map[string]struct{} // event IDs already announced; grows for process lifetime
	lastWellness time.Time

	nowFunc func() time.Time
}

// New creates a monitor. events and temps may be nil; the matching
// check is skipped.
func New(events EventSource, temps TemperatureSource, prefs Preferences, mail Mailbox, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		logger:  logger,
		events:  events,
		temps:   temps,
		prefs:   prefs,
		mail:    mail,
		alerted: make(map[string]struct{}),
		nowFunc: time.Now,
	}
}

// SetRecipient records the chat proactive messages go to. Called by
// the bridge once a conversation exists.
func (m *Monitor) SetRecipient(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recipient != chatID {
		m.logger.Info("proactive recipient set", "chat_id", chatID)
	}
	m.recipient = chatID
}

// Run polls until ctx is cancelled. It blocks.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	m.logger.Info("proactive monitor started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("proactive monitor stopped")
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick runs one round of checks. Errors in one check never block the
// other; everything is logged and the loop carries on.
func (m *Monitor) tick(ctx context.Context) {
	m.mu.Lock()
	recipient := m.recipient
	m.mu.Unlock()

	if recipient == 0 {
		return
	}

	now := m.nowFunc()
	m.checkCalendar(ctx, recipient, now)
	m.checkWellness(ctx, recipient, now)
}

func (m *Monitor) checkCalendar(ctx context.Context, recipient int64, now time.Time) {
	if m.events == nil {
		return
	}

	events, err := m.events.UpcomingEvents(ctx, now.Add(windowNear), now.Add(windowFar))
	if err != nil {
		m.logger.Error("calendar check failed", "error", err)
		return
	}

	for _, ev := range events {
		if ev.AllDay {
			continue
		}
		start := ev.Start.Sub(now)
		if start < windowNear || start > windowFar {
			continue
		}

		m.mu.Lock()
		_, seen := m.alerted[ev.ID]
		if !seen {
			m.alerted[ev.ID] = struct{}{}
		}
		m.mu.Unlock()
		if seen {
			continue
		}

		minutes := int(start.Round(time.Minute) / time.Minute)
		m.logger.Info("event alert", "event_id", ev.ID, "summary", ev.Summary, "minutes", minutes)
		m.mail.Enqueue(outbox.Message{
			ChatID: recipient,
			Text:   fmt.Sprintf("📅 Heads up! \"%s\" starts in %d minutes.", ev.Summary, minutes),
		})
	}
}

func (m *Monitor) checkWellness(ctx context.Context, recipient int64, now time.Time) {
	if m.temps == nil || m.prefs == nil {
		return
	}

	m.mu.Lock()
	due := m.lastWellness.IsZero() || now.Sub(m.lastWellness) >= wellnessInterval
	if due {
		// Attempt time, not success time: a failing weather API must
		// not turn the hourly check into a per-minute one.
		m.lastWellness = now
	}
	m.mu.Unlock()
	if !due {
		return
	}

	city := m.prefs.GetPreference("city", "")
	if city == "" {
		return
	}

	temp, err := m.temps.CurrentTemperature(ctx, city)
	if err != nil {
		m.logger.Error("wellness check failed", "city", city, "error", err)
		return
	}
	if temp <= hotThreshold {
		return
	}

	name := m.prefs.GetPreference("name", "there")

	m.logger.Info("heat alert", "city", city, "temperature", temp)
	m.mail.Enqueue(outbox.Message{
		ChatID: recipient,
		Text:   fmt.Sprintf("☀️ Hey %s, it's %d°C in %s right now. Remember to drink some water!", name, temp, city),
	})
}
