package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caioagent/caio/internal/calendar"
	"github.com/caioagent/caio/internal/email"
	"github.com/caioagent/caio/internal/intent"
	"github.com/caioagent/caio/internal/scheduler"
	"github.com/caioagent/caio/internal/search"
)

// agendaWindow is how far ahead calendar_list looks.
const agendaWindow = 7 * 24 * time.Hour

// topPageChars limits how much of the top search hit's page text is
// fed into the summary prompt.
const topPageChars = 4000

func (d *Dispatcher) scheduleReminder(chatID int64, r ReminderRequest) (string, error) {
	if r.TimeOfDay != "" {
		if _, err := d.cfg.Scheduler.ScheduleDaily(chatID, r.TimeOfDay, r.Message); err != nil {
			if errors.Is(err, scheduler.ErrInvalidTimeOfDay) {
				return fmt.Sprintf("I need a time like 09:00 for daily reminders, not %q.", r.TimeOfDay), nil
			}
			return "", err
		}
		return fmt.Sprintf("✅ Daily reminder set for %s: %s", r.TimeOfDay, r.Message), nil
	}

	if _, err := d.cfg.Scheduler.ScheduleOnce(chatID, r.DelayMinutes, r.Message); err != nil {
		if errors.Is(err, scheduler.ErrInvalidDuration) {
			return "Reminders need a positive number of minutes.", nil
		}
		return "", err
	}
	return fmt.Sprintf("✅ Got it! I'll remind you in %d minute(s): %s", r.DelayMinutes, r.Message), nil
}

func (d *Dispatcher) handleReminder(chatID int64, it intent.Intent) (string, error) {
	message := it.StringParam("message")
	if message == "" {
		return "What should I remind you about?", nil
	}

	return d.scheduleReminder(chatID, ReminderRequest{
		Message:      message,
		DelayMinutes: it.IntParam("minutes"),
		TimeOfDay:    it.StringParam("time_of_day"),
	})
}

func (d *Dispatcher) handleCalendarAdd(ctx context.Context, it intent.Intent) (string, error) {
	if d.cfg.Calendar == nil {
		return "No calendar is configured.", nil
	}

	summary := it.StringParam("summary")
	if summary == "" {
		summary = "Appointment"
	}
	start, err := parseEventTime(it.StringParam("start_time"))
	if err != nil {
		return "I couldn't work out when that event starts. Could you give me a date and time?", nil
	}

	duration := time.Hour
	if end, err := parseEventTime(it.StringParam("end_time")); err == nil && end.After(start) {
		duration = end.Sub(start)
	}

	if err := d.cfg.Calendar.CreateEvent(ctx, summary, start, duration); err != nil {
		return "", err
	}
	return fmt.Sprintf("📅 Scheduled \"%s\" for %s.", summary, start.Format("Mon Jan 2 at 15:04")), nil
}

// parseEventTime accepts the RFC3339 form the classifier is asked for,
// plus a couple of looser shapes models actually produce.
func parseEventTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return time.Time{}, fmt.Errorf("no time given")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", s)
}

func (d *Dispatcher) handleCalendarList(ctx context.Context) (string, error) {
	if d.cfg.Calendar == nil {
		return "No calendar is configured.", nil
	}

	now := d.nowFunc()
	events, err := d.cfg.Calendar.UpcomingEvents(ctx, now, now.Add(agendaWindow))
	if err != nil {
		return "", err
	}
	return calendar.FormatAgenda(events), nil
}

func (d *Dispatcher) handleEmailCheck(ctx context.Context) (string, error) {
	if d.cfg.Email == nil {
		return "No email account is configured.", nil
	}

	messages, err := d.cfg.Email.ListUnread(ctx, 5)
	if err != nil {
		return "", err
	}
	return email.FormatUnread(messages), nil
}

func (d *Dispatcher) handleConfigUpdate(it intent.Intent) (string, error) {
	key := strings.ToLower(strings.TrimSpace(it.StringParam("key")))
	value := strings.TrimSpace(it.StringParam("value"))
	if key == "" || value == "" {
		return "I didn't catch what you wanted me to remember.", nil
	}

	d.cfg.Memory.SetPreference(key, value)
	return fmt.Sprintf("Got it, I'll remember that your %s is %s. 😊", key, value), nil
}

func (d *Dispatcher) handleWebSearch(ctx context.Context, it intent.Intent, text string) (string, error) {
	if d.cfg.Search == nil {
		return "Web search isn't configured.", nil
	}

	query := it.StringParam("query")
	if query == "" {
		query = text
	}

	results, err := d.cfg.Search.Search(ctx, query, 5)
	if err != nil {
		return "", err
	}
	if len(results) == 0 || d.cfg.LLM == nil {
		return search.FormatResults(results), nil
	}

	// Pull the text of the top hit so the summary can use more than
	// snippets. Best effort; a dead link just means snippets only.
	var topPage string
	if d.cfg.Fetcher != nil {
		page, err := d.cfg.Fetcher.Fetch(ctx, results[0].URL, topPageChars)
		if err != nil {
			d.logger.Debug("top result fetch failed", "url", results[0].URL, "error", err)
		} else {
			topPage = page.Content
		}
	}

	// Let the model condense the hits into a direct answer; fall back
	// to the raw listing if it can't.
	summary, err := d.summarizeResults(ctx, query, results, topPage)
	if err != nil {
		d.logger.Warn("search summary failed, returning raw results", "error", err)
		return search.FormatResults(results), nil
	}
	return summary, nil
}

func (d *Dispatcher) handleWeather(ctx context.Context, it intent.Intent) (string, error) {
	if d.cfg.Weather == nil {
		return "Weather lookups aren't configured.", nil
	}

	city := it.StringParam("city")
	if city == "" {
		city = d.cfg.Memory.GetPreference("city", "")
	}
	if city == "" {
		return "Which city? You can also tell me where you live and I'll remember it.", nil
	}

	report, err := d.cfg.Weather.Current(ctx, city)
	if err != nil {
		return "", err
	}
	return "🌤 " + report, nil
}

func (d *Dispatcher) handleFilesystem(it intent.Intent) (string, error) {
	if d.cfg.Files == nil {
		return "I don't have a workspace directory configured.", nil
	}

	path := it.StringParam("path")
	switch op := it.StringParam("operation"); op {
	case "list", "":
		return d.cfg.Files.List(path)
	case "read":
		if path == "" {
			return "Which file should I read?", nil
		}
		return d.cfg.Files.Preview(path)
	case "create_folder":
		if err := d.cfg.Files.CreateFolder(path); err != nil {
			return "", err
		}
		return fmt.Sprintf("📁 Created folder %s.", path), nil
	default:
		return fmt.Sprintf("I don't know the file operation %q.", op), nil
	}
}
