// Package calendar talks to a CalDAV server. It backs both the
// calendar skill (add and list events) and the proactive monitor's
// event source.
package calendar

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"github.com/caioagent/caio/internal/config"
	"github.com/caioagent/caio/internal/monitor"
)

// Client wraps a CalDAV account pinned to one calendar collection.
type Client struct {
	dav      *caldav.Client
	name     string // preferred calendar display name; empty takes the first
	location *time.Location

	mu   sync.Mutex
	path string // resolved calendar collection path, cached after discovery
}

// New creates a calendar client from configuration. Discovery of the
// calendar collection is deferred to the first call.
func New(cfg config.CalendarConfig) (*Client, error) {
	httpClient := webdav.HTTPClientWithBasicAuth(
		&http.Client{Timeout: 30 * time.Second},
		cfg.Username, cfg.Password,
	)

	dav, err := caldav.NewClient(httpClient, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("calendar: create client: %w", err)
	}

	return &Client{
		dav:      dav,
		name:     cfg.Calendar,
		location: time.Local,
	}, nil
}

// collection resolves (once) the path of the calendar to operate on.
func (c *Client) collection(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path != "" {
		return c.path, nil
	}

	principal, err := c.dav.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("calendar: find principal: %w", err)
	}
	homeSet, err := c.dav.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("calendar: find home set: %w", err)
	}
	calendars, err := c.dav.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("calendar: list calendars: %w", err)
	}
	if len(calendars) == 0 {
		return "", fmt.Errorf("calendar: account has no calendars")
	}

	c.path = calendars[0].Path
	if c.name != "" {
		for _, cal := range calendars {
			if strings.EqualFold(cal.Name, c.name) {
				c.path = cal.Path
				break
			}
		}
	}
	return c.path, nil
}

// UpcomingEvents lists events starting inside [from, until). It
// implements the monitor's event source.
func (c *Client) UpcomingEvents(ctx context.Context, from, until time.Time) ([]monitor.Event, error) {
	path, err := c.collection(ctx)
	if err != nil {
		return nil, err
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{Name: ical.CompEvent}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: from,
				End:   until,
			}},
		},
	}

	objects, err := c.dav.QueryCalendar(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("calendar: query events: %w", err)
	}

	var events []monitor.Event
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, ev := range obj.Data.Events() {
			start, err := ev.DateTimeStart(c.location)
			if err != nil {
				continue
			}

			id := obj.Path
			if uid := ev.Props.Get(ical.PropUID); uid != nil {
				id = uid.Value
			}
			summary := "(untitled)"
			if s, err := ev.Props.Text(ical.PropSummary); err == nil && s != "" {
				summary = s
			}

			allDay := false
			if p := ev.Props.Get(ical.PropDateTimeStart); p != nil {
				allDay = p.ValueType() == ical.ValueDate
			}

			events = append(events, monitor.Event{
				ID:      id,
				Summary: summary,
				Start:   start,
				AllDay:  allDay,
			})
		}
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
	return events, nil
}

// CreateEvent adds an event to the calendar. A zero duration defaults
// to one hour.
func (c *Client) CreateEvent(ctx context.Context, summary string, start time.Time, duration time.Duration) error {
	path, err := c.collection(ctx)
	if err != nil {
		return err
	}
	if duration <= 0 {
		duration = time.Hour
	}

	uid := uuid.NewString()

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	event.Props.SetText(ical.PropSummary, summary)
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	event.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(duration))

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//caio//agent//EN")
	cal.Children = append(cal.Children, event.Component)

	objPath := strings.TrimRight(path, "/") + "/" + uid + ".ics"
	if _, err := c.dav.PutCalendarObject(ctx, objPath, cal); err != nil {
		return fmt.Errorf("calendar: create event: %w", err)
	}
	return nil
}

// FormatAgenda renders events as a chat-friendly list.
func FormatAgenda(events []monitor.Event) string {
	if len(events) == 0 {
		return "Nothing on the calendar."
	}

	var b strings.Builder
	b.WriteString("📅 Upcoming events:\n")
	for _, ev := range events {
		when := ev.Start.Format("Mon Jan 2 15:04")
		if ev.AllDay {
			when = ev.Start.Format("Mon Jan 2") + " (all day)"
		}
		fmt.Fprintf(&b, "• %s: %s\n", when, ev.Summary)
	}
	return strings.TrimRight(b.String(), "\n")
}
