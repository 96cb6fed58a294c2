package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/caioagent/caio/internal/monitor"
)

func TestFormatAgenda(t *testing.T) {
	events := []monitor.Event{
		{Summary: "Standup", Start: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)},
		{Summary: "Conference", Start: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), AllDay: true},
	}

	out := FormatAgenda(events)
	if !strings.Contains(out, "Standup") || !strings.Contains(out, "09:30") {
		t.Errorf("missing timed event:\n%s", out)
	}
	if !strings.Contains(out, "Conference") || !strings.Contains(out, "(all day)") {
		t.Errorf("missing all-day marker:\n%s", out)
	}
}

func TestFormatAgendaEmpty(t *testing.T) {
	if got := FormatAgenda(nil); got != "Nothing on the calendar." {
		t.Errorf("got %q", got)
	}
}
