package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/caioagent/caio/internal/outbox"
)

// fakeMailbox records enqueued messages in order.
type fakeMailbox struct {
	messages []outbox.Message
}

func (f *fakeMailbox) Enqueue(m outbox.Message) bool {
	f.messages = append(f.messages, m)
	return true
}

func newTestEngine() (*Engine, *fakeMailbox, *time.Time) {
	mail := &fakeMailbox{}
	now := time.Date(2026, 2, 3, 8, 0, 0, 0, time.Local)
	e := New(mail, nil, nil)
	e.nowFunc = func() time.Time { return now }
	return e, mail, &now
}

func TestScheduleOnceFiresExactlyOnce(t *testing.T) {
	e, mail, now := newTestEngine()

	if _, err := e.ScheduleOnce(42, 1, "drink water"); err != nil {
		t.Fatalf("ScheduleOnce: %v", err)
	}

	// Not due yet.
	e.scan(now.Add(30 * time.Second))
	if len(mail.messages) != 0 {
		t.Fatalf("fired early: %v", mail.messages)
	}

	// Due within one tick of the nominal time.
	e.scan(now.Add(61 * time.Second))
	if len(mail.messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(mail.messages))
	}
	if mail.messages[0].ChatID != 42 {
		t.Errorf("chat id = %d", mail.messages[0].ChatID)
	}
	if e.Pending() != 0 {
		t.Errorf("job still registered after one-shot fire")
	}

	// A later scan must not re-fire.
	e.scan(now.Add(10 * time.Minute))
	if len(mail.messages) != 1 {
		t.Errorf("one-shot fired twice")
	}
}

func TestScheduleOnceRejectsInvalidDuration(t *testing.T) {
	e, _, _ := newTestEngine()

	for _, minutes := range []int{0, -5} {
		if _, err := e.ScheduleOnce(1, minutes, "x"); !errors.Is(err, ErrInvalidDuration) {
			t.Errorf("ScheduleOnce(%d) error = %v, want ErrInvalidDuration", minutes, err)
		}
	}
	if e.Pending() != 0 {
		t.Errorf("rejected job entered the registry")
	}
}

func TestScheduleDailyRefires(t *testing.T) {
	e, mail, _ := newTestEngine()

	// Registered at 08:00; 09:00 is still ahead today.
	if _, err := e.ScheduleDaily(7, "09:00", "standup"); err != nil {
		t.Fatalf("ScheduleDaily: %v", err)
	}

	day1 := time.Date(2026, 2, 3, 9, 0, 0, 0, time.Local)
	e.scan(day1)
	if len(mail.messages) != 1 {
		t.Fatalf("day 1: got %d messages", len(mail.messages))
	}
	if e.Pending() != 1 {
		t.Fatal("daily job removed after firing")
	}

	// Later the same day: nothing.
	e.scan(day1.Add(5 * time.Hour))
	if len(mail.messages) != 1 {
		t.Fatal("daily job fired twice in one day")
	}

	// Next day at 09:00: fires again.
	e.scan(day1.AddDate(0, 0, 1))
	if len(mail.messages) != 2 {
		t.Fatalf("day 2: got %d messages", len(mail.messages))
	}
}

func TestScheduleDailyPastTimeStartsTomorrow(t *testing.T) {
	e, mail, now := newTestEngine()

	// Registered at 08:00; 07:30 already passed today.
	if _, err := e.ScheduleDaily(7, "07:30", "wake up"); err != nil {
		t.Fatalf("ScheduleDaily: %v", err)
	}

	e.scan(*now)
	if len(mail.messages) != 0 {
		t.Fatal("fired immediately for a past time of day")
	}

	e.scan(time.Date(2026, 2, 4, 7, 30, 0, 0, time.Local))
	if len(mail.messages) != 1 {
		t.Fatalf("got %d messages, want first fire tomorrow", len(mail.messages))
	}
}

func TestScheduleDailyRejectsMalformedTime(t *testing.T) {
	e, _, _ := newTestEngine()

	for _, tod := range []string{"9am", "25:00", ""} {
		if _, err := e.ScheduleDaily(1, tod, "x"); !errors.Is(err, ErrInvalidTimeOfDay) {
			t.Errorf("ScheduleDaily(%q) error = %v, want ErrInvalidTimeOfDay", tod, err)
		}
	}
}

func TestSameTickFiresInRegistrationOrder(t *testing.T) {
	e, mail, now := newTestEngine()

	e.ScheduleOnce(1, 5, "first")
	e.ScheduleOnce(1, 5, "second")
	e.ScheduleOnce(1, 5, "third")

	e.scan(now.Add(6 * time.Minute))
	if len(mail.messages) != 3 {
		t.Fatalf("got %d messages", len(mail.messages))
	}
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if mail.messages[i].Text != "⏰ Reminder: "+w {
			t.Errorf("fire %d = %q, want %q", i, mail.messages[i].Text, w)
		}
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	e, mail, now := newTestEngine()

	id, _ := e.ScheduleOnce(1, 1, "x")
	e.Cancel(id)
	e.Cancel(id)
	e.Cancel("no-such-job")

	e.scan(now.Add(2 * time.Minute))
	if len(mail.messages) != 0 {
		t.Error("cancelled job fired")
	}
	if e.Pending() != 0 {
		t.Error("registry not empty after cancel")
	}
}
