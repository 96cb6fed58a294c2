package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/caioagent/caio/internal/outbox"
)

// Mailbox is the cross-context hand-off the engine fires callbacks
// through. The tick goroutine never calls transport code directly; it
// enqueues and the outbox consumer delivers. Satisfied by
// [outbox.Outbox].
type Mailbox interface {
	Enqueue(m outbox.Message) bool
}

// tickInterval is the scan resolution. A job fires within one tick of
// its nominal due time; this is an acceptable-delay contract, not an
// exact-time contract.
const tickInterval = time.Second

// Engine owns the reminder registry and the tick loop. The registry
// has a single writer (the engine itself); jobs due in the same tick
// fire in registration order.
type Engine struct {
	logger  *slog.Logger
	mail    Mailbox
	journal *Journal // optional audit trail; nil disables journaling

	mu   sync.Mutex
	jobs []*Job // registration order

	nowFunc func() time.Time // injectable for testing; defaults to time.Now
}

// New creates a reminder engine. journal may be nil.
func New(mail Mailbox, journal *Journal, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger:  logger,
		mail:    mail,
		journal: journal,
		nowFunc: time.Now,
	}
}

// ScheduleOnce registers a one-shot reminder that fires once after
// delayMinutes have elapsed. Returns the job ID.
func (e *Engine) ScheduleOnce(chatID int64, delayMinutes int, message string) (string, error) {
	if delayMinutes <= 0 {
		return "", fmt.Errorf("%w: got %d", ErrInvalidDuration, delayMinutes)
	}

	now := e.nowFunc()
	job := &Job{
		ID:        NewID(),
		ChatID:    chatID,
		Message:   message,
		Kind:      KindOnce,
		FireAt:    now.Add(time.Duration(delayMinutes) * time.Minute),
		CreatedAt: now,
	}
	e.register(job)

	e.logger.Info("one-shot reminder scheduled",
		"job_id", job.ID,
		"chat_id", chatID,
		"fire_at", job.FireAt,
	)
	return job.ID, nil
}

// ScheduleDaily registers a reminder that fires every day at the given
// local time ("15:04"). If that time has already passed today, the
// first fire is tomorrow. Returns the job ID.
func (e *Engine) ScheduleDaily(chatID int64, timeOfDay, message string) (string, error) {
	tod, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, timeOfDay)
	}

	now := e.nowFunc()
	fireAt := time.Date(now.Year(), now.Month(), now.Day(), tod.Hour(), tod.Minute(), 0, 0, now.Location())
	if !fireAt.After(now) {
		fireAt = fireAt.AddDate(0, 0, 1)
	}

	job := &Job{
		ID:        NewID(),
		ChatID:    chatID,
		Message:   message,
		Kind:      KindDaily,
		FireAt:    fireAt,
		TimeOfDay: timeOfDay,
		CreatedAt: now,
	}
	e.register(job)

	e.logger.Info("daily reminder scheduled",
		"job_id", job.ID,
		"chat_id", chatID,
		"time_of_day", timeOfDay,
		"first_fire", fireAt,
	)
	return job.ID, nil
}

// Cancel removes a scheduled job if present. Idempotent.
func (e *Engine) Cancel(jobID string) {
	e.mu.Lock()
	removed := false
	for i, job := range e.jobs {
		if job.ID == jobID {
			e.jobs = append(e.jobs[:i], e.jobs[i+1:]...)
			removed = true
			break
		}
	}
	e.mu.Unlock()

	if removed {
		e.recordState(jobID, StateCancelled)
		e.logger.Info("reminder cancelled", "job_id", jobID)
	}
}

// Pending returns the number of registered jobs.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.jobs)
}

// Run ticks the registry until ctx is cancelled. It blocks.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	e.logger.Info("reminder engine started")

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("reminder engine stopped")
			return
		case <-ticker.C:
			e.scan(e.nowFunc())
		}
	}
}

func (e *Engine) register(job *Job) {
	e.mu.Lock()
	e.jobs = append(e.jobs, job)
	e.mu.Unlock()

	if e.journal != nil {
		if err := e.journal.Record(job); err != nil {
			e.logger.Error("reminder journal write failed", "job_id", job.ID, "error", err)
		}
	}
}

// scan fires every due job in registration order. One-shot jobs are
// removed after firing; daily jobs advance to the next day and stay
// registered.
func (e *Engine) scan(now time.Time) {
	e.mu.Lock()
	var due []*Job
	remaining := e.jobs[:0]
	for _, job := range e.jobs {
		if job.FireAt.After(now) {
			remaining = append(remaining, job)
			continue
		}
		due = append(due, job)
		if job.Kind == KindDaily {
			job.FireAt = job.FireAt.AddDate(0, 0, 1)
			remaining = append(remaining, job)
		}
	}
	e.jobs = remaining
	e.mu.Unlock()

	for _, job := range due {
		e.logger.Info("reminder due",
			"job_id", job.ID,
			"chat_id", job.ChatID,
			"kind", job.Kind,
		)
		e.mail.Enqueue(outbox.Message{
			ChatID: job.ChatID,
			Text:   "⏰ Reminder: " + job.Message,
		})

		if job.Kind == KindOnce {
			e.recordState(job.ID, StateFired)
		} else if e.journal != nil {
			if err := e.journal.Advance(job.ID, job.FireAt); err != nil {
				e.logger.Error("reminder journal advance failed", "job_id", job.ID, "error", err)
			}
		}
	}
}

// recordState updates the journal. Journal failures are logged; the
// in-memory registry stays authoritative.
func (e *Engine) recordState(jobID string, state JobState) {
	if e.journal == nil {
		return
	}
	if err := e.journal.SetState(jobID, state); err != nil {
		e.logger.Error("reminder journal update failed",
			"job_id", jobID,
			"state", state,
			"error", err,
		)
	}
}
