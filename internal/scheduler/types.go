// Package scheduler is the reminder engine: a tick-driven registry of
// one-shot and daily jobs whose callbacks are handed off to the outbox
// rather than invoked from the tick goroutine.
package scheduler

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobKind identifies the schedule type.
type JobKind string

const (
	// KindOnce fires exactly one time, then the job is removed.
	KindOnce JobKind = "once"

	// KindDaily fires once per calendar day at a fixed local time
	// until cancelled or process shutdown.
	KindDaily JobKind = "daily"
)

// JobState is the lifecycle recorded in the journal.
type JobState string

const (
	StateScheduled JobState = "scheduled"
	StateFired     JobState = "fired"
	StateCancelled JobState = "cancelled"
)

// ErrInvalidDuration rejects one-shot registrations whose delay is not
// a positive number of minutes. The job never enters the registry.
var ErrInvalidDuration = errors.New("reminder delay must be a positive number of minutes")

// ErrInvalidTimeOfDay rejects daily registrations whose time of day is
// not HH:MM. The job never enters the registry.
var ErrInvalidTimeOfDay = errors.New("daily reminder time must be HH:MM")

// Job is a registered reminder. Owned exclusively by the engine; other
// components interact only through the schedule/cancel API.
type Job struct {
	ID        string
	ChatID    int64
	Message   string
	Kind      JobKind
	FireAt    time.Time // next due time; advanced after each daily fire
	TimeOfDay string    // "15:04", daily jobs only
	CreatedAt time.Time
}

// NewID generates a job ID (UUIDv7, falling back to v4).
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
