package scheduler

import (
	"path/filepath"
	"testing"
	"time"
)

func TestJournalLifecycle(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "caio.db"))
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	defer j.Close()

	base := time.Date(2026, 2, 3, 8, 0, 0, 0, time.UTC)
	jobs := []*Job{
		{ID: "a", ChatID: 1, Message: "first", Kind: KindOnce, FireAt: base.Add(time.Minute), CreatedAt: base},
		{ID: "b", ChatID: 1, Message: "second", Kind: KindDaily, TimeOfDay: "09:00", FireAt: base.Add(time.Hour), CreatedAt: base.Add(time.Second)},
	}
	for _, job := range jobs {
		if err := j.Record(job); err != nil {
			t.Fatalf("Record(%s): %v", job.ID, err)
		}
	}

	if err := j.SetState("a", StateFired); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	next := base.AddDate(0, 0, 1).Add(time.Hour)
	if err := j.Advance("b", next); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	entries, err := j.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// Newest first.
	if entries[0].ID != "b" || entries[1].ID != "a" {
		t.Errorf("order = %s, %s; want b, a", entries[0].ID, entries[1].ID)
	}
	if entries[1].State != StateFired {
		t.Errorf("state = %s, want fired", entries[1].State)
	}
	if !entries[0].FireAt.Equal(next) {
		t.Errorf("fire_at = %v, want %v", entries[0].FireAt, next)
	}
}
