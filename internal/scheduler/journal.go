package scheduler

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Journal is a SQLite audit trail of every reminder the engine has
// seen. It exists for inspection (the "caio reminders" subcommand) and
// does not feed the live registry: jobs are not resurrected on restart.
type Journal struct {
	db *sql.DB
}

// JournalEntry is one journal row.
type JournalEntry struct {
	ID        string
	ChatID    int64
	Message   string
	Kind      JobKind
	TimeOfDay string
	FireAt    time.Time
	State     JobState
	CreatedAt time.Time
}

// OpenJournal opens (creating if needed) the reminder journal at the
// given database path.
func OpenJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reminders (
		id          TEXT PRIMARY KEY,
		chat_id     INTEGER NOT NULL,
		message     TEXT NOT NULL,
		kind        TEXT NOT NULL,
		time_of_day TEXT,
		fire_at     TEXT NOT NULL,
		state       TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reminders_state ON reminders(state);
	CREATE INDEX IF NOT EXISTS idx_reminders_created_at ON reminders(created_at);
	`

	_, err := j.db.Exec(schema)
	return err
}

// Record inserts a newly registered job in the scheduled state.
func (j *Journal) Record(job *Job) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := j.db.Exec(`
		INSERT INTO reminders (id, chat_id, message, kind, time_of_day, fire_at, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.ChatID, job.Message, string(job.Kind), job.TimeOfDay,
		job.FireAt.UTC().Format(time.RFC3339), string(StateScheduled),
		job.CreatedAt.UTC().Format(time.RFC3339), now)
	if err != nil {
		return fmt.Errorf("record reminder %s: %w", job.ID, err)
	}
	return nil
}

// SetState updates a reminder's lifecycle state.
func (j *Journal) SetState(id string, state JobState) error {
	_, err := j.db.Exec(`
		UPDATE reminders SET state = ?, updated_at = ? WHERE id = ?
	`, string(state), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("set reminder %s state: %w", id, err)
	}
	return nil
}

// Advance records the next due time of a daily reminder after a fire.
func (j *Journal) Advance(id string, next time.Time) error {
	_, err := j.db.Exec(`
		UPDATE reminders SET fire_at = ?, updated_at = ? WHERE id = ?
	`, next.UTC().Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("advance reminder %s: %w", id, err)
	}
	return nil
}

// Recent returns the newest journal rows, most recent first.
func (j *Journal) Recent(limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.Query(`
		SELECT id, chat_id, message, kind, time_of_day, fire_at, state, created_at
		FROM reminders
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var kind, state, fireAt, createdAt string
		if err := rows.Scan(&e.ID, &e.ChatID, &e.Message, &kind, &e.TimeOfDay, &fireAt, &state, &createdAt); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		e.Kind = JobKind(kind)
		e.State = JobState(state)
		e.FireAt, _ = time.Parse(time.RFC3339, fireAt)
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
