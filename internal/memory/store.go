// Package memory provides the agent's persistent profile and episodic
// memory. The profile is a key/value map of user preferences (name,
// city); the episodic log is a capped, append-only history of inbound
// and outbound messages with a keyword-based recall.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is a single episodic memory.
type Entry struct {
	Content    string    `json:"content"`
	Source     string    `json:"source"`
	Importance float64   `json:"importance"`
	Timestamp  time.Time `json:"timestamp"`
	Date       string    `json:"date"`
}

// document is the full persisted state. The file always contains
// exactly these two top-level fields; a missing or malformed field is
// repaired to its empty default on load rather than failing startup.
type document struct {
	Profile  map[string]string `json:"profile"`
	Episodic []Entry           `json:"episodic"`
}

func (d *document) repair() {
	if d.Profile == nil {
		d.Profile = make(map[string]string)
	}
	if d.Episodic == nil {
		d.Episodic = []Entry{}
	}
}

// store reads and writes the memory document as a single JSON file.
// Every mutation rewrites the whole document.
type store struct {
	path string
}

// load reads the document from disk. A missing file yields an empty
// document and no error; a malformed file yields an empty document and
// the parse error so the caller can log it.
func (s *store) load() (document, error) {
	var doc document

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		doc.repair()
		return doc, nil
	}
	if err != nil {
		doc.repair()
		return doc, fmt.Errorf("read %s: %w", s.path, err)
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		doc = document{}
		doc.repair()
		return doc, fmt.Errorf("parse %s: %w", s.path, err)
	}

	doc.repair()
	return doc, nil
}

// save writes the whole document atomically: marshal, write to a temp
// file in the same directory, then rename over the target. A crash
// mid-write never leaves a truncated document behind.
func (s *store) save(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal memory: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".memory-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename to %s: %w", s.path, err)
	}

	return nil
}
