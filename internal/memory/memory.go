package memory

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// maxEpisodic caps the episodic log. When an append exceeds the cap,
// the oldest entries are evicted first.
const maxEpisodic = 1000

// DefaultRecallLimit is the number of entries Recall returns when the
// caller passes a non-positive limit.
const DefaultRecallLimit = 5

// Service is the memory system: a persistent preference profile plus
// the capped episodic log. All methods are safe for concurrent use;
// mutations are serialized because the underlying operation is a full
// read-modify-persist of the whole document.
//
// Persistence is best-effort: write failures are logged and the
// in-memory state remains authoritative for the rest of the process.
type Service struct {
	logger *slog.Logger

	mu    sync.Mutex
	store store
	doc   document

	nowFunc func() time.Time // injectable for testing; defaults to time.Now
}

// Open loads (or initializes) the memory file at path. A corrupt or
// partially-written file is repaired to empty defaults; load problems
// are logged, never fatal.
func Open(path string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		logger:  logger,
		store:   store{path: path},
		nowFunc: time.Now,
	}

	doc, err := s.store.load()
	if err != nil {
		logger.Warn("memory load failed, starting with empty state",
			"path", path,
			"error", err,
		)
	}
	s.doc = doc

	logger.Debug("memory loaded",
		"path", path,
		"profile_keys", len(doc.Profile),
		"episodic_entries", len(doc.Episodic),
	)

	return s
}

// SetPreference upserts a profile value and persists immediately.
func (s *Service) SetPreference(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Profile[key] = value
	s.persistLocked()

	s.logger.Info("profile updated", "key", key, "value", value)
}

// GetPreference returns the stored value for key, or def if unset.
func (s *Service) GetPreference(key, def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.doc.Profile[key]; ok {
		return v
	}
	return def
}

// Store appends an episodic entry with the current timestamp and
// persists immediately. When the log exceeds its cap the oldest
// entries are evicted until exactly the cap remains.
func (s *Service) Store(content, source string, importance float64) {
	now := s.nowFunc()
	entry := Entry{
		Content:    content,
		Source:     source,
		Importance: importance,
		Timestamp:  now,
		Date:       now.Format("2006-01-02 15:04:05"),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Episodic = append(s.doc.Episodic, entry)
	if n := len(s.doc.Episodic); n > maxEpisodic {
		s.doc.Episodic = s.doc.Episodic[n-maxEpisodic:]
	}
	s.persistLocked()
}

// Recall returns episodic entries matching the query, best match
// first. The score of an entry is the count of lowercase
// whitespace-delimited query terms appearing as substrings of the
// lowercased content; entries with score zero are excluded. The log is
// scanned newest-first and the scan stops once limit matches are
// collected, so among entries with equal scores the more recent wins.
//
// This is keyword overlap, not semantic similarity.
func (s *Service) Recall(query string, limit int) []Entry {
	if limit <= 0 {
		limit = DefaultRecallLimit
	}
	terms := strings.Fields(strings.ToLower(query))

	s.mu.Lock()
	defer s.mu.Unlock()

	type scored struct {
		entry Entry
		score int
	}
	var matches []scored
	for i := len(s.doc.Episodic) - 1; i >= 0 && len(matches) < limit; i-- {
		entry := s.doc.Episodic[i]
		content := strings.ToLower(entry.Content)

		score := 0
		for _, term := range terms {
			if strings.Contains(content, term) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{entry: entry, score: score})
		}
	}

	// Stable sort keeps the newest-first scan order for equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	results := make([]Entry, len(matches))
	for i, m := range matches {
		results[i] = m.entry
	}

	s.logger.Debug("memories recalled", "query_terms", len(terms), "matches", len(results))
	return results
}

// persistLocked writes the document to disk. Caller must hold s.mu.
// Failures are logged; in-memory state stays authoritative.
func (s *Service) persistLocked() {
	if err := s.store.save(s.doc); err != nil {
		s.logger.Error("memory persist failed", "error", err)
	}
}
