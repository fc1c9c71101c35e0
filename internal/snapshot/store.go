// Package snapshot persists the last successfully formatted result per
// logical query key, so the system can keep answering from known-good data
// while Tally is unreachable.
//
// Each key is one small JSON file. Writes go to a temp file in the same
// directory and are renamed into place, so a concurrent reader observes
// either the old record or the new one, never a partial write.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/tallybi/tallybi/internal/log"
)

// NoCachedData is the sentinel Age returns when a key has no snapshot.
const NoCachedData = "no cached data"

// Record is the persisted snapshot for one key. Data is the formatted tool
// output, not raw Tally XML.
type Record struct {
	Data           string    `json:"data"`
	SavedAt        time.Time `json:"saved_at"`
	TimestampHuman string    `json:"timestamp_human"`
}

// Store is a file-per-key snapshot cache. It is safe for concurrent use:
// each Save is a whole-file replacement via rename.
type Store struct {
	dir    string
	logger log.Logger
	now    func() time.Time
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string, logger log.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Store{dir: dir, logger: logger, now: time.Now}, nil
}

// keyPattern matches characters kept verbatim in snapshot file names.
// Anything else (path separators, spaces from search terms) becomes '_'.
var keyPattern = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, keyPattern.ReplaceAllString(key, "_")+".json")
}

// Save persists data under key with the current timestamp, replacing any
// prior record atomically.
func (s *Store) Save(key, data string) error {
	now := s.now()
	record := Record{
		Data:           data,
		SavedAt:        now,
		TimestampHuman: now.Format("02 Jan 2006, 03:04 PM"),
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal snapshot %q: %w", key, err)
	}

	// Temp file in the same directory so the rename stays on one filesystem.
	tmp := s.path(key) + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, encoded, 0o640); err != nil {
		return fmt.Errorf("write snapshot %q: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot %q: %w", key, err)
	}

	s.logger.Debug("snapshot saved", "key", key, "bytes", len(encoded))
	return nil
}

// Load returns the record for key. Missing keys and corrupt or unreadable
// files all report absent; corruption is never escalated to the caller.
func (s *Store) Load(key string) (Record, bool) {
	encoded, err := os.ReadFile(s.path(key))
	if err != nil {
		return Record{}, false
	}
	var record Record
	if err := json.Unmarshal(encoded, &record); err != nil {
		s.logger.Warn("discarding corrupt snapshot", "key", key, "error", err)
		return Record{}, false
	}
	return record, true
}

// Age returns a human-scaled age for key's snapshot: "just now",
// "N min ago", "Nh ago" or "N days ago". Absent keys return NoCachedData.
func (s *Store) Age(key string) string {
	record, ok := s.Load(key)
	if !ok {
		return NoCachedData
	}

	minutes := int(s.now().Sub(record.SavedAt).Minutes())
	switch {
	case minutes < 1:
		return "just now"
	case minutes < 60:
		return fmt.Sprintf("%d min ago", minutes)
	case minutes < 24*60:
		return fmt.Sprintf("%dh ago", minutes/60)
	default:
		return fmt.Sprintf("%d days ago", minutes/(24*60))
	}
}
