// Package history persists the conversation transcript as a JSON array on
// disk and renders it into the time-relative text block spliced into LLM
// prompts.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Roles of a conversation entry.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry is one timestamped role/content record. Timestamp is ISO-8601 UTC.
type Entry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// NewEntry stamps an entry with the current UTC time.
func NewEntry(role, content string) Entry {
	return Entry{Role: role, Content: content, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)}
}

// Store reads and writes a conversation file. Every Save rewrites the whole
// array; entries are never deleted except by removing the file.
type Store struct {
	path string
}

// NewStore returns a store on path, creating parent directories on Save.
func NewStore(path string) *Store { return &Store{path: path} }

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the stored conversation. A missing file is an empty history.
func (s *Store) Load() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("history: read %s: %w", s.path, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("history: decode %s: %w", s.path, err)
	}
	return entries, nil
}

// Save rewrites the whole conversation file. 2-space indent for humans.
func (s *Store) Save(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("history: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("history: mkdir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("history: write %s: %w", s.path, err)
	}
	return nil
}

// FormatAgo renders a duration as the largest applicable unit among days,
// hours, minutes and seconds, pluralized.
func FormatAgo(d time.Duration) string {
	seconds := int(d.Seconds())
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	unit := func(n int, name string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s ago", name)
		}
		return fmt.Sprintf("%d %ss ago", n, name)
	}
	switch {
	case days > 0:
		return unit(days, "day")
	case hours > 0:
		return unit(hours, "hour")
	case minutes > 0:
		return unit(minutes, "minute")
	default:
		return unit(seconds, "second")
	}
}

// NoPrevious is rendered for an empty history.
const NoPrevious = "No previous conversation."

// FormatForModel renders the history as "role (N minutes ago): content"
// lines for the LLM context block.
func FormatForModel(entries []Entry, now time.Time) string {
	if len(entries) == 0 {
		return NoPrevious
	}
	var lines []string
	for _, e := range entries {
		ts, err := time.Parse(time.RFC3339Nano, e.Timestamp)
		if err != nil {
			// A malformed timestamp still shows the content.
			lines = append(lines, fmt.Sprintf("%s: %s", e.Role, e.Content))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s (%s): %s", e.Role, FormatAgo(now.Sub(ts)), e.Content))
	}
	return strings.Join(lines, "\n")
}
