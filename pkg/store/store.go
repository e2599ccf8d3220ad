// Package store persists conversation transcripts, one JSON file per
// conversation named by its id. The agent loop triggers writes at
// well-defined points (completion, cancellation, teardown); the store is a
// passive read/write target and does no watching of its own.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/droidpilot/droidpilot/pkg/domain"
)

// Stats is the synthetic leading record written ahead of the transcript.
type Stats struct {
	TotalInputTokens  int     `json:"total_input_tokens"`
	TotalOutputTokens int     `json:"total_output_tokens"`
	TotalWallMS       int64   `json:"total_wall_ms"`
	TotalAnnotatedMS  int64   `json:"total_annotated_ms"`
	AnnotatedPercent  float64 `json:"annotated_percent"`
}

// statsRecord is the first element of every persisted file: the stats plus
// the conversation metadata needed to list without replaying messages.
type statsRecord struct {
	Role       domain.Role `json:"role"`
	ID         string      `json:"id"`
	StartTime  time.Time   `json:"start_time"`
	EndTime    *time.Time  `json:"end_time,omitempty"`
	IsComplete bool        `json:"is_complete"`
	Stats
}

// Store reads and writes conversation files under one directory.
type Store struct {
	mu  sync.Mutex
	dir string
}

// New creates the store directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes (or overwrites) the conversation's file: a JSON array whose
// first element is the stats record followed by every message with its
// annotations.
func (s *Store) Save(conv *domain.Conversation, stats Stats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]any, 0, len(conv.Messages)+1)
	records = append(records, statsRecord{
		Role:       domain.RoleStats,
		ID:         conv.ID,
		StartTime:  conv.StartTime,
		EndTime:    conv.EndTime,
		IsComplete: conv.IsComplete,
		Stats:      stats,
	})
	for _, m := range conv.Messages {
		records = append(records, m)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding conversation %s: %w", conv.ID, err)
	}
	if err := os.WriteFile(s.path(conv.ID), data, 0o644); err != nil {
		return fmt.Errorf("writing conversation %s: %w", conv.ID, err)
	}
	return nil
}

// Load reads one conversation by id.
func (s *Store) Load(id string) (*domain.Conversation, Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(s.path(id))
}

func (s *Store) load(path string) (*domain.Conversation, Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Stats{}, err
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, Stats{}, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return nil, Stats{}, fmt.Errorf("empty record in %s", filepath.Base(path))
	}

	var head statsRecord
	if err := json.Unmarshal(records[0], &head); err != nil || head.Role != domain.RoleStats {
		return nil, Stats{}, fmt.Errorf("missing stats record in %s", filepath.Base(path))
	}

	conv := &domain.Conversation{
		ID:         head.ID,
		StartTime:  head.StartTime,
		EndTime:    head.EndTime,
		IsComplete: head.IsComplete,
	}
	for _, raw := range records[1:] {
		var m domain.Message
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, Stats{}, fmt.Errorf("decoding message in %s: %w", filepath.Base(path), err)
		}
		conv.Messages = append(conv.Messages, m)
	}
	return conv, head.Stats, nil
}

// List returns all conversations, most recent first. Individually corrupt
// files are skipped with a warning rather than failing the whole list.
func (s *Store) List() ([]*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading store dir: %w", err)
	}

	var out []*domain.Conversation
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		conv, _, err := s.load(filepath.Join(s.dir, e.Name()))
		if err != nil {
			slog.Warn("Skipping corrupt conversation file", "file", e.Name(), "error", err)
			continue
		}
		out = append(out, conv)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out, nil
}

// Delete removes one conversation.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}
	return nil
}

// Clear removes every conversation file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading store dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return fmt.Errorf("clearing store: %w", err)
		}
	}
	return nil
}
