package llmcall

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// Store reads call records back from a JSON Lines log.
type Store struct {
	path string
}

// NewStore creates a store over the given log file.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// QueryFilter specifies filters for listing calls.
type QueryFilter struct {
	RunID     string
	Document  string
	PromptKey string
	Provider  string
	Model     string
	After     *time.Time
	Before    *time.Time
	Success   *bool
	Limit     int
	Offset    int
}

func (f QueryFilter) match(c *Call) bool {
	switch {
	case f.RunID != "" && c.RunID != f.RunID:
		return false
	case f.Document != "" && c.Document != f.Document:
		return false
	case f.PromptKey != "" && c.PromptKey != f.PromptKey:
		return false
	case f.Provider != "" && c.Provider != f.Provider:
		return false
	case f.Model != "" && c.Model != f.Model:
		return false
	case f.After != nil && !c.Timestamp.After(*f.After):
		return false
	case f.Before != nil && !c.Timestamp.Before(*f.Before):
		return false
	case f.Success != nil && c.Success != *f.Success:
		return false
	}
	return true
}

// List returns calls matching the filter, newest first.
// A missing log file yields no calls.
func (s *Store) List(filter QueryFilter) ([]Call, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open call log: %w", err)
	}
	defer f.Close()

	calls, err := readCalls(f, filter)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(calls, func(i, j int) bool {
		return calls[i].Timestamp.After(calls[j].Timestamp)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(calls) {
			return nil, nil
		}
		calls = calls[filter.Offset:]
	}
	if filter.Limit > 0 && len(calls) > filter.Limit {
		calls = calls[:filter.Limit]
	}
	return calls, nil
}

// Get retrieves a single call by ID. Returns nil if not found.
func (s *Store) Get(id string) (*Call, error) {
	calls, err := s.List(QueryFilter{})
	if err != nil {
		return nil, err
	}
	for i := range calls {
		if calls[i].ID == id {
			return &calls[i], nil
		}
	}
	return nil, nil
}

// CountByPromptKey returns the number of calls per prompt key for a run.
func (s *Store) CountByPromptKey(runID string) (map[string]int, error) {
	calls, err := s.List(QueryFilter{RunID: runID})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, c := range calls {
		counts[c.PromptKey]++
	}
	return counts, nil
}

func readCalls(r io.Reader, filter QueryFilter) ([]Call, error) {
	var calls []Call
	scanner := bufio.NewScanner(r)
	// Responses can be whole pages of markdown.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var c Call
		if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
			return nil, fmt.Errorf("call log line %d: %w", line, err)
		}
		if filter.match(&c) {
			calls = append(calls, c)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read call log: %w", err)
	}
	return calls, nil
}
