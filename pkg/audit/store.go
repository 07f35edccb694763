// Package audit records the remote tool calls the bridge makes.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Outcome values stored on a Record.
const (
	OutcomeOK        = "ok"
	OutcomeToolError = "tool_error"
	OutcomeError     = "error"
)

// Record is one tool call.
type Record struct {
	ID         string         `json:"id" yaml:"id"`
	Tool       string         `json:"tool" yaml:"tool"`
	Role       string         `json:"role,omitempty" yaml:"role,omitempty"`
	Args       map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
	Outcome    string         `json:"outcome" yaml:"outcome"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time      `json:"finished_at" yaml:"finished_at"`
}

// Duration is the time the call took.
func (r Record) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store persists tool call records.
type Store interface {
	Record(ctx context.Context, rec Record) error
	List(ctx context.Context, filter Filter) ([]Record, error)
}

// Filter limits List results. Empty fields match everything.
type Filter struct {
	Tool    string
	Role    string
	Outcome string
	Limit   int
}

func (f Filter) match(rec Record) bool {
	if f.Tool != "" && rec.Tool != f.Tool {
		return false
	}
	if f.Role != "" && rec.Role != f.Role {
		return false
	}
	if f.Outcome != "" && rec.Outcome != f.Outcome {
		return false
	}
	return true
}

// DefaultMemoryCapacity is how many records a MemoryStore keeps unless told
// otherwise.
const DefaultMemoryCapacity = 1000

// MemoryStore keeps the most recent records in memory.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	records  []Record
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithCapacity bounds the store to n records. Values below one keep the
// default.
func WithCapacity(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// NewMemoryStore returns an in-memory store holding at most
// DefaultMemoryCapacity records.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{capacity: DefaultMemoryCapacity}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends rec, dropping the oldest record once the store is full.
func (s *MemoryStore) Record(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) >= s.capacity {
		n := copy(s.records, s.records[len(s.records)-s.capacity+1:])
		clear(s.records[n:])
		s.records = s.records[:n]
	}
	s.records = append(s.records, rec)
	return nil
}

// List returns matching records, newest first.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if !filter.match(rec) {
			continue
		}
		out = append(out, rec)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func encodeArgs(args map[string]any) ([]byte, error) {
	if args == nil {
		return []byte("null"), nil
	}
	return json.Marshal(args)
}

func decodeArgs(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeTime(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return value.UTC()
}
