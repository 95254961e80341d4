package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps state in process memory. It is lost on restart.
type MemoryStore struct {
	mu     sync.Mutex
	states map[int64]State
	closed bool
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[int64]State),
		now:    time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, chatID int64) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return State{}, ErrClosed
	}
	return copyState(m.states[chatID]), nil
}

func (m *MemoryStore) Update(_ context.Context, chatID int64, fn func(*State) error) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return State{}, ErrClosed
	}

	st := copyState(m.states[chatID])
	if err := fn(&st); err != nil {
		return State{}, err
	}
	if st.IsEmpty() {
		delete(m.states, chatID)
		return st, nil
	}
	st.UpdatedAt = m.now().UTC()
	m.states[chatID] = copyState(st)
	return st, nil
}

func (m *MemoryStore) Clear(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.states, chatID)
	return nil
}

// PurgeStale drops records untouched for longer than olderThan
func (m *MemoryStore) PurgeStale(_ context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	cutoff := m.now().Add(-olderThan)
	n := 0
	for id, st := range m.states {
		if st.UpdatedAt.Before(cutoff) {
			delete(m.states, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of non-empty records
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.states = nil
	return nil
}

// copyState detaches pointer fields so callers cannot mutate stored records
func copyState(s State) State {
	out := s
	if s.Instrument != nil {
		inst := *s.Instrument
		out.Instrument = &inst
	}
	if s.Date != nil {
		d := *s.Date
		out.Date = &d
	}
	if s.PriceKind != nil {
		k := *s.PriceKind
		out.PriceKind = &k
	}
	return out
}
