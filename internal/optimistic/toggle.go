// Package optimistic tracks per-entity boolean state that is shown before the
// server confirms a change and reverted if the change fails.
package optimistic

import (
	"context"
	"errors"
	"sync"
)

// State of a Toggle.
type State int

const (
	Idle State = iota
	Pending
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled-back"
	}
	return "unknown"
}

// ErrPending is returned by Begin while a change is already in flight.
var ErrPending = errors.New("change already pending")

// ErrNotPending is returned by Commit and Rollback when nothing is in flight.
var ErrNotPending = errors.New("no pending change")

// Toggle holds the confirmed value and, while pending, the optimistic one.
type Toggle struct {
	mu        sync.Mutex
	state     State
	confirmed bool
	want      bool
	lastErr   error
}

// NewToggle starts idle with the given confirmed value.
func NewToggle(initial bool) *Toggle {
	return &Toggle{confirmed: initial}
}

// Value is the optimistic value while pending and the confirmed value otherwise.
func (t *Toggle) Value() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Pending {
		return t.want
	}
	return t.confirmed
}

func (t *Toggle) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err is the error passed to the last Rollback.
func (t *Toggle) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Begin moves to Pending showing want.
func (t *Toggle) Begin(want bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Pending {
		return ErrPending
	}
	t.state = Pending
	t.want = want
	t.lastErr = nil
	return nil
}

// Commit makes the optimistic value the confirmed one.
func (t *Toggle) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Pending {
		return ErrNotPending
	}
	t.confirmed = t.want
	t.state = Committed
	return nil
}

// Rollback discards the optimistic value and records err.
func (t *Toggle) Rollback(err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Pending {
		return ErrNotPending
	}
	t.state = RolledBack
	t.lastErr = err
	return nil
}

// Run begins a change to want, calls fn and commits or rolls back on its result.
func (t *Toggle) Run(ctx context.Context, want bool, fn func(ctx context.Context) error) error {
	if err := t.Begin(want); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		_ = t.Rollback(err)
		return err
	}
	return t.Commit()
}

// Set keeps one Toggle per key.
type Set struct {
	mu      sync.Mutex
	toggles map[string]*Toggle
}

func NewSet() *Set {
	return &Set{toggles: make(map[string]*Toggle)}
}

// Seed replaces the confirmed membership with keys.
func (s *Set) Seed(keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toggles = make(map[string]*Toggle, len(keys))
	for _, k := range keys {
		s.toggles[k] = NewToggle(true)
	}
}

// Get returns the toggle for key, creating an unset one if needed.
func (s *Set) Get(key string) *Toggle {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.toggles[key]
	if !ok {
		t = NewToggle(false)
		s.toggles[key] = t
	}
	return t
}

// Has reports the displayed value for key.
func (s *Set) Has(key string) bool {
	s.mu.Lock()
	t, ok := s.toggles[key]
	s.mu.Unlock()
	return ok && t.Value()
}
