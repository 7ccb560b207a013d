// Package notice delivers short user-facing messages, suppressing repeats of
// the same message inside a time window.
package notice

import (
	"sort"
	"sync"
	"time"

	"campusnest/market/internal/config"
)

// Level of a notice.
type Level string

const (
	LevelError   Level = "error"
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// DefaultWindow is the dedup interval used when none is configured.
const DefaultWindow = time.Second

const (
	pruneAbove = 50
	pruneCount = 25
)

// Sink displays a notice.
type Sink interface {
	Notify(level Level, message string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(level Level, message string)

func (f SinkFunc) Notify(level Level, message string) { f(level, message) }

// Notifier is safe for concurrent use.
type Notifier struct {
	mu     sync.Mutex
	window time.Duration
	sink   Sink
	now    func() time.Time
	shown  map[string]time.Time
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

// New creates a Notifier. A non-positive window uses DefaultWindow.
func New(sink Sink, window time.Duration, opts ...Option) *Notifier {
	if window <= 0 {
		window = DefaultWindow
	}
	n := &Notifier{
		window: window,
		sink:   sink,
		now:    time.Now,
		shown:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// FromConfig builds a Notifier using the configured dedup window.
func FromConfig(cfg *config.Config, sink Sink, opts ...Option) *Notifier {
	return New(sink, cfg.NoticeDedupWindow, opts...)
}

func (n *Notifier) Error(msg string) bool   { return n.show(LevelError, msg) }
func (n *Notifier) Success(msg string) bool { return n.show(LevelSuccess, msg) }
func (n *Notifier) Info(msg string) bool    { return n.show(LevelInfo, msg) }
func (n *Notifier) Warning(msg string) bool { return n.show(LevelWarning, msg) }

// show reports whether the message was delivered. Dedup is by message text
// regardless of level.
func (n *Notifier) show(level Level, msg string) bool {
	n.mu.Lock()
	now := n.now()
	if last, ok := n.shown[msg]; ok && now.Sub(last) < n.window {
		n.mu.Unlock()
		return false
	}
	n.shown[msg] = now
	if len(n.shown) > pruneAbove {
		n.prune()
	}
	n.mu.Unlock()

	n.sink.Notify(level, msg)
	return true
}

// prune drops the oldest entries. Caller holds mu.
func (n *Notifier) prune() {
	type entry struct {
		key string
		at  time.Time
	}
	entries := make([]entry, 0, len(n.shown))
	for k, at := range n.shown {
		entries = append(entries, entry{k, at})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })
	for _, e := range entries[:pruneCount] {
		delete(n.shown, e.key)
	}
}

// Len is the number of remembered messages.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.shown)
}

// Clear forgets every remembered message.
func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = make(map[string]time.Time)
}
