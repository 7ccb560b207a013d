// Package verification scores a student's verification steps and reputation.
package verification

import (
	"errors"
	"math"
)

// Status of a single step.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusPending    Status = "pending"
	StatusIncomplete Status = "incomplete"
)

// Step is a point-valued verification task.
type Step struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Points int    `json:"points"`
	Status Status `json:"status"`
}

// Summary is the aggregate of a step list.
type Summary struct {
	Earned  int     `json:"earnedPoints"`
	Total   int     `json:"totalPoints"`
	Percent float64 `json:"percentage"`
	Display int     `json:"displayPercentage"`
}

// Progress sums completed points over all points. An empty or zero-point list is 0%.
func Progress(steps []Step) Summary {
	var s Summary
	for _, st := range steps {
		s.Total += st.Points
		if st.Status == StatusCompleted {
			s.Earned += st.Points
		}
	}
	if s.Total > 0 {
		s.Percent = float64(s.Earned) / float64(s.Total) * 100
		s.Display = int(math.Round(s.Percent))
	}
	return s
}

var (
	ErrUnknownStep      = errors.New("unknown verification step")
	ErrAlreadyCompleted = errors.New("verification step already completed")
	ErrNothingOpen      = errors.New("no verification step is open")
)

// Tracker holds an ordered step list and the step currently opened for confirmation.
// Opening then confirming a step is the only way to earn points.
type Tracker struct {
	steps []Step
	open  int
}

// NewTracker copies steps into a tracker.
func NewTracker(steps []Step) *Tracker {
	return &Tracker{steps: append([]Step(nil), steps...), open: -1}
}

// Steps returns a copy of the current steps.
func (t *Tracker) Steps() []Step {
	return append([]Step(nil), t.steps...)
}

// Summary returns Progress over the current steps.
func (t *Tracker) Summary() Summary {
	return Progress(t.steps)
}

// Open selects a pending or incomplete step for confirmation.
func (t *Tracker) Open(id string) (Step, error) {
	for i, st := range t.steps {
		if st.ID != id {
			continue
		}
		if st.Status == StatusCompleted {
			return st, ErrAlreadyCompleted
		}
		t.open = i
		return st, nil
	}
	return Step{}, ErrUnknownStep
}

// Opened returns the step awaiting confirmation, if any.
func (t *Tracker) Opened() (Step, bool) {
	if t.open < 0 {
		return Step{}, false
	}
	return t.steps[t.open], true
}

// Confirm marks the opened step completed.
func (t *Tracker) Confirm() (Summary, error) {
	if t.open < 0 {
		return t.Summary(), ErrNothingOpen
	}
	t.steps[t.open].Status = StatusCompleted
	t.open = -1
	return t.Summary(), nil
}

// Cancel closes the opened step without changing it.
func (t *Tracker) Cancel() {
	t.open = -1
}
