package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"campusnest/market/internal/calendar"
	"campusnest/market/internal/models"
	"campusnest/market/internal/notice"
)

var (
	// ErrSelectionIncomplete is returned by Submit before both a date and a time are chosen.
	ErrSelectionIncomplete = errors.New("visit date and time must both be selected")
	// ErrSubmitInProgress is returned by Submit while an earlier submit has not finished.
	ErrSubmitInProgress = errors.New("visit request already being sent")
)

// VisitScheduler holds the date and time picked on a property's availability
// calendar and sends them as at most one visit request at a time.
type VisitScheduler struct {
	c          *Client
	propertyID string
	available  []time.Time
	notices    *notice.Notifier
	now        func() time.Time

	mu         sync.Mutex
	sel        calendar.Selection
	submitting bool
}

// NewVisitScheduler creates a scheduler for propertyID. available is the
// property's availability list; an empty list opens every future day.
func NewVisitScheduler(c *Client, propertyID string, available []time.Time, notices *notice.Notifier) *VisitScheduler {
	return &VisitScheduler{
		c:          c,
		propertyID: propertyID,
		available:  available,
		notices:    notices,
		now:        time.Now,
	}
}

// SelectDay picks day of the month shown in v. Unavailable days are ignored.
func (s *VisitScheduler) SelectDay(v calendar.View, day int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.SelectDay(v, day, s.now(), s.available)
}

// SelectTime picks one of calendar.TimeSlots.
func (s *VisitScheduler) SelectTime(slot string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.SelectTime(slot)
}

// Selection returns a copy of the current pick.
func (s *VisitScheduler) Selection() calendar.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// Submitting reports whether a request is in flight.
func (s *VisitScheduler) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// Submit sends the selection as a visit request of type vt. The selection is
// cleared once the server accepts it and kept when the call fails.
func (s *VisitScheduler) Submit(ctx context.Context, vt models.VisitType) (*models.VisitRequest, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	switch {
	case s.sel.Date == nil:
		s.mu.Unlock()
		s.notices.Error("Please select a date")
		return nil, ErrSelectionIncomplete
	case s.sel.Time == "":
		s.mu.Unlock()
		s.notices.Error("Please select a time")
		return nil, ErrSelectionIncomplete
	}
	in := VisitRequestInput{
		PropertyID: s.propertyID,
		VisitDate:  s.sel.Date.Format(time.DateOnly),
		VisitTime:  s.sel.Time,
		VisitType:  vt,
	}
	s.submitting = true
	s.mu.Unlock()

	vr, err := s.c.CreateVisitRequest(ctx, in)

	s.mu.Lock()
	s.submitting = false
	if err == nil {
		s.sel = calendar.Selection{}
	}
	s.mu.Unlock()

	if err != nil {
		s.notices.Error(UserMessage(err, "Failed to schedule visit. Please try again."))
		return nil, err
	}
	if vt == models.VisitTypeVirtual {
		s.notices.Success("Virtual visit request sent to landlord successfully!")
	} else {
		s.notices.Success("In-person visit request sent to landlord successfully!")
	}
	return vr, nil
}
