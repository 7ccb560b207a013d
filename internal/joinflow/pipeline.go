package joinflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campusnest/market/internal/models"
)

// Checker performs the remote checks and the final create call.
type Checker interface {
	CheckProfile(ctx context.Context) (models.ProfileCompletion, error)
	CheckVisit(ctx context.Context, propertyID string) (bool, error)
	CheckHigherBids(ctx context.Context, propertyID string, bidAmount float64) (models.BidSummary, error)
	CreateJoinRequest(ctx context.Context, in Input) (*models.JoinRequest, error)
}

// Confirmer asks the user to accept a soft-blocking condition.
type Confirmer interface {
	Confirm(ctx context.Context, d Decision) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, d Decision) bool

func (f ConfirmFunc) Confirm(ctx context.Context, d Decision) bool { return f(ctx, d) }

// Step names the gate that produced an outcome.
type Step string

const (
	StepLocal   Step = "local_validation"
	StepPrice   Step = "offer_above_price"
	StepProfile Step = "profile"
	StepVisit   Step = "visit"
	StepBids    Step = "bids"
	StepCreate  Step = "create"
)

// CheckError wraps a transport failure of a remote check so callers can tell it
// apart from a precondition that was not met.
type CheckError struct {
	Step Step
	Err  error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("join request %s check failed: %v", e.Step, e.Err)
}

func (e *CheckError) Unwrap() error { return e.Err }

// Status is the terminal state of a pipeline run.
type Status int

const (
	Created Status = iota
	Blocked
	Declined
	Failed
)

func (s Status) String() string {
	switch s {
	case Created:
		return "created"
	case Blocked:
		return "blocked"
	case Declined:
		return "declined"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome reports how a run ended.
type Outcome struct {
	Status   Status
	Step     Step
	Decision Decision
	Request  *models.JoinRequest
	Err      error
}

// IsCheckFailure reports whether the run failed inside a remote check rather than on create.
func (o Outcome) IsCheckFailure() bool {
	var ce *CheckError
	return o.Status == Failed && errors.As(o.Err, &ce) && ce.Step != StepCreate
}

// Pipeline runs the gates in order, stopping at the first block or declined confirmation.
type Pipeline struct {
	checker   Checker
	confirmer Confirmer
	now       func() time.Time
}

// NewPipeline creates a pipeline. now defaults to time.Now.
func NewPipeline(checker Checker, confirmer Confirmer, now func() time.Time) *Pipeline {
	if now == nil {
		now = time.Now
	}
	return &Pipeline{checker: checker, confirmer: confirmer, now: now}
}

// Submit evaluates every gate for in against a property listed at price.
func (p *Pipeline) Submit(ctx context.Context, in Input, price float64, currency string) Outcome {
	if d := ValidateLocal(in, p.now()); d.Kind != Proceed {
		return Outcome{Status: Blocked, Step: StepLocal, Decision: d}
	}
	if o, stop := p.gate(ctx, StepPrice, CheckOfferAbovePrice(in, price, currency)); stop {
		return o
	}

	profile, err := p.checker.CheckProfile(ctx)
	if err != nil {
		return failed(StepProfile, err)
	}
	if o, stop := p.gate(ctx, StepProfile, CheckProfile(profile)); stop {
		return o
	}

	visited, err := p.checker.CheckVisit(ctx, in.PropertyID)
	if err != nil {
		return failed(StepVisit, err)
	}
	if o, stop := p.gate(ctx, StepVisit, CheckVisit(visited)); stop {
		return o
	}

	bids, err := p.checker.CheckHigherBids(ctx, in.PropertyID, *in.BidAmount)
	if err != nil {
		return failed(StepBids, err)
	}
	if o, stop := p.gate(ctx, StepBids, CheckBids(bids)); stop {
		return o
	}

	req, err := p.checker.CreateJoinRequest(ctx, in)
	if err != nil {
		return failed(StepCreate, err)
	}
	return Outcome{Status: Created, Step: StepCreate, Decision: proceed(), Request: req}
}

func (p *Pipeline) gate(ctx context.Context, step Step, d Decision) (Outcome, bool) {
	switch d.Kind {
	case Block:
		return Outcome{Status: Blocked, Step: step, Decision: d}, true
	case Confirm:
		if p.confirmer == nil || !p.confirmer.Confirm(ctx, d) {
			return Outcome{Status: Declined, Step: step, Decision: d}, true
		}
	}
	return Outcome{}, false
}

func failed(step Step, err error) Outcome {
	return Outcome{Status: Failed, Step: step, Err: &CheckError{Step: step, Err: err}}
}
