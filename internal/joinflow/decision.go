// Package joinflow runs the precondition checks that gate a join-request submission.
package joinflow

import (
	"fmt"
	"strings"
	"time"

	"campusnest/market/internal/calendar"
	"campusnest/market/internal/models"
)

// Kind tags a Decision.
type Kind int

const (
	Proceed Kind = iota
	Block
	Confirm
)

func (k Kind) String() string {
	switch k {
	case Proceed:
		return "proceed"
	case Block:
		return "block"
	case Confirm:
		return "confirm"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Decision is the result of one gate.
type Decision struct {
	Kind    Kind
	Reason  string
	Missing []string // set by the profile gate
}

func proceed() Decision { return Decision{Kind: Proceed} }

func block(reason string) Decision { return Decision{Kind: Block, Reason: reason} }

func confirmWith(reason string) Decision { return Decision{Kind: Confirm, Reason: reason} }

// Input is what the student entered in the join dialog.
type Input struct {
	PropertyID string
	BidAmount  *float64
	MovingDate *time.Time
	Message    string
}

// Labels used when listing missing profile fields.
const (
	MissingName       = "Full Name"
	MissingGovID      = "Government ID"
	MissingIDDocument = "ID Document (National ID or Passport)"
)

// ValidateLocal checks the form before any network call.
func ValidateLocal(in Input, today time.Time) Decision {
	if in.BidAmount == nil {
		return block("Please enter your rent offer")
	}
	if *in.BidAmount < 0 {
		return block("Rent offer cannot be negative")
	}
	if in.MovingDate == nil {
		return block("Please select a move-in date")
	}
	if calendar.Midnight(*in.MovingDate).Before(calendar.Midnight(today)) {
		return block("Move-in date cannot be in the past")
	}
	if len(in.Message) > models.MaxJoinMessageLength {
		return block(fmt.Sprintf("Message cannot exceed %d characters", models.MaxJoinMessageLength))
	}
	return proceed()
}

// CheckOfferAbovePrice asks for confirmation when the offer exceeds the listed rent.
func CheckOfferAbovePrice(in Input, price float64, currency string) Decision {
	if in.BidAmount != nil && *in.BidAmount > price {
		return confirmWith(fmt.Sprintf(
			"Your offer of %.2f %s is higher than the listed price of %.2f %s. Do you want to continue?",
			*in.BidAmount, currency, price, currency))
	}
	return proceed()
}

// CheckProfile blocks when identity fields are missing.
func CheckProfile(pc models.ProfileCompletion) Decision {
	if pc.IsComplete && !pc.MissingFields.Any() {
		return proceed()
	}
	var missing []string
	if pc.MissingFields.Name {
		missing = append(missing, MissingName)
	}
	if pc.MissingFields.GovernmentID {
		missing = append(missing, MissingGovID)
	}
	if pc.MissingFields.IDDocument {
		missing = append(missing, MissingIDDocument)
	}
	d := block("Please complete your profile before sending a join request. Missing: " + strings.Join(missing, ", "))
	d.Missing = missing
	return d
}

// CheckVisit asks for confirmation when the student never visited the property.
func CheckVisit(hasVisited bool) Decision {
	if hasVisited {
		return proceed()
	}
	return confirmWith("You haven't visited this property yet. Do you still want to send a join request?")
}

// CheckBids asks for confirmation when competing pending bids exceed the offer.
func CheckBids(b models.BidSummary) Decision {
	if !b.HasHigherBids {
		return proceed()
	}
	return confirmWith(fmt.Sprintf(
		"There are %d higher bid(s) on this property. The highest bid is %.2f. Do you still want to continue?",
		b.HigherBidsCount, b.HighestBid))
}
