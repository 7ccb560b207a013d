package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JoinStatus is the lifecycle state of a join request.
type JoinStatus string

const (
	JoinStatusPending           JoinStatus = "pending"
	JoinStatusApproved          JoinStatus = "approved"
	JoinStatusRejected          JoinStatus = "rejected"
	JoinStatusWaitingCompletion JoinStatus = "waiting_completion"
	JoinStatusCompleted         JoinStatus = "completed"
)

// MaxJoinMessageLength bounds the free-text message on a join request.
const MaxJoinMessageLength = 500

// JoinRequest is a student's application to move into a property.
type JoinRequest struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Student         primitive.ObjectID `bson:"student" json:"student"`
	Landlord        primitive.ObjectID `bson:"landlord" json:"landlord"`
	Property        primitive.ObjectID `bson:"property" json:"property"`
	MovingDate      time.Time          `bson:"moving_date" json:"movingDate"`
	BidAmount       float64            `bson:"bid_amount" json:"bidAmount"`
	Message         string             `bson:"message,omitempty" json:"message,omitempty"`
	Status          JoinStatus         `bson:"status" json:"status"`
	RejectionReason string             `bson:"rejection_reason,omitempty" json:"rejectionReason,omitempty"`
	Timestamps      `bson:",inline"`
}

// BidSummary describes competing pending bids on a property.
type BidSummary struct {
	HasHigherBids   bool    `json:"hasHigherBids"`
	HighestBid      float64 `json:"highestBid"`
	HigherBidsCount int     `json:"higherBidsCount"`
}

// MissingFields flags which identity fields block a join request.
type MissingFields struct {
	Name         bool `json:"name"`
	GovernmentID bool `json:"governmentId"`
	IDDocument   bool `json:"idDocument"`
}

// Any reports whether at least one field is missing.
func (m MissingFields) Any() bool {
	return m.Name || m.GovernmentID || m.IDDocument
}

// ProfileCompletion is the result of the join-request profile check.
type ProfileCompletion struct {
	IsComplete    bool          `json:"isComplete"`
	MissingFields MissingFields `json:"missingFields"`
}
