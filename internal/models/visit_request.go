package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VisitType is how the viewing takes place.
type VisitType string

const (
	VisitTypeVirtual  VisitType = "virtual"
	VisitTypeInPerson VisitType = "in-person"
)

// Valid reports whether v is a known visit type.
func (v VisitType) Valid() bool {
	return v == VisitTypeVirtual || v == VisitTypeInPerson
}

// VisitStatus is the lifecycle state of a visit request.
type VisitStatus string

const (
	VisitStatusPending     VisitStatus = "pending"
	VisitStatusConfirmed   VisitStatus = "confirmed"
	VisitStatusRescheduled VisitStatus = "rescheduled"
	VisitStatusRejected    VisitStatus = "rejected"
	VisitStatusCompleted   VisitStatus = "completed"
)

// RecordedVisitStatuses are the states that count as the student having visited.
var RecordedVisitStatuses = []VisitStatus{
	VisitStatusConfirmed,
	VisitStatusRescheduled,
	VisitStatusCompleted,
}

// VisitRequest is a scheduled viewing of a property.
type VisitRequest struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Student         primitive.ObjectID `bson:"student" json:"student"`
	Landlord        primitive.ObjectID `bson:"landlord" json:"landlord"`
	Property        primitive.ObjectID `bson:"property" json:"property"`
	VisitType       VisitType          `bson:"visit_type" json:"visitType"`
	VisitDate       time.Time          `bson:"visit_date" json:"visitDate"`
	VisitTime       string             `bson:"visit_time" json:"visitTime"`
	Status          VisitStatus        `bson:"status" json:"status"`
	MeetLink        string             `bson:"meet_link,omitempty" json:"meetLink,omitempty"`
	RescheduledDate *time.Time         `bson:"rescheduled_date,omitempty" json:"rescheduledDate,omitempty"`
	RescheduledTime string             `bson:"rescheduled_time,omitempty" json:"rescheduledTime,omitempty"`
	RejectionReason string             `bson:"rejection_reason,omitempty" json:"rejectionReason,omitempty"`
	LandlordNotes   string             `bson:"landlord_notes,omitempty" json:"landlordNotes,omitempty"`
	Timestamps      `bson:",inline"`
}
