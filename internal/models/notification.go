package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationVisitRequest      NotificationType = "visit_request"
	NotificationVisitConfirmed    NotificationType = "visit_confirmed"
	NotificationVisitRescheduled  NotificationType = "visit_rescheduled"
	NotificationVisitRejected     NotificationType = "visit_rejected"
	NotificationMessage           NotificationType = "message"
	NotificationPropertyUpdate    NotificationType = "property_update"
	NotificationApplicationStatus NotificationType = "application_status"
	NotificationJoinRequest       NotificationType = "join_request"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Recipient     primitive.ObjectID `bson:"recipient" json:"recipient"`
	RecipientRole Role               `bson:"recipient_role" json:"recipientRole"`
	Type          NotificationType   `bson:"type" json:"type"`
	Title         string             `bson:"title" json:"title"`
	Message       string             `bson:"message" json:"message"`
	RelatedID     primitive.ObjectID `bson:"related_id,omitempty" json:"relatedId,omitempty"`
	RelatedModel  string             `bson:"related_model,omitempty" json:"relatedModel,omitempty"`
	Metadata      map[string]any     `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Read          bool               `bson:"read" json:"read"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
}
