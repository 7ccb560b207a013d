package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// EmailTemplate defines the structure for email templates stored in the DB.
type EmailTemplate struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	TemplateID string             `bson:"template_id" json:"template_id"` // e.g., "new_join_request", "visit_confirmed"
	Locale     string             `bson:"locale" json:"locale"`
	Subject    string             `bson:"subject" json:"subject"`
	Body       string             `bson:"body" json:"body"` // plain text with {{.key}} placeholders
}
