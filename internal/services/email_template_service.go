package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusnest/market/internal/db"
	"campusnest/market/internal/models"
)

// Default email templates used when the database holds no override.
var defaultEmailTemplates = map[string]models.EmailTemplate{
	"visit_request_new": {
		TemplateID: "visit_request_new",
		Locale:     "en-US",
		Subject:    "New visit request for {{.property_title}}",
		Body:       "Hi {{.landlord_name}},\n\n{{.student_name}} would like to visit {{.property_title}} on {{.visit_date}} at {{.visit_time}}.\nOpen your dashboard to confirm, reschedule or decline.",
	},
	"visit_confirmed": {
		TemplateID: "visit_confirmed",
		Locale:     "en-US",
		Subject:    "Your visit to {{.property_title}} is confirmed",
		Body:       "Hi {{.student_name}},\n\nYour visit to {{.property_title}} on {{.visit_date}} at {{.visit_time}} is confirmed.\n{{.meet_link}}",
	},
	"visit_rescheduled": {
		TemplateID: "visit_rescheduled",
		Locale:     "en-US",
		Subject:    "Your visit to {{.property_title}} has moved",
		Body:       "Hi {{.student_name}},\n\nThe landlord has rescheduled your visit to {{.property_title}} for {{.new_date}} at {{.new_time}}.",
	},
	"visit_rejected": {
		TemplateID: "visit_rejected",
		Locale:     "en-US",
		Subject:    "Update on your visit to {{.property_title}}",
		Body:       "Hi {{.student_name}},\n\nYour visit request for {{.property_title}} was declined.\n{{.reason}}",
	},
	"join_request_new": {
		TemplateID: "join_request_new",
		Locale:     "en-US",
		Subject:    "New join request for {{.property_title}}",
		Body:       "Hi {{.landlord_name}},\n\n{{.student_name}} has offered {{.bid_amount}} to move into {{.property_title}} from {{.moving_date}}.",
	},
	"join_request_approved": {
		TemplateID: "join_request_approved",
		Locale:     "en-US",
		Subject:    "Join request approved",
		Body:       "Good news {{.student_name}}! Your join request for {{.property_title}} has been approved by {{.landlord_name}}.",
	},
	"join_request_rejected": {
		TemplateID: "join_request_rejected",
		Locale:     "en-US",
		Subject:    "Join request update",
		Body:       "Hi {{.student_name}},\n\nUnfortunately your join request for {{.property_title}} has been rejected.\n\nReason: {{.reason}}",
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
}

// EmailTemplateService resolves templates from the database with built-in fallbacks.
type EmailTemplateService struct {
	db *mongo.Database
}

// NewEmailTemplateService creates a new instance of EmailTemplateService
func NewEmailTemplateService(db *mongo.Database) *EmailTemplateService {
	return &EmailTemplateService{db: db}
}

// GetTemplate retrieves an email template by ID and locale
func (s *EmailTemplateService) GetTemplate(ctx context.Context, templateID string, locale string) (*models.EmailTemplate, error) {
	filter := bson.M{
		"template_id": templateID,
		"locale":      locale,
	}

	var template models.EmailTemplate
	err := s.db.Collection(db.EmailTemplatesCollection).FindOne(ctx, filter).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if defaultTemplate, ok := defaultEmailTemplates[templateID]; ok {
				return &defaultTemplate, nil
			}
			return nil, fmt.Errorf("template not found: %s (locale: %s)", templateID, locale)
		}
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}

	return &template, nil
}

// SaveTemplate saves an email template to the database
func (s *EmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	filter := bson.M{
		"template_id": template.TemplateID,
		"locale":      template.Locale,
	}
	update := bson.M{"$set": bson.M{
		"template_id": template.TemplateID,
		"locale":      template.Locale,
		"subject":     template.Subject,
		"body":        template.Body,
	}}

	_, err := s.db.Collection(db.EmailTemplatesCollection).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}
	return nil
}

// DeleteTemplate deletes an email template from the database
func (s *EmailTemplateService) DeleteTemplate(ctx context.Context, templateID string, locale string) error {
	filter := bson.M{
		"template_id": templateID,
		"locale":      locale,
	}
	if _, err := s.db.Collection(db.EmailTemplatesCollection).DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("error deleting template: %w", err)
	}
	return nil
}
