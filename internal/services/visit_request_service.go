package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusnest/market/internal/calendar"
	"campusnest/market/internal/db"
	"campusnest/market/internal/models"
	"campusnest/market/internal/realtime"
)

const visitRequestModel = "VisitRequest"

// VisitRequestInput is a student's request to view a property.
type VisitRequestInput struct {
	PropertyID primitive.ObjectID
	VisitType  models.VisitType
	VisitDate  time.Time
	VisitTime  string
}

// IVisitRequestService defines the viewing workflow between students and landlords.
type IVisitRequestService interface {
	Create(ctx context.Context, studentID primitive.ObjectID, in VisitRequestInput) (*models.VisitRequest, error)
	ListForStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.VisitRequest, error)
	ListForLandlord(ctx context.Context, landlordID primitive.ObjectID) ([]models.VisitRequest, error)
	Confirm(ctx context.Context, landlordID, requestID primitive.ObjectID, meetLink string) (*models.VisitRequest, error)
	Reschedule(ctx context.Context, landlordID, requestID primitive.ObjectID, newDate time.Time, newTime, notes string) (*models.VisitRequest, error)
	Reject(ctx context.Context, landlordID, requestID primitive.ObjectID, reason string) (*models.VisitRequest, error)
	HasRecordedVisit(ctx context.Context, studentID, propertyID primitive.ObjectID) (bool, error)
}

type visitRequestService struct {
	db            *mongo.Database
	users         IUserService
	properties    IPropertyService
	notifications INotificationService
	jobs          JobQueue
	emitter       realtime.Emitter
	now           func() time.Time
}

// NewVisitRequestService creates a new VisitRequestService.
func NewVisitRequestService(db *mongo.Database, users IUserService, properties IPropertyService, notifications INotificationService, jobs JobQueue, emitter realtime.Emitter) IVisitRequestService {
	if jobs == nil {
		jobs = NoopQueue{}
	}
	if emitter == nil {
		emitter = realtime.Discard
	}
	return &visitRequestService{
		db:            db,
		users:         users,
		properties:    properties,
		notifications: notifications,
		jobs:          jobs,
		emitter:       emitter,
		now:           time.Now,
	}
}

func (s *visitRequestService) Create(ctx context.Context, studentID primitive.ObjectID, in VisitRequestInput) (*models.VisitRequest, error) {
	if in.PropertyID.IsZero() || in.VisitDate.IsZero() || in.VisitTime == "" || in.VisitType == "" {
		return nil, fmt.Errorf("%w: all fields are required", ErrInvalidInput)
	}
	if !in.VisitType.Valid() {
		return nil, fmt.Errorf("%w: unknown visit type %q", ErrInvalidInput, in.VisitType)
	}
	if !calendar.IsValidSlot(in.VisitTime) {
		return nil, fmt.Errorf("%w: %q is not an available time slot", ErrInvalidInput, in.VisitTime)
	}

	property, err := s.properties.FindByID(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}
	today := s.now()
	if !calendar.IsDateAvailable(in.VisitDate.Day(), in.VisitDate.Month(), in.VisitDate.Year(), today, property.AvailabilityDates) {
		return nil, fmt.Errorf("%w: the selected date is not available", ErrInvalidInput)
	}
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	vr := &models.VisitRequest{
		ID:        primitive.NewObjectID(),
		Student:   studentID,
		Landlord:  property.Landlord,
		Property:  property.ID,
		VisitType: in.VisitType,
		VisitDate: calendar.Midnight(in.VisitDate),
		VisitTime: in.VisitTime,
		Status:    models.VisitStatusPending,
	}
	vr.Touch(today.UTC())

	err = db.Try(func() error {
		_, insertErr := s.db.Collection(db.VisitRequestsCollection).InsertOne(ctx, vr)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert visit request for property %s: %w", property.ID.Hex(), err)
	}
	slog.Info("Visit request created", "id", vr.ID.Hex(), "property", property.ID.Hex(), "student", studentID.Hex())

	studentName := displayName(student, "A student")
	s.notify(ctx, &models.Notification{
		Recipient:     property.Landlord,
		RecipientRole: models.RoleLandlord,
		Type:          models.NotificationVisitRequest,
		Title:         "New Visit Request",
		Message:       fmt.Sprintf("%s has requested to visit %s", studentName, property.Title),
		RelatedID:     vr.ID,
		RelatedModel:  visitRequestModel,
		Metadata: map[string]any{
			"propertyId":    property.ID.Hex(),
			"propertyTitle": property.Title,
			"studentName":   studentName,
			"visitDate":     vr.VisitDate.Format(time.DateOnly),
			"visitTime":     vr.VisitTime,
			"visitType":     vr.VisitType,
		},
	})
	s.emit(ctx, models.RoleLandlord.Room(property.Landlord.Hex()), realtime.EventNewVisitRequest, map[string]any{
		"visitRequest": vr,
		"message":      "New visit request from " + studentName,
	})

	if landlord, err := s.users.FindByID(ctx, property.Landlord); err == nil {
		enqueueEmail(ctx, s.jobs, landlord.Email, "visit_request_new", map[string]any{
			"landlord_name":  displayName(landlord, "there"),
			"student_name":   studentName,
			"property_title": property.Title,
			"visit_date":     vr.VisitDate.Format(time.DateOnly),
			"visit_time":     vr.VisitTime,
		})
	}
	return vr, nil
}

func (s *visitRequestService) ListForStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.VisitRequest, error) {
	return s.list(ctx, bson.M{"student": studentID})
}

func (s *visitRequestService) ListForLandlord(ctx context.Context, landlordID primitive.ObjectID) ([]models.VisitRequest, error) {
	return s.list(ctx, bson.M{"landlord": landlordID})
}

func (s *visitRequestService) list(ctx context.Context, filter bson.M) ([]models.VisitRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(db.VisitRequestsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list visit requests: %w", err)
	}
	out := []models.VisitRequest{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode visit requests: %w", err)
	}
	return out, nil
}

// Confirm accepts the visit. The meet link is kept only for virtual visits.
func (s *visitRequestService) Confirm(ctx context.Context, landlordID, requestID primitive.ObjectID, meetLink string) (*models.VisitRequest, error) {
	set := bson.M{"status": models.VisitStatusConfirmed}
	vr, err := s.findOwned(ctx, landlordID, requestID)
	if err != nil {
		return nil, err
	}
	if vr.VisitType == models.VisitTypeVirtual && strings.TrimSpace(meetLink) != "" {
		set["meet_link"] = strings.TrimSpace(meetLink)
	}
	vr, err = s.update(ctx, vr.ID, set)
	if err != nil {
		return nil, err
	}

	property := s.propertyTitle(ctx, vr.Property)
	s.notifyStudent(ctx, vr, realtime.EventVisitConfirmed, &models.Notification{
		Type:    models.NotificationVisitConfirmed,
		Title:   "Visit Request Confirmed",
		Message: fmt.Sprintf("Your visit request for %s has been confirmed", property),
		Metadata: map[string]any{
			"propertyTitle": property,
			"visitDate":     vr.VisitDate.Format(time.DateOnly),
			"visitTime":     vr.VisitTime,
			"visitType":     vr.VisitType,
			"meetLink":      vr.MeetLink,
		},
	}, "visit_confirmed", map[string]any{
		"property_title": property,
		"visit_date":     vr.VisitDate.Format(time.DateOnly),
		"visit_time":     vr.VisitTime,
		"meet_link":      vr.MeetLink,
	})
	return vr, nil
}

func (s *visitRequestService) Reschedule(ctx context.Context, landlordID, requestID primitive.ObjectID, newDate time.Time, newTime, notes string) (*models.VisitRequest, error) {
	if newDate.IsZero() || newTime == "" {
		return nil, fmt.Errorf("%w: new date and time are required", ErrInvalidInput)
	}
	if !calendar.IsValidSlot(newTime) {
		return nil, fmt.Errorf("%w: %q is not an available time slot", ErrInvalidInput, newTime)
	}
	if calendar.Midnight(newDate).Before(calendar.Midnight(s.now())) {
		return nil, fmt.Errorf("%w: new date is in the past", ErrInvalidInput)
	}
	vr, err := s.findOwned(ctx, landlordID, requestID)
	if err != nil {
		return nil, err
	}
	day := calendar.Midnight(newDate)
	vr, err = s.update(ctx, vr.ID, bson.M{
		"status":           models.VisitStatusRescheduled,
		"rescheduled_date": day,
		"rescheduled_time": newTime,
		"landlord_notes":   strings.TrimSpace(notes),
	})
	if err != nil {
		return nil, err
	}

	property := s.propertyTitle(ctx, vr.Property)
	s.notifyStudent(ctx, vr, realtime.EventVisitRescheduled, &models.Notification{
		Type:    models.NotificationVisitRescheduled,
		Title:   "Visit Request Rescheduled",
		Message: fmt.Sprintf("Your visit request for %s has been rescheduled", property),
		Metadata: map[string]any{
			"propertyTitle": property,
			"originalDate":  vr.VisitDate.Format(time.DateOnly),
			"originalTime":  vr.VisitTime,
			"newDate":       day.Format(time.DateOnly),
			"newTime":       newTime,
			"landlordNotes": vr.LandlordNotes,
		},
	}, "visit_rescheduled", map[string]any{
		"property_title": property,
		"new_date":       day.Format(time.DateOnly),
		"new_time":       newTime,
	})
	return vr, nil
}

func (s *visitRequestService) Reject(ctx context.Context, landlordID, requestID primitive.ObjectID, reason string) (*models.VisitRequest, error) {
	vr, err := s.findOwned(ctx, landlordID, requestID)
	if err != nil {
		return nil, err
	}
	vr, err = s.update(ctx, vr.ID, bson.M{
		"status":           models.VisitStatusRejected,
		"rejection_reason": strings.TrimSpace(reason),
	})
	if err != nil {
		return nil, err
	}

	property := s.propertyTitle(ctx, vr.Property)
	s.notifyStudent(ctx, vr, realtime.EventVisitRejected, &models.Notification{
		Type:    models.NotificationVisitRejected,
		Title:   "Visit Request Rejected",
		Message: fmt.Sprintf("Your visit request for %s has been rejected", property),
		Metadata: map[string]any{
			"propertyTitle":   property,
			"rejectionReason": vr.RejectionReason,
		},
	}, "visit_rejected", map[string]any{
		"property_title": property,
		"reason":         vr.RejectionReason,
	})
	return vr, nil
}

// HasRecordedVisit reports whether the student has a confirmed, rescheduled
// or completed visit for the property.
func (s *visitRequestService) HasRecordedVisit(ctx context.Context, studentID, propertyID primitive.ObjectID) (bool, error) {
	n, err := s.db.Collection(db.VisitRequestsCollection).CountDocuments(ctx, bson.M{
		"student":  studentID,
		"property": propertyID,
		"status":   bson.M{"$in": models.RecordedVisitStatuses},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check visits: %w", err)
	}
	return n > 0, nil
}

// findOwned loads a visit request belonging to the landlord. Requests owned by
// someone else are reported as not found.
func (s *visitRequestService) findOwned(ctx context.Context, landlordID, requestID primitive.ObjectID) (*models.VisitRequest, error) {
	var vr models.VisitRequest
	err := s.db.Collection(db.VisitRequestsCollection).
		FindOne(ctx, bson.M{"_id": requestID, "landlord": landlordID}).
		Decode(&vr)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrVisitRequestNotFound
		}
		return nil, fmt.Errorf("error finding visit request %s: %w", requestID.Hex(), err)
	}
	return &vr, nil
}

func (s *visitRequestService) update(ctx context.Context, requestID primitive.ObjectID, set bson.M) (*models.VisitRequest, error) {
	set["updated_at"] = s.now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var vr models.VisitRequest
	err := s.db.Collection(db.VisitRequestsCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": requestID}, bson.M{"$set": set}, opts).
		Decode(&vr)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrVisitRequestNotFound
		}
		return nil, fmt.Errorf("failed to update visit request %s: %w", requestID.Hex(), err)
	}
	return &vr, nil
}

func (s *visitRequestService) propertyTitle(ctx context.Context, propertyID primitive.ObjectID) string {
	p, err := s.properties.FindByID(ctx, propertyID)
	if err != nil {
		slog.Warn("Failed to load property for visit notification", "property", propertyID.Hex(), "error", err)
		return "the property"
	}
	return p.Title
}

// notifyStudent stores n for the request's student, emits event with the
// notification and request, and queues the email.
func (s *visitRequestService) notifyStudent(ctx context.Context, vr *models.VisitRequest, event string, n *models.Notification, templateID string, data map[string]any) {
	n.Recipient = vr.Student
	n.RecipientRole = models.RoleStudent
	n.RelatedID = vr.ID
	n.RelatedModel = visitRequestModel
	stored := s.notify(ctx, n)

	s.emit(ctx, models.RoleStudent.Room(vr.Student.Hex()), event, map[string]any{
		"notification": stored,
		"visitRequest": vr,
	})

	if student, err := s.users.FindByID(ctx, vr.Student); err == nil {
		data["student_name"] = displayName(student, "there")
		enqueueEmail(ctx, s.jobs, student.Email, templateID, data)
	}
}

func (s *visitRequestService) notify(ctx context.Context, n *models.Notification) *models.Notification {
	stored, err := s.notifications.Create(ctx, n)
	if err != nil {
		slog.Error("Failed to create notification", "type", n.Type, "recipient", n.Recipient.Hex(), "error", err)
		return n
	}
	return stored
}

func (s *visitRequestService) emit(ctx context.Context, room, event string, payload any) {
	if err := s.emitter.Emit(ctx, room, event, payload); err != nil {
		slog.Warn("Failed to emit event", "room", room, "event", event, "error", err)
	}
}

// displayName falls back to a neutral label when the account has no name.
func displayName(u *models.User, fallback string) string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return fallback
}
