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

const joinRequestModel = "JoinRequest"

// JoinRequestInput is a student's application to move into a property.
type JoinRequestInput struct {
	PropertyID primitive.ObjectID
	MovingDate time.Time
	BidAmount  float64
	Message    string
}

// StudentSummary is the part of a student's profile a landlord sees on a request.
type StudentSummary struct {
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Bio             string   `json:"bio"`
	Interests       []string `json:"interests"`
	ReputationScore int      `json:"reputationScore"`
	ProfileImage    string   `json:"profileImage,omitempty"`
}

// LandlordJoinRequest is a join request with the applicant's summary attached.
type LandlordJoinRequest struct {
	models.JoinRequest `bson:",inline"`
	StudentProfile     *StudentSummary `json:"studentProfile"`
}

// IJoinRequestService defines the join-request workflow and its pre-submission checks.
type IJoinRequestService interface {
	CheckHigherBids(ctx context.Context, propertyID primitive.ObjectID, bidAmount float64) (models.BidSummary, error)
	Create(ctx context.Context, studentID primitive.ObjectID, in JoinRequestInput) (*models.JoinRequest, error)
	ListForStudent(ctx context.Context, studentID primitive.ObjectID, status models.JoinStatus) ([]models.JoinRequest, error)
	ListForLandlord(ctx context.Context, landlordID primitive.ObjectID, status models.JoinStatus) ([]LandlordJoinRequest, error)
	Delete(ctx context.Context, studentID, requestID primitive.ObjectID) error
	Accept(ctx context.Context, landlordID, requestID primitive.ObjectID) (*models.JoinRequest, error)
	Reject(ctx context.Context, landlordID, requestID primitive.ObjectID, reason string) (*models.JoinRequest, error)
}

type joinRequestService struct {
	db            *mongo.Database
	users         IUserService
	students      IStudentService
	properties    IPropertyService
	notifications INotificationService
	jobs          JobQueue
	emitter       realtime.Emitter
	now           func() time.Time
}

// NewJoinRequestService creates a new JoinRequestService.
func NewJoinRequestService(db *mongo.Database, users IUserService, students IStudentService, properties IPropertyService, notifications INotificationService, jobs JobQueue, emitter realtime.Emitter) IJoinRequestService {
	if jobs == nil {
		jobs = NoopQueue{}
	}
	if emitter == nil {
		emitter = realtime.Discard
	}
	return &joinRequestService{
		db:            db,
		users:         users,
		students:      students,
		properties:    properties,
		notifications: notifications,
		jobs:          jobs,
		emitter:       emitter,
		now:           time.Now,
	}
}

// CheckHigherBids compares bidAmount with the pending bids on the property.
// HighestBid is zero when there are none.
func (s *joinRequestService) CheckHigherBids(ctx context.Context, propertyID primitive.ObjectID, bidAmount float64) (models.BidSummary, error) {
	if _, err := s.properties.FindByID(ctx, propertyID); err != nil {
		return models.BidSummary{}, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "bid_amount", Value: -1}}).
		SetProjection(bson.M{"bid_amount": 1})
	cursor, err := s.db.Collection(db.JoinRequestsCollection).Find(ctx,
		bson.M{"property": propertyID, "status": models.JoinStatusPending}, opts)
	if err != nil {
		return models.BidSummary{}, fmt.Errorf("failed to load bids: %w", err)
	}
	var pending []models.JoinRequest
	if err := cursor.All(ctx, &pending); err != nil {
		return models.BidSummary{}, fmt.Errorf("failed to decode bids: %w", err)
	}

	var summary models.BidSummary
	if len(pending) > 0 {
		summary.HighestBid = pending[0].BidAmount
	}
	for _, jr := range pending {
		if jr.BidAmount > bidAmount {
			summary.HigherBidsCount++
		}
	}
	summary.HasHigherBids = summary.HigherBidsCount > 0
	return summary, nil
}

// Create re-checks the student's profile, refuses a second pending request for
// the same property, stores the request and notifies the landlord.
func (s *joinRequestService) Create(ctx context.Context, studentID primitive.ObjectID, in JoinRequestInput) (*models.JoinRequest, error) {
	if in.PropertyID.IsZero() || in.MovingDate.IsZero() || in.BidAmount <= 0 {
		return nil, fmt.Errorf("%w: missing required fields", ErrInvalidInput)
	}
	in.Message = strings.TrimSpace(in.Message)
	if len([]rune(in.Message)) > models.MaxJoinMessageLength {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidInput, models.MaxJoinMessageLength)
	}
	today := s.now()
	if calendar.Midnight(in.MovingDate).Before(calendar.Midnight(today)) {
		return nil, fmt.Errorf("%w: moving date is in the past", ErrInvalidInput)
	}

	completion, err := s.students.CheckProfileCompleteness(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !completion.IsComplete {
		return nil, ErrProfileIncomplete
	}

	property, err := s.properties.FindByID(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if property.Status != models.PropertyStatusActive {
		return nil, ErrPropertyUnavailable
	}

	collection := s.db.Collection(db.JoinRequestsCollection)
	n, err := collection.CountDocuments(ctx, bson.M{
		"student":  studentID,
		"property": property.ID,
		"status":   models.JoinStatusPending,
	}, options.Count().SetLimit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to check existing requests: %w", err)
	}
	if n > 0 {
		return nil, ErrDuplicatePendingRequest
	}

	jr := &models.JoinRequest{
		ID:         primitive.NewObjectID(),
		Student:    studentID,
		Landlord:   property.Landlord,
		Property:   property.ID,
		MovingDate: calendar.Midnight(in.MovingDate),
		BidAmount:  in.BidAmount,
		Message:    in.Message,
		Status:     models.JoinStatusPending,
	}
	jr.Touch(today.UTC())

	err = db.Try(func() error {
		_, insertErr := collection.InsertOne(ctx, jr)
		return insertErr
	})
	if err != nil {
		// The partial unique index catches a concurrent duplicate.
		if db.IsMongoDuplicateKeyError(err) {
			return nil, ErrDuplicatePendingRequest
		}
		return nil, fmt.Errorf("failed to insert join request for property %s: %w", property.ID.Hex(), err)
	}
	slog.Info("Join request created", "id", jr.ID.Hex(), "property", property.ID.Hex(), "student", studentID.Hex(), "bid", jr.BidAmount)

	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		slog.Warn("Failed to load student for join notification", "student", studentID.Hex(), "error", err)
		student = &models.User{ID: studentID}
	}
	studentName := displayName(student, "A student")

	s.notify(ctx, &models.Notification{
		Recipient:     property.Landlord,
		RecipientRole: models.RoleLandlord,
		Type:          models.NotificationJoinRequest,
		Title:         "New Join Request",
		Message:       fmt.Sprintf("%s has requested to join your property: %s", studentName, property.Title),
		RelatedID:     jr.ID,
		RelatedModel:  joinRequestModel,
	})
	s.emit(ctx, models.RoleLandlord.Room(property.Landlord.Hex()), realtime.EventNewJoinRequest, map[string]any{
		"joinRequest": jr,
		"student":     map[string]string{"name": student.Name, "email": student.Email},
		"property":    map[string]string{"title": property.Title},
	})
	s.emit(ctx, models.RoleStudent.Room(studentID.Hex()), realtime.EventMetricsUpdated, map[string]any{
		"joinRequestId": jr.ID.Hex(),
	})

	if landlord, err := s.users.FindByID(ctx, property.Landlord); err == nil {
		enqueueEmail(ctx, s.jobs, landlord.Email, "join_request_new", map[string]any{
			"landlord_name":  displayName(landlord, "there"),
			"student_name":   studentName,
			"property_title": property.Title,
			"bid_amount":     fmt.Sprintf("%.2f %s", jr.BidAmount, property.CurrencyOrDefault()),
			"moving_date":    jr.MovingDate.Format(time.DateOnly),
		})
	}
	return jr, nil
}

// ListForStudent returns the student's requests, newest first. An empty status lists all.
func (s *joinRequestService) ListForStudent(ctx context.Context, studentID primitive.ObjectID, status models.JoinStatus) ([]models.JoinRequest, error) {
	filter := bson.M{"student": studentID}
	if status != "" {
		filter["status"] = status
	}
	return s.list(ctx, filter)
}

// ListForLandlord returns requests on the landlord's properties with a
// summary of each applicant.
func (s *joinRequestService) ListForLandlord(ctx context.Context, landlordID primitive.ObjectID, status models.JoinStatus) ([]LandlordJoinRequest, error) {
	filter := bson.M{"landlord": landlordID}
	if status != "" {
		filter["status"] = status
	}
	requests, err := s.list(ctx, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(requests))
	for _, jr := range requests {
		ids = append(ids, jr.Student)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	cursor, err := s.db.Collection(db.StudentsCollection).Find(ctx, bson.M{"user": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to load student profiles: %w", err)
	}
	var profiles []models.StudentProfile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("failed to decode student profiles: %w", err)
	}
	byUser := make(map[primitive.ObjectID]*models.StudentProfile, len(profiles))
	for i := range profiles {
		byUser[profiles[i].User] = &profiles[i]
	}

	out := make([]LandlordJoinRequest, 0, len(requests))
	for _, jr := range requests {
		item := LandlordJoinRequest{JoinRequest: jr}
		if p, ok := byUser[jr.Student]; ok {
			item.StudentProfile = &StudentSummary{
				Bio:             p.Bio,
				Interests:       p.Interests,
				ReputationScore: p.ReputationScore,
				ProfileImage:    p.Documents.ProfileImage,
			}
			if u, ok := users[jr.Student]; ok {
				item.StudentProfile.Name = u.Name
				item.StudentProfile.Email = u.Email
			}
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *joinRequestService) list(ctx context.Context, filter bson.M) ([]models.JoinRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(db.JoinRequestsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	out := []models.JoinRequest{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode join requests: %w", err)
	}
	return out, nil
}

// Delete withdraws one of the student's pending requests. Anything else is
// reported as ErrJoinRequestNotFound.
func (s *joinRequestService) Delete(ctx context.Context, studentID, requestID primitive.ObjectID) error {
	res, err := s.db.Collection(db.JoinRequestsCollection).DeleteOne(ctx, bson.M{
		"_id":     requestID,
		"student": studentID,
		"status":  models.JoinStatusPending,
	})
	if err != nil {
		return fmt.Errorf("failed to delete join request %s: %w", requestID.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return ErrJoinRequestNotFound
	}
	s.emit(ctx, models.RoleStudent.Room(studentID.Hex()), realtime.EventMetricsUpdated, map[string]any{
		"joinRequestId": requestID.Hex(),
	})
	return nil
}

// Accept approves a pending request on one of the landlord's properties.
func (s *joinRequestService) Accept(ctx context.Context, landlordID, requestID primitive.ObjectID) (*models.JoinRequest, error) {
	jr, err := s.transition(ctx, landlordID, requestID, bson.M{"status": models.JoinStatusApproved})
	if err != nil {
		return nil, err
	}
	property := s.propertyTitle(ctx, jr.Property)
	landlord, _ := s.users.FindByID(ctx, landlordID)
	landlordName := "your landlord"
	landlordInfo := map[string]string{}
	if landlord != nil {
		landlordName = displayName(landlord, landlordName)
		landlordInfo = map[string]string{"name": landlord.Name, "email": landlord.Email}
	}

	s.notify(ctx, &models.Notification{
		Recipient:     jr.Student,
		RecipientRole: models.RoleStudent,
		Type:          models.NotificationJoinRequest,
		Title:         "Join Request Approved",
		Message:       fmt.Sprintf("Your join request for %q has been approved!", property),
		RelatedID:     jr.ID,
		RelatedModel:  joinRequestModel,
	})
	s.emit(ctx, models.RoleStudent.Room(jr.Student.Hex()), realtime.EventJoinRequestApproved, map[string]any{
		"joinRequest": jr,
		"landlord":    landlordInfo,
	})
	s.emailStudent(ctx, jr.Student, "join_request_approved", map[string]any{
		"property_title": property,
		"landlord_name":  landlordName,
	})
	return jr, nil
}

// Reject declines a pending request. A reason is required.
func (s *joinRequestService) Reject(ctx context.Context, landlordID, requestID primitive.ObjectID, reason string) (*models.JoinRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrInvalidInput)
	}
	jr, err := s.transition(ctx, landlordID, requestID, bson.M{
		"status":           models.JoinStatusRejected,
		"rejection_reason": reason,
	})
	if err != nil {
		return nil, err
	}
	property := s.propertyTitle(ctx, jr.Property)

	s.notify(ctx, &models.Notification{
		Recipient:     jr.Student,
		RecipientRole: models.RoleStudent,
		Type:          models.NotificationJoinRequest,
		Title:         "Join Request Rejected",
		Message:       fmt.Sprintf("Your join request for %q has been rejected.", property),
		RelatedID:     jr.ID,
		RelatedModel:  joinRequestModel,
	})
	s.emit(ctx, models.RoleStudent.Room(jr.Student.Hex()), realtime.EventJoinRequestRejected, map[string]any{
		"joinRequest": jr,
		"reason":      reason,
	})
	s.emailStudent(ctx, jr.Student, "join_request_rejected", map[string]any{
		"property_title": property,
		"reason":         reason,
	})
	return jr, nil
}

// transition atomically moves a pending request owned by the landlord to a new state.
func (s *joinRequestService) transition(ctx context.Context, landlordID, requestID primitive.ObjectID, set bson.M) (*models.JoinRequest, error) {
	set["updated_at"] = s.now().UTC()
	filter := bson.M{"_id": requestID, "landlord": landlordID, "status": models.JoinStatusPending}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var jr models.JoinRequest
	err := s.db.Collection(db.JoinRequestsCollection).
		FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).
		Decode(&jr)
	if err == nil {
		return &jr, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update join request %s: %w", requestID.Hex(), err)
	}

	// Distinguish a request that exists but has left the pending state.
	n, countErr := s.db.Collection(db.JoinRequestsCollection).CountDocuments(ctx, bson.M{"_id": requestID, "landlord": landlordID})
	if countErr == nil && n > 0 {
		return nil, ErrNotPending
	}
	return nil, ErrJoinRequestNotFound
}

func (s *joinRequestService) emailStudent(ctx context.Context, studentID primitive.ObjectID, templateID string, data map[string]any) {
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		slog.Warn("Failed to load student for email", "student", studentID.Hex(), "error", err)
		return
	}
	data["student_name"] = displayName(student, "there")
	enqueueEmail(ctx, s.jobs, student.Email, templateID, data)
}

func (s *joinRequestService) propertyTitle(ctx context.Context, propertyID primitive.ObjectID) string {
	p, err := s.properties.FindByID(ctx, propertyID)
	if err != nil {
		slog.Warn("Failed to load property for join notification", "property", propertyID.Hex(), "error", err)
		return "the property"
	}
	return p.Title
}

func (s *joinRequestService) notify(ctx context.Context, n *models.Notification) {
	if _, err := s.notifications.Create(ctx, n); err != nil {
		slog.Error("Failed to create notification", "type", n.Type, "recipient", n.Recipient.Hex(), "error", err)
	}
}

func (s *joinRequestService) emit(ctx context.Context, room, event string, payload any) {
	if err := s.emitter.Emit(ctx, room, event, payload); err != nil {
		slog.Warn("Failed to emit event", "room", room, "event", event, "error", err)
	}
}
