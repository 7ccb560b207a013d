package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusnest/market/internal/config"
	"campusnest/market/internal/db"
	"campusnest/market/internal/models"
	"campusnest/market/internal/realtime"
)

// INotificationService defines in-app notification operations.
type INotificationService interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	List(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, int64, error)
	UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID primitive.ObjectID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type notificationService struct {
	db      *mongo.Database
	cfg     *config.Config
	emitter realtime.Emitter
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(db *mongo.Database, cfg *config.Config, emitter realtime.Emitter) INotificationService {
	if emitter == nil {
		emitter = realtime.Discard
	}
	return &notificationService{db: db, cfg: cfg, emitter: emitter}
}

// Create stores n and pushes it to the recipient's room as new_notification.
// A failed push is logged; the stored notification is still returned.
func (s *notificationService) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if n.Recipient.IsZero() || !n.RecipientRole.Valid() {
		return nil, fmt.Errorf("%w: notification needs a recipient and role", ErrInvalidInput)
	}
	collection := s.db.Collection(db.NotificationsCollection)
	n.ID = primitive.NewObjectID()
	n.Read = false
	n.CreatedAt = time.Now().UTC()

	err := db.Try(func() error {
		_, insertErr := collection.InsertOne(ctx, n)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert notification for %s: %w", n.Recipient.Hex(), err)
	}

	room := n.RecipientRole.Room(n.Recipient.Hex())
	if err := s.emitter.Emit(ctx, room, realtime.EventNewNotification, n); err != nil {
		slog.Warn("Failed to emit notification", "room", room, "error", err)
	}
	return n, nil
}

// List returns the newest notifications for the user, capped by
// NotificationListLimit, together with the unread count.
func (s *notificationService) List(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, int64, error) {
	collection := s.db.Collection(db.NotificationsCollection)
	limit := int64(s.cfg.NotificationListLimit)
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := collection.Find(ctx, bson.M{"recipient": userID}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, 0, fmt.Errorf("failed to decode notifications: %w", err)
	}

	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return notifications, unread, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	n, err := s.db.Collection(db.NotificationsCollection).CountDocuments(ctx, bson.M{"recipient": userID, "read": false})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

// MarkRead marks one of the user's notifications as read. Another user's
// notification is reported as not found.
func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID primitive.ObjectID) (*models.Notification, error) {
	collection := s.db.Collection(db.NotificationsCollection)
	filter := bson.M{"_id": notificationID, "recipient": userID}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var n models.Notification
	err := collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": bson.M{"read": true}}, opts).Decode(&n)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to mark notification %s read: %w", notificationID.Hex(), err)
	}
	return &n, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.db.Collection(db.NotificationsCollection).UpdateMany(ctx,
		bson.M{"recipient": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.ModifiedCount, nil
}
