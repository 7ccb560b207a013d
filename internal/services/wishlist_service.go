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

	"campusnest/market/internal/db"
	"campusnest/market/internal/models"
	"campusnest/market/internal/realtime"
)

// IWishlistService defines the student's saved-properties list.
type IWishlistService interface {
	List(ctx context.Context, userID primitive.ObjectID) ([]models.Property, error)
	Add(ctx context.Context, userID, propertyID primitive.ObjectID) error
	Remove(ctx context.Context, userID, propertyID primitive.ObjectID) error
}

type wishlistService struct {
	db         *mongo.Database
	students   IStudentService
	properties IPropertyService
	emitter    realtime.Emitter
}

// NewWishlistService creates a new WishlistService.
func NewWishlistService(db *mongo.Database, students IStudentService, properties IPropertyService, emitter realtime.Emitter) IWishlistService {
	if emitter == nil {
		emitter = realtime.Discard
	}
	return &wishlistService{db: db, students: students, properties: properties, emitter: emitter}
}

// List returns the wishlisted properties in the order they were added.
// Properties that no longer exist are skipped.
func (s *wishlistService) List(ctx context.Context, userID primitive.ObjectID) ([]models.Property, error) {
	p, _, err := s.students.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	props, err := s.properties.FindByIDs(ctx, p.Wishlist)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.Property, len(props))
	for _, prop := range props {
		byID[prop.ID] = prop
	}
	out := make([]models.Property, 0, len(p.Wishlist))
	for _, id := range p.Wishlist {
		if prop, ok := byID[id]; ok {
			out = append(out, prop)
		}
	}
	return out, nil
}

// Add saves the property. Adding a property already on the list returns ErrAlreadyInWishlist.
func (s *wishlistService) Add(ctx context.Context, userID, propertyID primitive.ObjectID) error {
	if _, err := s.properties.FindByID(ctx, propertyID); err != nil {
		return err
	}
	p, _, err := s.students.EnsureProfile(ctx, userID)
	if err != nil {
		return err
	}

	res, err := s.db.Collection(db.StudentsCollection).UpdateOne(ctx,
		bson.M{"_id": p.ID, "wishlist": bson.M{"$ne": propertyID}},
		bson.M{
			"$push": bson.M{"wishlist": propertyID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to add %s to wishlist: %w", propertyID.Hex(), err)
	}
	if res.ModifiedCount == 0 {
		return ErrAlreadyInWishlist
	}

	if err := s.properties.AdjustWishlistCount(ctx, propertyID, 1); err != nil {
		slog.Warn("Failed to bump wishlist count", "property", propertyID.Hex(), "error", err)
	}
	s.emitMetrics(ctx, userID, len(p.Wishlist)+1)
	return nil
}

// Remove drops the property. Removing a property that is not on the list is not an error.
// The count is lowered only when this call pulled the id from the stored list.
func (s *wishlistService) Remove(ctx context.Context, userID, propertyID primitive.ObjectID) error {
	p, _, err := s.students.EnsureProfile(ctx, userID)
	if err != nil {
		return err
	}

	var updated models.StudentProfile
	err = s.db.Collection(db.StudentsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": p.ID, "wishlist": propertyID},
		bson.M{
			"$pull": bson.M{"wishlist": propertyID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to remove %s from wishlist: %w", propertyID.Hex(), err)
	}

	if err := s.properties.AdjustWishlistCount(ctx, propertyID, -1); err != nil {
		slog.Warn("Failed to lower wishlist count", "property", propertyID.Hex(), "error", err)
	}
	s.emitMetrics(ctx, userID, len(updated.Wishlist))
	return nil
}

func (s *wishlistService) emitMetrics(ctx context.Context, userID primitive.ObjectID, count int) {
	room := models.RoleStudent.Room(userID.Hex())
	payload := map[string]any{"wishlistCount": count}
	if err := s.emitter.Emit(ctx, room, realtime.EventMetricsUpdated, payload); err != nil {
		slog.Warn("Failed to emit metrics update", "room", room, "error", err)
	}
}
