package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusnest/market/internal/cache"
	"campusnest/market/internal/config"
	"campusnest/market/internal/db"
	"campusnest/market/internal/distance"
	"campusnest/market/internal/models"
	"campusnest/market/internal/search"
)

const propertyCachePrefix = "properties:"

// IPropertyService defines read operations on listings plus the few
// counters students affect.
type IPropertyService interface {
	ListActive(ctx context.Context, params url.Values) ([]models.Property, error)
	GetByID(ctx context.Context, propertyID primitive.ObjectID) (*models.Property, error)
	FindByID(ctx context.Context, propertyID primitive.ObjectID) (*models.Property, error)
	FindByIDs(ctx context.Context, propertyIDs []primitive.ObjectID) ([]models.Property, error)
	SetLocation(ctx context.Context, propertyID primitive.ObjectID, loc distance.Location) error
	AdjustWishlistCount(ctx context.Context, propertyID primitive.ObjectID, delta int) error
	InvalidateCache(ctx context.Context) error
}

type propertyService struct {
	db  *mongo.Database
	rdb redis.Cmdable
	cfg *config.Config
}

// NewPropertyService creates a new PropertyService. rdb may be nil, which disables list caching.
func NewPropertyService(db *mongo.Database, rdb redis.Cmdable, cfg *config.Config) IPropertyService {
	return &propertyService{db: db, rdb: rdb, cfg: cfg}
}

// ListActive returns active properties, newest first. When params carry any
// search parameters the list is filtered and ordered by search.Apply.
func (s *propertyService) ListActive(ctx context.Context, params url.Values) ([]models.Property, error) {
	key := cache.QueryKey(propertyCachePrefix+"active", params)
	if s.rdb != nil {
		var cached []models.Property
		err := cache.GetJSON(ctx, s.rdb, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("Property cache read failed", "key", key, "error", err)
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(db.PropertiesCollection).Find(ctx, bson.M{"status": models.PropertyStatusActive}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	props := []models.Property{}
	if err := cursor.All(ctx, &props); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}

	if len(params) > 0 {
		props = search.Apply(props, search.ParseFilter(params), nil)
	}

	if s.rdb != nil {
		if err := cache.SetJSON(ctx, s.rdb, key, props, s.cfg.PropertyCacheTTL); err != nil {
			slog.Warn("Property cache write failed", "key", key, "error", err)
		}
	}
	return props, nil
}

// GetByID returns the property and counts the view.
func (s *propertyService) GetByID(ctx context.Context, propertyID primitive.ObjectID) (*models.Property, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Property
	err := s.db.Collection(db.PropertiesCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": propertyID}, bson.M{"$inc": bson.M{"views": 1}}, opts).
		Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPropertyNotFound
		}
		return nil, fmt.Errorf("error finding property %s: %w", propertyID.Hex(), err)
	}
	return &p, nil
}

// FindByID returns the property without side effects.
func (s *propertyService) FindByID(ctx context.Context, propertyID primitive.ObjectID) (*models.Property, error) {
	var p models.Property
	err := s.db.Collection(db.PropertiesCollection).FindOne(ctx, bson.M{"_id": propertyID}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPropertyNotFound
		}
		return nil, fmt.Errorf("error finding property %s: %w", propertyID.Hex(), err)
	}
	return &p, nil
}

// FindByIDs returns the known properties among ids, in no particular order.
func (s *propertyService) FindByIDs(ctx context.Context, propertyIDs []primitive.ObjectID) ([]models.Property, error) {
	props := []models.Property{}
	if len(propertyIDs) == 0 {
		return props, nil
	}
	cursor, err := s.db.Collection(db.PropertiesCollection).Find(ctx, bson.M{"_id": bson.M{"$in": propertyIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to find properties: %w", err)
	}
	if err := cursor.All(ctx, &props); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	return props, nil
}

// SetLocation stores the geocoded point and geohash, then drops cached lists.
func (s *propertyService) SetLocation(ctx context.Context, propertyID primitive.ObjectID, loc distance.Location) error {
	update := bson.M{"$set": bson.M{
		"location":   models.NewPoint(loc.Lat, loc.Lng),
		"geohash":    loc.Geohash,
		"updated_at": time.Now().UTC(),
	}}
	res, err := s.db.Collection(db.PropertiesCollection).UpdateByID(ctx, propertyID, update)
	if err != nil {
		return fmt.Errorf("failed to set location on property %s: %w", propertyID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrPropertyNotFound
	}
	return s.InvalidateCache(ctx)
}

// AdjustWishlistCount adds delta to wishlist_count without letting it go negative.
func (s *propertyService) AdjustWishlistCount(ctx context.Context, propertyID primitive.ObjectID, delta int) error {
	filter := bson.M{"_id": propertyID}
	if delta < 0 {
		filter["wishlist_count"] = bson.M{"$gte": -delta}
	}
	_, err := s.db.Collection(db.PropertiesCollection).UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"wishlist_count": delta}})
	if err != nil {
		return fmt.Errorf("failed to update wishlist count on property %s: %w", propertyID.Hex(), err)
	}
	return nil
}

func (s *propertyService) InvalidateCache(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}
	return cache.DeletePrefix(ctx, s.rdb, propertyCachePrefix)
}
