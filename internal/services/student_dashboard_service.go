package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"campusnest/market/internal/db"
	"campusnest/market/internal/models"
)

// IStudentDashboardService computes the student dashboard counters.
type IStudentDashboardService interface {
	Metrics(ctx context.Context, userID primitive.ObjectID) (*models.DashboardMetrics, error)
}

type studentDashboardService struct {
	db            *mongo.Database
	students      IStudentService
	notifications INotificationService
}

// NewStudentDashboardService creates a new StudentDashboardService.
func NewStudentDashboardService(db *mongo.Database, students IStudentService, notifications INotificationService) IStudentDashboardService {
	return &studentDashboardService{db: db, students: students, notifications: notifications}
}

// Metrics creates the profile on first use, then runs the counts concurrently.
func (s *studentDashboardService) Metrics(ctx context.Context, userID primitive.ObjectID) (*models.DashboardMetrics, error) {
	p, _, err := s.students.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	m := &models.DashboardMetrics{WishlistedProperties: len(p.Wishlist)}

	g, gctx := errgroup.WithContext(ctx)
	count := func(coll string, filter bson.M, dst *int64) {
		g.Go(func() error {
			n, err := s.db.Collection(coll).CountDocuments(gctx, filter)
			if err != nil {
				return fmt.Errorf("failed to count %s: %w", coll, err)
			}
			*dst = n
			return nil
		})
	}
	count(db.VisitRequestsCollection, bson.M{"student": userID}, &m.VisitRequests)
	count(db.JoinRequestsCollection, bson.M{"student": userID}, &m.JoinRequests)
	count(db.JoinRequestsCollection, bson.M{
		"student": userID,
		"status":  bson.M{"$in": []models.JoinStatus{models.JoinStatusApproved, models.JoinStatusWaitingCompletion}},
	}, &m.ApprovedRentalRequests)
	g.Go(func() error {
		n, err := s.notifications.UnreadCount(gctx, userID)
		if err != nil {
			return err
		}
		m.UnreadNotifications = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}
