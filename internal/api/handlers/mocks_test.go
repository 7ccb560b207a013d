package handlers_test

import (
	"context"
	"net/url"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusnest/market/internal/distance"
	"campusnest/market/internal/models"
	"campusnest/market/internal/services"
	"campusnest/market/internal/verification"
)

// --- Mocks ---

// MockPropertyService
type MockPropertyService struct {
	mock.Mock
}

func (m *MockPropertyService) ListActive(ctx context.Context, params url.Values) ([]models.Property, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockPropertyService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Property, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockPropertyService) SetLocation(ctx context.Context, id primitive.ObjectID, loc distance.Location) error {
	return m.Called(ctx, id, loc).Error(0)
}

func (m *MockPropertyService) AdjustWishlistCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	return m.Called(ctx, id, delta).Error(0)
}

func (m *MockPropertyService) InvalidateCache(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockDistanceService
type MockDistanceService struct {
	mock.Mock
}

func (m *MockDistanceService) Compute(ctx context.Context, origin string, ids []string) (*services.DistanceReport, error) {
	args := m.Called(ctx, origin, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DistanceReport), args.Error(1)
}

// MockStudentService
type MockStudentService struct {
	mock.Mock
}

func (m *MockStudentService) EnsureProfile(ctx context.Context, userID primitive.ObjectID) (*models.StudentProfile, *models.User, error) {
	args := m.Called(ctx, userID)
	var p *models.StudentProfile
	var u *models.User
	if args.Get(0) != nil {
		p = args.Get(0).(*models.StudentProfile)
	}
	if args.Get(1) != nil {
		u = args.Get(1).(*models.User)
	}
	return p, u, args.Error(2)
}

func (m *MockStudentService) view(args mock.Arguments, i int) *models.StudentProfileView {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).(*models.StudentProfileView)
}

func (m *MockStudentService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*models.StudentProfileView, error) {
	args := m.Called(ctx, userID)
	return m.view(args, 0), args.Error(1)
}

func (m *MockStudentService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, update services.ProfileUpdate) (*models.StudentProfileView, error) {
	args := m.Called(ctx, userID, update)
	return m.view(args, 0), args.Error(1)
}

func (m *MockStudentService) UploadDocument(ctx context.Context, userID primitive.ObjectID, upload services.DocumentUpload) (string, *models.StudentProfileView, error) {
	args := m.Called(ctx, userID, upload)
	return args.String(0), m.view(args, 1), args.Error(2)
}

func (m *MockStudentService) DeleteDocument(ctx context.Context, userID primitive.ObjectID, docType models.DocumentType) (*models.StudentProfileView, error) {
	args := m.Called(ctx, userID, docType)
	return m.view(args, 0), args.Error(1)
}

func (m *MockStudentService) DocumentLink(ctx context.Context, userID primitive.ObjectID, docType models.DocumentType) (string, error) {
	args := m.Called(ctx, userID, docType)
	return args.String(0), args.Error(1)
}

func (m *MockStudentService) CheckProfileCompleteness(ctx context.Context, userID primitive.ObjectID) (models.ProfileCompletion, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.ProfileCompletion), args.Error(1)
}

func (m *MockStudentService) Verification(ctx context.Context, userID primitive.ObjectID) (*verification.Report, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.Report), args.Error(1)
}

func (m *MockStudentService) MarkImageProcessed(ctx context.Context, userID primitive.ObjectID) error {
	return m.Called(ctx, userID).Error(0)
}

// MockWishlistService
type MockWishlistService struct {
	mock.Mock
}

func (m *MockWishlistService) List(ctx context.Context, userID primitive.ObjectID) ([]models.Property, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockWishlistService) Add(ctx context.Context, userID, propertyID primitive.ObjectID) error {
	return m.Called(ctx, userID, propertyID).Error(0)
}

func (m *MockWishlistService) Remove(ctx context.Context, userID, propertyID primitive.ObjectID) error {
	return m.Called(ctx, userID, propertyID).Error(0)
}

// MockVisitRequestService
type MockVisitRequestService struct {
	mock.Mock
}

func visitResult(args mock.Arguments) (*models.VisitRequest, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VisitRequest), args.Error(1)
}

func (m *MockVisitRequestService) Create(ctx context.Context, studentID primitive.ObjectID, in services.VisitRequestInput) (*models.VisitRequest, error) {
	return visitResult(m.Called(ctx, studentID, in))
}

func (m *MockVisitRequestService) ListForStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.VisitRequest, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.VisitRequest), args.Error(1)
}

func (m *MockVisitRequestService) ListForLandlord(ctx context.Context, landlordID primitive.ObjectID) ([]models.VisitRequest, error) {
	args := m.Called(ctx, landlordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.VisitRequest), args.Error(1)
}

func (m *MockVisitRequestService) Confirm(ctx context.Context, landlordID, requestID primitive.ObjectID, meetLink string) (*models.VisitRequest, error) {
	return visitResult(m.Called(ctx, landlordID, requestID, meetLink))
}

func (m *MockVisitRequestService) Reschedule(ctx context.Context, landlordID, requestID primitive.ObjectID, newDate time.Time, newTime, notes string) (*models.VisitRequest, error) {
	return visitResult(m.Called(ctx, landlordID, requestID, newDate, newTime, notes))
}

func (m *MockVisitRequestService) Reject(ctx context.Context, landlordID, requestID primitive.ObjectID, reason string) (*models.VisitRequest, error) {
	return visitResult(m.Called(ctx, landlordID, requestID, reason))
}

func (m *MockVisitRequestService) HasRecordedVisit(ctx context.Context, studentID, propertyID primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, studentID, propertyID)
	return args.Bool(0), args.Error(1)
}

// MockJoinRequestService
type MockJoinRequestService struct {
	mock.Mock
}

func joinResult(args mock.Arguments) (*models.JoinRequest, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JoinRequest), args.Error(1)
}

func (m *MockJoinRequestService) CheckHigherBids(ctx context.Context, propertyID primitive.ObjectID, bid float64) (models.BidSummary, error) {
	args := m.Called(ctx, propertyID, bid)
	return args.Get(0).(models.BidSummary), args.Error(1)
}

func (m *MockJoinRequestService) Create(ctx context.Context, studentID primitive.ObjectID, in services.JoinRequestInput) (*models.JoinRequest, error) {
	return joinResult(m.Called(ctx, studentID, in))
}

func (m *MockJoinRequestService) ListForStudent(ctx context.Context, studentID primitive.ObjectID, status models.JoinStatus) ([]models.JoinRequest, error) {
	args := m.Called(ctx, studentID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.JoinRequest), args.Error(1)
}

func (m *MockJoinRequestService) ListForLandlord(ctx context.Context, landlordID primitive.ObjectID, status models.JoinStatus) ([]services.LandlordJoinRequest, error) {
	args := m.Called(ctx, landlordID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.LandlordJoinRequest), args.Error(1)
}

func (m *MockJoinRequestService) Delete(ctx context.Context, studentID, requestID primitive.ObjectID) error {
	return m.Called(ctx, studentID, requestID).Error(0)
}

func (m *MockJoinRequestService) Accept(ctx context.Context, landlordID, requestID primitive.ObjectID) (*models.JoinRequest, error) {
	return joinResult(m.Called(ctx, landlordID, requestID))
}

func (m *MockJoinRequestService) Reject(ctx context.Context, landlordID, requestID primitive.ObjectID, reason string) (*models.JoinRequest, error) {
	return joinResult(m.Called(ctx, landlordID, requestID, reason))
}

// MockNotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockNotificationService) List(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, int64, error) {
	args := m.Called(ctx, userID)
	var list []models.Notification
	if args.Get(0) != nil {
		list = args.Get(0).([]models.Notification)
	}
	return list, args.Get(1).(int64), args.Error(2)
}

func (m *MockNotificationService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, userID, id primitive.ObjectID) (*models.Notification, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

var (
	_ services.IPropertyService     = (*MockPropertyService)(nil)
	_ services.IDistanceService     = (*MockDistanceService)(nil)
	_ services.IStudentService      = (*MockStudentService)(nil)
	_ services.IWishlistService     = (*MockWishlistService)(nil)
	_ services.IVisitRequestService = (*MockVisitRequestService)(nil)
	_ services.IJoinRequestService  = (*MockJoinRequestService)(nil)
	_ services.INotificationService = (*MockNotificationService)(nil)
)

// MockPublicStudentService
type MockPublicStudentService struct {
	mock.Mock
}

func (m *MockPublicStudentService) List(ctx context.Context, q services.PublicStudentQuery) ([]models.PublicStudent, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PublicStudent), args.Error(1)
}

func (m *MockPublicStudentService) Get(ctx context.Context, studentID primitive.ObjectID) (*models.PublicStudentDetail, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PublicStudentDetail), args.Error(1)
}

func (m *MockPublicStudentService) WithCompatibility(ctx context.Context, userID primitive.ObjectID) ([]models.PublicStudent, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PublicStudent), args.Error(1)
}

// MockStudentDashboardService
type MockStudentDashboardService struct {
	mock.Mock
}

func (m *MockStudentDashboardService) Metrics(ctx context.Context, userID primitive.ObjectID) (*models.DashboardMetrics, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardMetrics), args.Error(1)
}
