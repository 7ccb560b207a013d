package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusnest/market/internal/models"
	"campusnest/market/internal/realtime"
)

type visitFixture struct {
	svc           *visitRequestService
	notifications INotificationService
	jobs          *MockJobQueue
	rec           *recordingEmitter
	student       *models.User
	landlord      *models.User
	property      *models.Property
}

var visitToday = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)

func setupVisitService(t *testing.T) *visitFixture {
	database := setupServiceDB(t, "visit_service")
	rec := &recordingEmitter{}
	jobs := new(MockJobQueue)
	jobs.On("EnqueueEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	users := NewUserService(database)
	props := NewPropertyService(database, nil, testConfig())
	notifications := NewNotificationService(database, testConfig(), rec)
	svc := NewVisitRequestService(database, users, props, notifications, jobs, rec).(*visitRequestService)
	svc.now = func() time.Time { return visitToday }

	f := &visitFixture{
		svc:           svc,
		notifications: notifications,
		jobs:          jobs,
		rec:           rec,
		student:       seedUser(t, database, "Ada Lovelace", models.RoleStudent, true),
		landlord:      seedUser(t, database, "Lara Landlord", models.RoleLandlord, true),
	}
	f.property = seedProperty(t, database, f.landlord.ID, "Camden Flat", 800)
	return f
}

func (f *visitFixture) create(t *testing.T, visitType models.VisitType) *models.VisitRequest {
	t.Helper()
	vr, err := f.svc.Create(context.Background(), f.student.ID, VisitRequestInput{
		PropertyID: f.property.ID,
		VisitType:  visitType,
		VisitDate:  visitToday.AddDate(0, 0, 3),
		VisitTime:  "14:00",
	})
	require.NoError(t, err)
	return vr
}

func TestVisitRequestService_CreateNotifiesLandlord(t *testing.T) {
	f := setupVisitService(t)
	ctx := context.Background()

	vr := f.create(t, models.VisitTypeInPerson)
	assert.Equal(t, models.VisitStatusPending, vr.Status)
	assert.Equal(t, f.landlord.ID, vr.Landlord)
	assert.Equal(t, time.Date(2025, time.June, 4, 0, 0, 0, 0, time.UTC), vr.VisitDate)

	list, unread, err := f.notifications.List(ctx, f.landlord.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), unread)
	assert.Equal(t, models.NotificationVisitRequest, list[0].Type)
	assert.Equal(t, "Ada Lovelace has requested to visit Camden Flat", list[0].Message)
	assert.Equal(t, vr.ID, list[0].RelatedID)

	landlordRoom := models.RoleLandlord.Room(f.landlord.ID.Hex())
	events := f.rec.byEvent(realtime.EventNewVisitRequest)
	require.Len(t, events, 1)
	assert.Equal(t, landlordRoom, events[0].Room)
	require.Len(t, f.rec.byEvent(realtime.EventNewNotification), 1)

	f.jobs.AssertCalled(t, "EnqueueEmail", mock.Anything, f.landlord.Email, "visit_request_new", mock.Anything)
}

func TestVisitRequestService_CreateValidation(t *testing.T) {
	f := setupVisitService(t)
	ctx := context.Background()
	base := VisitRequestInput{
		PropertyID: f.property.ID,
		VisitType:  models.VisitTypeVirtual,
		VisitDate:  visitToday.AddDate(0, 0, 1),
		VisitTime:  "10:00",
	}

	cases := map[string]func(in *VisitRequestInput){
		"missing property": func(in *VisitRequestInput) { in.PropertyID = primitive.NilObjectID },
		"bad type":         func(in *VisitRequestInput) { in.VisitType = "drive-by" },
		"bad slot":         func(in *VisitRequestInput) { in.VisitTime = "23:30" },
		"past date":        func(in *VisitRequestInput) { in.VisitDate = visitToday.AddDate(0, 0, -1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := base
			mutate(&in)
			_, err := f.svc.Create(ctx, f.student.ID, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	in := base
	in.PropertyID = primitive.NewObjectID()
	_, err := f.svc.Create(ctx, f.student.ID, in)
	assert.ErrorIs(t, err, ErrPropertyNotFound)
}

func TestVisitRequestService_ConfirmKeepsMeetLinkForVirtual(t *testing.T) {
	f := setupVisitService(t)
	ctx := context.Background()

	virtual := f.create(t, models.VisitTypeVirtual)
	inPerson := f.create(t, models.VisitTypeInPerson)

	got, err := f.svc.Confirm(ctx, f.landlord.ID, virtual.ID, "https://meet.example.com/abc")
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusConfirmed, got.Status)
	assert.Equal(t, "https://meet.example.com/abc", got.MeetLink)

	got, err = f.svc.Confirm(ctx, f.landlord.ID, inPerson.ID, "https://meet.example.com/abc")
	require.NoError(t, err)
	assert.Empty(t, got.MeetLink)

	studentRoom := models.RoleStudent.Room(f.student.ID.Hex())
	confirmed := f.rec.byEvent(realtime.EventVisitConfirmed)
	require.Len(t, confirmed, 2)
	assert.Equal(t, studentRoom, confirmed[0].Room)

	visited, err := f.svc.HasRecordedVisit(ctx, f.student.ID, f.property.ID)
	require.NoError(t, err)
	assert.True(t, visited)
}

func TestVisitRequestService_OtherLandlordCannotAct(t *testing.T) {
	f := setupVisitService(t)
	vr := f.create(t, models.VisitTypeInPerson)

	_, err := f.svc.Confirm(context.Background(), primitive.NewObjectID(), vr.ID, "")
	assert.ErrorIs(t, err, ErrVisitRequestNotFound)
}

func TestVisitRequestService_RescheduleAndReject(t *testing.T) {
	f := setupVisitService(t)
	ctx := context.Background()
	vr := f.create(t, models.VisitTypeInPerson)

	_, err := f.svc.Reschedule(ctx, f.landlord.ID, vr.ID, visitToday.AddDate(0, 0, -2), "11:00", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := f.svc.Reschedule(ctx, f.landlord.ID, vr.ID, visitToday.AddDate(0, 0, 5), "11:00", "Builders in on the 4th")
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusRescheduled, got.Status)
	require.NotNil(t, got.RescheduledDate)
	assert.Equal(t, "11:00", got.RescheduledTime)
	assert.Equal(t, "Builders in on the 4th", got.LandlordNotes)

	got, err = f.svc.Reject(ctx, f.landlord.ID, vr.ID, "Let")
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusRejected, got.Status)
	assert.Equal(t, "Let", got.RejectionReason)

	visited, err := f.svc.HasRecordedVisit(ctx, f.student.ID, f.property.ID)
	require.NoError(t, err)
	assert.False(t, visited)

	list, err := f.svc.ListForStudent(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = f.svc.ListForLandlord(ctx, f.landlord.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	studentNotes, _, err := f.notifications.List(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Len(t, studentNotes, 2)
}
