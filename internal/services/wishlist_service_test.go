package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusnest/market/internal/models"
	"campusnest/market/internal/realtime"
)

func TestWishlistService_AddListRemove(t *testing.T) {
	database := setupServiceDB(t, "wishlist_service")
	ctx := context.Background()
	rec := &recordingEmitter{}
	users := NewUserService(database)
	props := NewPropertyService(database, nil, testConfig())
	students := NewStudentService(database, testConfig(), users, nil, nil, rec)
	svc := NewWishlistService(database, students, props, rec)

	student := seedUser(t, database, "Ada Lovelace", models.RoleStudent, true)
	landlord := seedUser(t, database, "Lara Landlord", models.RoleLandlord, true)
	first := seedProperty(t, database, landlord.ID, "Camden Flat", 800)
	second := seedProperty(t, database, landlord.ID, "Hackney Studio", 650)

	require.NoError(t, svc.Add(ctx, student.ID, second.ID))
	require.NoError(t, svc.Add(ctx, student.ID, first.ID))

	err := svc.Add(ctx, student.ID, first.ID)
	assert.ErrorIs(t, err, ErrAlreadyInWishlist)

	list, err := svc.List(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	stored, err := props.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.WishlistCount)

	require.NoError(t, svc.Remove(ctx, student.ID, first.ID))
	// Removing twice is a no-op and must not drive the count below zero.
	require.NoError(t, svc.Remove(ctx, student.ID, first.ID))

	stored, err = props.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.WishlistCount)

	list, err = svc.List(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	metrics := rec.byEvent(realtime.EventMetricsUpdated)
	assert.Len(t, metrics, 3)
	for _, m := range metrics {
		assert.Equal(t, models.RoleStudent.Room(student.ID.Hex()), m.Room)
	}
}

func TestWishlistService_UnknownProperty(t *testing.T) {
	database := setupServiceDB(t, "wishlist_service")
	users := NewUserService(database)
	props := NewPropertyService(database, nil, testConfig())
	students := NewStudentService(database, testConfig(), users, nil, nil, nil)
	svc := NewWishlistService(database, students, props, nil)

	student := seedUser(t, database, "Ada Lovelace", models.RoleStudent, true)
	err := svc.Add(context.Background(), student.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrPropertyNotFound)
}

// staleProfiles returns the profile as it was before a concurrent add.
type staleProfiles struct {
	IStudentService
	snapshot *models.StudentProfile
}

func (s staleProfiles) EnsureProfile(context.Context, primitive.ObjectID) (*models.StudentProfile, *models.User, error) {
	return s.snapshot, nil, nil
}

func TestWishlistService_RemoveAfterConcurrentAdd(t *testing.T) {
	database := setupServiceDB(t, "wishlist_service")
	ctx := context.Background()
	users := NewUserService(database)
	props := NewPropertyService(database, nil, testConfig())
	students := NewStudentService(database, testConfig(), users, nil, nil, nil)
	svc := NewWishlistService(database, students, props, nil)

	student := seedUser(t, database, "Ada Lovelace", models.RoleStudent, true)
	landlord := seedUser(t, database, "Lara Landlord", models.RoleLandlord, true)
	flat := seedProperty(t, database, landlord.ID, "Camden Flat", 800)

	before, _, err := students.EnsureProfile(ctx, student.ID)
	require.NoError(t, err)
	snapshot := *before
	require.NoError(t, svc.Add(ctx, student.ID, flat.ID))

	stale := NewWishlistService(database, staleProfiles{IStudentService: students, snapshot: &snapshot}, props, nil)
	require.NoError(t, stale.Remove(ctx, student.ID, flat.ID))

	stored, err := props.FindByID(ctx, flat.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.WishlistCount)

	list, err := svc.List(ctx, student.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
