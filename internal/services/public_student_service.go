package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"campusnest/market/internal/compatibility"
	"campusnest/market/internal/db"
	"campusnest/market/internal/models"
	"campusnest/market/internal/verification"
)

// ErrProfileNotPublic is returned for a student whose basic info or housing
// preferences are not complete yet.
var ErrProfileNotPublic = errors.New("this profile is not publicly available yet")

// PublicStudentQuery narrows the public student list. Empty fields and "all"
// match everything.
type PublicStudentQuery struct {
	Search      string
	University  string
	Nationality string
}

// IPublicStudentService lists students to other users and ranks them as flatmates.
type IPublicStudentService interface {
	List(ctx context.Context, q PublicStudentQuery) ([]models.PublicStudent, error)
	Get(ctx context.Context, studentID primitive.ObjectID) (*models.PublicStudentDetail, error)
	WithCompatibility(ctx context.Context, userID primitive.ObjectID) ([]models.PublicStudent, error)
}

type publicStudentService struct {
	db       *mongo.Database
	users    IUserService
	students IStudentService
}

// NewPublicStudentService creates a new PublicStudentService.
func NewPublicStudentService(db *mongo.Database, users IUserService, students IStudentService) IPublicStudentService {
	return &publicStudentService{db: db, users: users, students: students}
}

// publicProfiles loads every public profile with its owner. Profiles whose
// account no longer exists are skipped.
func (s *publicStudentService) publicProfiles(ctx context.Context) ([]models.StudentProfile, map[primitive.ObjectID]*models.User, error) {
	filter := bson.M{"profile_steps.basic_info": true, "profile_steps.housing_preferences": true}
	cursor, err := s.db.Collection(db.StudentsCollection).Find(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list public students: %w", err)
	}
	var profiles []models.StudentProfile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, nil, fmt.Errorf("failed to decode public students: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.User)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	kept := profiles[:0]
	for _, p := range profiles {
		if _, ok := users[p.User]; ok {
			kept = append(kept, p)
		}
	}
	return kept, users, nil
}

// List returns public students matching q in storage order.
func (s *publicStudentService) List(ctx context.Context, q PublicStudentQuery) ([]models.PublicStudent, error) {
	profiles, users, err := s.publicProfiles(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.PublicStudent{}
	for i := range profiles {
		ps := publicStudent(&profiles[i], users[profiles[i].User])
		if q.matches(&ps) {
			out = append(out, ps)
		}
	}
	return out, nil
}

func (q PublicStudentQuery) matches(ps *models.PublicStudent) bool {
	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		found := false
		for _, field := range []string{ps.Name, ps.Course, ps.University, ps.Bio} {
			if strings.Contains(strings.ToLower(field), term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.University != "" && q.University != "all" && ps.University != q.University {
		return false
	}
	if q.Nationality != "" && q.Nationality != "all" && ps.Nationality != q.Nationality {
		return false
	}
	return true
}

// Get returns one student's public profile by profile id.
func (s *publicStudentService) Get(ctx context.Context, studentID primitive.ObjectID) (*models.PublicStudentDetail, error) {
	var p models.StudentProfile
	err := s.db.Collection(db.StudentsCollection).FindOne(ctx, bson.M{"_id": studentID}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("error finding student %s: %w", studentID.Hex(), err)
	}
	if !p.ProfileSteps.Public() {
		return nil, ErrProfileNotPublic
	}
	user, err := s.users.FindByID(ctx, p.User)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	return &models.PublicStudentDetail{
		PublicStudent:  publicStudent(&p, user),
		Phone:          p.Phone,
		DateOfBirth:    p.DateOfBirth,
		CompletedTasks: completedTasks(&p, user.IsVerified),
		DocumentsCount: p.Documents.Count(),
		Documents:      p.Documents.Flags(),
		ProfileSteps:   p.ProfileSteps,
		WalletLinked:   p.WalletLinked,
	}, nil
}

// WithCompatibility ranks every other public student against the caller, best match first.
func (s *publicStudentService) WithCompatibility(ctx context.Context, userID primitive.ObjectID) ([]models.PublicStudent, error) {
	me, _, err := s.students.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	profiles, users, err := s.publicProfiles(ctx)
	if err != nil {
		return nil, err
	}

	ranked := compatibility.Rank(me, profiles)
	out := make([]models.PublicStudent, 0, len(ranked))
	for _, m := range ranked {
		ps := publicStudent(m.Profile, users[m.Profile.User])
		score := m.Score
		ps.CompatibilityScore = &score
		out = append(out, ps)
	}
	return out, nil
}

func publicStudent(p *models.StudentProfile, user *models.User) models.PublicStudent {
	interests := p.Interests
	if interests == nil {
		interests = []string{}
	}
	return models.PublicStudent{
		ID:                 p.ID,
		UserID:             p.User,
		Name:               user.Name,
		Email:              user.Email,
		Photo:              p.Documents.ProfileImage,
		University:         p.University,
		Course:             p.Course,
		YearOfStudy:        p.YearOfStudy,
		Nationality:        p.Nationality,
		Bio:                p.Bio,
		Interests:          interests,
		ReputationScore:    p.ReputationScore,
		TrustLevel:         verification.TrustLevel(p.ReputationScore),
		HousingPreferences: p.HousingPreferences,
	}
}

// completedTasks counts the verified email, each profile step and a linked wallet.
func completedTasks(p *models.StudentProfile, emailVerified bool) int {
	n := 0
	for _, done := range []bool{
		emailVerified,
		p.ProfileSteps.BasicInfo,
		p.ProfileSteps.HousingPreferences,
		p.ProfileSteps.DocumentsUploaded,
		p.ProfileSteps.BioCompleted,
		p.WalletLinked,
	} {
		if done {
			n++
		}
	}
	return n
}
