package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"campusnest/market/internal/config"
	"campusnest/market/internal/db"
	"campusnest/market/internal/models"
	"campusnest/market/internal/realtime"
	"campusnest/market/internal/storage"
	"campusnest/market/internal/verification"
)

// ErrStorageUnavailable is returned by document operations when no object store is configured.
var ErrStorageUnavailable = errors.New("document storage is not configured")

// sniffLen is how much of an upload is read to detect its content type.
const sniffLen = 3072

// HousingPreferencesUpdate holds the preference fields to change. Nil fields are kept.
type HousingPreferencesUpdate struct {
	PropertyType     *[]models.PropertyType `json:"propertyType"`
	BudgetMin        *float64               `json:"budgetMin"`
	BudgetMax        *float64               `json:"budgetMax"`
	MoveInDate       *time.Time             `json:"moveInDate"`
	StayDuration     *string                `json:"stayDuration"`
	PreferredAreas   *[]string              `json:"preferredAreas"`
	RequireFurnished *bool                  `json:"requireFurnished"`
	PetsRequired     *bool                  `json:"petsRequired"`
}

// ProfileUpdate is a partial student profile update. Nil fields are kept.
type ProfileUpdate struct {
	Name               *string                   `json:"name"`
	University         *string                   `json:"university"`
	Course             *string                   `json:"course"`
	YearOfStudy        *string                   `json:"yearOfStudy"`
	Nationality        *string                   `json:"nationality"`
	DateOfBirth        *time.Time                `json:"dateOfBirth"`
	Phone              *string                   `json:"phone"`
	GovernmentID       *string                   `json:"governmentId"`
	Bio                *string                   `json:"bio"`
	Interests          *[]string                 `json:"interests"`
	HousingPreferences *HousingPreferencesUpdate `json:"housingPreferences"`
}

// DocumentUpload describes one uploaded file.
type DocumentUpload struct {
	Type     models.DocumentType
	Filename string
	Size     int64
	Body     io.Reader
}

// IStudentService defines student profile, document and verification operations.
type IStudentService interface {
	EnsureProfile(ctx context.Context, userID primitive.ObjectID) (*models.StudentProfile, *models.User, error)
	GetProfile(ctx context.Context, userID primitive.ObjectID) (*models.StudentProfileView, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, update ProfileUpdate) (*models.StudentProfileView, error)
	UploadDocument(ctx context.Context, userID primitive.ObjectID, upload DocumentUpload) (string, *models.StudentProfileView, error)
	DeleteDocument(ctx context.Context, userID primitive.ObjectID, docType models.DocumentType) (*models.StudentProfileView, error)
	DocumentLink(ctx context.Context, userID primitive.ObjectID, docType models.DocumentType) (string, error)
	CheckProfileCompleteness(ctx context.Context, userID primitive.ObjectID) (models.ProfileCompletion, error)
	Verification(ctx context.Context, userID primitive.ObjectID) (*verification.Report, error)
	MarkImageProcessed(ctx context.Context, userID primitive.ObjectID) error
}

type studentService struct {
	db      *mongo.Database
	cfg     *config.Config
	users   IUserService
	store   storage.IObjectStorage
	jobs    JobQueue
	emitter realtime.Emitter
}

// NewStudentService creates a new StudentService. store may be nil, in which
// case document uploads fail with ErrStorageUnavailable.
func NewStudentService(db *mongo.Database, cfg *config.Config, users IUserService, store storage.IObjectStorage, jobs JobQueue, emitter realtime.Emitter) IStudentService {
	if jobs == nil {
		jobs = NoopQueue{}
	}
	if emitter == nil {
		emitter = realtime.Discard
	}
	return &studentService{db: db, cfg: cfg, users: users, store: store, jobs: jobs, emitter: emitter}
}

func (s *studentService) findProfile(ctx context.Context, userID primitive.ObjectID) (*models.StudentProfile, error) {
	var p models.StudentProfile
	err := s.db.Collection(db.StudentsCollection).FindOne(ctx, bson.M{"user": userID}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("error finding student profile for %s: %w", userID.Hex(), err)
	}
	return &p, nil
}

// EnsureProfile loads the student's profile, creating an empty one on first use.
func (s *studentService) EnsureProfile(ctx context.Context, userID primitive.ObjectID) (*models.StudentProfile, *models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user.Role != models.RoleStudent {
		return nil, nil, ErrForbidden
	}

	p, err := s.findProfile(ctx, userID)
	if err == nil {
		return p, user, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, nil, err
	}

	p = &models.StudentProfile{
		ID:        primitive.NewObjectID(),
		User:      userID,
		Interests: []string{},
		Wishlist:  []primitive.ObjectID{},
		HousingPreferences: models.HousingPreferences{
			PropertyType:   []models.PropertyType{},
			PreferredAreas: []string{},
		},
	}
	recompute(p, user.IsVerified)
	p.Touch(time.Now().UTC())

	err = db.Try(func() error {
		_, insertErr := s.db.Collection(db.StudentsCollection).InsertOne(ctx, p)
		return insertErr
	})
	if err != nil {
		// A concurrent request created it first.
		if db.IsMongoDuplicateKeyError(err) {
			p, err = s.findProfile(ctx, userID)
			if err != nil {
				return nil, nil, err
			}
			return p, user, nil
		}
		return nil, nil, fmt.Errorf("failed to create student profile for %s: %w", userID.Hex(), err)
	}
	slog.Info("Created student profile", "user", userID.Hex())
	return p, user, nil
}

func (s *studentService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*models.StudentProfileView, error) {
	p, user, err := s.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return profileView(p, user), nil
}

// UpdateProfile applies update, recomputes profile steps and reputation, and
// saves the result. Housing preferences are merged field by field.
func (s *studentService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, update ProfileUpdate) (*models.StudentProfileView, error) {
	p, user, err := s.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	applyProfileUpdate(p, update)
	if hp := p.HousingPreferences; hp.BudgetMin > 0 && hp.BudgetMax > 0 && hp.BudgetMin > hp.BudgetMax {
		return nil, fmt.Errorf("%w: budgetMin exceeds budgetMax", ErrInvalidInput)
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		if name != user.Name {
			_, err := s.db.Collection(db.UsersCollection).UpdateByID(ctx, userID,
				bson.M{"$set": bson.M{"name": name, "updated_at": time.Now().UTC()}})
			if err != nil {
				return nil, fmt.Errorf("failed to update name for %s: %w", userID.Hex(), err)
			}
			user.Name = name
		}
	}

	if err := s.save(ctx, p, user); err != nil {
		return nil, err
	}
	return profileView(p, user), nil
}

func applyProfileUpdate(p *models.StudentProfile, u ProfileUpdate) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setString(&p.University, u.University)
	setString(&p.Course, u.Course)
	setString(&p.YearOfStudy, u.YearOfStudy)
	setString(&p.Nationality, u.Nationality)
	setString(&p.Phone, u.Phone)
	setString(&p.GovernmentID, u.GovernmentID)
	setString(&p.Bio, u.Bio)
	if u.DateOfBirth != nil {
		p.DateOfBirth = u.DateOfBirth
	}
	if u.Interests != nil {
		p.Interests = *u.Interests
	}

	hp := u.HousingPreferences
	if hp == nil {
		return
	}
	dst := &p.HousingPreferences
	if hp.PropertyType != nil {
		dst.PropertyType = *hp.PropertyType
	}
	if hp.BudgetMin != nil {
		dst.BudgetMin = *hp.BudgetMin
	}
	if hp.BudgetMax != nil {
		dst.BudgetMax = *hp.BudgetMax
	}
	if hp.MoveInDate != nil {
		dst.MoveInDate = hp.MoveInDate
	}
	if hp.StayDuration != nil {
		dst.StayDuration = *hp.StayDuration
	}
	if hp.PreferredAreas != nil {
		dst.PreferredAreas = *hp.PreferredAreas
	}
	if hp.RequireFurnished != nil {
		dst.RequireFurnished = *hp.RequireFurnished
	}
	if hp.PetsRequired != nil {
		dst.PetsRequired = *hp.PetsRequired
	}
}

// recompute refreshes the derived profile fields.
func recompute(p *models.StudentProfile, emailVerified bool) {
	p.ProfileSteps = verification.ProfileSteps(p)
	p.ReputationScore = verification.ReputationScore(p, emailVerified)
}

// save recomputes derived fields, writes the profile and pushes
// reputation_updated when the score moved.
func (s *studentService) save(ctx context.Context, p *models.StudentProfile, user *models.User) error {
	before := p.ReputationScore
	recompute(p, user.IsVerified)
	p.Touch(time.Now().UTC())

	// The wishlist is changed only through $addToSet and $pull, so it is left out here.
	set := bson.M{
		"university":          p.University,
		"course":              p.Course,
		"year_of_study":       p.YearOfStudy,
		"nationality":         p.Nationality,
		"date_of_birth":       p.DateOfBirth,
		"phone":               p.Phone,
		"government_id":       p.GovernmentID,
		"bio":                 p.Bio,
		"interests":           p.Interests,
		"housing_preferences": p.HousingPreferences,
		"documents":           p.Documents,
		"image_processed":     p.ImageProcessed,
		"profile_steps":       p.ProfileSteps,
		"reputation_score":    p.ReputationScore,
		"updated_at":          p.UpdatedAt,
	}
	_, err := s.db.Collection(db.StudentsCollection).UpdateByID(ctx, p.ID, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to save student profile %s: %w", p.ID.Hex(), err)
	}

	if p.ReputationScore != before {
		room := models.RoleStudent.Room(user.ID.Hex())
		payload := map[string]any{
			"reputationScore": p.ReputationScore,
			"trustLevel":      verification.TrustLevel(p.ReputationScore),
		}
		if err := s.emitter.Emit(ctx, room, realtime.EventReputationUpdated, payload); err != nil {
			slog.Warn("Failed to emit reputation update", "room", room, "error", err)
		}
	}
	return nil
}

// UploadDocument stores the file in object storage and records its URL on the
// profile, replacing any previous file of the same type. Profile images are
// queued for normalisation.
func (s *studentService) UploadDocument(ctx context.Context, userID primitive.ObjectID, upload DocumentUpload) (string, *models.StudentProfileView, error) {
	if !upload.Type.Valid() {
		return "", nil, fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, upload.Type)
	}
	if upload.Body == nil {
		return "", nil, fmt.Errorf("%w: no file uploaded", ErrInvalidInput)
	}
	if limit := int64(s.cfg.DocumentMaxSizeMB) << 20; limit > 0 && upload.Size > limit {
		return "", nil, ErrDocumentTooLarge
	}
	if s.store == nil {
		return "", nil, ErrStorageUnavailable
	}

	p, user, err := s.EnsureProfile(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(upload.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	contentType, err := storage.DetectDocumentType(head)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if upload.Type == models.DocumentProfileImage && !storage.IsImage(contentType) {
		return "", nil, fmt.Errorf("%w: profile image must be an image", ErrInvalidInput)
	}

	key := storage.DocumentKey(userID.Hex(), upload.Type, upload.Filename)
	if err := s.store.PutObject(ctx, key, contentType, io.MultiReader(bytes.NewReader(head), upload.Body)); err != nil {
		return "", nil, fmt.Errorf("failed to store document: %w", err)
	}
	url := s.store.PublicURL(key)

	previous := p.Documents.Get(upload.Type)
	setDocument(&p.Documents, upload.Type, url)
	if upload.Type == models.DocumentProfileImage {
		p.ImageProcessed = false
	}
	if err := s.save(ctx, p, user); err != nil {
		return "", nil, err
	}
	s.removeObject(ctx, previous)

	if upload.Type == models.DocumentProfileImage {
		if err := s.jobs.EnqueueProfileImage(ctx, userID.Hex(), key); err != nil {
			slog.Error("Failed to enqueue profile image job", "user", userID.Hex(), "key", key, "error", err)
		}
	}
	return url, profileView(p, user), nil
}

// DeleteDocument clears the document of the given type and removes its object.
func (s *studentService) DeleteDocument(ctx context.Context, userID primitive.ObjectID, docType models.DocumentType) (*models.StudentProfileView, error) {
	if !docType.Valid() {
		return nil, fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, docType)
	}
	p, user, err := s.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	previous := p.Documents.Get(docType)
	if previous == "" {
		return profileView(p, user), nil
	}
	setDocument(&p.Documents, docType, "")
	if err := s.save(ctx, p, user); err != nil {
		return nil, err
	}
	s.removeObject(ctx, previous)
	return profileView(p, user), nil
}

// DocumentLinkTTL is how long a presigned document link stays valid.
const DocumentLinkTTL = 15 * time.Minute

// DocumentLink returns a short-lived download link for one of the student's own documents.
func (s *studentService) DocumentLink(ctx context.Context, userID primitive.ObjectID, docType models.DocumentType) (string, error) {
	if !docType.Valid() {
		return "", fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, docType)
	}
	if s.store == nil {
		return "", ErrStorageUnavailable
	}
	p, _, err := s.EnsureProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	url := p.Documents.Get(docType)
	if url == "" {
		return "", ErrDocumentNotFound
	}
	key, ok := s.store.KeyFromURL(url)
	if !ok {
		// stored before the current bucket was configured
		return url, nil
	}
	link, err := s.store.PresignGetURL(ctx, key, DocumentLinkTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign document link: %w", err)
	}
	return link, nil
}

func (s *studentService) removeObject(ctx context.Context, url string) {
	if url == "" || s.store == nil {
		return
	}
	key, ok := s.store.KeyFromURL(url)
	if !ok {
		return
	}
	if err := s.store.DeleteObject(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		slog.Warn("Failed to delete replaced document", "key", key, "error", err)
	}
}

func setDocument(d *models.Documents, t models.DocumentType, url string) {
	switch t {
	case models.DocumentProfileImage:
		d.ProfileImage = url
	case models.DocumentNationalID:
		d.NationalID = url
	case models.DocumentPassport:
		d.Passport = url
	case models.DocumentStudentID:
		d.StudentID = url
	case models.DocumentProofOfEnrollment:
		d.ProofOfEnrollment = url
	}
}

// CheckProfileCompleteness is the gate for join requests: a name, a
// government id and a national id or passport document are required.
func (s *studentService) CheckProfileCompleteness(ctx context.Context, userID primitive.ObjectID) (models.ProfileCompletion, error) {
	p, user, err := s.EnsureProfile(ctx, userID)
	if err != nil {
		return models.ProfileCompletion{}, err
	}
	missing := models.MissingFields{
		Name:         strings.TrimSpace(user.Name) == "",
		GovernmentID: strings.TrimSpace(p.GovernmentID) == "",
		IDDocument:   !p.Documents.HasIdentityDocument(),
	}
	return models.ProfileCompletion{IsComplete: !missing.Any(), MissingFields: missing}, nil
}

func (s *studentService) Verification(ctx context.Context, userID primitive.ObjectID) (*verification.Report, error) {
	p, user, err := s.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	report := verification.BuildReport(p, user.IsVerified)
	return &report, nil
}

// MarkImageProcessed records that the profile image has been normalised.
func (s *studentService) MarkImageProcessed(ctx context.Context, userID primitive.ObjectID) error {
	res, err := s.db.Collection(db.StudentsCollection).UpdateOne(ctx,
		bson.M{"user": userID},
		bson.M{"$set": bson.M{"image_processed": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark image processed for %s: %w", userID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func profileView(p *models.StudentProfile, user *models.User) *models.StudentProfileView {
	return &models.StudentProfileView{
		StudentProfile: p,
		Name:           user.Name,
		Email:          user.Email,
		IsVerified:     user.IsVerified,
		TrustLevel:     verification.TrustLevel(p.ReputationScore),
	}
}
