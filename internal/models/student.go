package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DocumentType names an uploadable student document.
type DocumentType string

const (
	DocumentProfileImage      DocumentType = "profileImage"
	DocumentNationalID        DocumentType = "nationalId"
	DocumentPassport          DocumentType = "passport"
	DocumentStudentID         DocumentType = "studentId"
	DocumentProofOfEnrollment DocumentType = "proofOfEnrollment"
)

// DocumentTypes lists every accepted document type.
var DocumentTypes = []DocumentType{
	DocumentProfileImage,
	DocumentNationalID,
	DocumentPassport,
	DocumentStudentID,
	DocumentProofOfEnrollment,
}

// Valid reports whether d is an accepted document type.
func (d DocumentType) Valid() bool {
	for _, t := range DocumentTypes {
		if t == d {
			return true
		}
	}
	return false
}

// BSONField is the field name inside the documents sub-document.
func (d DocumentType) BSONField() string {
	switch d {
	case DocumentProfileImage:
		return "profile_image"
	case DocumentNationalID:
		return "national_id"
	case DocumentPassport:
		return "passport"
	case DocumentStudentID:
		return "student_id"
	case DocumentProofOfEnrollment:
		return "proof_of_enrollment"
	}
	return ""
}

// Documents holds public URLs of uploaded documents.
type Documents struct {
	ProfileImage      string `bson:"profile_image,omitempty" json:"profileImage,omitempty"`
	NationalID        string `bson:"national_id,omitempty" json:"nationalId,omitempty"`
	Passport          string `bson:"passport,omitempty" json:"passport,omitempty"`
	StudentID         string `bson:"student_id,omitempty" json:"studentId,omitempty"`
	ProofOfEnrollment string `bson:"proof_of_enrollment,omitempty" json:"proofOfEnrollment,omitempty"`
}

// Get returns the URL stored for d.
func (d Documents) Get(t DocumentType) string {
	switch t {
	case DocumentProfileImage:
		return d.ProfileImage
	case DocumentNationalID:
		return d.NationalID
	case DocumentPassport:
		return d.Passport
	case DocumentStudentID:
		return d.StudentID
	case DocumentProofOfEnrollment:
		return d.ProofOfEnrollment
	}
	return ""
}

// HasIdentityDocument reports whether a national ID or passport is on file.
func (d Documents) HasIdentityDocument() bool {
	return d.NationalID != "" || d.Passport != ""
}

// HousingPreferences describes what the student is looking for.
type HousingPreferences struct {
	PropertyType     []PropertyType `bson:"property_type" json:"propertyType"`
	BudgetMin        float64        `bson:"budget_min" json:"budgetMin"`
	BudgetMax        float64        `bson:"budget_max" json:"budgetMax"`
	MoveInDate       *time.Time     `bson:"move_in_date,omitempty" json:"moveInDate,omitempty"`
	StayDuration     string         `bson:"stay_duration,omitempty" json:"stayDuration,omitempty"`
	PreferredAreas   []string       `bson:"preferred_areas" json:"preferredAreas"`
	RequireFurnished bool           `bson:"require_furnished" json:"requireFurnished"`
	PetsRequired     bool           `bson:"pets_required" json:"petsRequired"`
}

// ProfileSteps tracks which parts of the profile are complete.
type ProfileSteps struct {
	BasicInfo          bool `bson:"basic_info" json:"basicInfo"`
	HousingPreferences bool `bson:"housing_preferences" json:"housingPreferences"`
	DocumentsUploaded  bool `bson:"documents_uploaded" json:"documentsUploaded"`
	BioCompleted       bool `bson:"bio_completed" json:"bioCompleted"`
}

// AllDone reports whether every profile step is complete.
func (s ProfileSteps) AllDone() bool {
	return s.BasicInfo && s.HousingPreferences && s.DocumentsUploaded && s.BioCompleted
}

// StudentProfile is the student-specific part of an account.
type StudentProfile struct {
	ID                 primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	User               primitive.ObjectID   `bson:"user" json:"user"`
	University         string               `bson:"university" json:"university"`
	Course             string               `bson:"course" json:"course"`
	YearOfStudy        string               `bson:"year_of_study" json:"yearOfStudy"`
	Nationality        string               `bson:"nationality" json:"nationality"`
	DateOfBirth        *time.Time           `bson:"date_of_birth,omitempty" json:"dateOfBirth,omitempty"`
	Phone              string               `bson:"phone" json:"phone"`
	GovernmentID       string               `bson:"government_id" json:"governmentId"`
	Bio                string               `bson:"bio" json:"bio"`
	Interests          []string             `bson:"interests" json:"interests"`
	HousingPreferences HousingPreferences   `bson:"housing_preferences" json:"housingPreferences"`
	Documents          Documents            `bson:"documents" json:"documents"`
	ImageProcessed     bool                 `bson:"image_processed" json:"imageProcessed"`
	ProfileSteps       ProfileSteps         `bson:"profile_steps" json:"profileSteps"`
	WalletLinked       bool                 `bson:"wallet_linked" json:"walletLinked"`
	ReputationScore    int                  `bson:"reputation_score" json:"reputationScore"`
	Wishlist           []primitive.ObjectID `bson:"wishlist" json:"wishlist"`
	Timestamps         `bson:",inline"`
}

// StudentProfileView joins a profile with the owning user's identity fields.
type StudentProfileView struct {
	*StudentProfile
	Name       string `json:"name"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isEmailVerified"`
	TrustLevel string `json:"trustLevel"`
}
