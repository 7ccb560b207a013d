package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Public reports whether the profile may be listed to other users.
func (s ProfileSteps) Public() bool {
	return s.BasicInfo && s.HousingPreferences
}

// PublicStudent is the listing view of a student visible to other users.
type PublicStudent struct {
	ID                 primitive.ObjectID `json:"id"`
	UserID             primitive.ObjectID `json:"userId"`
	Name               string             `json:"name"`
	Email              string             `json:"email"`
	Photo              string             `json:"photo,omitempty"`
	University         string             `json:"university"`
	Course             string             `json:"course"`
	YearOfStudy        string             `json:"yearOfStudy"`
	Nationality        string             `json:"nationality"`
	Bio                string             `json:"bio"`
	Interests          []string           `json:"interests"`
	ReputationScore    int                `json:"reputationScore"`
	TrustLevel         string             `json:"trustLevel"`
	HousingPreferences HousingPreferences `json:"housingPreferences"`
	CompatibilityScore *int               `json:"compatibilityScore,omitempty"`
}

// DocumentFlags tells which documents are on file without exposing them.
type DocumentFlags struct {
	HasProfileImage      bool `json:"hasProfileImage"`
	HasNationalID        bool `json:"hasNationalId"`
	HasPassport          bool `json:"hasPassport"`
	HasStudentID         bool `json:"hasStudentId"`
	HasProofOfEnrollment bool `json:"hasProofOfEnrollment"`
}

// Flags summarises d.
func (d Documents) Flags() DocumentFlags {
	return DocumentFlags{
		HasProfileImage:      d.ProfileImage != "",
		HasNationalID:        d.NationalID != "",
		HasPassport:          d.Passport != "",
		HasStudentID:         d.StudentID != "",
		HasProofOfEnrollment: d.ProofOfEnrollment != "",
	}
}

// Count is the number of documents on file.
func (d Documents) Count() int {
	n := 0
	for _, t := range DocumentTypes {
		if d.Get(t) != "" {
			n++
		}
	}
	return n
}

// PublicStudentDetail is the single-profile view with contact details.
type PublicStudentDetail struct {
	PublicStudent
	Phone          string        `json:"phone,omitempty"`
	DateOfBirth    *time.Time    `json:"dateOfBirth,omitempty"`
	CompletedTasks int           `json:"completedTasks"`
	DocumentsCount int           `json:"documentsCount"`
	Documents      DocumentFlags `json:"documents"`
	ProfileSteps   ProfileSteps  `json:"profileSteps"`
	WalletLinked   bool          `json:"walletLinked"`
}

// DashboardMetrics are the counters on the student dashboard.
type DashboardMetrics struct {
	WishlistedProperties   int   `json:"wishlistedProperties"`
	VisitRequests          int64 `json:"visitRequests"`
	JoinRequests           int64 `json:"joinRequests"`
	ApprovedRentalRequests int64 `json:"approvedRentalRequests"`
	UnreadNotifications    int64 `json:"unreadNotifications"`
}
