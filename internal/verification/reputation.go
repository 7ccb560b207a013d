package verification

import (
	"campusnest/market/internal/models"
)

// Step ids and their point values.
const (
	StepEmail    = "email"
	StepProfile  = "profile"
	StepDocument = "document"
	StepWallet   = "wallet"

	EmailPoints    = 25
	ProfilePoints  = 30
	DocumentPoints = 25
	WalletPoints   = 20
)

// Trust levels by reputation score.
const (
	TrustHigh    = "High"
	TrustMedium  = "Medium"
	TrustLow     = "Low"
	TrustVeryLow = "Very Low"
)

// ProfileSteps derives which parts of p are complete.
func ProfileSteps(p *models.StudentProfile) models.ProfileSteps {
	return models.ProfileSteps{
		BasicInfo: p.University != "" && p.Course != "" && p.YearOfStudy != "" &&
			p.Nationality != "" && p.Phone != "" && p.DateOfBirth != nil,
		HousingPreferences: p.HousingPreferences.BudgetMin > 0 &&
			p.HousingPreferences.BudgetMax > 0 && p.HousingPreferences.MoveInDate != nil,
		DocumentsUploaded: p.Documents.HasIdentityDocument(),
		BioCompleted:      p.Bio != "",
	}
}

// ReputationScore is 25 for a verified email, 30 when every profile step is done,
// 25 for an identity document and 20 for a linked wallet.
func ReputationScore(p *models.StudentProfile, emailVerified bool) int {
	score := 0
	if emailVerified {
		score += EmailPoints
	}
	if p.ProfileSteps.AllDone() {
		score += ProfilePoints
	}
	if p.Documents.HasIdentityDocument() {
		score += DocumentPoints
	}
	if p.WalletLinked {
		score += WalletPoints
	}
	return score
}

// TrustLevel maps a score to its qualitative tier.
func TrustLevel(score int) string {
	switch {
	case score >= 80:
		return TrustHigh
	case score >= 60:
		return TrustMedium
	case score >= 40:
		return TrustLow
	default:
		return TrustVeryLow
	}
}

func statusOf(done bool) Status {
	if done {
		return StatusCompleted
	}
	return StatusIncomplete
}

// DefaultSteps builds the four verification steps for a student.
// A step with partial progress is reported as pending.
func DefaultSteps(p *models.StudentProfile, emailVerified bool) []Step {
	profile := statusOf(p.ProfileSteps.AllDone())
	if profile != StatusCompleted && (p.ProfileSteps.BasicInfo || p.ProfileSteps.HousingPreferences || p.ProfileSteps.BioCompleted) {
		profile = StatusPending
	}
	document := statusOf(p.Documents.HasIdentityDocument())
	if document != StatusCompleted && (p.Documents.StudentID != "" || p.Documents.ProofOfEnrollment != "") {
		document = StatusPending
	}
	return []Step{
		{ID: StepEmail, Title: "Email Verification", Points: EmailPoints, Status: statusOf(emailVerified)},
		{ID: StepProfile, Title: "Complete Profile", Points: ProfilePoints, Status: profile},
		{ID: StepDocument, Title: "Identity Document", Points: DocumentPoints, Status: document},
		{ID: StepWallet, Title: "Link Wallet", Points: WalletPoints, Status: statusOf(p.WalletLinked)},
	}
}

// Report is the verification view returned to the student.
type Report struct {
	Steps           []Step  `json:"steps"`
	Progress        Summary `json:"progress"`
	ReputationScore int     `json:"reputationScore"`
	TrustLevel      string  `json:"trustLevel"`
}

// BuildReport assembles steps, progress and reputation for p.
func BuildReport(p *models.StudentProfile, emailVerified bool) Report {
	steps := DefaultSteps(p, emailVerified)
	score := ReputationScore(p, emailVerified)
	return Report{
		Steps:           steps,
		Progress:        Progress(steps),
		ReputationScore: score,
		TrustLevel:      TrustLevel(score),
	}
}
