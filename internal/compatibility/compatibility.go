// Package compatibility scores how well two students would share a home.
//
// A score blends a weighted comparison of structured profile attributes
// (budget, university, course, year, nationality, property types) with the
// cosine similarity of the words in their bios and interests.
package compatibility

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"campusnest/market/internal/models"
)

// DefaultAlpha is the share of the structured part in the final score.
const DefaultAlpha = 0.6

// Attribute weights.
const (
	budgetWeight       = 3.0
	universityWeight   = 2.0
	courseWeight       = 1.5
	yearWeight         = 1.0
	nationalityWeight  = 1.0
	propertyTypeWeight = 2.0
)

var (
	nonWord = regexp.MustCompile(`\W+`)
	digits  = regexp.MustCompile(`\d+`)
)

// Score returns the compatibility of a and b in 0..100 using DefaultAlpha.
func Score(a, b *models.StudentProfile) int {
	return ScoreWithAlpha(a, b, DefaultAlpha)
}

// ScoreWithAlpha weighs the structured part by alpha and the text part by 1-alpha.
func ScoreWithAlpha(a, b *models.StudentProfile, alpha float64) int {
	blended := alpha*Structured(a, b) + (1-alpha)*Text(a, b)
	return int(math.Round(blended * 100))
}

// Structured compares the attributes both students filled in. Attributes
// missing on either side are left out of the weighting. Result is in 0..1.
func Structured(a, b *models.StudentProfile) float64 {
	var score, total float64
	ha, hb := a.HousingPreferences, b.HousingPreferences

	if ha.BudgetMin > 0 && hb.BudgetMin > 0 {
		overlap := math.Max(0, math.Min(ha.BudgetMax, hb.BudgetMax)-math.Max(ha.BudgetMin, hb.BudgetMin))
		avgRange := ((ha.BudgetMax - ha.BudgetMin) + (hb.BudgetMax - hb.BudgetMin)) / 2
		if avgRange > 0 {
			score += math.Min(1, overlap/avgRange) * budgetWeight
		}
		total += budgetWeight
	}

	if a.University != "" && b.University != "" {
		if a.University == b.University {
			score += universityWeight
		}
		total += universityWeight
	}

	if a.Course != "" && b.Course != "" {
		ca, cb := strings.ToLower(a.Course), strings.ToLower(b.Course)
		switch {
		case ca == cb:
			score += courseWeight
		case strings.Contains(ca, cb) || strings.Contains(cb, ca):
			score += courseWeight / 2
		}
		total += courseWeight
	}

	if a.YearOfStudy != "" && b.YearOfStudy != "" {
		score += yearScore(leadingNumber(a.YearOfStudy), leadingNumber(b.YearOfStudy)) * yearWeight
		total += yearWeight
	}

	if a.Nationality != "" && b.Nationality != "" {
		if a.Nationality == b.Nationality {
			score += nationalityWeight
		}
		total += nationalityWeight
	}

	if len(ha.PropertyType) > 0 && len(hb.PropertyType) > 0 {
		score += jaccard(ha.PropertyType, hb.PropertyType) * propertyTypeWeight
		total += propertyTypeWeight
	}

	if total == 0 {
		return 0
	}
	return score / total
}

func yearScore(ya, yb int) float64 {
	diff := ya - yb
	if diff < 0 {
		diff = -diff
	}
	switch diff {
	case 0:
		return 1
	case 1:
		return 0.7
	case 2:
		return 0.4
	}
	return 0
}

// leadingNumber is the first run of digits in s, or 0.
func leadingNumber(s string) int {
	n, err := strconv.Atoi(digits.FindString(s))
	if err != nil {
		return 0
	}
	return n
}

func jaccard(a, b []models.PropertyType) float64 {
	union := make(map[models.PropertyType]bool, len(a)+len(b))
	inB := make(map[models.PropertyType]bool, len(b))
	for _, t := range b {
		inB[t] = true
		union[t] = true
	}
	common := 0
	for _, t := range a {
		if inB[t] {
			common++
		}
		union[t] = true
	}
	return float64(common) / float64(len(union))
}

// Text is the cosine similarity of word counts over bio and interests.
// Words shorter than three characters are ignored. Result is in 0..1.
func Text(a, b *models.StudentProfile) float64 {
	wa, wb := words(a), words(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	ca, cb := counts(wa), counts(wb)
	var dot, na, nb float64
	for w, x := range ca {
		dot += float64(x * cb[w])
		na += float64(x * x)
	}
	for _, y := range cb {
		nb += float64(y * y)
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func words(p *models.StudentProfile) []string {
	text := strings.ToLower(strings.Join(append([]string{p.Bio}, p.Interests...), " "))
	var out []string
	for _, w := range nonWord.Split(text, -1) {
		if len(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}

func counts(ws []string) map[string]int {
	m := make(map[string]int, len(ws))
	for _, w := range ws {
		m[w]++
	}
	return m
}

// Match is another student's profile with its score against the viewer.
type Match struct {
	Profile *models.StudentProfile
	Score   int
}

// Rank scores every candidate against current and orders them best first.
// current itself is skipped. Equal scores keep the candidates' order.
func Rank(current *models.StudentProfile, candidates []models.StudentProfile) []Match {
	out := make([]Match, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if c.ID == current.ID {
			continue
		}
		out = append(out, Match{Profile: c, Score: Score(current, c)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
