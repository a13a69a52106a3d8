package domain

import "time"

// SubjectKind distinguishes the two ratable entity families.
type SubjectKind string

const (
	SubjectCourse SubjectKind = "course"
	SubjectNote   SubjectKind = "note"
)

// Valid reports whether k is a known subject kind.
func (k SubjectKind) Valid() bool {
	return k == SubjectCourse || k == SubjectNote
}

// RequiresProof reports whether rating this kind of subject is gated on a
// recorded engagement proof. Note ratings require a download proof; course
// reviews are open to any identified student.
func (k SubjectKind) RequiresProof() bool {
	return k == SubjectNote
}

// Subject identifies the entity being rated.
type Subject struct {
	Kind SubjectKind
	ID   string
}

// Rating is a single rater's submission for a subject. At most one rating
// exists per (subject, rater); a later submission by the same rater replaces
// it in place, keeping the record identity and CreatedAt.
type Rating struct {
	ID              string
	Subject         Subject
	RaterID         string
	Overall         int            // 0 means unset, otherwise 1..5
	DimensionScores map[string]int // absent key means axis not rated
	Comment         string
	Anonymous       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Aggregate is the derived mean-score view for one subject. It is recomputed
// from the current ratings on every read and never persisted.
type Aggregate struct {
	OverallMean    float64
	OverallCount   int
	DimensionMeans map[string]float64
	Ratings        []Rating
}

// ClampScore normalizes a submitted star value. Zero stays "unset"; any other
// value is forced into the closed range [1,5]. Out-of-range input is tolerated
// and normalized rather than rejected.
func ClampScore(v int) int {
	switch {
	case v == 0:
		return 0
	case v < 1:
		return 1
	case v > 5:
		return 5
	default:
		return v
	}
}
