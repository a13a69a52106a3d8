package rating

import (
	"context"

	"github.com/campushub/ratings/internal/domain"
)

// SubjectRatings adapts one subject kind onto the shared core, giving course
// pages and note panels the same operations instead of two diverging
// implementations.
type SubjectRatings struct {
	svc  *Service
	kind domain.SubjectKind
}

// Courses returns the adapter for course reviews.
func (s *Service) Courses() SubjectRatings {
	return SubjectRatings{svc: s, kind: domain.SubjectCourse}
}

// Notes returns the adapter for note/resource ratings.
func (s *Service) Notes() SubjectRatings {
	return SubjectRatings{svc: s, kind: domain.SubjectNote}
}

// Kind returns the adapter's subject kind.
func (a SubjectRatings) Kind() domain.SubjectKind {
	return a.kind
}

func (a SubjectRatings) subject(id string) domain.Subject {
	return domain.Subject{Kind: a.kind, ID: id}
}

// Submit creates or replaces the rater's rating for the subject.
func (a SubjectRatings) Submit(ctx context.Context, subjectID, raterID string, p SubmitParams) (domain.Rating, bool, error) {
	return a.svc.Upsert(ctx, a.subject(subjectID), raterID, p)
}

// Mine returns the rater's own rating, or ErrNotFound.
func (a SubjectRatings) Mine(ctx context.Context, subjectID, raterID string) (domain.Rating, error) {
	return a.svc.Get(ctx, a.subject(subjectID), raterID)
}

// Aggregate recomputes the subject's mean-score view.
func (a SubjectRatings) Aggregate(ctx context.Context, subjectID string) (domain.Aggregate, error) {
	return a.svc.Aggregate(ctx, a.subject(subjectID))
}

// CanRate reports whether the rater may submit a rating right now. Kinds
// without a proof requirement only need an identified rater; proof-gated
// kinds additionally need a recorded engagement proof.
func (a SubjectRatings) CanRate(ctx context.Context, subjectID, raterID string) (bool, error) {
	if raterID == "" {
		return false, nil
	}
	if !a.kind.RequiresProof() {
		return true, nil
	}
	return a.svc.IsEligible(ctx, a.subject(subjectID), raterID)
}

// MarkProof records the rater's prerequisite engagement with the subject.
func (a SubjectRatings) MarkProof(ctx context.Context, subjectID, raterID string) error {
	return a.svc.MarkProof(ctx, a.subject(subjectID), raterID)
}

// Remove deletes the rater's rating, or returns ErrNotFound.
func (a SubjectRatings) Remove(ctx context.Context, subjectID, raterID string) error {
	return a.svc.Remove(ctx, a.subject(subjectID), raterID)
}
