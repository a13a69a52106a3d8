package rating

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campushub/ratings/internal/domain"
)

// Store is the persistence contract the rating core depends on. Both the
// Postgres repository and the in-memory backend implement it, so aggregation
// logic never knows which one is underneath.
//
// UpsertRating keys on (subject, rater): when a record already exists for the
// pair, the implementation must replace its scores, comment, anonymity flag
// and UpdatedAt while preserving the stored ID and CreatedAt, and report
// inserted=false. The candidate's ID and CreatedAt are only used on first
// insert. Lookup misses surface as ErrNotFound.
type Store interface {
	UpsertRating(ctx context.Context, candidate domain.Rating) (domain.Rating, bool, error)
	GetRating(ctx context.Context, subject domain.Subject, raterID string) (domain.Rating, error)
	ListRatings(ctx context.Context, subject domain.Subject) ([]domain.Rating, error)
	RemoveRating(ctx context.Context, subject domain.Subject, raterID string) error

	MarkProof(ctx context.Context, subject domain.Subject, raterID string) error
	HasProof(ctx context.Context, subject domain.Subject, raterID string) (bool, error)
}

// Service is the consolidated rating core: one upsert path, one eligibility
// gate and one aggregator shared by every subject kind. It performs no I/O of
// its own beyond the injected Store and never logs.
type Service struct {
	store Store
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs the rating core on top of a Store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitParams carries one rater's submission. Zero or absent score values
// mean "unset"; anything else is clamped into [1,5]. Unknown dimension keys
// are dropped.
type SubmitParams struct {
	Overall         int
	DimensionScores map[string]int
	Comment         string
	Anonymous       bool
}

// Upsert creates or replaces the rating for (subject, raterID). The returned
// flag reports whether the record was newly created. Proof-gated subject
// kinds refuse with ErrNotEligible until the rater has a recorded proof.
func (s *Service) Upsert(ctx context.Context, subject domain.Subject, raterID string, p SubmitParams) (domain.Rating, bool, error) {
	if err := checkIdentity(subject, raterID); err != nil {
		return domain.Rating{}, false, err
	}

	if subject.Kind.RequiresProof() {
		ok, err := s.store.HasProof(ctx, subject, raterID)
		if err != nil {
			return domain.Rating{}, false, fmt.Errorf("check eligibility: %w", err)
		}
		if !ok {
			return domain.Rating{}, false, ErrNotEligible
		}
	}

	scores := make(map[string]int, len(p.DimensionScores))
	for key, v := range p.DimensionScores {
		if !domain.KnownDimension(key) {
			continue
		}
		if v = domain.ClampScore(v); v > 0 {
			scores[key] = v
		}
	}

	now := s.now()
	candidate := domain.Rating{
		ID:              uuid.NewString(),
		Subject:         subject,
		RaterID:         raterID,
		Overall:         domain.ClampScore(p.Overall),
		DimensionScores: scores,
		Comment:         strings.TrimSpace(p.Comment),
		Anonymous:       p.Anonymous,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return s.store.UpsertRating(ctx, candidate)
}

// Get returns the rater's own rating for a subject, or ErrNotFound. Call
// sites use it to pre-fill edit forms.
func (s *Service) Get(ctx context.Context, subject domain.Subject, raterID string) (domain.Rating, error) {
	if err := checkIdentity(subject, raterID); err != nil {
		return domain.Rating{}, err
	}
	return s.store.GetRating(ctx, subject, raterID)
}

// Remove deletes the rating for (subject, raterID), returning ErrNotFound
// when none exists. Supports delete-my-review and moderation flows.
func (s *Service) Remove(ctx context.Context, subject domain.Subject, raterID string) error {
	if err := checkIdentity(subject, raterID); err != nil {
		return err
	}
	return s.store.RemoveRating(ctx, subject, raterID)
}

// MarkProof records that the rater performed the prerequisite action for the
// subject, typically a resource download. Idempotent; proofs are never
// revoked.
func (s *Service) MarkProof(ctx context.Context, subject domain.Subject, raterID string) error {
	if err := checkIdentity(subject, raterID); err != nil {
		return err
	}
	return s.store.MarkProof(ctx, subject, raterID)
}

// IsEligible reports whether a proof exists for the exact (subject, raterID)
// pair. An empty rater id always yields false without touching the store.
func (s *Service) IsEligible(ctx context.Context, subject domain.Subject, raterID string) (bool, error) {
	if raterID == "" {
		return false, nil
	}
	return s.store.HasProof(ctx, subject, raterID)
}

// Aggregate recomputes the mean-score view from the subject's current
// ratings. It always reads through to the store, so a read that follows an
// upsert in the same call chain observes the new value. Ratings are sorted
// newest-first for display.
func (s *Service) Aggregate(ctx context.Context, subject domain.Subject) (domain.Aggregate, error) {
	ratings, err := s.store.ListRatings(ctx, subject)
	if err != nil {
		return domain.Aggregate{}, fmt.Errorf("list ratings: %w", err)
	}
	sort.SliceStable(ratings, func(i, j int) bool {
		if !ratings[i].UpdatedAt.Equal(ratings[j].UpdatedAt) {
			return ratings[i].UpdatedAt.After(ratings[j].UpdatedAt)
		}
		return ratings[i].RaterID < ratings[j].RaterID
	})
	return ComputeAggregate(domain.Dimensions(), ratings), nil
}

func checkIdentity(subject domain.Subject, raterID string) error {
	if !subject.Kind.Valid() {
		return newValidationError(fmt.Sprintf("unknown subject kind %q", subject.Kind))
	}
	if strings.TrimSpace(subject.ID) == "" {
		return newValidationError("subject id is required")
	}
	if strings.TrimSpace(raterID) == "" {
		return newValidationError("rater id is required")
	}
	return nil
}
