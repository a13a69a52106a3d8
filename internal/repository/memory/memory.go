// Package memory provides an in-memory rating store. It backs tests and the
// local/offline mode, and it is the ingestion point for data exported from
// the browser-storage era: snapshots are JSON in the shape the web client
// persisted, including legacy record spellings, upgraded once on load.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/campushub/ratings/internal/domain"
	"github.com/campushub/ratings/internal/rating"
)

// Store implements rating.Store on plain maps guarded by a mutex. Operations
// are synchronous; upsert is last-write-wins per (subject, rater).
type Store struct {
	mu      sync.RWMutex
	ratings map[domain.Subject]map[string]domain.Rating
	proofs  map[domain.Subject]map[string]struct{}
}

// New returns an empty store.
func New() *Store {
	return &Store{
		ratings: make(map[domain.Subject]map[string]domain.Rating),
		proofs:  make(map[domain.Subject]map[string]struct{}),
	}
}

// snapshot mirrors the persisted browser-storage layout: rating records and
// proof rater lists keyed by "kind/id".
type snapshot struct {
	Ratings map[string][]json.RawMessage `json:"ratings"`
	Proofs  map[string][]string          `json:"proofs"`
}

type snapshotRecord struct {
	ID              string         `json:"id"`
	RaterID         string         `json:"raterId"`
	Overall         int            `json:"overall"`
	DimensionScores map[string]int `json:"dimensionScores"`
	Comment         string         `json:"comment,omitempty"`
	IsAnonymous     bool           `json:"isAnonymous"`
	CreatedAt       int64          `json:"createdAt"`
	UpdatedAt       int64          `json:"updatedAt"`
}

// NewFromSnapshot builds a store seeded from exported JSON. Legacy records
// (numeric "stars", old field names) are upgraded as they are read in;
// records without a rater identity are rejected rather than stored corrupt.
func NewFromSnapshot(data []byte) (*Store, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("memory: parse snapshot: %w", err)
	}

	s := New()
	for key, records := range snap.Ratings {
		subject, err := parseSubjectKey(key)
		if err != nil {
			return nil, err
		}
		byRater := make(map[string]domain.Rating, len(records))
		for _, raw := range records {
			r, err := domain.DecodeStoredRating(subject, raw)
			if err != nil {
				return nil, fmt.Errorf("memory: subject %s: %w", key, err)
			}
			byRater[r.RaterID] = r
		}
		s.ratings[subject] = byRater
	}
	for key, raters := range snap.Proofs {
		subject, err := parseSubjectKey(key)
		if err != nil {
			return nil, err
		}
		set := make(map[string]struct{}, len(raters))
		for _, raterID := range raters {
			set[raterID] = struct{}{}
		}
		s.proofs[subject] = set
	}
	return s, nil
}

// Snapshot exports the current state in the same layout NewFromSnapshot
// accepts, always in the current record shape.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		Ratings: make(map[string][]json.RawMessage, len(s.ratings)),
		Proofs:  make(map[string][]string, len(s.proofs)),
	}
	for subject, byRater := range s.ratings {
		records := make([]json.RawMessage, 0, len(byRater))
		for _, r := range byRater {
			raw, err := json.Marshal(snapshotRecord{
				ID:              r.ID,
				RaterID:         r.RaterID,
				Overall:         r.Overall,
				DimensionScores: r.DimensionScores,
				Comment:         r.Comment,
				IsAnonymous:     r.Anonymous,
				CreatedAt:       r.CreatedAt.UnixMilli(),
				UpdatedAt:       r.UpdatedAt.UnixMilli(),
			})
			if err != nil {
				return nil, fmt.Errorf("memory: encode rating: %w", err)
			}
			records = append(records, raw)
		}
		snap.Ratings[subjectKey(subject)] = records
	}
	for subject, set := range s.proofs {
		raters := make([]string, 0, len(set))
		for raterID := range set {
			raters = append(raters, raterID)
		}
		snap.Proofs[subjectKey(subject)] = raters
	}
	return json.Marshal(snap)
}

// UpsertRating implements rating.Store.
func (s *Store) UpsertRating(_ context.Context, candidate domain.Rating) (domain.Rating, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byRater := s.ratings[candidate.Subject]
	if byRater == nil {
		byRater = make(map[string]domain.Rating)
		s.ratings[candidate.Subject] = byRater
	}

	stored := candidate
	existing, ok := byRater[candidate.RaterID]
	if ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	}
	byRater[candidate.RaterID] = stored
	return copyRating(stored), !ok, nil
}

// GetRating implements rating.Store.
func (s *Store) GetRating(_ context.Context, subject domain.Subject, raterID string) (domain.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.ratings[subject][raterID]
	if !ok {
		return domain.Rating{}, rating.ErrNotFound
	}
	return copyRating(r), nil
}

// ListRatings implements rating.Store. Order is unspecified; callers sort.
func (s *Store) ListRatings(_ context.Context, subject domain.Subject) ([]domain.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byRater := s.ratings[subject]
	out := make([]domain.Rating, 0, len(byRater))
	for _, r := range byRater {
		out = append(out, copyRating(r))
	}
	return out, nil
}

// RemoveRating implements rating.Store.
func (s *Store) RemoveRating(_ context.Context, subject domain.Subject, raterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ratings[subject][raterID]; !ok {
		return rating.ErrNotFound
	}
	delete(s.ratings[subject], raterID)
	return nil
}

// MarkProof implements rating.Store. Adding the same pair twice is a no-op.
func (s *Store) MarkProof(_ context.Context, subject domain.Subject, raterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.proofs[subject]
	if set == nil {
		set = make(map[string]struct{})
		s.proofs[subject] = set
	}
	set[raterID] = struct{}{}
	return nil
}

// HasProof implements rating.Store.
func (s *Store) HasProof(_ context.Context, subject domain.Subject, raterID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.proofs[subject][raterID]
	return ok, nil
}

func copyRating(r domain.Rating) domain.Rating {
	scores := make(map[string]int, len(r.DimensionScores))
	for k, v := range r.DimensionScores {
		scores[k] = v
	}
	r.DimensionScores = scores
	return r
}

func subjectKey(subject domain.Subject) string {
	return string(subject.Kind) + "/" + subject.ID
}

func parseSubjectKey(key string) (domain.Subject, error) {
	kind, id, ok := strings.Cut(key, "/")
	subject := domain.Subject{Kind: domain.SubjectKind(kind), ID: id}
	if !ok || id == "" || !subject.Kind.Valid() {
		return domain.Subject{}, fmt.Errorf("memory: invalid subject key %q", key)
	}
	return subject, nil
}
