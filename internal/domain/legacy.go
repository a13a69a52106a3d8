package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// storedRating covers every field spelling observed across the generations of
// persisted rating data. The oldest records carry a single numeric "stars"
// value instead of "overall"; a later generation used "stars" for the per-axis
// map and "email"/"isAnon" instead of "userEmail"/"anonymous". Score fields
// are floats because some stored overalls were derived from dimension means
// and carry one decimal place.
type storedRating struct {
	ID              string             `json:"id"`
	RaterID         string             `json:"raterId"`
	Email           string             `json:"email"`
	UserEmail       string             `json:"userEmail"`
	Overall         float64            `json:"overall"`
	Stars           json.RawMessage    `json:"stars"`
	Dims            map[string]float64 `json:"dims"`
	DimensionScores map[string]float64 `json:"dimensionScores"`
	Comment         string             `json:"comment"`
	IsAnon          bool               `json:"isAnon"`
	Anonymous       bool               `json:"anonymous"`
	IsAnonymous     bool               `json:"isAnonymous"`
	CreatedAt       int64              `json:"createdAt"`
	UpdatedAt       int64              `json:"updatedAt"`
}

// roundScore snaps a possibly fractional stored score to the nearest whole
// star before clamping.
func roundScore(v float64) int {
	return ClampScore(int(math.Round(v)))
}

// DecodeStoredRating upgrades a persisted rating record to the current shape.
// The upgrade happens once on read; callers never see legacy field names.
// Scores are normalized with the same clamping rules as a fresh submission.
func DecodeStoredRating(subject Subject, raw []byte) (Rating, error) {
	var rec storedRating
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Rating{}, fmt.Errorf("decode stored rating: %w", err)
	}

	r := Rating{
		ID:        rec.ID,
		Subject:   subject,
		RaterID:   firstNonEmpty(rec.RaterID, rec.Email, rec.UserEmail),
		Overall:   roundScore(rec.Overall),
		Comment:   strings.TrimSpace(rec.Comment),
		Anonymous: rec.IsAnonymous || rec.IsAnon || rec.Anonymous,
	}
	if r.RaterID == "" {
		return Rating{}, fmt.Errorf("decode stored rating: no rater identity")
	}

	scores := rec.DimensionScores
	if scores == nil {
		scores = rec.Dims
	}

	// "stars" is either the oldest overall value or a per-axis map.
	if len(rec.Stars) > 0 {
		var asNumber float64
		if err := json.Unmarshal(rec.Stars, &asNumber); err == nil {
			if r.Overall == 0 {
				r.Overall = roundScore(asNumber)
			}
		} else if scores == nil {
			var asMap map[string]float64
			if err := json.Unmarshal(rec.Stars, &asMap); err == nil {
				scores = asMap
			}
		}
	}

	r.DimensionScores = make(map[string]int, len(scores))
	for key, v := range scores {
		if !KnownDimension(key) {
			continue
		}
		if iv := roundScore(v); iv > 0 {
			r.DimensionScores[key] = iv
		}
	}

	if rec.CreatedAt > 0 {
		r.CreatedAt = time.UnixMilli(rec.CreatedAt).UTC()
	}
	if rec.UpdatedAt > 0 {
		r.UpdatedAt = time.UnixMilli(rec.UpdatedAt).UTC()
	} else {
		r.UpdatedAt = r.CreatedAt
	}
	return r, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
