package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/campushub/ratings/internal/domain"
	"github.com/campushub/ratings/internal/rating"
)

const ratingColumns = `
    id,
    subject_kind,
    subject_id,
    rater_id,
    overall,
    dimension_scores,
    comment,
    is_anonymous,
    created_at,
    updated_at
`

// UpsertRating inserts or replaces the rating for (subject, rater). The
// conflict clause keeps the stored id and created_at, so a resubmission never
// mints a new record identity. The inserted flag reports whether the row was
// newly created.
func (r *Postgres) UpsertRating(ctx context.Context, candidate domain.Rating) (domain.Rating, bool, error) {
	scoresJSON, err := json.Marshal(candidate.DimensionScores)
	if err != nil {
		return domain.Rating{}, false, fmt.Errorf("encode dimension scores: %w", err)
	}

	query := fmt.Sprintf(`
        INSERT INTO ratings (id, subject_kind, subject_id, rater_id, overall, dimension_scores, comment, is_anonymous, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
        ON CONFLICT (subject_kind, subject_id, rater_id)
        DO UPDATE SET overall = EXCLUDED.overall,
                      dimension_scores = EXCLUDED.dimension_scores,
                      comment = EXCLUDED.comment,
                      is_anonymous = EXCLUDED.is_anonymous,
                      updated_at = EXCLUDED.updated_at
        RETURNING %s, (xmax = 0) AS inserted
    `, ratingColumns)

	row := r.pool.QueryRow(ctx, query,
		candidate.ID,
		string(candidate.Subject.Kind),
		candidate.Subject.ID,
		candidate.RaterID,
		candidate.Overall,
		scoresJSON,
		candidate.Comment,
		candidate.Anonymous,
		candidate.CreatedAt,
	)

	var inserted bool
	stored, err := scanRating(row, &inserted)
	if err != nil {
		return domain.Rating{}, false, fmt.Errorf("upsert rating: %w", err)
	}
	return stored, inserted, nil
}

// GetRating fetches the rating for a specific (subject, rater) pair.
func (r *Postgres) GetRating(ctx context.Context, subject domain.Subject, raterID string) (domain.Rating, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM ratings
        WHERE subject_kind = $1 AND subject_id = $2 AND rater_id = $3
    `, ratingColumns)

	row := r.pool.QueryRow(ctx, query, string(subject.Kind), subject.ID, raterID)
	stored, err := scanRating(row, nil)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Rating{}, rating.ErrNotFound
		}
		return domain.Rating{}, fmt.Errorf("get rating: %w", err)
	}
	return stored, nil
}

// ListRatings returns all ratings for a subject. Display ordering is the
// caller's concern; rows come back newest-first as a convenience.
func (r *Postgres) ListRatings(ctx context.Context, subject domain.Subject) ([]domain.Rating, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM ratings
        WHERE subject_kind = $1 AND subject_id = $2
        ORDER BY updated_at DESC, rater_id ASC
    `, ratingColumns)

	rows, err := r.pool.Query(ctx, query, string(subject.Kind), subject.ID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	results := make([]domain.Rating, 0)
	for rows.Next() {
		stored, err := scanRating(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("list ratings: %w", err)
		}
		results = append(results, stored)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return results, nil
}

// RemoveRating deletes the rating for (subject, rater), reporting ErrNotFound
// when no row matched.
func (r *Postgres) RemoveRating(ctx context.Context, subject domain.Subject, raterID string) error {
	tag, err := r.pool.Exec(ctx, `
        DELETE FROM ratings
        WHERE subject_kind = $1 AND subject_id = $2 AND rater_id = $3
    `, string(subject.Kind), subject.ID, raterID)
	if err != nil {
		return fmt.Errorf("remove rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rating.ErrNotFound
	}
	return nil
}

// scanRating reads one rating row. When inserted is non-nil the row is
// expected to carry the trailing (xmax = 0) column.
func scanRating(row pgx.Row, inserted *bool) (domain.Rating, error) {
	var (
		stored     domain.Rating
		kind       string
		scoresJSON []byte
	)

	dest := []interface{}{
		&stored.ID,
		&kind,
		&stored.Subject.ID,
		&stored.RaterID,
		&stored.Overall,
		&scoresJSON,
		&stored.Comment,
		&stored.Anonymous,
		&stored.CreatedAt,
		&stored.UpdatedAt,
	}
	if inserted != nil {
		dest = append(dest, inserted)
	}
	if err := row.Scan(dest...); err != nil {
		return domain.Rating{}, err
	}
	stored.Subject.Kind = domain.SubjectKind(kind)

	stored.DimensionScores = make(map[string]int)
	if len(scoresJSON) > 0 {
		if err := json.Unmarshal(scoresJSON, &stored.DimensionScores); err != nil {
			return domain.Rating{}, fmt.Errorf("decode dimension scores: %w", err)
		}
	}
	return stored, nil
}
