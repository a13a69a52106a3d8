package repository

import (
	"context"
	"fmt"

	"github.com/campushub/ratings/internal/domain"
)

// MarkProof records that the rater performed the prerequisite action for the
// subject. The conflict clause makes repeated marks a no-op; proofs are
// append-only and never revoked here.
func (r *Postgres) MarkProof(ctx context.Context, subject domain.Subject, raterID string) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO eligibility_proofs (subject_kind, subject_id, rater_id)
        VALUES ($1,$2,$3)
        ON CONFLICT (subject_kind, subject_id, rater_id) DO NOTHING
    `, string(subject.Kind), subject.ID, raterID)
	if err != nil {
		return fmt.Errorf("mark proof: %w", err)
	}
	return nil
}

// HasProof reports whether a proof exists for the exact (subject, rater) pair.
func (r *Postgres) HasProof(ctx context.Context, subject domain.Subject, raterID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM eligibility_proofs
            WHERE subject_kind = $1 AND subject_id = $2 AND rater_id = $3
        )
    `, string(subject.Kind), subject.ID, raterID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check proof: %w", err)
	}
	return exists, nil
}
