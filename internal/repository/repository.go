// Package repository persists ratings and eligibility proofs in Postgres.
// It implements rating.Store, so the core never sees SQL.
package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campushub/ratings/internal/store"
)

// Postgres is the pgx-backed rating store.
type Postgres struct {
	pool *pgxpool.Pool
}

// New constructs the repository backed by the provided store.
func New(st *store.Store) *Postgres {
	return &Postgres{pool: st.Pool()}
}

// NewWithPool constructs the repository directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}
