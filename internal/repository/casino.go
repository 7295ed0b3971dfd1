package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CasinoRepository records winning wagers and processed donations.
type CasinoRepository struct {
	pool *pgxpool.Pool
}

// NewCasinoRepository creates a new CasinoRepository instance.
func NewCasinoRepository(pool *pgxpool.Pool) *CasinoRepository {
	return &CasinoRepository{pool: pool}
}

// RecordWin appends a winning wager to the casino log.
func (r *CasinoRepository) RecordWin(ctx context.Context, memberID, amount int64) error {
	const query = `INSERT INTO casino_wins (member_id, amount) VALUES ($1, $2)`

	if _, err := r.pool.Exec(ctx, query, memberID, amount); err != nil {
		return fmt.Errorf("failed to record casino win: %w", err)
	}
	return nil
}

// TopWinners returns the biggest total winners since the given time.
func (r *CasinoRepository) TopWinners(ctx context.Context, since time.Time, limit int) ([]CountEntry, error) {
	const query = `
		SELECT m.username, SUM(w.amount) AS total
		FROM casino_wins w
		JOIN members m ON m.id = w.member_id
		WHERE w.created_at >= $1
		GROUP BY m.username
		ORDER BY total DESC, m.username
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate casino wins: %w", err)
	}
	defer rows.Close()

	return collectCounts(rows)
}

// CreatePayment records a donation keyed by the provider's charge id.
// Returns false when the charge was already recorded, in which case the
// caller must not credit again.
func (r *CasinoRepository) CreatePayment(ctx context.Context, chargeID string, memberID, stars, credits int64) (bool, error) {
	const query = `
		INSERT INTO payments (telegram_charge_id, member_id, stars, credits)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (telegram_charge_id) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query, chargeID, memberID, stars, credits)
	if err != nil {
		return false, fmt.Errorf("failed to record payment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
