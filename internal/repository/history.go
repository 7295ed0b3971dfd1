package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryRepository appends to and aggregates the command_history audit
// log. The log is append-only: there is no update or delete path.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates a new HistoryRepository instance.
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// Append records a command attempt. Username and telegram id are
// snapshotted at append time so later renames do not rewrite history.
func (r *HistoryRepository) Append(ctx context.Context, memberID int64, telegramID *int64, username, command string) error {
	const query = `
		INSERT INTO command_history (member_id, telegram_id, username, command)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.pool.Exec(ctx, query, memberID, telegramID, username, command); err != nil {
		return fmt.Errorf("failed to append command history: %w", err)
	}
	return nil
}

// CountEntry is one row of a usage aggregation.
type CountEntry struct {
	Label string
	Count int64
}

// TopCommands returns the most used commands since the given time.
func (r *HistoryRepository) TopCommands(ctx context.Context, since time.Time, limit int) ([]CountEntry, error) {
	const query = `
		SELECT command, COUNT(*) AS uses
		FROM command_history
		WHERE created_at >= $1
		GROUP BY command
		ORDER BY uses DESC, command
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate commands: %w", err)
	}
	defer rows.Close()

	return collectCounts(rows)
}

// TopUsers returns the most active users since the given time.
func (r *HistoryRepository) TopUsers(ctx context.Context, since time.Time, limit int) ([]CountEntry, error) {
	const query = `
		SELECT username, COUNT(*) AS uses
		FROM command_history
		WHERE created_at >= $1
		GROUP BY username
		ORDER BY uses DESC, username
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate users: %w", err)
	}
	defer rows.Close()

	return collectCounts(rows)
}

// TopUsersForCommand returns the most frequent callers of one command
// since the given time.
func (r *HistoryRepository) TopUsersForCommand(ctx context.Context, command string, since time.Time, limit int) ([]CountEntry, error) {
	const query = `
		SELECT username, COUNT(*) AS uses
		FROM command_history
		WHERE command = $1 AND created_at >= $2
		GROUP BY username
		ORDER BY uses DESC, username
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, command, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate command users: %w", err)
	}
	defer rows.Close()

	return collectCounts(rows)
}

func collectCounts(rows pgx.Rows) ([]CountEntry, error) {
	var entries []CountEntry
	for rows.Next() {
		var e CountEntry
		if err := rows.Scan(&e.Label, &e.Count); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aggregate rows: %w", err)
	}
	return entries, nil
}
