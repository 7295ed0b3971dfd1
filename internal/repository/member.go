// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-moderator-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrMemberNotFound      = errors.New("member not found")
	ErrTeamNotFound        = errors.New("team not found")
	ErrRoleNotFound        = errors.New("role not found")
	ErrCommandNotFound     = errors.New("command not found")
	ErrTopicNotFound       = errors.New("topic not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// uniqueViolation is the PostgreSQL error code for a violated unique
// constraint; get-or-create paths treat it as "created concurrently".
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const memberColumns = `m.id, m.username, m.telegram_id, m.role_id, m.balance`

// MemberRepository handles member data persistence.
type MemberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository creates a new MemberRepository instance.
func NewMemberRepository(pool *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

func scanMember(row pgx.Row) (*model.Member, error) {
	var m model.Member
	err := row.Scan(&m.ID, &m.Username, &m.TelegramID, &m.RoleID, &m.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

// scanMemberWithRole scans a member row joined with its role columns.
func scanMemberWithRole(row pgx.Row) (*model.Member, error) {
	var m model.Member
	var roleID *int64
	var roleName *string
	var roleLevel *int
	err := row.Scan(&m.ID, &m.Username, &m.TelegramID, &m.RoleID, &m.Balance,
		&roleID, &roleName, &roleLevel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	if roleID != nil {
		m.Role = &model.Role{ID: *roleID, Name: *roleName, Level: *roleLevel}
	}
	return &m, nil
}

// Create creates a new member with the default balance and the given
// role. Returns ErrAlreadyExists when the username is taken, so callers
// can re-fetch after losing a creation race.
func (r *MemberRepository) Create(ctx context.Context, username string, telegramID *int64, roleID int64) (*model.Member, error) {
	const query = `
		INSERT INTO members (username, telegram_id, role_id, balance)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, telegram_id, role_id, balance
	`

	m, err := scanMember(r.pool.QueryRow(ctx, query, username, telegramID, roleID, model.DefaultBalance))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	return m, nil
}

// GetByUsername retrieves a member with its role by display handle.
// Lookups by username break silently after a rename; the stable key is
// the telegram id.
func (r *MemberRepository) GetByUsername(ctx context.Context, username string) (*model.Member, error) {
	const query = `
		SELECT ` + memberColumns + `, r.id, r.role_name, r.level
		FROM members m
		LEFT JOIN roles r ON r.id = m.role_id
		WHERE m.username = $1
	`

	m, err := scanMemberWithRole(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// GetByTelegramID retrieves a member with its role by telegram id.
func (r *MemberRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.Member, error) {
	const query = `
		SELECT ` + memberColumns + `, r.id, r.role_name, r.level
		FROM members m
		LEFT JOIN roles r ON r.id = m.role_id
		WHERE m.telegram_id = $1
	`

	m, err := scanMemberWithRole(r.pool.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// SetTelegramID backfills the stable platform id for a member.
func (r *MemberRepository) SetTelegramID(ctx context.Context, memberID, telegramID int64) error {
	const query = `UPDATE members SET telegram_id = $2 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, memberID, telegramID)
	if err != nil {
		return fmt.Errorf("failed to set telegram id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// SetRole reassigns a member's role.
func (r *MemberRepository) SetRole(ctx context.Context, memberID, roleID int64) error {
	const query = `UPDATE members SET role_id = $2 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, memberID, roleID)
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// GetBalance retrieves a member's current balance.
func (r *MemberRepository) GetBalance(ctx context.Context, memberID int64) (int64, error) {
	const query = `SELECT balance FROM members WHERE id = $1`

	var balance int64
	err := r.pool.QueryRow(ctx, query, memberID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrMemberNotFound
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// Credit adds a non-negative amount to a member's balance and returns
// the new balance.
func (r *MemberRepository) Credit(ctx context.Context, memberID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("credit amount must be non-negative, got %d", amount)
	}

	const query = `
		UPDATE members SET balance = balance + $2
		WHERE id = $1
		RETURNING balance
	`

	var balance int64
	err := r.pool.QueryRow(ctx, query, memberID, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrMemberNotFound
		}
		return 0, fmt.Errorf("failed to credit balance: %w", err)
	}
	return balance, nil
}

// Debit subtracts a non-negative amount from a member's balance as a
// single conditional update: the balance never goes negative, and an
// oversized debit leaves it unchanged and returns
// ErrInsufficientBalance.
func (r *MemberRepository) Debit(ctx context.Context, memberID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("debit amount must be non-negative, got %d", amount)
	}

	const query = `
		UPDATE members SET balance = balance - $2
		WHERE id = $1 AND balance >= $2
		RETURNING balance
	`

	var balance int64
	err := r.pool.QueryRow(ctx, query, memberID, amount).Scan(&balance)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("failed to debit balance: %w", err)
		}
		// Either no such member or not enough balance; distinguish.
		current, berr := r.GetBalance(ctx, memberID)
		if berr != nil {
			return 0, berr
		}
		return current, ErrInsufficientBalance
	}
	return balance, nil
}

// ReplenishBelow raises every balance strictly below threshold to floor
// in one bulk update. Returns the number of members replenished.
func (r *MemberRepository) ReplenishBelow(ctx context.Context, threshold, floor int64) (int64, error) {
	const query = `UPDATE members SET balance = $2 WHERE balance < $1`

	tag, err := r.pool.Exec(ctx, query, threshold, floor)
	if err != nil {
		return 0, fmt.Errorf("failed to replenish balances: %w", err)
	}
	return tag.RowsAffected(), nil
}
