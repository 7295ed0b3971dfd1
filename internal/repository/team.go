package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-moderator-bot/internal/model"
)

// TeamRepository handles team data and the member_teams association.
type TeamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository creates a new TeamRepository instance.
func NewTeamRepository(pool *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{pool: pool}
}

// Create creates a new team. Returns ErrAlreadyExists when the name is
// taken.
func (r *TeamRepository) Create(ctx context.Context, name string) (*model.Team, error) {
	const query = `
		INSERT INTO teams (team_name) VALUES ($1)
		RETURNING id, team_name
	`

	var t model.Team
	err := r.pool.QueryRow(ctx, query, name).Scan(&t.ID, &t.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return &t, nil
}

// GetByName retrieves a team by its unique name.
func (r *TeamRepository) GetByName(ctx context.Context, name string) (*model.Team, error) {
	const query = `SELECT id, team_name FROM teams WHERE team_name = $1`

	var t model.Team
	err := r.pool.QueryRow(ctx, query, name).Scan(&t.ID, &t.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return &t, nil
}

// Delete removes a team; association rows cascade.
func (r *TeamRepository) Delete(ctx context.Context, teamID int64) error {
	const query = `DELETE FROM teams WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, teamID)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTeamNotFound
	}
	return nil
}

// List retrieves all teams ordered by name.
func (r *TeamRepository) List(ctx context.Context) ([]*model.Team, error) {
	const query = `SELECT id, team_name FROM teams ORDER BY team_name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*model.Team
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teams: %w", err)
	}
	return teams, nil
}

// AddMember associates a member with a team. Returns false when the
// association already exists (a no-op, not an error).
func (r *TeamRepository) AddMember(ctx context.Context, teamID, memberID int64) (bool, error) {
	const query = `
		INSERT INTO member_teams (team_id, member_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query, teamID, memberID)
	if err != nil {
		return false, fmt.Errorf("failed to add member to team: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveMember drops the association between a member and a team.
// Returns false when the member was not in the team. The member record
// itself is never deleted.
func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, memberID int64) (bool, error) {
	const query = `DELETE FROM member_teams WHERE team_id = $1 AND member_id = $2`

	tag, err := r.pool.Exec(ctx, query, teamID, memberID)
	if err != nil {
		return false, fmt.Errorf("failed to remove member from team: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Members retrieves all members of a team ordered by username.
func (r *TeamRepository) Members(ctx context.Context, teamID int64) ([]*model.Member, error) {
	const query = `
		SELECT ` + memberColumns + `
		FROM members m
		JOIN member_teams mt ON mt.member_id = m.id
		WHERE mt.team_id = $1
		ORDER BY m.username
	`

	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	var members []*model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team members: %w", err)
	}
	return members, nil
}
