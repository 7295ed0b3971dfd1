package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-moderator-bot/internal/model"
)

// RoleRepository handles role data and the role_commands association.
type RoleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository creates a new RoleRepository instance.
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// Create creates a new role. Returns ErrAlreadyExists when the name is
// taken.
func (r *RoleRepository) Create(ctx context.Context, name string, level int) (*model.Role, error) {
	const query = `
		INSERT INTO roles (role_name, level) VALUES ($1, $2)
		RETURNING id, role_name, level
	`

	var role model.Role
	err := r.pool.QueryRow(ctx, query, name, level).Scan(&role.ID, &role.Name, &role.Level)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return &role, nil
}

// GetByName retrieves a role by its unique name.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*model.Role, error) {
	const query = `SELECT id, role_name, level FROM roles WHERE role_name = $1`

	var role model.Role
	err := r.pool.QueryRow(ctx, query, name).Scan(&role.ID, &role.Name, &role.Level)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

// GetOrCreate fetches a role by name, creating it when missing. Two
// concurrent first-time callers race on the insert; the loser's unique
// violation is resolved by re-fetching, never by erroring out.
func (r *RoleRepository) GetOrCreate(ctx context.Context, name string, level int) (*model.Role, error) {
	role, err := r.GetByName(ctx, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, ErrRoleNotFound) {
		return nil, err
	}

	role, err = r.Create(ctx, name, level)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, ErrAlreadyExists) {
		return nil, err
	}
	return r.GetByName(ctx, name)
}

// Rename changes a role's unique name.
func (r *RoleRepository) Rename(ctx context.Context, roleID int64, newName string) error {
	const query = `UPDATE roles SET role_name = $2 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, roleID, newName)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to rename role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// SetLevel changes a role's privilege level.
func (r *RoleRepository) SetLevel(ctx context.Context, roleID int64, level int) error {
	const query = `UPDATE roles SET level = $2 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, roleID, level)
	if err != nil {
		return fmt.Errorf("failed to set role level: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// Delete removes a role; role_commands rows cascade. Members holding
// the role keep a dangling reference nulled by the FK.
func (r *RoleRepository) Delete(ctx context.Context, roleID int64) error {
	const query = `DELETE FROM roles WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, roleID)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// List retrieves all roles ordered by descending level.
func (r *RoleRepository) List(ctx context.Context) ([]*model.Role, error) {
	const query = `SELECT id, role_name, level FROM roles ORDER BY level DESC, role_name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Level); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, &role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roles: %w", err)
	}
	return roles, nil
}

// AddCommand associates a command with a role. Returns false when the
// association already exists.
func (r *RoleRepository) AddCommand(ctx context.Context, roleID, commandID int64) (bool, error) {
	const query = `
		INSERT INTO role_commands (role_id, command_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query, roleID, commandID)
	if err != nil {
		return false, fmt.Errorf("failed to add command to role: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveCommand drops a role-command association. Returns false when it
// did not exist.
func (r *RoleRepository) RemoveCommand(ctx context.Context, roleID, commandID int64) (bool, error) {
	const query = `DELETE FROM role_commands WHERE role_id = $1 AND command_id = $2`

	tag, err := r.pool.Exec(ctx, query, roleID, commandID)
	if err != nil {
		return false, fmt.Errorf("failed to remove command from role: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// HasCommand reports whether the role is associated with the command.
// The permission evaluator turns on this single row.
func (r *RoleRepository) HasCommand(ctx context.Context, roleID, commandID int64) (bool, error) {
	const query = `
		SELECT EXISTS(
			SELECT 1 FROM role_commands WHERE role_id = $1 AND command_id = $2
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, roleID, commandID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check role command: %w", err)
	}
	return exists, nil
}

// Commands retrieves the commands associated with a role, ordered by
// name.
func (r *RoleRepository) Commands(ctx context.Context, roleID int64) ([]*model.Command, error) {
	const query = `
		SELECT c.id, c.command_name, c.emoji, c.description, c.example, c.parameters, c.note, c.is_admin_command
		FROM commands c
		JOIN role_commands rc ON rc.command_id = c.id
		WHERE rc.role_id = $1
		ORDER BY c.command_name
	`

	rows, err := r.pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role commands: %w", err)
	}
	defer rows.Close()

	return collectCommands(rows)
}
