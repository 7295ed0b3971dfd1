package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-moderator-bot/internal/model"
)

// ErrInvalidColumn is returned when an edit targets a column outside the
// mutable presentation set.
var ErrInvalidColumn = errors.New("invalid command column")

// EditableCommandColumns are the presentation columns /edit_handler may
// change. The command name and admin classification are fixed at
// creation.
var EditableCommandColumns = []string{"description", "example", "parameters", "note", "emoji"}

const commandColumns = `c.id, c.command_name, c.emoji, c.description, c.example, c.parameters, c.note, c.is_admin_command`

// CommandRepository handles command metadata persistence.
type CommandRepository struct {
	pool *pgxpool.Pool
}

// NewCommandRepository creates a new CommandRepository instance.
func NewCommandRepository(pool *pgxpool.Pool) *CommandRepository {
	return &CommandRepository{pool: pool}
}

func scanCommand(row pgx.Row) (*model.Command, error) {
	var c model.Command
	err := row.Scan(&c.ID, &c.Name, &c.Emoji, &c.Description, &c.Example,
		&c.Parameters, &c.Note, &c.IsAdminCommand)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCommandNotFound
		}
		return nil, err
	}
	return &c, nil
}

func collectCommands(rows pgx.Rows) ([]*model.Command, error) {
	var commands []*model.Command
	for rows.Next() {
		c, err := scanCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		commands = append(commands, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commands: %w", err)
	}
	return commands, nil
}

// Create registers a command by canonical name, e.g. "/ban_member".
func (r *CommandRepository) Create(ctx context.Context, name string, isAdmin bool) (*model.Command, error) {
	const query = `
		INSERT INTO commands (command_name, is_admin_command)
		VALUES ($1, $2)
		RETURNING ` + commandColumnsBare + `
	`

	c, err := scanCommand(r.pool.QueryRow(ctx, query, name, isAdmin))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create command: %w", err)
	}
	return c, nil
}

const commandColumnsBare = `id, command_name, emoji, description, example, parameters, note, is_admin_command`

// GetByName retrieves a command by its canonical name.
func (r *CommandRepository) GetByName(ctx context.Context, name string) (*model.Command, error) {
	const query = `
		SELECT ` + commandColumnsBare + `
		FROM commands WHERE command_name = $1
	`

	c, err := scanCommand(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, ErrCommandNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get command: %w", err)
	}
	return c, nil
}

// UpdateColumn sets one mutable presentation column. The column name is
// validated against EditableCommandColumns before being interpolated.
func (r *CommandRepository) UpdateColumn(ctx context.Context, commandID int64, column, value string) error {
	valid := false
	for _, c := range EditableCommandColumns {
		if c == column {
			valid = true
			break
		}
	}
	if !valid {
		return ErrInvalidColumn
	}

	query := fmt.Sprintf(`UPDATE commands SET %s = $2 WHERE id = $1`, column)
	tag, err := r.pool.Exec(ctx, query, commandID, value)
	if err != nil {
		return fmt.Errorf("failed to update command %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCommandNotFound
	}
	return nil
}

// ListByAdmin retrieves commands filtered by their admin classification,
// ordered by name.
func (r *CommandRepository) ListByAdmin(ctx context.Context, isAdmin bool) ([]*model.Command, error) {
	const query = `
		SELECT ` + commandColumnsBare + `
		FROM commands WHERE is_admin_command = $1
		ORDER BY command_name
	`

	rows, err := r.pool.Query(ctx, query, isAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to list commands: %w", err)
	}
	defer rows.Close()

	return collectCommands(rows)
}

// ListForRole retrieves the non-admin commands available to a role; the
// /help listing.
func (r *CommandRepository) ListForRole(ctx context.Context, roleID int64) ([]*model.Command, error) {
	const query = `
		SELECT ` + commandColumns + `
		FROM commands c
		JOIN role_commands rc ON rc.command_id = c.id
		WHERE rc.role_id = $1 AND c.is_admin_command = FALSE
		ORDER BY c.command_name
	`

	rows, err := r.pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list commands for role: %w", err)
	}
	defer rows.Close()

	return collectCommands(rows)
}
