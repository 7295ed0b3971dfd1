package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-moderator-bot/internal/model"
)

// TopicRepository handles topic data and the topic_commands association.
type TopicRepository struct {
	pool *pgxpool.Pool
}

// NewTopicRepository creates a new TopicRepository instance.
func NewTopicRepository(pool *pgxpool.Pool) *TopicRepository {
	return &TopicRepository{pool: pool}
}

// Create creates a topic. Returns ErrAlreadyExists when the name is
// taken.
func (r *TopicRepository) Create(ctx context.Context, name string, description *string) (*model.Topic, error) {
	const query = `
		INSERT INTO topics (topic_name, description)
		VALUES ($1, $2)
		RETURNING id, topic_name, description
	`

	var t model.Topic
	err := r.pool.QueryRow(ctx, query, name, description).Scan(&t.ID, &t.Name, &t.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}
	return &t, nil
}

// GetByName retrieves a topic by its unique name.
func (r *TopicRepository) GetByName(ctx context.Context, name string) (*model.Topic, error) {
	const query = `SELECT id, topic_name, description FROM topics WHERE topic_name = $1`

	var t model.Topic
	err := r.pool.QueryRow(ctx, query, name).Scan(&t.ID, &t.Name, &t.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTopicNotFound
		}
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return &t, nil
}

// UpdateDescription replaces a topic's description.
func (r *TopicRepository) UpdateDescription(ctx context.Context, topicID int64, description string) error {
	const query = `UPDATE topics SET description = $2 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, topicID, description)
	if err != nil {
		return fmt.Errorf("failed to update topic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTopicNotFound
	}
	return nil
}

// Delete removes a topic; topic_commands rows cascade.
func (r *TopicRepository) Delete(ctx context.Context, topicID int64) error {
	const query = `DELETE FROM topics WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, topicID)
	if err != nil {
		return fmt.Errorf("failed to delete topic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTopicNotFound
	}
	return nil
}

// List retrieves all topics ordered by name.
func (r *TopicRepository) List(ctx context.Context) ([]*model.Topic, error) {
	const query = `SELECT id, topic_name, description FROM topics ORDER BY topic_name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	var topics []*model.Topic
	for rows.Next() {
		var t model.Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.Description); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topics: %w", err)
	}
	return topics, nil
}

// AddCommand allows a command inside a topic. Returns false when it is
// already allowed.
func (r *TopicRepository) AddCommand(ctx context.Context, topicID, commandID int64) (bool, error) {
	const query = `
		INSERT INTO topic_commands (topic_id, command_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query, topicID, commandID)
	if err != nil {
		return false, fmt.Errorf("failed to add command to topic: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveCommand disallows a command inside a topic. Returns false when
// it was not allowed.
func (r *TopicRepository) RemoveCommand(ctx context.Context, topicID, commandID int64) (bool, error) {
	const query = `DELETE FROM topic_commands WHERE topic_id = $1 AND command_id = $2`

	tag, err := r.pool.Exec(ctx, query, topicID, commandID)
	if err != nil {
		return false, fmt.Errorf("failed to remove command from topic: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Allows reports whether the command is in the topic's allowed set.
func (r *TopicRepository) Allows(ctx context.Context, topicID, commandID int64) (bool, error) {
	const query = `
		SELECT EXISTS(
			SELECT 1 FROM topic_commands WHERE topic_id = $1 AND command_id = $2
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, topicID, commandID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check topic command: %w", err)
	}
	return exists, nil
}

// Commands retrieves the commands allowed in a topic, ordered by name.
func (r *TopicRepository) Commands(ctx context.Context, topicID int64) ([]*model.Command, error) {
	const query = `
		SELECT ` + commandColumns + `
		FROM commands c
		JOIN topic_commands tc ON tc.command_id = c.id
		WHERE tc.topic_id = $1
		ORDER BY c.command_name
	`

	rows, err := r.pool.Query(ctx, query, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list topic commands: %w", err)
	}
	defer rows.Close()

	return collectCommands(rows)
}
