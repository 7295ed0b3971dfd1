package service

import (
	"context"
	"errors"
	"fmt"

	"telegram-moderator-bot/internal/model"
	"telegram-moderator-bot/internal/repository"
)

// TopicService handles forum topic registration and per-topic command
// allow lists.
type TopicService struct {
	topicRepo   *repository.TopicRepository
	commandRepo *repository.CommandRepository
}

// NewTopicService creates a new TopicService instance.
func NewTopicService(
	topicRepo *repository.TopicRepository,
	commandRepo *repository.CommandRepository,
) *TopicService {
	return &TopicService{
		topicRepo:   topicRepo,
		commandRepo: commandRepo,
	}
}

// CreateTopic registers a topic under its forum name.
func (s *TopicService) CreateTopic(ctx context.Context, name string, description *string) (*model.Topic, error) {
	return s.topicRepo.Create(ctx, name, description)
}

// EditTopic replaces a topic's description.
func (s *TopicService) EditTopic(ctx context.Context, name, description string) error {
	topic, err := s.topicRepo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return s.topicRepo.UpdateDescription(ctx, topic.ID, description)
}

// DeleteTopic unregisters a topic. Its allow list cascades.
func (s *TopicService) DeleteTopic(ctx context.Context, name string) error {
	topic, err := s.topicRepo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return s.topicRepo.Delete(ctx, topic.ID)
}

// ListTopics retrieves all registered topics.
func (s *TopicService) ListTopics(ctx context.Context) ([]*model.Topic, error) {
	return s.topicRepo.List(ctx)
}

// Commands retrieves the commands allowed in the named topic.
func (s *TopicService) Commands(ctx context.Context, topicName string) ([]*model.Command, error) {
	topic, err := s.topicRepo.GetByName(ctx, topicName)
	if err != nil {
		return nil, err
	}
	return s.topicRepo.Commands(ctx, topic.ID)
}

// AllowCommands adds the named commands to a topic's allow list.
func (s *TopicService) AllowCommands(ctx context.Context, topicName string, commandNames []string) (*BatchResult, error) {
	topic, err := s.topicRepo.GetByName(ctx, topicName)
	if err != nil {
		return nil, err
	}
	return s.changeAllowList(ctx, commandNames, func(commandID int64) (bool, error) {
		return s.topicRepo.AddCommand(ctx, topic.ID, commandID)
	}, true)
}

// DisallowCommands removes the named commands from a topic's allow
// list.
func (s *TopicService) DisallowCommands(ctx context.Context, topicName string, commandNames []string) (*BatchResult, error) {
	topic, err := s.topicRepo.GetByName(ctx, topicName)
	if err != nil {
		return nil, err
	}
	return s.changeAllowList(ctx, commandNames, func(commandID int64) (bool, error) {
		return s.topicRepo.RemoveCommand(ctx, topic.ID, commandID)
	}, false)
}

func (s *TopicService) changeAllowList(ctx context.Context, commandNames []string, change func(int64) (bool, error), adding bool) (*BatchResult, error) {
	result := &BatchResult{}
	for _, name := range commandNames {
		command, err := s.commandRepo.GetByName(ctx, name)
		if errors.Is(err, repository.ErrCommandNotFound) {
			result.NotFound = append(result.NotFound, name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve command %s: %w", name, err)
		}

		changed, err := change(command.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to change allow list for %s: %w", name, err)
		}
		switch {
		case changed && adding:
			result.Added = append(result.Added, name)
		case changed:
			result.Removed = append(result.Removed, name)
		case adding:
			result.Already = append(result.Already, name)
		default:
			result.NotFound = append(result.NotFound, name)
		}
	}
	return result, nil
}
