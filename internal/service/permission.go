package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"telegram-moderator-bot/internal/model"
	"telegram-moderator-bot/internal/repository"
)

// PermissionService decides whether a member may run a command, and
// writes one audit record per decision.
type PermissionService struct {
	commandRepo *repository.CommandRepository
	roleRepo    *repository.RoleRepository
	topicRepo   *repository.TopicRepository
	historyRepo *repository.HistoryRepository
}

// NewPermissionService creates a new PermissionService instance.
func NewPermissionService(
	commandRepo *repository.CommandRepository,
	roleRepo *repository.RoleRepository,
	topicRepo *repository.TopicRepository,
	historyRepo *repository.HistoryRepository,
) *PermissionService {
	return &PermissionService{
		commandRepo: commandRepo,
		roleRepo:    roleRepo,
		topicRepo:   topicRepo,
		historyRepo: historyRepo,
	}
}

// Authorize evaluates whether a member may run a command, writing
// exactly one command_history entry for the attempt regardless of the
// outcome. topicName is empty outside forum topics.
//
// The checks run in order: command registration, topic gate, then the
// role-command association. Any unresolvable step denies.
func (s *PermissionService) Authorize(ctx context.Context, member *model.Member, commandName, topicName, rawText string) (bool, error) {
	s.appendHistory(ctx, member, rawText)

	allowed, err := s.evaluate(ctx, member, commandName, topicName)
	if err != nil {
		return false, err
	}
	return allowed, nil
}

func (s *PermissionService) evaluate(ctx context.Context, member *model.Member, commandName, topicName string) (bool, error) {
	command, err := s.commandRepo.GetByName(ctx, commandName)
	if errors.Is(err, repository.ErrCommandNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to resolve command: %w", err)
	}

	if topicName != "" {
		topic, err := s.topicRepo.GetByName(ctx, topicName)
		if errors.Is(err, repository.ErrTopicNotFound) {
			// An unregistered topic allows nothing.
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to resolve topic: %w", err)
		}

		allowed, err := s.topicRepo.Allows(ctx, topic.ID, command.ID)
		if err != nil {
			return false, fmt.Errorf("failed to check topic gate: %w", err)
		}
		if !allowed {
			return false, nil
		}
	}

	if member.RoleID == nil {
		return false, nil
	}

	granted, err := s.roleRepo.HasCommand(ctx, *member.RoleID, command.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check role grant: %w", err)
	}
	return granted, nil
}

// appendHistory records the attempt. Auditing is mandatory but must not
// turn into a denial: a failed write is logged and evaluation proceeds.
func (s *PermissionService) appendHistory(ctx context.Context, member *model.Member, rawText string) {
	err := s.historyRepo.Append(ctx, member.ID, member.TelegramID, member.Username, rawText)
	if err != nil {
		log.Error().Err(err).
			Str("username", member.Username).
			Str("text", rawText).
			Msg("failed to append command history")
	}
}
