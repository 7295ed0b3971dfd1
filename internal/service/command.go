package service

import (
	"context"

	"telegram-moderator-bot/internal/model"
	"telegram-moderator-bot/internal/repository"
)

// CommandService handles the command catalogue and its presentation
// metadata.
type CommandService struct {
	commandRepo *repository.CommandRepository
	roleRepo    *repository.RoleRepository
}

// NewCommandService creates a new CommandService instance.
func NewCommandService(
	commandRepo *repository.CommandRepository,
	roleRepo *repository.RoleRepository,
) *CommandService {
	return &CommandService{
		commandRepo: commandRepo,
		roleRepo:    roleRepo,
	}
}

// EditCommand updates one mutable presentation column of a command.
// Only the columns in repository.EditableCommandColumns are accepted;
// anything else returns repository.ErrInvalidColumn.
func (s *CommandService) EditCommand(ctx context.Context, commandName, column, value string) error {
	command, err := s.commandRepo.GetByName(ctx, commandName)
	if err != nil {
		return err
	}
	return s.commandRepo.UpdateColumn(ctx, command.ID, column, value)
}

// HelpForRole retrieves the non-admin commands granted to a role, for
// the /help listing.
func (s *CommandService) HelpForRole(ctx context.Context, roleID int64) ([]*model.Command, error) {
	return s.commandRepo.ListForRole(ctx, roleID)
}

// AdminCommands retrieves every admin command, for /help_admin.
func (s *CommandService) AdminCommands(ctx context.Context) ([]*model.Command, error) {
	return s.commandRepo.ListByAdmin(ctx, true)
}

// Roles retrieves all roles for the /help_admin level listing.
func (s *CommandService) Roles(ctx context.Context) ([]*model.Role, error) {
	return s.roleRepo.List(ctx)
}
