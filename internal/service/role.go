package service

import (
	"context"
	"errors"
	"fmt"

	"telegram-moderator-bot/internal/authority"
	"telegram-moderator-bot/internal/model"
	"telegram-moderator-bot/internal/repository"
)

// Common errors for role operations.
var (
	ErrNotAuthorized = errors.New("actor's role level is too low")
)

// RoleService handles role lifecycle, role-command grants and
// authority-gated role changes on members.
type RoleService struct {
	roleRepo    *repository.RoleRepository
	memberRepo  *repository.MemberRepository
	commandRepo *repository.CommandRepository
}

// NewRoleService creates a new RoleService instance.
func NewRoleService(
	roleRepo *repository.RoleRepository,
	memberRepo *repository.MemberRepository,
	commandRepo *repository.CommandRepository,
) *RoleService {
	return &RoleService{
		roleRepo:    roleRepo,
		memberRepo:  memberRepo,
		commandRepo: commandRepo,
	}
}

// CreateRole creates a role with the given name and level.
func (s *RoleService) CreateRole(ctx context.Context, name string, level int) (*model.Role, error) {
	return s.roleRepo.Create(ctx, name, level)
}

// RenameRole changes a role's name.
func (s *RoleService) RenameRole(ctx context.Context, name, newName string) error {
	role, err := s.roleRepo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return s.roleRepo.Rename(ctx, role.ID, newName)
}

// SetRoleLevel changes a role's authority level.
func (s *RoleService) SetRoleLevel(ctx context.Context, name string, level int) error {
	role, err := s.roleRepo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return s.roleRepo.SetLevel(ctx, role.ID, level)
}

// DeleteRole removes a role. Command grants cascade; members holding
// the role keep a dangling role_id and surface as ErrMemberRoleMissing
// on their next contact.
func (s *RoleService) DeleteRole(ctx context.Context, name string) error {
	role, err := s.roleRepo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return s.roleRepo.Delete(ctx, role.ID)
}

// ListRoles retrieves all roles ordered by descending level.
func (s *RoleService) ListRoles(ctx context.Context) ([]*model.Role, error) {
	return s.roleRepo.List(ctx)
}

// GrantCommands adds the named commands to a role's grant set. Unknown
// command names land in the NotFound bucket.
func (s *RoleService) GrantCommands(ctx context.Context, roleName string, commandNames []string) (*BatchResult, error) {
	role, err := s.roleRepo.GetByName(ctx, roleName)
	if err != nil {
		return nil, err
	}
	return s.changeGrants(ctx, commandNames, func(commandID int64) (bool, error) {
		return s.roleRepo.AddCommand(ctx, role.ID, commandID)
	}, true)
}

// RevokeCommands removes the named commands from a role's grant set.
func (s *RoleService) RevokeCommands(ctx context.Context, roleName string, commandNames []string) (*BatchResult, error) {
	role, err := s.roleRepo.GetByName(ctx, roleName)
	if err != nil {
		return nil, err
	}
	return s.changeGrants(ctx, commandNames, func(commandID int64) (bool, error) {
		return s.roleRepo.RemoveCommand(ctx, role.ID, commandID)
	}, false)
}

func (s *RoleService) changeGrants(ctx context.Context, commandNames []string, change func(int64) (bool, error), adding bool) (*BatchResult, error) {
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
			return nil, fmt.Errorf("failed to change grant for %s: %w", name, err)
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

// AssignRole puts the named members on a role, provided the actor's
// level covers the role being assigned.
func (s *RoleService) AssignRole(ctx context.Context, actor *model.Member, roleName string, usernames []string) (*BatchResult, error) {
	role, err := s.roleRepo.GetByName(ctx, roleName)
	if err != nil {
		return nil, err
	}
	if !authority.CanAssign(actor.Role, role) {
		return nil, ErrNotAuthorized
	}
	return s.reassign(ctx, role.ID, usernames, nil)
}

// BanMembers moves the named members to the banned role, skipping any
// target whose current role outranks the actor.
func (s *RoleService) BanMembers(ctx context.Context, actor *model.Member, usernames []string) (*BatchResult, error) {
	banned, err := s.roleRepo.GetOrCreate(ctx, model.RoleBanned, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure banned role: %w", err)
	}
	return s.reassign(ctx, banned.ID, usernames, actor)
}

// reassign moves each named member to roleID. When actor is non-nil,
// targets outranking the actor land in the Skipped bucket.
func (s *RoleService) reassign(ctx context.Context, roleID int64, usernames []string, actor *model.Member) (*BatchResult, error) {
	result := &BatchResult{}
	for _, username := range usernames {
		member, err := s.memberRepo.GetByUsername(ctx, username)
		if errors.Is(err, repository.ErrMemberNotFound) {
			result.NotFound = append(result.NotFound, username)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s: %w", username, err)
		}

		if actor != nil && !authority.CanActOn(actor.Role, member.Role) {
			result.Skipped = append(result.Skipped, username)
			continue
		}

		if err := s.memberRepo.SetRole(ctx, member.ID, roleID); err != nil {
			return nil, fmt.Errorf("failed to set role for %s: %w", username, err)
		}
		result.Added = append(result.Added, username)
	}
	return result, nil
}
