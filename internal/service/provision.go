// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"telegram-moderator-bot/internal/model"
	"telegram-moderator-bot/internal/repository"
)

// Common errors for provisioning operations.
var (
	ErrMemberRoleMissing = errors.New("member has no role assigned")
)

// ProvisionService resolves incoming senders to members, creating
// missing members with the default role.
type ProvisionService struct {
	memberRepo *repository.MemberRepository
	roleRepo   *repository.RoleRepository
}

// NewProvisionService creates a new ProvisionService instance.
func NewProvisionService(
	memberRepo *repository.MemberRepository,
	roleRepo *repository.RoleRepository,
) *ProvisionService {
	return &ProvisionService{
		memberRepo: memberRepo,
		roleRepo:   roleRepo,
	}
}

// EnsureMember ensures a member exists for the given username, creating
// one with the default role if necessary, and backfills a missing
// telegram id. Repeated calls for the same username converge on the
// same row: creation rides the username uniqueness constraint, so a
// concurrent insert is treated as success and re-fetched.
func (s *ProvisionService) EnsureMember(ctx context.Context, username string, telegramID int64) (*model.Member, error) {
	member, err := s.memberRepo.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrMemberNotFound) {
		member, err = s.createWithDefaultRole(ctx, username)
	}
	if err != nil {
		return nil, err
	}

	if member.RoleID == nil {
		return nil, ErrMemberRoleMissing
	}

	if member.TelegramID == nil && telegramID != 0 {
		if err := s.memberRepo.SetTelegramID(ctx, member.ID, telegramID); err != nil {
			// Backfill is best-effort; the member is still usable.
			log.Warn().Err(err).Str("username", username).Msg("failed to backfill telegram id")
		} else {
			member.TelegramID = &telegramID
		}
	}

	return member, nil
}

// EnsureMemberByName provisions a member referenced by username only,
// e.g. a /add_member target who has never messaged the bot.
func (s *ProvisionService) EnsureMemberByName(ctx context.Context, username string) (*model.Member, error) {
	return s.EnsureMember(ctx, username, 0)
}

func (s *ProvisionService) createWithDefaultRole(ctx context.Context, username string) (*model.Member, error) {
	role, err := s.roleRepo.GetOrCreate(ctx, model.RoleDefaultUser, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure default role: %w", err)
	}

	member, err := s.memberRepo.Create(ctx, username, nil, role.ID)
	if errors.Is(err, repository.ErrAlreadyExists) {
		// Lost a creation race; the row exists now.
		return s.memberRepo.GetByUsername(ctx, username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	member.Role = role
	return member, nil
}
