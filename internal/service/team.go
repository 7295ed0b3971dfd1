package service

import (
	"context"
	"errors"
	"fmt"

	"telegram-moderator-bot/internal/model"
	"telegram-moderator-bot/internal/repository"
)

// BatchResult classifies each username of a batch membership operation
// independently; one bad name never aborts the rest.
type BatchResult struct {
	Added    []string
	Already  []string
	Removed  []string
	NotFound []string
	Skipped  []string // targets the actor lacks the authority to touch
}

// TeamService handles team lifecycle and membership.
type TeamService struct {
	teamRepo   *repository.TeamRepository
	memberRepo *repository.MemberRepository
	provision  *ProvisionService
}

// NewTeamService creates a new TeamService instance.
func NewTeamService(
	teamRepo *repository.TeamRepository,
	memberRepo *repository.MemberRepository,
	provision *ProvisionService,
) *TeamService {
	return &TeamService{
		teamRepo:   teamRepo,
		memberRepo: memberRepo,
		provision:  provision,
	}
}

// CreateTeam creates a team with the given unique name.
func (s *TeamService) CreateTeam(ctx context.Context, name string) (*model.Team, error) {
	return s.teamRepo.Create(ctx, name)
}

// DeleteTeam removes a team by name. Memberships cascade; members
// themselves are untouched.
func (s *TeamService) DeleteTeam(ctx context.Context, name string) error {
	team, err := s.teamRepo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return s.teamRepo.Delete(ctx, team.ID)
}

// ListTeams retrieves all teams.
func (s *TeamService) ListTeams(ctx context.Context) ([]*model.Team, error) {
	return s.teamRepo.List(ctx)
}

// Members retrieves a team's members by team name.
func (s *TeamService) Members(ctx context.Context, teamName string) ([]*model.Member, error) {
	team, err := s.teamRepo.GetByName(ctx, teamName)
	if err != nil {
		return nil, err
	}
	return s.teamRepo.Members(ctx, team.ID)
}

// AddMembers adds the named users to a team, provisioning members that
// do not exist yet. Each username lands in exactly one result bucket.
func (s *TeamService) AddMembers(ctx context.Context, teamName string, usernames []string) (*BatchResult, error) {
	team, err := s.teamRepo.GetByName(ctx, teamName)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{}
	for _, username := range usernames {
		member, err := s.provision.EnsureMemberByName(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("failed to provision %s: %w", username, err)
		}

		added, err := s.teamRepo.AddMember(ctx, team.ID, member.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", username, err)
		}
		if added {
			result.Added = append(result.Added, username)
		} else {
			result.Already = append(result.Already, username)
		}
	}
	return result, nil
}

// RemoveMembers removes the named users from a team. Unknown usernames
// and non-members are reported, not treated as failures.
func (s *TeamService) RemoveMembers(ctx context.Context, teamName string, usernames []string) (*BatchResult, error) {
	team, err := s.teamRepo.GetByName(ctx, teamName)
	if err != nil {
		return nil, err
	}

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

		removed, err := s.teamRepo.RemoveMember(ctx, team.ID, member.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to remove %s: %w", username, err)
		}
		if removed {
			result.Removed = append(result.Removed, username)
		} else {
			result.NotFound = append(result.NotFound, username)
		}
	}
	return result, nil
}
