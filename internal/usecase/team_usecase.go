package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/ports"
)

// CreateTeamRequest represents the request to create a team
type CreateTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateTeamRequest carries the fields to change; nil leaves a field as is
type UpdateTeamRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// TeamDetails is a team together with its members
type TeamDetails struct {
	*domain.Team
	Members []*domain.User `json:"members"`
}

// TeamUseCase handles teams and memberships
type TeamUseCase struct {
	teams ports.TeamRepository
	users ports.UserRepository
	tasks ports.TaskRepository
	tx    ports.Transactor
}

// NewTeamUseCase creates a new team use case
func NewTeamUseCase(teams ports.TeamRepository, users ports.UserRepository, tasks ports.TaskRepository, tx ports.Transactor) *TeamUseCase {
	return &TeamUseCase{teams: teams, users: users, tasks: tasks, tx: tx}
}

// CreateTeam creates a team owned by the caller, who must hold the owner role
func (uc *TeamUseCase) CreateTeam(ctx context.Context, caller ports.TokenClaims, req CreateTeamRequest) (*domain.Team, error) {
	if caller.Role != domain.RoleOwner {
		return nil, domain.ErrForbidden
	}

	team, err := domain.NewTeam(req.Name, req.Description, caller.UserID)
	if err != nil {
		return nil, err
	}

	if err := uc.teams.Create(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

// ListTeams returns the teams the caller owns or belongs to
func (uc *TeamUseCase) ListTeams(ctx context.Context, caller ports.TokenClaims) ([]*domain.Team, error) {
	teams, err := uc.teams.ListForUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// GetTeam returns a team and its members to its owner or a member
func (uc *TeamUseCase) GetTeam(ctx context.Context, caller ports.TokenClaims, id int64) (*TeamDetails, error) {
	team, err := uc.teams.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	members, err := uc.teams.ListMembers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	if team.OwnerID != caller.UserID && caller.Role != domain.RoleOwner && !containsUser(members, caller.UserID) {
		return nil, domain.ErrForbidden
	}

	return &TeamDetails{Team: team, Members: members}, nil
}

// UpdateTeam renames or redescribes a team. Team owner only.
func (uc *TeamUseCase) UpdateTeam(ctx context.Context, caller ports.TokenClaims, id int64, req UpdateTeamRequest) (*domain.Team, error) {
	team, err := uc.ownedTeam(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidTeamName
		}
		team.Name = name
	}
	if req.Description != nil {
		team.Description = *req.Description
	}
	team.UpdatedAt = time.Now().UTC()

	if err := uc.teams.Update(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

// DeleteTeam removes a team. Its tasks are detached first, each as a
// recorded task update, then memberships and the team go in the same
// transaction.
func (uc *TeamUseCase) DeleteTeam(ctx context.Context, caller ports.TokenClaims, id int64) error {
	if _, err := uc.ownedTeam(ctx, caller, id); err != nil {
		return err
	}

	return uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		tasks, err := uc.tasks.List(ctx, domain.TaskFilter{TeamID: &id})
		if err != nil {
			return fmt.Errorf("failed to list team tasks: %w", err)
		}
		for _, t := range tasks {
			t.TeamID = nil
			t.UpdatedAt = time.Now().UTC()
			if err := uc.tasks.Update(ctx, t); err != nil {
				return err
			}
		}
		return uc.teams.Delete(ctx, id)
	})
}

// AddMember links a user to a team. Team owner only.
func (uc *TeamUseCase) AddMember(ctx context.Context, caller ports.TokenClaims, teamID, userID int64) (*domain.TeamMember, error) {
	if _, err := uc.ownedTeam(ctx, caller, teamID); err != nil {
		return nil, err
	}
	if _, err := uc.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	member := &domain.TeamMember{TeamID: teamID, UserID: userID, CreatedAt: time.Now().UTC()}
	if err := uc.teams.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// RemoveMember unlinks a user from a team. Team owner only.
func (uc *TeamUseCase) RemoveMember(ctx context.Context, caller ports.TokenClaims, teamID, userID int64) error {
	if _, err := uc.ownedTeam(ctx, caller, teamID); err != nil {
		return err
	}
	return uc.teams.RemoveMember(ctx, teamID, userID)
}

func (uc *TeamUseCase) ownedTeam(ctx context.Context, caller ports.TokenClaims, id int64) (*domain.Team, error) {
	team, err := uc.teams.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if team.OwnerID != caller.UserID {
		return nil, domain.ErrForbidden
	}
	return team, nil
}

func containsUser(users []*domain.User, id int64) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}
