package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/ports"
)

// PostgresTeamRepository implements TeamRepository using PostgreSQL
type PostgresTeamRepository struct {
	tx *TxManager
}

// NewPostgresTeamRepository creates a new PostgreSQL team repository
func NewPostgresTeamRepository(tx *TxManager) ports.TeamRepository {
	return &PostgresTeamRepository{tx: tx}
}

// Create saves a new team
func (r *PostgresTeamRepository) Create(ctx context.Context, team *domain.Team) error {
	query := `
		INSERT INTO teams (name, description, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	mut := &ports.Mutation{Kind: ports.MutationInsert, Entity: domain.EntityTeam, Instance: team}
	err := r.tx.Mutate(ctx, mut, func(ctx context.Context, q querier) error {
		return q.QueryRowContext(ctx, query,
			team.Name, team.Description, team.OwnerID, team.CreatedAt, team.UpdatedAt,
		).Scan(&team.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}

	return nil
}

// FindByID retrieves a team by its ID
func (r *PostgresTeamRepository) FindByID(ctx context.Context, id int64) (*domain.Team, error) {
	query := `SELECT id, name, description, owner_id, created_at, updated_at FROM teams WHERE id = $1`

	team, err := scanTeam(r.tx.conn(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}

	return team, nil
}

// Update updates an existing team
func (r *PostgresTeamRepository) Update(ctx context.Context, team *domain.Team) error {
	query := `UPDATE teams SET name = $2, description = $3, owner_id = $4, updated_at = $5 WHERE id = $1`

	mut := &ports.Mutation{
		Kind:     ports.MutationUpdate,
		Entity:   domain.EntityTeam,
		EntityID: team.ID,
		Instance: team,
		Load:     func(ctx context.Context) (interface{}, error) { return r.FindByID(ctx, team.ID) },
	}
	return r.tx.Mutate(ctx, mut, func(ctx context.Context, q querier) error {
		result, err := q.ExecContext(ctx, query, team.ID, team.Name, team.Description, team.OwnerID, team.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update team: %w", err)
		}
		return expectRow(result, domain.ErrTeamNotFound)
	})
}

// Delete removes a team together with its memberships. Each membership
// removal is its own tracked mutation inside the same transaction. Tasks
// still pointing at the team must be detached by the caller first.
func (r *PostgresTeamRepository) Delete(ctx context.Context, id int64) error {
	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		members, err := r.ListMembers(ctx, id)
		if err != nil {
			return err
		}
		for _, m := range members {
			if err := r.RemoveMember(ctx, id, m.ID); err != nil {
				return err
			}
		}

		mut := &ports.Mutation{
			Kind:     ports.MutationDelete,
			Entity:   domain.EntityTeam,
			EntityID: id,
			Load:     func(ctx context.Context) (interface{}, error) { return r.FindByID(ctx, id) },
		}
		return r.tx.Mutate(ctx, mut, func(ctx context.Context, q querier) error {
			result, err := q.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
			if err != nil {
				return fmt.Errorf("failed to delete team: %w", err)
			}
			return expectRow(result, domain.ErrTeamNotFound)
		})
	})
}

// ListForUser returns the teams a user owns or belongs to
func (r *PostgresTeamRepository) ListForUser(ctx context.Context, userID int64) ([]*domain.Team, error) {
	query := `
		SELECT DISTINCT t.id, t.name, t.description, t.owner_id, t.created_at, t.updated_at
		FROM teams t
		LEFT JOIN team_members m ON m.team_id = t.id
		WHERE t.owner_id = $1 OR m.user_id = $1
		ORDER BY t.name, t.id
	`

	rows, err := r.tx.conn(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	var teams []*domain.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teams: %w", err)
	}

	return teams, nil
}

// AddMember links a user to a team
func (r *PostgresTeamRepository) AddMember(ctx context.Context, member *domain.TeamMember) error {
	query := `
		INSERT INTO team_members (team_id, user_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	mut := &ports.Mutation{Kind: ports.MutationInsert, Entity: domain.EntityTeamMember, Instance: member}
	err := r.tx.Mutate(ctx, mut, func(ctx context.Context, q querier) error {
		return q.QueryRowContext(ctx, query, member.TeamID, member.UserID, member.CreatedAt).Scan(&member.ID)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyMember
		}
		return fmt.Errorf("failed to add member: %w", err)
	}

	return nil
}

// RemoveMember unlinks a user from a team
func (r *PostgresTeamRepository) RemoveMember(ctx context.Context, teamID, userID int64) error {
	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		member, err := r.findMember(ctx, teamID, userID)
		if err != nil {
			return err
		}

		mut := &ports.Mutation{
			Kind:     ports.MutationDelete,
			Entity:   domain.EntityTeamMember,
			EntityID: member.ID,
			Instance: member,
		}
		return r.tx.Mutate(ctx, mut, func(ctx context.Context, q querier) error {
			result, err := q.ExecContext(ctx, `DELETE FROM team_members WHERE id = $1`, member.ID)
			if err != nil {
				return fmt.Errorf("failed to remove member: %w", err)
			}
			return expectRow(result, domain.ErrNotMember)
		})
	})
}

// ListMembers returns the users linked to a team
func (r *PostgresTeamRepository) ListMembers(ctx context.Context, teamID int64) ([]*domain.User, error) {
	query := `
		SELECT u.id, u.name, u.email, u.password_hash, u.role, u.created_at, u.updated_at
		FROM users u
		JOIN team_members m ON m.user_id = u.id
		WHERE m.team_id = $1
		ORDER BY u.name, u.id
	`

	rows, err := r.tx.conn(ctx).QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return users, nil
}

func (r *PostgresTeamRepository) findMember(ctx context.Context, teamID, userID int64) (*domain.TeamMember, error) {
	query := `SELECT id, team_id, user_id, created_at FROM team_members WHERE team_id = $1 AND user_id = $2`

	var m domain.TeamMember
	err := r.tx.conn(ctx).QueryRowContext(ctx, query, teamID, userID).Scan(&m.ID, &m.TeamID, &m.UserID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotMember
		}
		return nil, fmt.Errorf("failed to find member: %w", err)
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}

func scanTeam(row rowScanner) (*domain.Team, error) {
	var team domain.Team
	if err := row.Scan(&team.ID, &team.Name, &team.Description, &team.OwnerID, &team.CreatedAt, &team.UpdatedAt); err != nil {
		return nil, err
	}
	team.CreatedAt = team.CreatedAt.UTC()
	team.UpdatedAt = team.UpdatedAt.UTC()
	return &team, nil
}
