package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/ports"
	"github.com/lib/pq"
)

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

// uniqueViolation is the Postgres error code for unique constraint failures
const uniqueViolation = "23505"

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	tx *TxManager
}

// NewPostgresUserRepository creates a new PostgreSQL user repository
func NewPostgresUserRepository(tx *TxManager) ports.UserRepository {
	return &PostgresUserRepository{tx: tx}
}

// Create saves a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	mut := &ports.Mutation{Kind: ports.MutationInsert, Entity: domain.EntityUser, Instance: user}
	err := r.tx.Mutate(ctx, mut, func(ctx context.Context, q querier) error {
		return q.QueryRowContext(ctx, query,
			user.Name,
			user.Email,
			user.PasswordHash,
			string(user.Role),
			user.CreatedAt,
			user.UpdatedAt,
		).Scan(&user.ID)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// FindByID retrieves a user by its ID
func (r *PostgresUserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByEmail retrieves a user by email address
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
}

func (r *PostgresUserRepository) findOne(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	user, err := scanUser(r.tx.conn(ctx).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// Update updates an existing user
func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, role = $5, updated_at = $6
		WHERE id = $1
	`

	mut := &ports.Mutation{
		Kind:     ports.MutationUpdate,
		Entity:   domain.EntityUser,
		EntityID: user.ID,
		Instance: user,
		Load:     func(ctx context.Context) (interface{}, error) { return r.FindByID(ctx, user.ID) },
	}
	err := r.tx.Mutate(ctx, mut, func(ctx context.Context, q querier) error {
		result, err := q.ExecContext(ctx, query,
			user.ID,
			user.Name,
			user.Email,
			user.PasswordHash,
			string(user.Role),
			user.UpdatedAt,
		)
		if err != nil {
			return err
		}
		return expectRow(result, domain.ErrUserNotFound)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// List retrieves users ordered by name
func (r *PostgresUserRepository) List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []interface{}
	argIndex := 1

	if filter.Role != nil {
		query += fmt.Sprintf(" WHERE role = $%d", argIndex)
		args = append(args, string(*filter.Role))
		argIndex++
	}

	query += " ORDER BY name, id"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
	}

	rows, err := r.tx.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Delete removes a user
func (r *PostgresUserRepository) Delete(ctx context.Context, id int64) error {
	mut := &ports.Mutation{
		Kind:     ports.MutationDelete,
		Entity:   domain.EntityUser,
		EntityID: id,
		Load:     func(ctx context.Context) (interface{}, error) { return r.FindByID(ctx, id) },
	}
	return r.tx.Mutate(ctx, mut, func(ctx context.Context, q querier) error {
		result, err := q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return expectRow(result, domain.ErrUserNotFound)
	})
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
