package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/ports"
)

const taskColumns = `id, title, description, status, priority, deadline, user_id, assigned_to_id, team_id, created_at, updated_at`

// PostgresTaskRepository implements TaskRepository using PostgreSQL
type PostgresTaskRepository struct {
	tx *TxManager
}

// NewPostgresTaskRepository creates a new PostgreSQL task repository
func NewPostgresTaskRepository(tx *TxManager) ports.TaskRepository {
	return &PostgresTaskRepository{tx: tx}
}

// Create saves a new task
func (r *PostgresTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO tasks (title, description, status, priority, deadline, user_id, assigned_to_id, team_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	mut := &ports.Mutation{Kind: ports.MutationInsert, Entity: domain.EntityTask, Instance: task}
	err := r.tx.Mutate(ctx, mut, func(ctx context.Context, q querier) error {
		return q.QueryRowContext(ctx, query,
			task.Title,
			task.Description,
			string(task.Status),
			string(task.Priority),
			task.Deadline,
			task.UserID,
			task.AssignedToID,
			task.TeamID,
			task.CreatedAt,
			task.UpdatedAt,
		).Scan(&task.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// FindByID retrieves a task by its ID
func (r *PostgresTaskRepository) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.tx.conn(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// Update updates an existing task
func (r *PostgresTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5, deadline = $6,
			assigned_to_id = $7, team_id = $8, updated_at = $9
		WHERE id = $1
	`

	mut := &ports.Mutation{
		Kind:     ports.MutationUpdate,
		Entity:   domain.EntityTask,
		EntityID: task.ID,
		Instance: task,
		Load:     func(ctx context.Context) (interface{}, error) { return r.FindByID(ctx, task.ID) },
	}
	err := r.tx.Mutate(ctx, mut, func(ctx context.Context, q querier) error {
		result, err := q.ExecContext(ctx, query,
			task.ID,
			task.Title,
			task.Description,
			string(task.Status),
			string(task.Priority),
			task.Deadline,
			task.AssignedToID,
			task.TeamID,
			task.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return expectRow(result, domain.ErrTaskNotFound)
	})

	return err
}

// List retrieves tasks based on filter criteria
func (r *PostgresTaskRepository) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	where, args := r.buildWhereClause(filter)
	query := `SELECT ` + taskColumns + ` FROM tasks` + where + ` ORDER BY created_at DESC, id DESC`

	argIndex := len(args) + 1
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
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// Delete removes a task
func (r *PostgresTaskRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM tasks WHERE id = $1`

	mut := &ports.Mutation{
		Kind:     ports.MutationDelete,
		Entity:   domain.EntityTask,
		EntityID: id,
		Load:     func(ctx context.Context) (interface{}, error) { return r.FindByID(ctx, id) },
	}
	return r.tx.Mutate(ctx, mut, func(ctx context.Context, q querier) error {
		result, err := q.ExecContext(ctx, query, id)
		if err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return expectRow(result, domain.ErrTaskNotFound)
	})
}

// Count returns the number of tasks matching the filter
func (r *PostgresTaskRepository) Count(ctx context.Context, filter domain.TaskFilter) (int, error) {
	where, args := r.buildWhereClause(filter)

	var count int
	err := r.tx.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return count, nil
}

// buildWhereClause builds the WHERE clause shared by List and Count
func (r *PostgresTaskRepository) buildWhereClause(filter domain.TaskFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, string(*filter.Status))
		argIndex++
	}

	if filter.Priority != nil {
		conditions = append(conditions, fmt.Sprintf("priority = $%d", argIndex))
		args = append(args, string(*filter.Priority))
		argIndex++
	}

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}

	if filter.AssignedTo != nil {
		conditions = append(conditions, fmt.Sprintf("assigned_to_id = $%d", argIndex))
		args = append(args, *filter.AssignedTo)
		argIndex++
	}

	if filter.TeamID != nil {
		conditions = append(conditions, fmt.Sprintf("team_id = $%d", argIndex))
		args = append(args, *filter.TeamID)
		argIndex++
	}

	if filter.VisibleTo != nil {
		conditions = append(conditions, fmt.Sprintf("(user_id = $%d OR assigned_to_id = $%d)", argIndex, argIndex))
		args = append(args, *filter.VisibleTo)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var deadline sql.NullTime
	var assignedTo, teamID sql.NullInt64

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&deadline,
		&task.UserID,
		&assignedTo,
		&teamID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if deadline.Valid {
		d := deadline.Time.UTC()
		task.Deadline = &d
	}
	task.AssignedToID = nullInt64Ptr(assignedTo)
	task.TeamID = nullInt64Ptr(teamID)
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()

	return &task, nil
}

// Helper method to map SQL null types
func nullInt64Ptr(n sql.NullInt64) *int64 {
	if n.Valid {
		return &n.Int64
	}
	return nil
}

// expectRow turns a statement that touched no row into notFound
func expectRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return notFound
	}

	return nil
}
