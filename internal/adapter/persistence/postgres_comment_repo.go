package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/ports"
)

// PostgresCommentRepository implements CommentRepository using PostgreSQL
type PostgresCommentRepository struct {
	tx *TxManager
}

// NewPostgresCommentRepository creates a new PostgreSQL comment repository
func NewPostgresCommentRepository(tx *TxManager) ports.CommentRepository {
	return &PostgresCommentRepository{tx: tx}
}

// Create saves a new comment
func (r *PostgresCommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	query := `
		INSERT INTO comments (task_id, user_id, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	mut := &ports.Mutation{Kind: ports.MutationInsert, Entity: domain.EntityComment, Instance: comment}
	err := r.tx.Mutate(ctx, mut, func(ctx context.Context, q querier) error {
		return q.QueryRowContext(ctx, query,
			comment.TaskID,
			comment.UserID,
			comment.Content,
			comment.CreatedAt,
		).Scan(&comment.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	return nil
}

// FindByID retrieves a comment by its ID
func (r *PostgresCommentRepository) FindByID(ctx context.Context, id int64) (*domain.Comment, error) {
	query := `SELECT id, task_id, user_id, content, created_at FROM comments WHERE id = $1`

	comment, err := scanComment(r.tx.conn(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}

	return comment, nil
}

// ListByTask retrieves all comments for a task, oldest first
func (r *PostgresCommentRepository) ListByTask(ctx context.Context, taskID int64) ([]*domain.Comment, error) {
	query := `
		SELECT id, task_id, user_id, content, created_at
		FROM comments
		WHERE task_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.tx.conn(ctx).QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}

	return comments, nil
}

// Delete removes a comment
func (r *PostgresCommentRepository) Delete(ctx context.Context, id int64) error {
	mut := &ports.Mutation{
		Kind:     ports.MutationDelete,
		Entity:   domain.EntityComment,
		EntityID: id,
		Load:     func(ctx context.Context) (interface{}, error) { return r.FindByID(ctx, id) },
	}
	return r.tx.Mutate(ctx, mut, func(ctx context.Context, q querier) error {
		result, err := q.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete comment: %w", err)
		}
		return expectRow(result, domain.ErrCommentNotFound)
	})
}

func scanComment(row rowScanner) (*domain.Comment, error) {
	var c domain.Comment
	if err := row.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Content, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}
