package usecase

import (
	"context"
	"fmt"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/ports"
)

// CreateCommentRequest represents the request to comment on a task
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// CommentUseCase handles comment-related business logic
type CommentUseCase struct {
	comments ports.CommentRepository
	tasks    ports.TaskRepository
}

// NewCommentUseCase creates a new comment use case
func NewCommentUseCase(comments ports.CommentRepository, tasks ports.TaskRepository) *CommentUseCase {
	return &CommentUseCase{comments: comments, tasks: tasks}
}

// CreateComment adds a comment to a task the caller can see
func (uc *CommentUseCase) CreateComment(ctx context.Context, caller ports.TokenClaims, taskID int64, req CreateCommentRequest) (*domain.Comment, error) {
	if err := uc.checkTask(ctx, caller, taskID); err != nil {
		return nil, err
	}

	comment, err := domain.NewComment(taskID, caller.UserID, req.Content)
	if err != nil {
		return nil, err
	}

	if err := uc.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments retrieves the comments of a task, oldest first
func (uc *CommentUseCase) ListComments(ctx context.Context, caller ports.TokenClaims, taskID int64) ([]*domain.Comment, error) {
	if err := uc.checkTask(ctx, caller, taskID); err != nil {
		return nil, err
	}

	comments, err := uc.comments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// DeleteComment removes a comment. Only its author may delete it.
func (uc *CommentUseCase) DeleteComment(ctx context.Context, caller ports.TokenClaims, id int64) error {
	comment, err := uc.comments.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if comment.UserID != caller.UserID {
		return domain.ErrForbidden
	}
	return uc.comments.Delete(ctx, id)
}

func (uc *CommentUseCase) checkTask(ctx context.Context, caller ports.TokenClaims, taskID int64) error {
	task, err := uc.tasks.FindByID(ctx, taskID)
	if err != nil {
		return err
	}
	if !canView(caller, task) {
		return domain.ErrForbidden
	}
	return nil
}
