package usecase

import (
	"context"
	"testing"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentUseCase(t *testing.T) {
	tasks := newMockTaskRepository(&domain.Task{Title: "Discuss", UserID: memberCaller.UserID, Status: domain.TaskStatusPending})
	comments := newMockCommentRepository()
	uc := NewCommentUseCase(comments, tasks)
	ctx := context.Background()

	c, err := uc.CreateComment(ctx, memberCaller, 1, CreateCommentRequest{Content: "first"})
	require.NoError(t, err)
	assert.Equal(t, memberCaller.UserID, c.UserID)

	_, err = uc.CreateComment(ctx, ownerCaller, 1, CreateCommentRequest{Content: "second"})
	require.NoError(t, err)

	_, err = uc.CreateComment(ctx, otherCaller, 1, CreateCommentRequest{Content: "sneaky"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = uc.CreateComment(ctx, memberCaller, 1, CreateCommentRequest{Content: "   "})
	assert.ErrorIs(t, err, domain.ErrEmptyComment)

	_, err = uc.CreateComment(ctx, memberCaller, 7, CreateCommentRequest{Content: "lost"})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)

	list, err := uc.ListComments(ctx, memberCaller, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Content)

	_, err = uc.ListComments(ctx, otherCaller, 1)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Even an owner cannot delete someone else's comment
	assert.ErrorIs(t, uc.DeleteComment(ctx, ownerCaller, c.ID), domain.ErrForbidden)
	require.NoError(t, uc.DeleteComment(ctx, memberCaller, c.ID))
	assert.ErrorIs(t, uc.DeleteComment(ctx, memberCaller, c.ID), domain.ErrCommentNotFound)
}
