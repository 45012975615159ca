package domain

import (
	"strings"
	"time"
)

// Comment is a note left by a user on a task
type Comment struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"taskId"`
	UserID    int64     `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewComment validates and builds a comment
func NewComment(taskID, userID int64, content string) (*Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyComment
	}
	return &Comment{
		TaskID:    taskID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}, nil
}
