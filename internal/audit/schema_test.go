package audit

import (
	"testing"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_RegisterDomainEntities(t *testing.T) {
	s := NewDomainSchema()

	assert.Equal(t, []string{"Comment", "Task", "Team", "TeamMember", "User"}, s.Names())

	task, ok := s.Lookup(domain.EntityTask)
	require.True(t, ok)
	assert.Equal(t, []string{
		"id", "title", "description", "status", "priority", "deadline",
		"userId", "assignedToId", "teamId", "createdAt", "updatedAt",
	}, task.Fields)

	user, ok := s.Lookup(domain.EntityUser)
	require.True(t, ok)
	assert.Contains(t, user.Fields, "password")
}

func TestSchema_IdentifierOf(t *testing.T) {
	s := NewDomainSchema()
	meta, _ := s.Lookup(domain.EntityTask)

	assert.Equal(t, int64(12), meta.IdentifierOf(&domain.Task{ID: 12}))
	assert.Equal(t, int64(0), meta.IdentifierOf(&domain.Task{}))
	assert.Equal(t, int64(0), meta.IdentifierOf(&domain.User{ID: 4}), "different type")
	assert.Equal(t, int64(0), meta.IdentifierOf(nil))
}

func TestSchema_RegisterRejectsInvalidModels(t *testing.T) {
	type noID struct{ Name string }
	type taggedID struct {
		Key  int64 `audit:"key,id"`
		Name string
	}

	tests := []struct {
		name    string
		entity  string
		model   interface{}
		wantErr error
	}{
		{"non struct", "Number", 42, ErrInvalidModel},
		{"nil", "Nil", nil, ErrInvalidModel},
		{"no identifier", "NoID", noID{}, ErrInvalidModel},
		{"empty name", "", domain.Task{}, ErrInvalidModel},
		{"audit record", "AuditRecord", &domain.AuditRecord{}, ErrSelfAudit},
		{"tagged identifier", "Tagged", taggedID{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSchema().Register(tt.entity, tt.model)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSchema_DuplicateAndMustRegister(t *testing.T) {
	s := NewSchema()
	s.MustRegister("Task", domain.Task{})

	assert.ErrorIs(t, s.Register("Task", domain.Task{}), ErrInvalidModel)
	assert.Panics(t, func() { s.MustRegister("Audit", domain.AuditRecord{}) })
}

func TestSchema_Verify(t *testing.T) {
	s := NewSchema()
	s.MustRegister(domain.EntityTask, domain.Task{})

	assert.NoError(t, s.Verify(domain.EntityTask))

	err := s.Verify(domain.EntityTask, domain.EntityUser, "Project")
	assert.ErrorIs(t, err, ErrUntracked)
	assert.Contains(t, err.Error(), "User")
	assert.Contains(t, err.Error(), "Project")
}
