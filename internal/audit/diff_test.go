package audit

import (
	"testing"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	ignored := NewFieldSet(DefaultIgnoredFields...)

	tests := []struct {
		name   string
		before domain.Snapshot
		after  domain.Snapshot
		want   domain.Changes
	}{
		{
			name:   "no changes",
			before: domain.Snapshot{"title": "A", "status": "pendiente"},
			after:  domain.Snapshot{"title": "A", "status": "pendiente"},
			want:   domain.Changes{},
		},
		{
			name:   "single field",
			before: domain.Snapshot{"title": "A", "status": "pendiente"},
			after:  domain.Snapshot{"title": "A", "status": "completada"},
			want:   domain.Changes{"status": {Before: "pendiente", After: "completada"}},
		},
		{
			name:   "ignored fields never reported",
			before: domain.Snapshot{"updatedAt": "t1", "password": "h1", "createdAt": "c1"},
			after:  domain.Snapshot{"updatedAt": "t2", "password": "h2", "createdAt": "c2"},
			want:   domain.Changes{},
		},
		{
			name:   "nil to value",
			before: domain.Snapshot{"assignedToId": nil},
			after:  domain.Snapshot{"assignedToId": int64(4)},
			want:   domain.Changes{"assignedToId": {Before: nil, After: int64(4)}},
		},
		{
			name:   "structurally equal composites",
			before: domain.Snapshot{"label": map[string]interface{}{"a": []interface{}{1.0, "x"}}},
			after:  domain.Snapshot{"label": map[string]interface{}{"a": []interface{}{1.0, "x"}}},
			want:   domain.Changes{},
		},
		{
			name:   "composite changed",
			before: domain.Snapshot{"tags": []interface{}{"a"}},
			after:  domain.Snapshot{"tags": []interface{}{"a", "b"}},
			want:   domain.Changes{"tags": {Before: []interface{}{"a"}, After: []interface{}{"a", "b"}}},
		},
		{
			name:   "field only on one side",
			before: domain.Snapshot{"old": "x"},
			after:  domain.Snapshot{"new": "y"},
			want: domain.Changes{
				"old": {Before: "x", After: nil},
				"new": {Before: nil, After: "y"},
			},
		},
		{
			name:   "absent before",
			before: nil,
			after:  domain.Snapshot{"title": "A", "createdAt": "c"},
			want:   domain.Changes{"title": {Before: nil, After: "A"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diff(tt.before, tt.after, ignored))
		})
	}
}

func TestRedact(t *testing.T) {
	ignored := NewFieldSet("password", " updatedAt ", "")
	s := domain.Snapshot{"email": "a@b.c", "password": "hash", "updatedAt": "t"}

	out := Redact(s, ignored)

	assert.Equal(t, domain.Snapshot{"email": "a@b.c"}, out)
	assert.Contains(t, s, "password", "input is not modified")
	assert.Nil(t, Redact(nil, ignored))
}
