package audit

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/fixora/tasktrail/internal/domain"
)

var (
	// ErrInvalidModel is returned when a model cannot be tracked
	ErrInvalidModel = errors.New("audit: invalid model")

	// ErrSelfAudit is returned when registering the audit record itself
	ErrSelfAudit = errors.New("audit: the audit record type cannot be tracked")

	// ErrUntracked is returned when an entity name has no registration
	ErrUntracked = errors.New("audit: entity type is not tracked")
)

var auditRecordType = reflect.TypeOf(domain.AuditRecord{})

// EntityMeta describes one tracked entity type
type EntityMeta struct {
	Name   string
	Type   reflect.Type
	Fields []string

	idIndex []int
}

// IdentifierOf returns the integer identifier of instance, or 0 when the
// instance has none yet
func (m *EntityMeta) IdentifierOf(instance interface{}) int64 {
	v, ok := structValue(instance)
	if !ok || v.Type() != m.Type {
		return 0
	}
	id, err := v.FieldByIndexErr(m.idIndex)
	if err != nil {
		return 0
	}
	n, _ := normalize(id).(int64)
	return n
}

// Schema is the registry of tracked entity types and their declared
// fields. Registration happens at wiring time; lookups are safe for
// concurrent use.
type Schema struct {
	mu       sync.RWMutex
	entities map[string]*EntityMeta
}

// NewSchema creates an empty registry
func NewSchema() *Schema {
	return &Schema{entities: make(map[string]*EntityMeta)}
}

// NewDomainSchema returns a registry tracking every domain entity
func NewDomainSchema() *Schema {
	s := NewSchema()
	s.MustRegister(domain.EntityTask, domain.Task{})
	s.MustRegister(domain.EntityUser, domain.User{})
	s.MustRegister(domain.EntityTeam, domain.Team{})
	s.MustRegister(domain.EntityTeamMember, domain.TeamMember{})
	s.MustRegister(domain.EntityComment, domain.Comment{})
	return s
}

// Register tracks model under name. model must be a struct (or pointer to
// one) with an integer identifier.
func (s *Schema) Register(name string, model interface{}) error {
	if name == "" {
		return fmt.Errorf("%w: empty entity name", ErrInvalidModel)
	}
	t := reflect.TypeOf(model)
	if t == nil {
		return fmt.Errorf("%w: %s is nil", ErrInvalidModel, name)
	}
	t = indirect(t)
	if t == auditRecordType {
		return ErrSelfAudit
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %s is a %s, not a struct", ErrInvalidModel, name, t.Kind())
	}

	idIndex := identityIndex(t)
	if idIndex == nil {
		return fmt.Errorf("%w: %s has no integer identifier", ErrInvalidModel, name)
	}

	tf := fieldsOf(t)
	fields := make([]string, 0, len(tf.ordered))
	for _, f := range tf.ordered {
		fields = append(fields, f.name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entities[name]; exists {
		return fmt.Errorf("%w: %s registered twice", ErrInvalidModel, name)
	}
	s.entities[name] = &EntityMeta{Name: name, Type: t, Fields: fields, idIndex: idIndex}
	return nil
}

// MustRegister is Register that panics on error
func (s *Schema) MustRegister(name string, model interface{}) {
	if err := s.Register(name, model); err != nil {
		panic(err)
	}
}

// Lookup returns the metadata of a tracked entity
func (s *Schema) Lookup(name string) (*EntityMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.entities[name]
	return m, ok
}

// Names lists the tracked entity names in sorted order
func (s *Schema) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.entities))
	for name := range s.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Verify fails when any of names is not tracked
func (s *Schema) Verify(names ...string) error {
	var missing []error
	for _, name := range names {
		if _, ok := s.Lookup(name); !ok {
			missing = append(missing, fmt.Errorf("%w: %s", ErrUntracked, name))
		}
	}
	return errors.Join(missing...)
}
