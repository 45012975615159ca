package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/logger"
	"github.com/fixora/tasktrail/internal/ports"
	"github.com/fixora/tasktrail/internal/requestctx"
	"github.com/google/uuid"
)

// ErrNoActor rejects a mutation under the fail-closed actor policy
var ErrNoActor = errors.New("audit: no actor bound to this unit of work")

// ActorPolicy decides what happens to mutations without an actor
type ActorPolicy string

const (
	// ActorPolicyFailOpen records the mutation under actor 0 and warns
	ActorPolicyFailOpen ActorPolicy = "fail_open"
	// ActorPolicyFailClosed rejects the mutation with ErrNoActor
	ActorPolicyFailClosed ActorPolicy = "fail_closed"
)

// ParseActorPolicy parses a configuration value
func ParseActorPolicy(s string) (ActorPolicy, error) {
	switch p := ActorPolicy(s); p {
	case ActorPolicyFailOpen, ActorPolicyFailClosed:
		return p, nil
	case "":
		return ActorPolicyFailOpen, nil
	}
	return "", fmt.Errorf("unknown audit actor policy %q", s)
}

// Classifier picks the action recorded for a non-empty update diff
type Classifier func(changes domain.Changes) domain.AuditAction

// AssignmentClassifier records an update that only touches field as ASSIGN
// when the new value is set and UNASSIGN when it is cleared
func AssignmentClassifier(field string) Classifier {
	return func(changes domain.Changes) domain.AuditAction {
		c, ok := changes[field]
		if !ok || len(changes) != 1 {
			return domain.AuditActionUpdate
		}
		if c.After == nil {
			return domain.AuditActionUnassign
		}
		return domain.AuditActionAssign
	}
}

const defaultWriteTimeout = 5 * time.Second

// Interceptor turns tracked mutations into audit records. It implements
// ports.LifecycleObserver and is shared by every repository.
type Interceptor struct {
	schema       *Schema
	store        ports.AuditRepository
	log          logger.Logger
	metrics      *Metrics
	ignored      FieldSet
	policy       ActorPolicy
	classifiers  map[string]Classifier
	writeTimeout time.Duration

	mu    sync.Mutex
	armed map[uuid.UUID]domain.Snapshot
}

// Option configures an Interceptor
type Option func(*Interceptor)

// WithIgnoredFields replaces the default ignore list
func WithIgnoredFields(fields ...string) Option {
	return func(i *Interceptor) { i.ignored = NewFieldSet(fields...) }
}

// WithActorPolicy sets the missing-actor policy
func WithActorPolicy(p ActorPolicy) Option {
	return func(i *Interceptor) { i.policy = p }
}

// WithMetrics enables Prometheus counters
func WithMetrics(m *Metrics) Option {
	return func(i *Interceptor) { i.metrics = m }
}

// WithClassifier installs an update classifier for one entity type
func WithClassifier(entity string, c Classifier) Option {
	return func(i *Interceptor) { i.classifiers[entity] = c }
}

// WithWriteTimeout bounds each store append
func WithWriteTimeout(d time.Duration) Option {
	return func(i *Interceptor) { i.writeTimeout = d }
}

// NewInterceptor creates an interceptor recording into store
func NewInterceptor(schema *Schema, store ports.AuditRepository, log logger.Logger, opts ...Option) *Interceptor {
	i := &Interceptor{
		schema:       schema,
		store:        store,
		log:          log.WithFields(map[string]interface{}{"component": "audit"}),
		ignored:      NewFieldSet(DefaultIgnoredFields...),
		policy:       ActorPolicyFailOpen,
		classifiers:  make(map[string]Classifier),
		writeTimeout: defaultWriteTimeout,
		armed:        make(map[uuid.UUID]domain.Snapshot),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Verify checks at startup that every entity a repository mutates is tracked
func (i *Interceptor) Verify(entities ...string) error {
	return i.schema.Verify(entities...)
}

// Pending returns the number of armed pre-images, for tests and debugging
func (i *Interceptor) Pending() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.armed)
}

// BeforeChange captures the pre-image of updates and deletes. The store
// lock is never held while loading.
func (i *Interceptor) BeforeChange(ctx context.Context, m *ports.Mutation) error {
	meta, ok := i.schema.Lookup(m.Entity)
	if !ok {
		return nil
	}

	if i.policy == ActorPolicyFailClosed {
		if _, ok := requestctx.Actor(ctx); !ok {
			i.metrics.IncMissingActor()
			i.log.Warn(ctx, "Rejecting mutation without actor", map[string]interface{}{
				"entity": m.Entity,
				"kind":   string(m.Kind),
			})
			return fmt.Errorf("%w: %s %s", ErrNoActor, m.Kind, m.Entity)
		}
	}

	if m.Kind == ports.MutationInsert {
		return nil
	}

	pre := m.Instance
	if m.Kind == ports.MutationUpdate || pre == nil {
		if m.Load == nil {
			return nil
		}
		var err error
		if pre, err = m.Load(ctx); err != nil {
			// the statement is expected to fail the same way
			i.log.Debug(ctx, "Could not load pre-image", map[string]interface{}{
				"entity": m.Entity, "entity_id": m.EntityID, "error": err.Error(),
			})
			return nil
		}
	}

	snap := Snapshot(meta.Fields, pre)
	i.mu.Lock()
	i.armed[m.Handle] = snap
	i.mu.Unlock()
	return nil
}

// AfterChange builds the record for a completed mutation and schedules it
// for after commit. Armed state for the mutation is always released.
func (i *Interceptor) AfterChange(ctx context.Context, m *ports.Mutation) {
	i.mu.Lock()
	before, armed := i.armed[m.Handle]
	delete(i.armed, m.Handle)
	i.mu.Unlock()

	meta, ok := i.schema.Lookup(m.Entity)
	if !ok {
		i.metrics.IncSkipped(SkipUntracked)
		i.log.Error(ctx, "Mutation of untracked entity type", ErrUntracked, map[string]interface{}{
			"entity": m.Entity,
		})
		return
	}
	if m.Err != nil {
		i.metrics.IncSkipped(SkipFailed)
		return
	}

	record := &domain.AuditRecord{EntityType: m.Entity, EntityID: m.EntityID}

	switch m.Kind {
	case ports.MutationInsert:
		if id := meta.IdentifierOf(m.Instance); id != 0 {
			record.EntityID = id
		}
		record.Action = domain.AuditActionCreate
		record.Details.New = Redact(Snapshot(meta.Fields, m.Instance), i.ignored)

	case ports.MutationUpdate:
		if !armed {
			i.metrics.IncSkipped(SkipNoPreImage)
			return
		}
		after := m.Instance
		if after == nil && m.Load != nil {
			var err error
			if after, err = m.Load(ctx); err != nil {
				i.metrics.IncSkipped(SkipNoPreImage)
				return
			}
		}
		changes := Diff(before, Snapshot(meta.Fields, after), i.ignored)
		if len(changes) == 0 {
			i.metrics.IncSkipped(SkipNoChanges)
			return
		}
		if record.EntityID == 0 {
			record.EntityID = meta.IdentifierOf(after)
		}
		record.Action = i.classify(m.Entity, changes)
		record.Details.Changes = changes

	case ports.MutationDelete:
		if !armed {
			i.metrics.IncSkipped(SkipNoPreImage)
			return
		}
		if id, ok := before["id"].(int64); ok && record.EntityID == 0 {
			record.EntityID = id
		}
		record.Action = domain.AuditActionDelete
		record.Details.Previous = Redact(before, i.ignored)

	default:
		return
	}

	if record.EntityID == 0 {
		i.metrics.IncSkipped(SkipNoID)
		i.log.Debug(ctx, "Skipping audit record without entity id", map[string]interface{}{
			"entity": m.Entity, "action": string(record.Action),
		})
		return
	}
	record.ActorID = i.actor(ctx)

	write := func(ctx context.Context) { i.write(ctx, record) }
	if m.AfterCommit != nil {
		m.AfterCommit(write)
		return
	}
	write(ctx)
}

// Record appends an explicit domain action such as LOGIN or LOGOUT that
// is not tied to an entity mutation
func (i *Interceptor) Record(ctx context.Context, entityType string, entityID int64, action domain.AuditAction, details map[string]interface{}) {
	if entityID == 0 {
		i.metrics.IncSkipped(SkipNoID)
		return
	}
	i.write(ctx, &domain.AuditRecord{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    i.actor(ctx),
		Details:    domain.AuditDetails{Context: details},
	})
}

func (i *Interceptor) classify(entity string, changes domain.Changes) domain.AuditAction {
	if c, ok := i.classifiers[entity]; ok {
		return c(changes)
	}
	return domain.AuditActionUpdate
}

func (i *Interceptor) actor(ctx context.Context) int64 {
	if id, ok := requestctx.Actor(ctx); ok {
		return id
	}
	i.metrics.IncMissingActor()
	i.log.Warn(ctx, "Audit record has no actor, recording as unknown", map[string]interface{}{
		"scope_active": requestctx.HasScope(ctx),
	})
	return domain.UnknownActor
}

// write persists record outside any business transaction. Failures are
// logged and counted, never returned.
func (i *Interceptor) write(ctx context.Context, record *domain.AuditRecord) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.writeTimeout)
	defer cancel()

	if err := i.store.Append(ctx, record); err != nil {
		i.metrics.IncWriteFailures()
		i.log.Error(ctx, "Failed to write audit record", err, map[string]interface{}{
			"entity":    record.EntityType,
			"entity_id": record.EntityID,
			"action":    string(record.Action),
			"actor_id":  record.ActorID,
		})
		return
	}
	i.metrics.IncWritten(string(record.Action))
}
