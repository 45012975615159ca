package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/ports"
	"github.com/google/uuid"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TrackedEntities lists every entity the repositories in this package
// mutate through Mutate
var TrackedEntities = []string{
	domain.EntityTask,
	domain.EntityUser,
	domain.EntityTeam,
	domain.EntityTeamMember,
	domain.EntityComment,
}

type txKey struct{}

// txState is the transaction carried in a context plus the callbacks to
// run once it commits
type txState struct {
	tx *sql.Tx

	mu       sync.Mutex
	onCommit []func(context.Context)
}

func (s *txState) afterCommit(fn func(context.Context)) {
	s.mu.Lock()
	s.onCommit = append(s.onCommit, fn)
	s.mu.Unlock()
}

// TxManager owns the connection pool, carries transactions through the
// context and drives the lifecycle observer around every tracked mutation
type TxManager struct {
	db       *sql.DB
	observer ports.LifecycleObserver
}

// NewTxManager creates a transaction manager. observer may be nil.
func NewTxManager(db *sql.DB, observer ports.LifecycleObserver) *TxManager {
	return &TxManager{db: db, observer: observer}
}

// DB returns the underlying pool
func (m *TxManager) DB() *sql.DB {
	return m.db
}

// WithinTx runs fn in a transaction. A call inside an existing transaction
// joins it. After-commit callbacks run once the outermost transaction has
// committed and are dropped on rollback.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	state := &txState{tx: tx}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, state)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	state.mu.Lock()
	callbacks := state.onCommit
	state.mu.Unlock()
	for _, cb := range callbacks {
		cb(ctx)
	}
	return nil
}

// conn returns the transaction in ctx, or the pool
func (m *TxManager) conn(ctx context.Context) querier {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		return state.tx
	}
	return m.db
}

// Mutate applies one tracked mutation inside a transaction, notifying the
// observer before and after the statement
func (m *TxManager) Mutate(ctx context.Context, mut *ports.Mutation, apply func(ctx context.Context, q querier) error) error {
	return m.WithinTx(ctx, func(ctx context.Context) error {
		state := ctx.Value(txKey{}).(*txState)
		mut.Handle = uuid.New()
		mut.AfterCommit = state.afterCommit

		return observeMutation(ctx, m.observer, mut, func() error {
			return apply(ctx, state.tx)
		})
	})
}

var errMutationAborted = errors.New("mutation aborted")

// observeMutation runs apply between BeforeChange and AfterChange. A panic
// in apply still reaches AfterChange, with errMutationAborted, before it
// propagates.
func observeMutation(ctx context.Context, observer ports.LifecycleObserver, mut *ports.Mutation, apply func() error) error {
	if observer == nil {
		mut.Err = apply()
		return mut.Err
	}

	if err := observer.BeforeChange(ctx, mut); err != nil {
		return err
	}

	notified := false
	defer func() {
		if !notified {
			mut.Err = errMutationAborted
			observer.AfterChange(ctx, mut)
		}
	}()

	mut.Err = apply()
	notified = true
	observer.AfterChange(ctx, mut)
	return mut.Err
}
