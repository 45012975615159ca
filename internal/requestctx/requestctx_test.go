package requestctx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestActor_NoScope(t *testing.T) {
	ctx := context.Background()

	SetActor(ctx, 5)

	_, ok := Actor(ctx)
	assert.False(t, ok)
	assert.False(t, HasScope(ctx))
}

func TestActor_SetWithinScope(t *testing.T) {
	ctx := BeginScope(context.Background())

	_, ok := Actor(ctx)
	assert.False(t, ok, "fresh scope has no actor")

	SetActor(ctx, 42)

	id, ok := Actor(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(42), id)
}

func TestActor_VisibleToContextDerivedBeforeSet(t *testing.T) {
	ctx := BeginScope(context.Background())
	derived, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	SetActor(ctx, 9)

	id, ok := Actor(derived)
	require.True(t, ok)
	assert.Equal(t, int64(9), id)
}

func TestActor_NestedScopeDoesNotLeakUpward(t *testing.T) {
	parent := BeginScope(context.Background())
	SetActor(parent, 1)

	child := BeginScope(parent)
	_, ok := Actor(child)
	assert.False(t, ok, "nested scope starts empty")

	SetActor(child, 2)

	id, _ := Actor(parent)
	assert.Equal(t, int64(1), id)
	id, _ = Actor(child)
	assert.Equal(t, int64(2), id)
}

func TestActor_ConcurrentScopesAreIsolated(t *testing.T) {
	const workers = 50

	var g errgroup.Group
	var start sync.WaitGroup
	start.Add(1)

	for i := 1; i <= workers; i++ {
		actor := int64(i)
		g.Go(func() error {
			ctx := BeginScope(context.Background())
			start.Wait()
			SetActor(ctx, actor)

			// hop through another goroutine to cross a suspension point
			got := make(chan int64, 1)
			go func() {
				time.Sleep(time.Millisecond)
				id, _ := Actor(ctx)
				got <- id
			}()

			if id := <-got; id != actor {
				t.Errorf("scope for actor %d observed %d", actor, id)
			}
			return nil
		})
	}

	start.Done()
	require.NoError(t, g.Wait())
}

func TestCorrelationID(t *testing.T) {
	assert.Equal(t, "", CorrelationID(context.Background()))

	ctx := WithCorrelationID(context.Background(), "abc-123")
	assert.Equal(t, "abc-123", CorrelationID(ctx))
}
