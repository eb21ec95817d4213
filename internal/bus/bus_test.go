package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deps struct {
	prefix string
}

type greet struct{ Name string }
type shout struct{ Name string }
type count struct{}

func TestCommandDispatch(t *testing.T) {
	b := NewCommandBus[deps]()
	require.NoError(t, RegisterCommand(b, func(_ context.Context, msg greet, d deps) (string, error) {
		return d.prefix + msg.Name, nil
	}))

	got, err := b.Dispatch(context.Background(), greet{Name: "alice"}, deps{prefix: "hi "})
	require.NoError(t, err)
	assert.Equal(t, "hi alice", got)

	typed, err := DispatchAs[string](context.Background(), b, greet{Name: "bob"}, deps{prefix: "yo "})
	require.NoError(t, err)
	assert.Equal(t, "yo bob", typed)

	assert.True(t, b.Handles(greet{}))
	assert.False(t, b.Handles(&greet{}))
}

func TestDuplicateHandlerRejected(t *testing.T) {
	b := NewCommandBus[deps]()
	h := func(context.Context, greet, deps) (string, error) { return "", nil }
	require.NoError(t, RegisterCommand(b, h))
	assert.ErrorIs(t, RegisterCommand(b, h), ErrDuplicateHandler)

	q := NewQueryBus[deps]()
	require.NoError(t, RegisterQuery(q, h))
	assert.ErrorIs(t, RegisterQuery(q, h), ErrDuplicateHandler)
}

func TestHandlerNotFound(t *testing.T) {
	b := NewQueryBus[deps]()
	require.NoError(t, RegisterQuery(b, func(context.Context, greet, deps) (int, error) { return 1, nil }))

	_, err := b.Dispatch(context.Background(), shout{Name: "x"}, deps{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
	assert.Contains(t, err.Error(), "bus.shout")

	_, err = b.Dispatch(context.Background(), nil, deps{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestCommandAndQueryRegistriesAreIndependent(t *testing.T) {
	c := NewCommandBus[deps]()
	q := NewQueryBus[deps]()
	require.NoError(t, RegisterCommand(c, func(context.Context, count, deps) (int, error) { return 1, nil }))

	_, err := q.Dispatch(context.Background(), count{}, deps{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
	require.NoError(t, RegisterQuery(q, func(context.Context, count, deps) (int, error) { return 2, nil }))
}

func TestHandlerErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	b := NewCommandBus[deps]()
	require.NoError(t, RegisterCommand(b, func(context.Context, greet, deps) (struct{}, error) {
		return struct{}{}, boom
	}))

	_, err := DispatchAs[struct{}](context.Background(), b, greet{}, deps{})
	assert.ErrorIs(t, err, boom)
}

func TestDispatchAsRejectsWrongType(t *testing.T) {
	b := NewCommandBus[deps]()
	require.NoError(t, RegisterCommand(b, func(context.Context, greet, deps) (int, error) { return 7, nil }))

	_, err := DispatchAs[string](context.Background(), b, greet{}, deps{})
	assert.ErrorIs(t, err, ErrUnexpectedResult)
}

func TestObserverSeesEveryDispatch(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	b := NewCommandBus[deps]()
	b.Observe(func(kind, message string, _ time.Duration, err error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, fmt.Sprintf("%s %s %v", kind, message, err != nil))
	})
	require.NoError(t, RegisterCommand(b, func(context.Context, greet, deps) (int, error) { return 0, nil }))

	_, _ = b.Dispatch(context.Background(), greet{}, deps{})
	_, _ = b.Dispatch(context.Background(), shout{}, deps{})

	assert.Equal(t, []string{"command bus.greet false", "command bus.shout true"}, seen)
}

func TestConcurrentDispatch(t *testing.T) {
	b := NewQueryBus[deps]()
	require.NoError(t, RegisterQuery(b, func(_ context.Context, msg greet, _ deps) (string, error) {
		return msg.Name, nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprint(i)
			got, err := DispatchAs[string](context.Background(), b, greet{Name: name}, deps{})
			assert.NoError(t, err)
			assert.Equal(t, name, got)
		}(i)
	}
	wg.Wait()
}
