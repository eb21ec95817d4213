// Package bus routes command and query messages to exactly one handler per
// message type. Collaborators are passed explicitly on every dispatch.
package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"
)

var (
	ErrDuplicateHandler = errors.New("bus: handler already registered")
	ErrHandlerNotFound  = errors.New("bus: no handler registered")
	ErrUnexpectedResult = errors.New("bus: unexpected result type")
)

// Kinds reported to observers.
const (
	KindCommand = "command"
	KindQuery   = "query"
)

// Observer receives the outcome of every dispatch.
type Observer func(kind, message string, duration time.Duration, err error)

type handlerFunc[D any] func(ctx context.Context, msg any, deps D) (any, error)

type registry[D any] struct {
	kind     string
	mu       sync.RWMutex
	handlers map[reflect.Type]handlerFunc[D]
	observer Observer
}

func newRegistry[D any](kind string) *registry[D] {
	return &registry[D]{kind: kind, handlers: map[reflect.Type]handlerFunc[D]{}}
}

func (r *registry[D]) register(t reflect.Type, h handlerFunc[D]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("%w: %s %s", ErrDuplicateHandler, r.kind, t)
	}
	r.handlers[t] = h
	return nil
}

func (r *registry[D]) dispatch(ctx context.Context, msg any, deps D) (any, error) {
	t := reflect.TypeOf(msg)
	r.mu.RLock()
	h, ok := r.handlers[t]
	observer := r.observer
	r.mu.RUnlock()

	name := messageName(t)
	if !ok {
		err := fmt.Errorf("%w: %s %s", ErrHandlerNotFound, r.kind, name)
		if observer != nil {
			observer(r.kind, name, 0, err)
		}
		return nil, err
	}

	start := time.Now()
	result, err := h(ctx, msg, deps)
	if observer != nil {
		observer(r.kind, name, time.Since(start), err)
	}
	return result, err
}

func (r *registry[D]) registered(t reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[t]
	return ok
}

func (r *registry[D]) setObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = o
}

func messageName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// CommandBus dispatches state-changing messages.
type CommandBus[D any] struct {
	reg *registry[D]
}

// NewCommandBus returns an empty command bus.
func NewCommandBus[D any]() *CommandBus[D] {
	return &CommandBus[D]{reg: newRegistry[D](KindCommand)}
}

// Dispatch runs the handler registered for msg's dynamic type.
func (b *CommandBus[D]) Dispatch(ctx context.Context, msg any, deps D) (any, error) {
	return b.reg.dispatch(ctx, msg, deps)
}

// Handles reports whether a handler exists for msg's type.
func (b *CommandBus[D]) Handles(msg any) bool {
	return b.reg.registered(reflect.TypeOf(msg))
}

// Observe installs a dispatch observer.
func (b *CommandBus[D]) Observe(o Observer) { b.reg.setObserver(o) }

// QueryBus dispatches read-only messages.
type QueryBus[D any] struct {
	reg *registry[D]
}

// NewQueryBus returns an empty query bus.
func NewQueryBus[D any]() *QueryBus[D] {
	return &QueryBus[D]{reg: newRegistry[D](KindQuery)}
}

// Dispatch runs the handler registered for msg's dynamic type.
func (b *QueryBus[D]) Dispatch(ctx context.Context, msg any, deps D) (any, error) {
	return b.reg.dispatch(ctx, msg, deps)
}

// Handles reports whether a handler exists for msg's type.
func (b *QueryBus[D]) Handles(msg any) bool {
	return b.reg.registered(reflect.TypeOf(msg))
}

// Observe installs a dispatch observer.
func (b *QueryBus[D]) Observe(o Observer) { b.reg.setObserver(o) }

// RegisterCommand binds handler to message type M.
func RegisterCommand[M, R, D any](b *CommandBus[D], handler func(ctx context.Context, msg M, deps D) (R, error)) error {
	return b.reg.register(reflect.TypeOf((*M)(nil)).Elem(), adapt(handler))
}

// RegisterQuery binds handler to message type M.
func RegisterQuery[M, R, D any](b *QueryBus[D], handler func(ctx context.Context, msg M, deps D) (R, error)) error {
	return b.reg.register(reflect.TypeOf((*M)(nil)).Elem(), adapt(handler))
}

func adapt[M, R, D any](handler func(context.Context, M, D) (R, error)) handlerFunc[D] {
	return func(ctx context.Context, msg any, deps D) (any, error) {
		return handler(ctx, msg.(M), deps)
	}
}

// Dispatcher is implemented by CommandBus and QueryBus.
type Dispatcher[D any] interface {
	Dispatch(ctx context.Context, msg any, deps D) (any, error)
}

// DispatchAs dispatches msg and asserts the result type.
func DispatchAs[R, D any](ctx context.Context, d Dispatcher[D], msg any, deps D) (R, error) {
	var zero R
	result, err := d.Dispatch(ctx, msg, deps)
	if err != nil {
		return zero, err
	}
	typed, ok := result.(R)
	if !ok {
		return zero, fmt.Errorf("%w: got %T, want %T", ErrUnexpectedResult, result, zero)
	}
	return typed, nil
}
