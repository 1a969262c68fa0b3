// Package bus routes read-side queries to their handlers and decorates the
// handlers with caching and metrics.
package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Query is a read request. Validate runs before any handler sees it.
type Query interface {
	Validate() error
}

// QueryHandler answers one query type
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// QueryHandlerFunc adapts a function to QueryHandler
type QueryHandlerFunc func(ctx context.Context, query Query) (interface{}, error)

// Handle implements QueryHandler
func (f QueryHandlerFunc) Handle(ctx context.Context, query Query) (interface{}, error) {
	return f(ctx, query)
}

// Middleware decorates a handler
type Middleware func(QueryHandler) QueryHandler

// Chain applies middleware so the first one listed runs outermost
func Chain(handler QueryHandler, middleware ...Middleware) QueryHandler {
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	return handler
}

// QueryBus holds one handler per concrete query type
type QueryBus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type]QueryHandler
}

// NewQueryBus creates an empty bus
func NewQueryBus() *QueryBus {
	return &QueryBus{handlers: make(map[reflect.Type]QueryHandler)}
}

// Register binds handler to the concrete type of prototype. A type can only
// be registered once.
func (b *QueryBus) Register(prototype Query, handler QueryHandler) error {
	key := reflect.TypeOf(prototype)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.handlers[key]; taken {
		return fmt.Errorf("query %s already has a handler", QueryName(prototype))
	}
	b.handlers[key] = handler
	return nil
}

// Ask validates query and hands it to its handler. Errors come back as the
// handler returned them so typed errors keep their HTTP mapping.
func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	handler, ok := b.handlers[reflect.TypeOf(query)]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no handler for query %s", QueryName(query))
	}
	return handler.Handle(ctx, query)
}

// QueryName is the type name of a query, used for metric labels
func QueryName(query Query) string {
	t := reflect.TypeOf(query)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
