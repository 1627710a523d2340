package resolver

import (
	"context"
	"sync"

	"github.com/c360/genomegate/docstore"
	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/loader"
)

// RootState is what one root field establishes for the fields beneath
// it: the genome it targets, the release database holding that genome and
// the loaders bound to both. Child resolvers carry the state of their
// root, so sibling roots never share a database handle or a loader.
type RootState struct {
	GenomeID string
	Database docstore.Database
	Loaders  *loader.Set
}

// Scope is the per-request record of root states. A Scope belongs to one
// request and is released when the request completes.
type Scope struct {
	mu       sync.Mutex
	states   []*RootState
	released bool
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

type scopeKey struct{}

// WithScope installs scope into ctx.
func WithScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFrom returns the scope installed in ctx, or nil.
func ScopeFrom(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

// Bind opens a new root state and records it.
func (s *Scope) Bind(ctx context.Context, open func(context.Context) (*RootState, error)) (*RootState, error) {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return nil, errors.WrapFatal(context.Canceled, "Scope", "Bind", "bind released scope")
	}

	st, err := open(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, errors.WrapFatal(context.Canceled, "Scope", "Bind", "bind released scope")
	}
	s.states = append(s.states, st)
	return st, nil
}

// States returns the bound root states in bind order.
func (s *Scope) States() []*RootState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*RootState(nil), s.states...)
}

// Roots returns the number of bound roots.
func (s *Scope) Roots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// Release drops every root state. Binding afterwards fails.
func (s *Scope) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	s.states = nil
}
