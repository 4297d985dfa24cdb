package workerpool

import (
	"context"
	"sync"
)

// Source is a task body. It runs on a worker goroutine and must only use its
// parameters; its return value is serialized back to the caller.
type Source func(ctx context.Context, params []any) (any, error)

// SourceResolver provides sources that are not registered by name, such as
// script files.
type SourceResolver interface {
	ResolveSource(ctx context.Context, name string) (Source, bool)
}

// Sources is the set of task bodies workers can run.
type Sources struct {
	mu        sync.RWMutex
	byName    map[string]Source
	resolvers []SourceResolver
}

// NewSources creates an empty set.
func NewSources() *Sources {
	return &Sources{byName: make(map[string]Source)}
}

// Register binds name to src, replacing any earlier binding.
func (s *Sources) Register(name string, src Source) {
	s.mu.Lock()
	s.byName[name] = src
	s.mu.Unlock()
}

// AddResolver appends a resolver consulted for unregistered names.
func (s *Sources) AddResolver(r SourceResolver) {
	s.mu.Lock()
	s.resolvers = append(s.resolvers, r)
	s.mu.Unlock()
}

// Lookup finds the source for name.
func (s *Sources) Lookup(ctx context.Context, name string) (Source, bool) {
	s.mu.RLock()
	src, ok := s.byName[name]
	resolvers := s.resolvers
	s.mu.RUnlock()
	if ok {
		return src, true
	}
	for _, r := range resolvers {
		if src, ok := r.ResolveSource(ctx, name); ok {
			return src, true
		}
	}
	return nil, false
}
