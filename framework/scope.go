package framework

import (
	"errors"
	"fmt"
	"sync"
)

// Scope is a keyed store for resources that belong to a single test
// execution, replacing thread-local state in runtimes that have it. Each test
// goroutine owns its own Scope, so resources created through it are isolated
// from concurrently running tests.
//
// Resources are created at most once per key, and torn down exactly once, in
// reverse creation order, when the scope is closed.
type Scope struct {
	lock    sync.Mutex
	closed  bool
	entries []*scopeEntry
	byKey   map[string]*scopeEntry
}

type scopeEntry struct {
	key    string
	value  interface{}
	closer func() error
}

func NewScope() *Scope {
	return &Scope{byKey: make(map[string]*scopeEntry)}
}

// Put stores a resource under key. The closer, if non-nil, runs when the
// scope is closed. Storing a key twice is an error: a scope holds one
// instance of each resource for the lifetime of its test.
func (s *Scope) Put(key string, value interface{}, closer func() error) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return fmt.Errorf("scope is closed, cannot store %q", key)
	}
	if _, ok := s.byKey[key]; ok {
		return fmt.Errorf("scope already contains %q", key)
	}
	e := &scopeEntry{key: key, value: value, closer: closer}
	s.byKey[key] = e
	s.entries = append(s.entries, e)
	return nil
}

// Get returns the resource stored under key, if any.
func (s *Scope) Get(key string) (interface{}, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	e, ok := s.byKey[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// GetOrCreate returns the resource stored under key, creating it first if it
// does not exist yet. The create function must not call back into the scope.
func (s *Scope) GetOrCreate(key string, create func() (interface{}, func() error, error)) (interface{}, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return nil, fmt.Errorf("scope is closed, cannot create %q", key)
	}
	if e, ok := s.byKey[key]; ok {
		return e.value, nil
	}
	value, closer, err := create()
	if err != nil {
		return nil, fmt.Errorf("creating scoped resource %q: %w", key, err)
	}
	e := &scopeEntry{key: key, value: value, closer: closer}
	s.byKey[key] = e
	s.entries = append(s.entries, e)
	return value, nil
}

// Close tears down every resource in reverse creation order. It is
// idempotent; teardown errors are aggregated rather than stopping the
// remaining teardowns.
func (s *Scope) Close() error {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return nil
	}
	s.closed = true
	entries := s.entries
	s.entries = nil
	s.byKey = map[string]*scopeEntry{}
	s.lock.Unlock()

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.closer == nil {
			continue
		}
		if err := e.closer(); err != nil {
			errs = append(errs, fmt.Errorf("closing %q: %w", e.key, err))
		}
	}
	return errors.Join(errs...)
}
