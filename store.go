package boxon

import (
	"reflect"
	"sync"
)

// Store is a compute-if-absent cache of compiled Templates keyed by Go
// type, mirroring glint's DecodeInstructionLookup trie cache: a read lock
// is tried first, and the (possibly expensive) build only runs under the
// write lock, once, the first time a type is seen.
//
// Sub-template resolution is lazy (resolved by Engine at decode/encode
// time, not while a Template is being Built), so Build for one type never
// recursively calls Build for another while holding the write lock — the
// simple non-reentrant RWMutex below is therefore sufficient.
type Store struct {
	mu        sync.RWMutex
	templates map[reflect.Type]*Template
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{templates: make(map[reflect.Type]*Template)}
}

// Get returns the cached Template for t, if any.
func (s *Store) Get(t reflect.Type) (*Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.templates[t]
	return tpl, ok
}

// GetOrBuild returns the cached Template for t, building and caching it
// via build on first use.
func (s *Store) GetOrBuild(t reflect.Type, build func() (*Template, error)) (*Template, error) {
	if tpl, ok := s.Get(t); ok {
		return tpl, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tpl, ok := s.templates[t]; ok {
		return tpl, nil
	}

	tpl, err := build()
	if err != nil {
		return nil, err
	}
	s.templates[t] = tpl
	return tpl, nil
}

// Put inserts a pre-built Template, overwriting any previous entry for the
// same type. Used by Engine.Register to publish a template built by
// TemplateBuilder.Build into the Engine's store.
func (s *Store) Put(t reflect.Type, tpl *Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t] = tpl
}
