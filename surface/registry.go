// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"errors"
	"sort"
	"sync"

	"github.com/gogpu/tiler"
)

// SinkFactory creates a sink for a canvas of the given size.
type SinkFactory func(width, height int) (tiler.Sink, error)

// RegistryEntry represents a registered sink.
type RegistryEntry struct {
	// Name is the unique identifier for this sink.
	Name string

	// Priority determines the default choice (higher = preferred).
	Priority int

	// Factory creates sink instances.
	Factory SinkFactory
}

// globalRegistry is the default registry.
var globalRegistry = NewRegistry()

// Registry maps names to sink factories.
//
// Example registration:
//
//	func init() {
//	    surface.Register("window", 100, newWindowSink)
//	}
//
// Example usage:
//
//	sink, err := surface.NewSink("window", 800, 600)
//	// or the highest priority sink:
//	sink, err := surface.NewDefaultSink(800, 600)
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*RegistryEntry),
	}
}

// Register adds a sink to the global registry. Registering a name that
// already exists replaces the previous entry.
func Register(name string, priority int, factory SinkFactory) {
	globalRegistry.Register(name, priority, factory)
}

// Unregister removes a sink from the global registry.
func Unregister(name string) {
	globalRegistry.Unregister(name)
}

// List returns all registered sink names sorted by priority (highest first).
func List() []string {
	return globalRegistry.List()
}

// NewSink creates the named sink from the global registry.
func NewSink(name string, width, height int) (tiler.Sink, error) {
	return globalRegistry.NewSink(name, width, height)
}

// NewDefaultSink creates the highest priority sink from the global registry.
func NewDefaultSink(width, height int) (tiler.Sink, error) {
	return globalRegistry.NewDefaultSink(width, height)
}

// Register adds a sink to this registry.
func (r *Registry) Register(name string, priority int, factory SinkFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[name] = &RegistryEntry{
		Name:     name,
		Priority: priority,
		Factory:  factory,
	}
}

// Unregister removes a sink from this registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, name)
}

// List returns all registered sink names sorted by priority.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames()
}

// Get returns a copy of the named entry.
func (r *Registry) Get(name string) (RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return RegistryEntry{}, false
	}
	return *entry, true
}

// NewSink creates the named sink.
func (r *Registry) NewSink(name string, width, height int) (tiler.Sink, error) {
	entry, ok := r.Get(name)
	if !ok {
		return nil, &SinkNotFoundError{Name: name}
	}
	return entry.Factory(width, height)
}

// NewDefaultSink tries each sink in priority order and returns the first
// one whose factory succeeds.
func (r *Registry) NewDefaultSink(width, height int) (tiler.Sink, error) {
	names := r.List()
	if len(names) == 0 {
		return nil, ErrNoSink
	}

	var lastErr error
	for _, name := range names {
		s, err := r.NewSink(name, width, height)
		if err == nil {
			return s, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// sortedNames returns names sorted by priority, highest first, ties by name.
// Must be called with lock held.
func (r *Registry) sortedNames() []string {
	if len(r.entries) == 0 {
		return nil
	}

	entries := make([]*RegistryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// ErrNoSink is returned when no sinks are registered.
var ErrNoSink = errors.New("surface: no sink registered")

// SinkNotFoundError indicates a named sink is not registered.
type SinkNotFoundError struct {
	Name string
}

func (e *SinkNotFoundError) Error() string {
	return "surface: sink not found: " + e.Name
}

func init() {
	Register("image", 10, func(w, h int) (tiler.Sink, error) {
		return NewRGBASink(w, h), nil
	})
	Register("record", 5, func(int, int) (tiler.Sink, error) {
		return NewRecordingSink(false), nil
	})
	Register("discard", 0, func(int, int) (tiler.Sink, error) {
		return Discard, nil
	})
}
