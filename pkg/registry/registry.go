package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a named collection of components of a single kind.
type Registry[T any] interface {
	Register(name string, item T) error
	Get(name string) (T, bool)
	Names() []string
	List() []T
	Remove(name string) error
	Count() int
}

// Base is a thread-safe map-backed Registry implementation shared by the
// LLM, embedder, tool and document store registries.
type Base[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

func NewBase[T any]() *Base[T] {
	return &Base[T]{
		items: make(map[string]T),
	}
}

func (r *Base[T]) Register(name string, item T) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[name]; exists {
		return fmt.Errorf("item %q already registered", name)
	}

	r.items[name] = item
	return nil
}

func (r *Base[T]) Get(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[name]
	return item, exists
}

// Names returns the registered names in sorted order.
func (r *Base[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Base[T]) List() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]T, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, item)
	}
	return items
}

func (r *Base[T]) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[name]; !exists {
		return fmt.Errorf("item %q not found", name)
	}

	delete(r.items, name)
	return nil
}

func (r *Base[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items)
}
