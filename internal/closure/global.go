package closure

import (
	"fmt"
	"sync"
)

// GlobalStore is a Store usable from any thread.
type GlobalStore[T any] struct {
	name    string
	mu      sync.Mutex
	entries map[Slot]T
}

// NewGlobalStore returns an empty process-wide store.
func NewGlobalStore[T any](name string) *GlobalStore[T] {
	return &GlobalStore[T]{name: name, entries: make(map[Slot]T)}
}

func (s *GlobalStore[T]) Insert(slot Slot, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[slot]; ok {
		panic(fmt.Sprintf("%s: slot %d already occupied", s.name, slot))
	}
	s.entries[slot] = v
}

func (s *GlobalStore[T]) Remove(slot Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[slot]; !ok {
		panic(fmt.Sprintf("%s: slot %d is not occupied", s.name, slot))
	}
	delete(s.entries, slot)
}

func (s *GlobalStore[T]) Lookup(slot Slot) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[slot]
	return v, ok
}

func (s *GlobalStore[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
