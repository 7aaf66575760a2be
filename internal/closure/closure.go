// Package closure keeps the callbacks that OS trampolines dispatch to.
//
// A trampoline has a fixed address and receives no user context, so the
// callback it must run is looked up in a side table keyed by a small slot
// number. Two tables share one contract: ThreadStore, owned by the message
// loop of one OS thread and never locked, and GlobalStore, guarded by a mutex
// for callbacks the OS may deliver on any thread.
package closure

import "fmt"

// Slot identifies one registration within a category on one thread.
type Slot uint32

// Category is the kind of OS registration a store serves.
type Category uint8

const (
	Mouse Category = iota + 1
	Keyboard
	Window
	Hotkey
	WinEvent
)

func (c Category) String() string {
	switch c {
	case Mouse:
		return "mouse"
	case Keyboard:
		return "keyboard"
	case Window:
		return "window"
	case Hotkey:
		return "hotkey"
	case WinEvent:
		return "winevent"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// Store maps slots to callbacks.
//
// Insert panics if the slot is occupied and Remove panics if it is empty:
// both mean the in-process table and the OS disagree about what is
// registered.
type Store[T any] interface {
	Insert(slot Slot, v T)
	Remove(slot Slot)
	Lookup(slot Slot) (T, bool)
	Len() int
}

// ThreadStore is a Store confined to one OS thread.
type ThreadStore[T any] struct {
	name    string
	entries map[Slot]T
}

// NewThreadStore returns an empty thread-bound store. name prefixes panic
// messages.
func NewThreadStore[T any](name string) *ThreadStore[T] {
	return &ThreadStore[T]{name: name, entries: make(map[Slot]T)}
}

func (s *ThreadStore[T]) Insert(slot Slot, v T) {
	if _, ok := s.entries[slot]; ok {
		panic(fmt.Sprintf("%s: slot %d already occupied", s.name, slot))
	}
	s.entries[slot] = v
}

func (s *ThreadStore[T]) Remove(slot Slot) {
	if _, ok := s.entries[slot]; !ok {
		panic(fmt.Sprintf("%s: slot %d is not occupied", s.name, slot))
	}
	delete(s.entries, slot)
}

func (s *ThreadStore[T]) Lookup(slot Slot) (T, bool) {
	v, ok := s.entries[slot]
	return v, ok
}

func (s *ThreadStore[T]) Len() int {
	return len(s.entries)
}
