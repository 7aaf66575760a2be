package hotkey

import (
	"errors"
	"fmt"
	"log/slog"

	"winbridge/internal/closure"
	"winbridge/internal/messaging"
	"winbridge/internal/winapi"
)

// MinID is the OS hotkey id given to the first definition of a Set.
const MinID int32 = 1

// activeSlot is the hotkey store slot claimed by the active set of a thread.
// Hotkey ids share one namespace per thread, so only one set may hold it.
const activeSlot closure.Slot = 0

// ErrUnknownHotkey is returned from Loop.Run when WM_HOTKEY carries an id
// that the active set did not register.
var ErrUnknownHotkey = errors.New("hotkey: unknown hotkey id")

type definition[L comparable] struct {
	label L
	combo Combination
}

// Set is an ordered list of hotkey definitions that are registered together.
type Set[L comparable] struct {
	defs []definition[L]
}

// NewSet returns an empty set.
func NewSet[L comparable]() *Set[L] {
	return &Set[L]{}
}

// Add appends a definition. Nothing is registered until Activate.
func (s *Set[L]) Add(label L, modifiers Modifier, key Key) *Set[L] {
	return s.AddCombination(label, Combination{Modifiers: modifiers, Key: key})
}

// AddCombination appends a parsed combination.
func (s *Set[L]) AddCombination(label L, c Combination) *Set[L] {
	s.defs = append(s.defs, definition[L]{label: label, combo: c})
	return s
}

// Len returns the number of definitions.
func (s *Set[L]) Len() int {
	return len(s.defs)
}

// Labels returns the labels of the definitions in order.
func (s *Set[L]) Labels() []L {
	out := make([]L, len(s.defs))
	for i, d := range s.defs {
		out[i] = d.label
	}
	return out
}

// Active is a set whose hotkeys are registered with the OS.
type Active[L comparable] struct {
	loop     *messaging.Loop
	ids      []int32
	labels   map[int32]L
	fn       func(L) error
	listener *messaging.Registration
	stopped  bool
}

// Activate registers every definition with the OS, in order, with ids from
// MinID. Auto-repeat is always suppressed. If any registration fails, the
// ones already made are undone in reverse order and the error is returned:
// either all hotkeys of the set are registered or none are.
//
// While active, each WM_HOTKEY reaching loop is mapped back to its label and
// passed to fn; an error from fn ends loop.Run.
//
// It panics if another set is active on the loop's thread.
func (s *Set[L]) Activate(loop *messaging.Loop, fn func(L) error) (*Active[L], error) {
	store := loop.Store(closure.Hotkey)
	if _, ok := store.Lookup(activeSlot); ok {
		panic(fmt.Sprintf("hotkey: thread %d already has an active hotkey set", loop.ThreadID()))
	}

	a := &Active[L]{
		loop:   loop,
		labels: make(map[int32]L, len(s.defs)),
		fn:     fn,
	}
	store.Insert(activeSlot, a)

	sys := loop.System()
	for i, d := range s.defs {
		id := MinID + int32(i)
		mods := uint32(d.combo.Modifiers) | winapi.MOD_NOREPEAT
		if err := sys.RegisterHotKey(id, mods, uint32(d.combo.Key)); err != nil {
			a.rollback()
			store.Remove(activeSlot)
			return nil, fmt.Errorf("hotkey: register %v (%v): %w", d.label, d.combo, err)
		}
		a.ids = append(a.ids, id)
		a.labels[id] = d.label
	}

	a.listener = loop.AddListener(winapi.WM_HOTKEY, a.dispatch)
	return a, nil
}

// Listen activates the set, runs the loop until WM_QUIT and stops the set.
func (s *Set[L]) Listen(loop *messaging.Loop, fn func(L) error) (err error) {
	a, err := s.Activate(loop, fn)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Stop())
	}()
	return loop.Run(nil)
}

func (a *Active[L]) rollback() {
	sys := a.loop.System()
	for i := len(a.ids) - 1; i >= 0; i-- {
		if err := sys.UnregisterHotKey(a.ids[i]); err != nil {
			slog.Warn("hotkey rollback: unregister failed", "id", a.ids[i], "err", err)
		}
	}
	a.ids = nil
}

func (a *Active[L]) dispatch(msg winapi.Msg) (messaging.Answer, error) {
	id := int32(msg.WParam)
	label, ok := a.labels[id]
	if !ok {
		return messaging.Continue, fmt.Errorf("%w: %d", ErrUnknownHotkey, id)
	}
	return messaging.Block, a.fn(label)
}

// Len returns the number of registered hotkeys.
func (a *Active[L]) Len() int {
	return len(a.ids)
}

// Stop unregisters the hotkeys in reverse order, removes the loop listener
// and frees the thread for another set. Only the first call does anything.
// It must be called on the loop's thread.
func (a *Active[L]) Stop() error {
	if a.stopped {
		return nil
	}
	a.stopped = true
	a.listener.Remove()

	sys := a.loop.System()
	var errs []error
	for i := len(a.ids) - 1; i >= 0; i-- {
		if err := sys.UnregisterHotKey(a.ids[i]); err != nil {
			errs = append(errs, fmt.Errorf("hotkey: unregister id %d: %w", a.ids[i], err))
		}
	}
	a.ids = nil
	a.loop.Store(closure.Hotkey).Remove(activeSlot)
	return errors.Join(errs...)
}
