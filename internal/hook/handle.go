package hook

import (
	"fmt"

	"winbridge/internal/closure"
	"winbridge/internal/winapi"
)

// Handle owns one OS registration and the closure store entry its trampoline
// reads. The entry exists exactly as long as the OS registration.
type Handle struct {
	store      closure.Store[any]
	slot       closure.Slot
	token      winapi.Handle
	unregister func(winapi.Handle) error
	removed    bool
}

// Install stores callback under slot and then performs the OS registration.
// If register fails the store entry is rolled back and no Handle is returned.
// An occupied slot panics.
func Install(
	store closure.Store[any],
	slot closure.Slot,
	callback any,
	register func() (winapi.Handle, error),
	unregister func(winapi.Handle) error,
) (*Handle, error) {
	store.Insert(slot, callback)
	token, err := register()
	if err != nil {
		store.Remove(slot)
		return nil, err
	}
	return &Handle{
		store:      store,
		slot:       slot,
		token:      token,
		unregister: unregister,
	}, nil
}

// Slot returns the slot the handle occupies.
func (h *Handle) Slot() closure.Slot { return h.slot }

// Token returns the OS handle of the registration.
func (h *Handle) Token() winapi.Handle { return h.token }

// Remove unregisters from the OS and then clears the store entry. Only the
// first call does anything. A failed OS unregistration panics: the store and
// the OS would no longer agree on what is registered.
//
// Handles backed by a thread-bound store must be removed on the thread that
// created them.
func (h *Handle) Remove() {
	if h.removed {
		return
	}
	h.removed = true
	if err := h.unregister(h.token); err != nil {
		panic(fmt.Sprintf("hook: unregister slot %d: %v", h.slot, err))
	}
	h.store.Remove(h.slot)
}
