package hotkey

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winbridge/internal/closure"
	"winbridge/internal/messaging"
	"winbridge/internal/winapi"
	"winbridge/internal/winapi/winapitest"
)

type action int

const (
	actionOne action = iota + 1
	actionTwo
	actionThree
)

func threeKeys() *Set[action] {
	return NewSet[action]().
		Add(actionOne, Ctrl|Alt, KeyA).
		Add(actionTwo, Shift|Alt, KeyA+1).
		Add(actionThree, Win, KeyPageUp)
}

func TestActivateRegistersInOrderWithNoRepeat(t *testing.T) {
	f := winapitest.New()
	loop := messaging.New(f)
	defer loop.Close()

	a, err := threeKeys().Activate(loop, func(action) error { return nil })
	require.NoError(t, err)
	defer a.Stop()

	assert.Equal(t, []winapitest.Hotkey{
		{ID: 1, Modifiers: winapi.MOD_CONTROL | winapi.MOD_ALT | winapi.MOD_NOREPEAT, VK: uint32(KeyA)},
		{ID: 2, Modifiers: winapi.MOD_SHIFT | winapi.MOD_ALT | winapi.MOD_NOREPEAT, VK: uint32(KeyA + 1)},
		{ID: 3, Modifiers: winapi.MOD_WIN | winapi.MOD_NOREPEAT, VK: uint32(KeyPageUp)},
	}, f.Hotkeys())
	assert.Equal(t, 3, a.Len())
}

func TestActivateIsAtomic(t *testing.T) {
	keys := []Key{KeyA, KeyA + 1, KeyA + 2, KeyA + 3}

	for k := range keys {
		t.Run(keys[k].String(), func(t *testing.T) {
			f := winapitest.New()
			f.RejectKey(uint32(keys[k]))
			loop := messaging.New(f)
			defer loop.Close()

			set := NewSet[int]()
			for i, key := range keys {
				set.Add(i, Ctrl, key)
			}

			a, err := set.Activate(loop, func(int) error { return nil })
			require.Error(t, err)
			assert.Nil(t, a)

			var osErr *winapi.Error
			assert.ErrorAs(t, err, &osErr)
			assert.Empty(t, f.Hotkeys(), "no hotkey may stay registered")
			assert.Zero(t, loop.Registrations())

			// Rollback runs newest first.
			var want []int32
			for id := int32(k); id >= MinID; id-- {
				want = append(want, id)
			}
			assert.Equal(t, want, f.Unregistered())
		})
	}
}

func TestActivateFailureFreesThread(t *testing.T) {
	f := winapitest.New()
	f.RejectKey(uint32(KeyA))
	loop := messaging.New(f)
	defer loop.Close()

	_, err := NewSet[int]().Add(1, Ctrl, KeyA).Activate(loop, nil)
	require.Error(t, err)

	a, err := NewSet[int]().Add(1, Ctrl, KeyA+1).Activate(loop, func(int) error { return nil })
	require.NoError(t, err)
	assert.NoError(t, a.Stop())
}

func TestSecondActiveSetPanics(t *testing.T) {
	f := winapitest.New()
	loop := messaging.New(f)
	defer loop.Close()

	a, err := threeKeys().Activate(loop, func(action) error { return nil })
	require.NoError(t, err)

	assert.PanicsWithValue(t, "hotkey: thread 1 already has an active hotkey set", func() {
		_, _ = NewSet[string]().Add("x", Ctrl, KeyF1).Activate(loop, nil)
	})
	assert.Len(t, f.Hotkeys(), 3)

	require.NoError(t, a.Stop())
	b, err := NewSet[string]().Add("x", Ctrl, KeyF1).Activate(loop, func(string) error { return nil })
	require.NoError(t, err)
	require.NoError(t, b.Stop())
}

func TestSetsOnDifferentThreads(t *testing.T) {
	f := winapitest.New()
	l1 := messaging.New(f)
	defer l1.Close()
	other := f.Thread(2)
	l2 := messaging.New(other)
	defer l2.Close()

	a, err := threeKeys().Activate(l1, func(action) error { return nil })
	require.NoError(t, err)
	defer a.Stop()
	b, err := threeKeys().Activate(l2, func(action) error { return nil })
	require.NoError(t, err)
	defer b.Stop()

	assert.Len(t, f.Hotkeys(), 3)
	assert.Len(t, other.Hotkeys(), 3)
}

func TestHotkeyMessagesMapToLabels(t *testing.T) {
	f := winapitest.New()
	loop := messaging.New(f)
	defer loop.Close()

	var fired []action
	a, err := threeKeys().Activate(loop, func(l action) error {
		fired = append(fired, l)
		if len(fired) == 3 {
			messaging.PostQuit(f)
		}
		return nil
	})
	require.NoError(t, err)

	for _, id := range []uintptr{3, 1, 2} {
		require.NoError(t, f.PostThreadMessage(1, winapi.WM_HOTKEY, id, 0))
	}
	require.NoError(t, loop.Run(nil))
	require.NoError(t, a.Stop())

	assert.Equal(t, []action{actionThree, actionOne, actionTwo}, fired)
	assert.Empty(t, f.Dispatched(), "hotkey messages are consumed by the set")
}

func TestUnknownHotkeyIDEndsRun(t *testing.T) {
	f := winapitest.New()
	loop := messaging.New(f)
	defer loop.Close()

	a, err := threeKeys().Activate(loop, func(action) error { return nil })
	require.NoError(t, err)
	defer a.Stop()

	require.NoError(t, f.PostThreadMessage(1, winapi.WM_HOTKEY, 9, 0))
	err = loop.Run(nil)
	assert.ErrorIs(t, err, ErrUnknownHotkey)
}

func TestCallbackErrorEndsRun(t *testing.T) {
	f := winapitest.New()
	loop := messaging.New(f)
	defer loop.Close()

	errDone := errors.New("done")
	a, err := threeKeys().Activate(loop, func(action) error { return errDone })
	require.NoError(t, err)
	defer a.Stop()

	require.NoError(t, f.PostThreadMessage(1, winapi.WM_HOTKEY, 1, 0))
	assert.ErrorIs(t, loop.Run(nil), errDone)
}

func TestStopUnregistersInReverse(t *testing.T) {
	f := winapitest.New()
	loop := messaging.New(f)
	defer loop.Close()

	a, err := threeKeys().Activate(loop, func(action) error { return nil })
	require.NoError(t, err)

	require.NoError(t, a.Stop())
	require.NoError(t, a.Stop())
	assert.Equal(t, []int32{3, 2, 1}, f.Unregistered())
	assert.Empty(t, f.Hotkeys())
	_, held := loop.Store(closure.Hotkey).Lookup(activeSlot)
	assert.False(t, held)

	// The listener is gone, so WM_HOTKEY is dispatched like any message.
	require.NoError(t, f.PostThreadMessage(1, winapi.WM_HOTKEY, 1, 0))
	messaging.PostQuit(f)
	require.NoError(t, loop.Run(nil))
	assert.Len(t, f.Dispatched(), 1)
}

func TestStopReportsUnregisterFailure(t *testing.T) {
	f := winapitest.New()
	loop := messaging.New(f)
	defer loop.Close()

	a, err := threeKeys().Activate(loop, func(action) error { return nil })
	require.NoError(t, err)

	osErr := &winapi.Error{Op: "UnregisterHotKey", Err: 1419}
	f.FailNextUnregister(osErr)
	err = a.Stop()
	assert.ErrorIs(t, err, osErr)
	assert.Equal(t, []int32{2, 1}, f.Unregistered(), "remaining ids are still released")
	assert.Zero(t, loop.Registrations())
}

func TestListen(t *testing.T) {
	f := winapitest.New()
	loop := messaging.New(f)
	defer loop.Close()

	require.NoError(t, f.PostThreadMessage(1, winapi.WM_HOTKEY, 2, 0))
	var got action
	err := threeKeys().Listen(loop, func(l action) error {
		got = l
		messaging.PostQuit(f)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, actionTwo, got)
	assert.Empty(t, f.Hotkeys())
}

func TestSetLabels(t *testing.T) {
	assert.Equal(t, []action{actionOne, actionTwo, actionThree}, threeKeys().Labels())
	assert.Empty(t, NewSet[string]().Labels())
}
