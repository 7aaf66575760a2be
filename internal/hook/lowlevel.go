// Package hook installs global low-level mouse and keyboard hooks and WinEvent
// hooks, and decodes their raw payloads into typed messages.
//
// Low-level hooks are delivered by the OS on the thread that installed them,
// from inside that thread's GetMessage call, so every hook belongs to a
// messaging.Loop and keeps its callback in the loop's thread-bound store.
package hook

import (
	"fmt"
	"sync"

	"winbridge/internal/closure"
	"winbridge/internal/messaging"
	"winbridge/internal/winapi"
)

type kind[M any] struct {
	hookID   int32
	category closure.Category
	decode   func(wParam, lParam uintptr) M
}

var (
	mouseKind    = kind[MouseMessage]{hookID: winapi.WH_MOUSE_LL, category: closure.Mouse, decode: DecodeMouse}
	keyboardKind = kind[KeyboardMessage]{hookID: winapi.WH_KEYBOARD_LL, category: closure.Keyboard, decode: DecodeKeyboard}
)

type trampolineKey struct {
	sys      winapi.System
	category closure.Category
	slot     closure.Slot
}

// The runtime never frees callback addresses, so one trampoline per slot is
// created and reused.
var (
	trampolineMu sync.Mutex
	trampolines  = make(map[trampolineKey]uintptr)
)

func cachedTrampoline(key trampolineKey, create func() uintptr) uintptr {
	trampolineMu.Lock()
	defer trampolineMu.Unlock()
	if addr, ok := trampolines[key]; ok {
		return addr
	}
	addr := create()
	trampolines[key] = addr
	return addr
}

func (k kind[M]) trampoline(sys winapi.System, slot closure.Slot) uintptr {
	key := trampolineKey{sys: sys, category: k.category, slot: slot}
	return cachedTrampoline(key, func() uintptr {
		return sys.NewHookCallback(func(code int32, wParam, lParam uintptr) uintptr {
			if code < 0 {
				return sys.CallNextHookEx(code, wParam, lParam)
			}
			return closure.Contain(func() uintptr {
				return k.dispatch(sys, slot, code, wParam, lParam)
			})
		})
	})
}

func (k kind[M]) dispatch(sys winapi.System, slot closure.Slot, code int32, wParam, lParam uintptr) uintptr {
	loop := messaging.Current(sys)
	if loop == nil {
		panic(fmt.Sprintf("hook: %s callback on thread %d without a message loop", k.category, sys.CurrentThreadID()))
	}
	v, ok := loop.Store(k.category).Lookup(slot)
	if !ok {
		panic(fmt.Sprintf("hook: %s callback called without installed hook in slot %d", k.category, slot))
	}
	answer := v.(func(M) messaging.Answer)(k.decode(wParam, lParam))
	return answer.HookResult(func() uintptr {
		return sys.CallNextHookEx(code, wParam, lParam)
	})
}

func add[M any](loop *messaging.Loop, k kind[M], slot closure.Slot, fn func(M) messaging.Answer) (*Handle, error) {
	sys := loop.System()
	proc := k.trampoline(sys, slot)
	h, err := Install(loop.Store(k.category), slot, fn,
		func() (winapi.Handle, error) { return sys.SetWindowsHookEx(k.hookID, proc) },
		sys.UnhookWindowsHookEx,
	)
	if err != nil {
		return nil, fmt.Errorf("hook: install %s hook: %w", k.category, err)
	}
	return h, nil
}

// AddMouse installs a low-level mouse hook on the loop's thread. slot must be
// unused by other mouse hooks of the thread.
func AddMouse(loop *messaging.Loop, slot closure.Slot, fn func(MouseMessage) messaging.Answer) (*Handle, error) {
	return add(loop, mouseKind, slot, fn)
}

// AddKeyboard installs a low-level keyboard hook on the loop's thread. slot
// must be unused by other keyboard hooks of the thread.
func AddKeyboard(loop *messaging.Loop, slot closure.Slot, fn func(KeyboardMessage) messaging.Answer) (*Handle, error) {
	return add(loop, keyboardKind, slot, fn)
}

func run[M any](sys winapi.System, k kind[M], fn func(M) messaging.Answer) error {
	loop := messaging.New(sys)
	defer loop.Close()

	h, err := add(loop, k, 0, fn)
	if err != nil {
		return err
	}
	defer h.Remove()

	return loop.Run(nil)
}

// RunMouse creates a loop on the calling goroutine's thread, hooks the mouse
// and pumps messages until the thread receives WM_QUIT.
func RunMouse(sys winapi.System, fn func(MouseMessage) messaging.Answer) error {
	return run(sys, mouseKind, fn)
}

// RunKeyboard is RunMouse for the keyboard.
func RunKeyboard(sys winapi.System, fn func(KeyboardMessage) messaging.Answer) error {
	return run(sys, keyboardKind, fn)
}
