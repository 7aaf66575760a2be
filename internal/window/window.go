// Package window creates top-level windows whose messages are decoded and
// passed to a Go listener.
//
// Each window stores its slot in GWLP_USERDATA; the shared window procedure
// reads it back and finds the Window in the thread-bound store of the loop
// running on the current thread.
package window

import (
	"encoding/base64"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"winbridge/internal/closure"
	"winbridge/internal/hook"
	"winbridge/internal/messaging"
	"winbridge/internal/winapi"
)

// Listener receives the decoded messages of a window. Its answer decides
// whether DefWindowProc runs.
type Listener func(w *Window, msg Message) messaging.Answer

var (
	procMu sync.Mutex
	procs  = make(map[winapi.System]uintptr)
)

// windowProc returns the window procedure shared by every class on sys.
func windowProc(sys winapi.System) uintptr {
	procMu.Lock()
	defer procMu.Unlock()
	if addr, ok := procs[sys]; ok {
		return addr
	}
	addr := sys.NewWindowCallback(func(hwnd winapi.HWND, code uint32, wParam, lParam uintptr) uintptr {
		data := sys.GetWindowLongPtr(hwnd, winapi.GWLP_USERDATA)
		if data == 0 {
			// Messages sent during CreateWindow arrive before New attaches
			// the window.
			return sys.DefWindowProc(hwnd, code, wParam, lParam)
		}
		return closure.Contain(func() uintptr {
			return dispatch(sys, closure.Slot(data-1), hwnd, code, wParam, lParam)
		})
	})
	procs[sys] = addr
	return addr
}

func dispatch(sys winapi.System, slot closure.Slot, hwnd winapi.HWND, code uint32, wParam, lParam uintptr) uintptr {
	loop := messaging.Current(sys)
	if loop == nil {
		panic(fmt.Sprintf("window: message %#x on thread %d without a message loop", code, sys.CurrentThreadID()))
	}
	v, ok := loop.Store(closure.Window).Lookup(slot)
	if !ok {
		panic(fmt.Sprintf("window: message %#x for window %#x without attached listener in slot %d", code, hwnd, slot))
	}
	w := v.(*Window)

	msg := decode(sys, code, wParam, lParam)
	if msg.Kind != Other && msg.Kind != User {
		// Sent messages bypass the queue; wake the loop so its step
		// callback runs after them.
		_ = sys.PostMessage(0, messaging.WakeupMessage, 0, 0)
	}

	answer := messaging.Continue
	if w.listener != nil {
		answer = w.listener(w, msg)
	}
	return answer.WindowResult(func() uintptr {
		return sys.DefWindowProc(hwnd, code, wParam, lParam)
	})
}

// Class is a registered window class using the shared window procedure.
type Class struct {
	sys  winapi.System
	name string
}

// RegisterClass registers a class named prefix plus a random suffix, so
// several instances of a program never collide.
func RegisterClass(sys winapi.System, prefix string) (*Class, error) {
	id := uuid.New()
	name := prefix + "_" + base64.RawURLEncoding.EncodeToString(id[:])
	if err := sys.RegisterClass(name, windowProc(sys)); err != nil {
		return nil, fmt.Errorf("window: register class %s: %w", name, err)
	}
	return &Class{sys: sys, name: name}, nil
}

// Name returns the registered class name.
func (c *Class) Name() string { return c.name }

// Unregister removes the class. All its windows must be destroyed first.
func (c *Class) Unregister() error {
	if err := c.sys.UnregisterClass(c.name); err != nil {
		return fmt.Errorf("window: unregister class %s: %w", c.name, err)
	}
	return nil
}

var nextSlot atomic.Uint32

// Window is a window attached to a message loop.
type Window struct {
	loop     *messaging.Loop
	hwnd     winapi.HWND
	handle   *hook.Handle
	listener Listener
}

// New creates a visible window of class on the loop's thread and attaches
// listener to it. Messages sent while the window is being created go to
// DefWindowProc.
func New(loop *messaging.Loop, class *Class, caption string, listener Listener) (*Window, error) {
	sys := loop.System()
	hwnd, err := sys.CreateWindow(class.name, caption, winapi.WS_OVERLAPPEDWINDOW|winapi.WS_VISIBLE)
	if err != nil {
		return nil, fmt.Errorf("window: create %q: %w", caption, err)
	}

	w := &Window{loop: loop, hwnd: hwnd, listener: listener}
	slot := closure.Slot(nextSlot.Add(1) - 1)
	w.handle, err = hook.Install(loop.Store(closure.Window), slot, w,
		func() (winapi.Handle, error) {
			if err := sys.SetWindowLongPtr(hwnd, winapi.GWLP_USERDATA, uintptr(slot)+1); err != nil {
				return 0, err
			}
			return winapi.Handle(hwnd), nil
		},
		func(winapi.Handle) error {
			if !sys.IsWindow(hwnd) {
				return nil
			}
			return sys.SetWindowLongPtr(hwnd, winapi.GWLP_USERDATA, 0)
		},
	)
	if err != nil {
		_ = sys.DestroyWindow(hwnd)
		return nil, fmt.Errorf("window: attach %q: %w", caption, err)
	}
	return w, nil
}

// Handle returns the OS window handle.
func (w *Window) Handle() winapi.HWND { return w.hwnd }

// Slot returns the window's slot in the loop's window store.
func (w *Window) Slot() closure.Slot { return w.handle.Slot() }

// SetListener replaces the listener. A nil listener answers Continue to
// everything.
func (w *Window) SetListener(l Listener) { w.listener = l }

// Alive reports whether the OS window still exists.
func (w *Window) Alive() bool {
	return w.loop.System().IsWindow(w.hwnd)
}

// Close asks the window to close, as if the user clicked its close button.
func (w *Window) Close() error {
	return w.loop.System().PostMessage(w.hwnd, winapi.WM_CLOSE, 0, 0)
}

// PostUserMessage posts custom message id to the window.
func (w *Window) PostUserMessage(id uint8, wParam, lParam uintptr) error {
	if err := w.loop.System().PostMessage(w.hwnd, messaging.AppMessage(id), wParam, lParam); err != nil {
		return fmt.Errorf("window: post user message %d: %w", id, err)
	}
	return nil
}

// Destroy destroys the OS window if it still exists, delivering Destroy to
// the listener, and detaches it. Only the first call does anything. It must
// be called on the loop's thread.
func (w *Window) Destroy() error {
	var err error
	sys := w.loop.System()
	if sys.IsWindow(w.hwnd) {
		if derr := sys.DestroyWindow(w.hwnd); derr != nil {
			err = fmt.Errorf("window: destroy: %w", derr)
		}
	}
	w.handle.Remove()
	return err
}
