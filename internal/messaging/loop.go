// Package messaging runs the Windows message loop of one OS thread and maps
// callback answers onto the OS return protocol.
//
// A Loop is the context every registration on a thread hangs off: it owns
// the thread-bound closure stores that hook and window trampolines read, and
// the per-message-code listeners that hotkey sets and other components add.
package messaging

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"winbridge/internal/closure"
	"winbridge/internal/winapi"
)

const (
	// AppMessageBase is WM_APP; ids up to AppMessageBase+255 carry custom
	// user messages.
	AppMessageBase uint32 = winapi.WM_APP

	// Start of the RegisterWindowMessage range. Codes just below it do not
	// collide with predefined control class messages.
	stringMessageBase uint32 = 0xC000

	// WakeupMessage is posted to the thread queue by window procedures so
	// the loop sees messages that were sent rather than posted.
	WakeupMessage = stringMessageBase - 1
	// NotificationIconMessage is the callback message of notification
	// area icons.
	NotificationIconMessage = stringMessageBase - 2
)

// AppMessage returns the message code of custom user message id.
func AppMessage(id uint8) uint32 {
	return AppMessageBase + uint32(id)
}

// Listener observes queued messages of one code. A non-Continue answer stops
// the message from being translated and dispatched.
type Listener func(msg winapi.Msg) (Answer, error)

type loopKey struct {
	sys    winapi.System
	thread uint32
}

var loops sync.Map // loopKey -> *Loop

// Loop is the message loop of one OS thread.
type Loop struct {
	sys       winapi.System
	thread    uint32
	stores    map[closure.Category]*closure.ThreadStore[any]
	listeners map[uint32][]*Registration
	closed    bool
}

// New creates the loop for the calling goroutine's OS thread, locking the
// goroutine to it until Close.
//
// It panics if the thread already has a loop.
func New(sys winapi.System) *Loop {
	runtime.LockOSThread()
	l := &Loop{
		sys:       sys,
		thread:    sys.CurrentThreadID(),
		stores:    make(map[closure.Category]*closure.ThreadStore[any]),
		listeners: make(map[uint32][]*Registration),
	}
	if _, loaded := loops.LoadOrStore(l.key(), l); loaded {
		runtime.UnlockOSThread()
		panic(fmt.Sprintf("messaging: thread %d already has a message loop", l.thread))
	}
	return l
}

// NewNative creates a loop on the real OS.
func NewNative() (*Loop, error) {
	sys, err := winapi.Native()
	if err != nil {
		return nil, err
	}
	return New(sys), nil
}

// Current returns the loop of the calling thread, or nil.
func Current(sys winapi.System) *Loop {
	v, ok := loops.Load(loopKey{sys: sys, thread: sys.CurrentThreadID()})
	if !ok {
		return nil
	}
	return v.(*Loop)
}

func (l *Loop) key() loopKey {
	return loopKey{sys: l.sys, thread: l.thread}
}

// System returns the OS the loop runs on.
func (l *Loop) System() winapi.System { return l.sys }

// ThreadID returns the OS thread the loop belongs to.
func (l *Loop) ThreadID() uint32 { return l.thread }

// Store returns the thread-bound closure store for category c.
func (l *Loop) Store(c closure.Category) *closure.ThreadStore[any] {
	s, ok := l.stores[c]
	if !ok {
		s = closure.NewThreadStore[any](fmt.Sprintf("messaging: %s closures", c))
		l.stores[c] = s
	}
	return s
}

// Registrations returns the number of callbacks held in the loop's stores.
func (l *Loop) Registrations() int {
	n := 0
	for _, s := range l.stores {
		n += s.Len()
	}
	return n
}

// Close releases the thread so a new loop may be created on it. It must be
// called from the goroutine that called New.
func (l *Loop) Close() {
	if l.closed {
		return
	}
	l.closed = true
	if n := l.Registrations(); n > 0 {
		slog.Warn("message loop closed with active registrations",
			"thread", l.thread, "registrations", n)
	}
	loops.Delete(l.key())
	runtime.UnlockOSThread()
}

// Run pumps the thread's message queue until WM_QUIT.
//
// For every other message the listeners for its code run in registration
// order; a listener error ends Run and a non-Continue answer skips the
// remaining listeners and the translate/dispatch step. step, if not nil, runs
// once after each message.
func (l *Loop) Run(step func() error) error {
	if tid := l.sys.CurrentThreadID(); tid != l.thread {
		panic(fmt.Sprintf("messaging: loop of thread %d run on thread %d", l.thread, tid))
	}
	for {
		var msg winapi.Msg
		ok, err := l.sys.GetMessage(&msg)
		if err != nil {
			return fmt.Errorf("messaging: get message: %w", err)
		}
		if !ok {
			return nil
		}

		handled, err := l.notify(msg)
		if err != nil {
			return err
		}
		if !handled {
			l.sys.TranslateMessage(&msg)
			l.sys.DispatchMessage(&msg)
		}

		if step != nil {
			if err := step(); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) notify(msg winapi.Msg) (bool, error) {
	regs := l.listeners[msg.Message]
	if len(regs) == 0 {
		return false, nil
	}
	// Listeners may remove themselves while running.
	regs = append([]*Registration(nil), regs...)
	for _, r := range regs {
		if r.removed {
			continue
		}
		answer, err := r.fn(msg)
		if err != nil {
			return false, err
		}
		if answer.Handled() {
			return true, nil
		}
	}
	return false, nil
}

// Registration is one listener added to a loop.
type Registration struct {
	loop    *Loop
	code    uint32
	fn      Listener
	removed bool
}

// AddListener registers fn for messages with the given code. Several
// listeners may share a code; each removes only itself.
func (l *Loop) AddListener(code uint32, fn Listener) *Registration {
	r := &Registration{loop: l, code: code, fn: fn}
	l.listeners[code] = append(l.listeners[code], r)
	return r
}

// Remove detaches the listener. Calling it again has no effect.
func (r *Registration) Remove() {
	if r.removed {
		return
	}
	r.removed = true
	regs := r.loop.listeners[r.code]
	for i, other := range regs {
		if other == r {
			regs = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(regs) == 0 {
		delete(r.loop.listeners, r.code)
	} else {
		r.loop.listeners[r.code] = regs
	}
}

// Post enqueues a thread message for the loop. Unlike the other methods it
// may be called from any goroutine.
func (l *Loop) Post(msg uint32, wParam, lParam uintptr) error {
	return l.sys.PostThreadMessage(l.thread, msg, wParam, lParam)
}

// Quit asks the loop to return from Run. It may be called from any goroutine.
func (l *Loop) Quit() error {
	return PostThreadQuit(l.sys, l.thread)
}

// PostQuit posts WM_QUIT to the calling thread's queue.
func PostQuit(sys winapi.System) {
	sys.PostQuitMessage(0)
}

// PostThreadQuit posts WM_QUIT to another thread's queue.
func PostThreadQuit(sys winapi.System, threadID uint32) error {
	if err := sys.PostThreadMessage(threadID, winapi.WM_QUIT, 0, 0); err != nil {
		return fmt.Errorf("messaging: post quit to thread %d: %w", threadID, err)
	}
	return nil
}
