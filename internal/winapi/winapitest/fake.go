// Package winapitest provides an in-memory winapi.System for tests.
//
// A Fake models one OS thread of a simulated desktop. Thread returns a view
// of the same desktop from another thread id, so hotkeys, queues and hooks can
// be checked per thread. Callbacks created through the New*Callback methods are
// invoked synchronously by the Fire* helpers, by DispatchMessage and by
// SendMessage, the same way user32 re-enters a thread inside GetMessage.
package winapitest

import (
	"runtime"
	"sort"
	"sync"
	"syscall"
	"unsafe"

	"winbridge/internal/winapi"
)

// NextHookResult is what CallNextHookEx returns unless overridden.
const NextHookResult uintptr = 0x4E58

// DefWindowResult is what DefWindowProc returns.
const DefWindowResult uintptr = 0xDEF

const (
	errInvalidWindowHandle     = syscall.Errno(1400)
	errInvalidHookHandle       = syscall.Errno(1404)
	errHotkeyAlreadyRegistered = syscall.Errno(1409)
	errClassAlreadyExists      = syscall.Errno(1410)
	errClassDoesNotExist       = syscall.Errno(1411)
	errHotkeyNotRegistered     = syscall.Errno(1419)
	errNotEnoughQuota          = syscall.Errno(1816)
	errAccessDenied            = syscall.Errno(5)
)

const queueSize = 256

// Hotkey is a hotkey registered with the fake.
type Hotkey struct {
	ID        int32
	Modifiers uint32
	VK        uint32
}

type hookRecord struct {
	handle winapi.Handle
	id     int32
	proc   uintptr
	thread uint32
}

type winEventRecord struct {
	handle   winapi.Handle
	min, max uint32
	proc     uintptr
	flags    uint32
}

type fakeWindow struct {
	class    string
	caption  string
	thread   uint32
	userData uintptr
}

type hotkeyKey struct {
	thread uint32
	id     int32
}

type menuKey struct {
	menu winapi.Handle
	pos  int32
}

type desktop struct {
	mu sync.Mutex

	views map[uint32]*Fake

	nextAddr      uintptr
	hookProcs     map[uintptr]winapi.HookProc
	windowProcs   map[uintptr]winapi.WindowProc
	winEventProcs map[uintptr]winapi.WinEventProc

	queues map[uint32]chan winapi.Msg

	nextHandle winapi.Handle
	hooks      []*hookRecord
	winEvents  []*winEventRecord
	hookFail   error
	unhookFail error
	nextHooks  int
	nextResult uintptr

	hotkeys        map[hotkeyKey]Hotkey
	rejectVK       map[uint32]bool
	unregisterFail error
	unregistered   []int32

	classes    map[string]uintptr
	windows    map[winapi.HWND]*fakeWindow
	nextHwnd   winapi.HWND
	defCalls   []winapi.Msg
	dispatched []winapi.Msg
	translated int

	messagePos uint32
	menuItems  map[menuKey]uint32

	getMessageErr error
}

// Fake is an in-memory winapi.System bound to one simulated thread.
type Fake struct {
	d   *desktop
	tid uint32
}

var _ winapi.System = (*Fake)(nil)

// New returns a fake desktop viewed from thread 1.
func New() *Fake {
	f := &Fake{
		d: &desktop{
			views:         make(map[uint32]*Fake),
			nextAddr:      0x1000,
			hookProcs:     make(map[uintptr]winapi.HookProc),
			windowProcs:   make(map[uintptr]winapi.WindowProc),
			winEventProcs: make(map[uintptr]winapi.WinEventProc),
			queues:        make(map[uint32]chan winapi.Msg),
			nextHandle:    0x100,
			nextResult:    NextHookResult,
			hotkeys:       make(map[hotkeyKey]Hotkey),
			rejectVK:      make(map[uint32]bool),
			classes:       make(map[string]uintptr),
			windows:       make(map[winapi.HWND]*fakeWindow),
			nextHwnd:      0x10000,
			menuItems:     make(map[menuKey]uint32),
		},
		tid: 1,
	}
	f.d.views[1] = f
	return f
}

// Thread returns the view of the same desktop from another thread. Every
// call with the same tid returns the same view, so a view can key per-thread
// state the way a System does.
func (f *Fake) Thread(tid uint32) *Fake {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	v, ok := f.d.views[tid]
	if !ok {
		v = &Fake{d: f.d, tid: tid}
		f.d.views[tid] = v
	}
	return v
}

func (f *Fake) queue(tid uint32) chan winapi.Msg {
	q, ok := f.d.queues[tid]
	if !ok {
		q = make(chan winapi.Msg, queueSize)
		f.d.queues[tid] = q
	}
	return q
}

func (f *Fake) post(tid uint32, msg winapi.Msg, op string) error {
	f.d.mu.Lock()
	q := f.queue(tid)
	f.d.mu.Unlock()
	select {
	case q <- msg:
		return nil
	default:
		return &winapi.Error{Op: op, Err: errNotEnoughQuota}
	}
}

func (f *Fake) CurrentThreadID() uint32 { return f.tid }

func (f *Fake) GetMessage(msg *winapi.Msg) (bool, error) {
	f.d.mu.Lock()
	if err := f.d.getMessageErr; err != nil {
		f.d.getMessageErr = nil
		f.d.mu.Unlock()
		return false, err
	}
	q := f.queue(f.tid)
	f.d.mu.Unlock()

	*msg = <-q
	return msg.Message != winapi.WM_QUIT, nil
}

func (f *Fake) TranslateMessage(*winapi.Msg) {
	f.d.mu.Lock()
	f.d.translated++
	f.d.mu.Unlock()
}

func (f *Fake) DispatchMessage(msg *winapi.Msg) uintptr {
	f.d.mu.Lock()
	f.d.dispatched = append(f.d.dispatched, *msg)
	proc := f.procFor(msg.Hwnd)
	f.d.mu.Unlock()
	if proc == nil {
		return 0
	}
	return proc(msg.Hwnd, msg.Message, msg.WParam, msg.LParam)
}

func (f *Fake) PostQuitMessage(exitCode int32) {
	_ = f.post(f.tid, winapi.Msg{Message: winapi.WM_QUIT, WParam: uintptr(exitCode)}, "PostQuitMessage")
}

func (f *Fake) PostThreadMessage(threadID uint32, msg uint32, wParam, lParam uintptr) error {
	return f.post(threadID, winapi.Msg{Message: msg, WParam: wParam, LParam: lParam}, "PostThreadMessageW")
}

func (f *Fake) PostMessage(hwnd winapi.HWND, msg uint32, wParam, lParam uintptr) error {
	tid := f.tid
	if hwnd != 0 {
		f.d.mu.Lock()
		w, ok := f.d.windows[hwnd]
		f.d.mu.Unlock()
		if !ok {
			return &winapi.Error{Op: "PostMessageW", Err: errInvalidWindowHandle}
		}
		tid = w.thread
	}
	return f.post(tid, winapi.Msg{Hwnd: hwnd, Message: msg, WParam: wParam, LParam: lParam}, "PostMessageW")
}

func (f *Fake) SendMessage(hwnd winapi.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	f.d.mu.Lock()
	proc := f.procFor(hwnd)
	f.d.mu.Unlock()
	if proc == nil {
		return 0
	}
	return proc(hwnd, msg, wParam, lParam)
}

func (f *Fake) GetMessagePos() uint32 {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	return f.d.messagePos
}

func (f *Fake) addr() uintptr {
	a := f.d.nextAddr
	f.d.nextAddr += 0x10
	return a
}

func (f *Fake) NewHookCallback(fn winapi.HookProc) uintptr {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	a := f.addr()
	f.d.hookProcs[a] = fn
	return a
}

func (f *Fake) NewWindowCallback(fn winapi.WindowProc) uintptr {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	a := f.addr()
	f.d.windowProcs[a] = fn
	return a
}

func (f *Fake) NewWinEventCallback(fn winapi.WinEventProc) uintptr {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	a := f.addr()
	f.d.winEventProcs[a] = fn
	return a
}

func (f *Fake) SetWindowsHookEx(id int32, proc uintptr) (winapi.Handle, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	if err := f.d.hookFail; err != nil {
		f.d.hookFail = nil
		return 0, err
	}
	if _, ok := f.d.hookProcs[proc]; !ok {
		return 0, &winapi.Error{Op: "SetWindowsHookExW", Err: errAccessDenied}
	}
	f.d.nextHandle++
	f.d.hooks = append(f.d.hooks, &hookRecord{handle: f.d.nextHandle, id: id, proc: proc, thread: f.tid})
	return f.d.nextHandle, nil
}

func (f *Fake) UnhookWindowsHookEx(hook winapi.Handle) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	if err := f.d.unhookFail; err != nil {
		f.d.unhookFail = nil
		return err
	}
	for i, h := range f.d.hooks {
		if h.handle == hook {
			f.d.hooks = append(f.d.hooks[:i], f.d.hooks[i+1:]...)
			return nil
		}
	}
	return &winapi.Error{Op: "UnhookWindowsHookEx", Err: errInvalidHookHandle}
}

func (f *Fake) CallNextHookEx(code int32, wParam, lParam uintptr) uintptr {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	f.d.nextHooks++
	return f.d.nextResult
}

func (f *Fake) SetWinEventHook(eventMin, eventMax uint32, proc uintptr, flags uint32) (winapi.Handle, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	if err := f.d.hookFail; err != nil {
		f.d.hookFail = nil
		return 0, err
	}
	if _, ok := f.d.winEventProcs[proc]; !ok {
		return 0, &winapi.Error{Op: "SetWinEventHook", Err: errAccessDenied}
	}
	f.d.nextHandle++
	f.d.winEvents = append(f.d.winEvents, &winEventRecord{handle: f.d.nextHandle, min: eventMin, max: eventMax, proc: proc, flags: flags})
	return f.d.nextHandle, nil
}

func (f *Fake) UnhookWinEvent(hook winapi.Handle) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	if err := f.d.unhookFail; err != nil {
		f.d.unhookFail = nil
		return err
	}
	for i, h := range f.d.winEvents {
		if h.handle == hook {
			f.d.winEvents = append(f.d.winEvents[:i], f.d.winEvents[i+1:]...)
			return nil
		}
	}
	return &winapi.Error{Op: "UnhookWinEvent", Err: errInvalidHookHandle}
}

func (f *Fake) RegisterHotKey(id int32, modifiers, vk uint32) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	key := hotkeyKey{thread: f.tid, id: id}
	if _, taken := f.d.hotkeys[key]; taken || f.d.rejectVK[vk] {
		return &winapi.Error{Op: "RegisterHotKey", Err: errHotkeyAlreadyRegistered}
	}
	f.d.hotkeys[key] = Hotkey{ID: id, Modifiers: modifiers, VK: vk}
	return nil
}

func (f *Fake) UnregisterHotKey(id int32) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	if err := f.d.unregisterFail; err != nil {
		f.d.unregisterFail = nil
		return err
	}
	key := hotkeyKey{thread: f.tid, id: id}
	if _, ok := f.d.hotkeys[key]; !ok {
		return &winapi.Error{Op: "UnregisterHotKey", Err: errHotkeyNotRegistered}
	}
	delete(f.d.hotkeys, key)
	f.d.unregistered = append(f.d.unregistered, id)
	return nil
}

func (f *Fake) RegisterClass(name string, proc uintptr) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	if _, ok := f.d.classes[name]; ok {
		return &winapi.Error{Op: "RegisterClassExW", Err: errClassAlreadyExists}
	}
	f.d.classes[name] = proc
	return nil
}

func (f *Fake) UnregisterClass(name string) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	if _, ok := f.d.classes[name]; !ok {
		return &winapi.Error{Op: "UnregisterClassW", Err: errClassDoesNotExist}
	}
	delete(f.d.classes, name)
	return nil
}

func (f *Fake) CreateWindow(className, caption string, style uint32) (winapi.HWND, error) {
	f.d.mu.Lock()
	if _, ok := f.d.classes[className]; !ok {
		f.d.mu.Unlock()
		return 0, &winapi.Error{Op: "CreateWindowExW", Err: errClassDoesNotExist}
	}
	f.d.nextHwnd += 0x10
	hwnd := f.d.nextHwnd
	f.d.windows[hwnd] = &fakeWindow{class: className, caption: caption, thread: f.tid}
	proc := f.procFor(hwnd)
	f.d.mu.Unlock()

	// WM_CREATE arrives before the caller can attach anything to the window.
	if proc != nil {
		proc(hwnd, 0x0001, 0, 0)
	}
	return hwnd, nil
}

func (f *Fake) DestroyWindow(hwnd winapi.HWND) error {
	f.d.mu.Lock()
	proc := f.procFor(hwnd)
	f.d.mu.Unlock()
	if proc == nil {
		return &winapi.Error{Op: "DestroyWindow", Err: errInvalidWindowHandle}
	}
	proc(hwnd, winapi.WM_DESTROY, 0, 0)
	f.d.mu.Lock()
	delete(f.d.windows, hwnd)
	f.d.mu.Unlock()
	return nil
}

func (f *Fake) IsWindow(hwnd winapi.HWND) bool {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	_, ok := f.d.windows[hwnd]
	return ok
}

func (f *Fake) DefWindowProc(hwnd winapi.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	f.d.mu.Lock()
	f.d.defCalls = append(f.d.defCalls, winapi.Msg{Hwnd: hwnd, Message: msg, WParam: wParam, LParam: lParam})
	f.d.mu.Unlock()
	if msg == winapi.WM_CLOSE {
		_ = f.DestroyWindow(hwnd)
	}
	return DefWindowResult
}

func (f *Fake) GetWindowLongPtr(hwnd winapi.HWND, index int32) uintptr {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	w, ok := f.d.windows[hwnd]
	if !ok || index != winapi.GWLP_USERDATA {
		return 0
	}
	return w.userData
}

func (f *Fake) SetWindowLongPtr(hwnd winapi.HWND, index int32, value uintptr) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	w, ok := f.d.windows[hwnd]
	if !ok {
		return &winapi.Error{Op: "SetWindowLongPtrW", Err: errInvalidWindowHandle}
	}
	if index == winapi.GWLP_USERDATA {
		w.userData = value
	}
	return nil
}

func (f *Fake) GetMenuItemID(menu winapi.Handle, pos int32) uint32 {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	id, ok := f.d.menuItems[menuKey{menu: menu, pos: pos}]
	if !ok {
		return 0xFFFFFFFF
	}
	return id
}

// procFor must be called with the lock held.
func (f *Fake) procFor(hwnd winapi.HWND) winapi.WindowProc {
	w, ok := f.d.windows[hwnd]
	if !ok {
		return nil
	}
	return f.d.windowProcs[f.d.classes[w.class]]
}

// FireHook delivers a raw event to the most recent hook of the given type
// installed by this thread. It reports false if no such hook exists.
func (f *Fake) FireHook(id, code int32, wParam, lParam uintptr) (uintptr, bool) {
	f.d.mu.Lock()
	var proc winapi.HookProc
	for i := len(f.d.hooks) - 1; i >= 0; i-- {
		h := f.d.hooks[i]
		if h.id == id && h.thread == f.tid {
			proc = f.d.hookProcs[h.proc]
			break
		}
	}
	f.d.mu.Unlock()
	if proc == nil {
		return 0, false
	}
	return proc(code, wParam, lParam), true
}

// pinned returns the address of a heap copy of v that stays put until unpin
// is called, the way the OS keeps a hook payload in place during the call.
func pinned[T any](v T) (addr uintptr, unpin func()) {
	p := new(T)
	*p = v
	var pin runtime.Pinner
	pin.Pin(p)
	return uintptr(unsafe.Pointer(p)), pin.Unpin
}

// FireMouse delivers a WH_MOUSE_LL event.
func (f *Fake) FireMouse(msg uint32, data winapi.MSLLHOOKSTRUCT) (uintptr, bool) {
	addr, unpin := pinned(data)
	defer unpin()
	return f.FireHook(winapi.WH_MOUSE_LL, 0, uintptr(msg), addr)
}

// FireKeyboard delivers a WH_KEYBOARD_LL event.
func (f *Fake) FireKeyboard(msg uint32, data winapi.KBDLLHOOKSTRUCT) (uintptr, bool) {
	addr, unpin := pinned(data)
	defer unpin()
	return f.FireHook(winapi.WH_KEYBOARD_LL, 0, uintptr(msg), addr)
}

// FireWinEvent delivers an event to every WinEvent hook whose range covers it
// and returns the number of hooks called.
func (f *Fake) FireWinEvent(event uint32, hwnd winapi.HWND, objectID, childID int32) int {
	f.d.mu.Lock()
	var procs []struct {
		handle winapi.Handle
		fn     winapi.WinEventProc
	}
	for _, h := range f.d.winEvents {
		if event >= h.min && event <= h.max {
			procs = append(procs, struct {
				handle winapi.Handle
				fn     winapi.WinEventProc
			}{h.handle, f.d.winEventProcs[h.proc]})
		}
	}
	f.d.mu.Unlock()
	for _, p := range procs {
		p.fn(p.handle, event, hwnd, objectID, childID, f.tid, 0)
	}
	return len(procs)
}

// Hooks returns the number of low-level hooks of the given type installed by
// this thread.
func (f *Fake) Hooks(id int32) int {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	n := 0
	for _, h := range f.d.hooks {
		if h.id == id && h.thread == f.tid {
			n++
		}
	}
	return n
}

// WinEventHooks returns the number of installed WinEvent hooks.
func (f *Fake) WinEventHooks() int {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	return len(f.d.winEvents)
}

// NextHookCalls returns how often CallNextHookEx was called.
func (f *Fake) NextHookCalls() int {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	return f.d.nextHooks
}

// FailNextHook makes the next SetWindowsHookEx or SetWinEventHook fail.
func (f *Fake) FailNextHook(err error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	f.d.hookFail = err
}

// FailNextUnhook makes the next UnhookWindowsHookEx or UnhookWinEvent fail.
func (f *Fake) FailNextUnhook(err error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	f.d.unhookFail = err
}

// FailNextGetMessage makes the next GetMessage on any thread fail.
func (f *Fake) FailNextGetMessage(err error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	f.d.getMessageErr = err
}

// RejectKey makes RegisterHotKey fail for any combination using vk, as if
// another application owned it.
func (f *Fake) RejectKey(vk uint32) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	f.d.rejectVK[vk] = true
}

// FailNextUnregister makes the next UnregisterHotKey fail.
func (f *Fake) FailNextUnregister(err error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	f.d.unregisterFail = err
}

// Hotkeys returns the hotkeys registered by this thread ordered by id.
func (f *Fake) Hotkeys() []Hotkey {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	var out []Hotkey
	for k, h := range f.d.hotkeys {
		if k.thread == f.tid {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Unregistered returns the hotkey ids in the order they were unregistered.
func (f *Fake) Unregistered() []int32 {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	return append([]int32(nil), f.d.unregistered...)
}

// Classes returns the registered window class names.
func (f *Fake) Classes() []string {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	out := make([]string, 0, len(f.d.classes))
	for name := range f.d.classes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DefWindowCalls returns the messages that reached DefWindowProc.
func (f *Fake) DefWindowCalls() []winapi.Msg {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	return append([]winapi.Msg(nil), f.d.defCalls...)
}

// Dispatched returns the messages passed to DispatchMessage.
func (f *Fake) Dispatched() []winapi.Msg {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	return append([]winapi.Msg(nil), f.d.dispatched...)
}

// Translated returns how often TranslateMessage was called.
func (f *Fake) Translated() int {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	return f.d.translated
}

// Pending returns the number of messages queued for this thread.
func (f *Fake) Pending() int {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	return len(f.queue(f.tid))
}

// SetMessagePos sets the cursor position reported by GetMessagePos.
func (f *Fake) SetMessagePos(x, y int16) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	f.d.messagePos = uint32(uint16(x)) | uint32(uint16(y))<<16
}

// SetMenuItem makes GetMenuItemID(menu, pos) return id.
func (f *Fake) SetMenuItem(menu winapi.Handle, pos int32, id uint32) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	f.d.menuItems[menuKey{menu: menu, pos: pos}] = id
}
