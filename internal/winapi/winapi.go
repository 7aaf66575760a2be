// Package winapi is the boundary between winbridge and the Windows user32
// message and hook APIs.
//
// Everything above this package talks to the OS through the System interface,
// so the dispatch engine can run against the real user32 (Native) or against
// an in-memory double (winapitest.Fake).
package winapi

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"
)

// Handle is an opaque OS handle (HHOOK, HWINEVENTHOOK, HMENU, HINSTANCE).
type Handle uintptr

// HWND is a window handle.
type HWND uintptr

// Point mirrors POINT.
type Point struct {
	X, Y int32
}

// Msg mirrors MSG.
type Msg struct {
	Hwnd    HWND
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      Point
}

// MSLLHOOKSTRUCT is the payload of a WH_MOUSE_LL event.
type MSLLHOOKSTRUCT struct {
	Pt          Point
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

// KBDLLHOOKSTRUCT is the payload of a WH_KEYBOARD_LL event.
type KBDLLHOOKSTRUCT struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

const (
	WH_KEYBOARD_LL = 13
	WH_MOUSE_LL    = 14
)

// Window messages.
const (
	WM_DESTROY     = 0x0002
	WM_SIZE        = 0x0005
	WM_CLOSE       = 0x0010
	WM_QUIT        = 0x0012
	WM_CONTEXTMENU = 0x007B
	WM_KEYDOWN     = 0x0100
	WM_KEYUP       = 0x0101
	WM_SYSKEYDOWN  = 0x0104
	WM_SYSKEYUP    = 0x0105
	WM_MENUCOMMAND = 0x0126
	WM_MOUSEMOVE   = 0x0200
	WM_LBUTTONDOWN = 0x0201
	WM_LBUTTONUP   = 0x0202
	WM_RBUTTONDOWN = 0x0204
	WM_RBUTTONUP   = 0x0205
	WM_MBUTTONDOWN = 0x0207
	WM_MBUTTONUP   = 0x0208
	WM_MOUSEWHEEL  = 0x020A
	WM_XBUTTONDOWN = 0x020B
	WM_XBUTTONUP   = 0x020C
	WM_HOTKEY      = 0x0312
	WM_APP         = 0x8000
)

const (
	SIZE_MINIMIZED = 1
	WHEEL_DELTA    = 120
	XBUTTON1       = 1
	XBUTTON2       = 2
	NIN_SELECT     = 0x0400
	NIN_KEYSELECT  = 0x0401
)

// Hotkey modifiers for RegisterHotKey.
const (
	MOD_ALT      = 0x0001
	MOD_CONTROL  = 0x0002
	MOD_SHIFT    = 0x0004
	MOD_WIN      = 0x0008
	MOD_NOREPEAT = 0x4000
)

// KBDLLHOOKSTRUCT flags.
const (
	LLKHF_EXTENDED = 0x01
	LLKHF_INJECTED = 0x10
	LLKHF_ALTDOWN  = 0x20
	LLKHF_UP       = 0x80
)

const (
	GWLP_USERDATA = -21

	WS_OVERLAPPEDWINDOW = 0x00CF0000
	WS_VISIBLE          = 0x10000000
	CW_USEDEFAULT       = 0x80000000

	WINEVENT_OUTOFCONTEXT   = 0x0000
	WINEVENT_SKIPOWNPROCESS = 0x0002
)

// HookProc is the shape of a low-level hook procedure.
type HookProc func(code int32, wParam, lParam uintptr) uintptr

// WindowProc is the shape of a window procedure.
type WindowProc func(hwnd HWND, msg uint32, wParam, lParam uintptr) uintptr

// WinEventProc is the shape of a WinEvent hook procedure.
type WinEventProc func(hook Handle, event uint32, hwnd HWND, objectID, childID int32, thread, timestamp uint32)

// System is the set of user32 operations the dispatch engine needs.
//
// Methods that the OS defines as thread-affine (GetMessage, hooks, hotkeys,
// window creation) act on behalf of the calling OS thread.
type System interface {
	CurrentThreadID() uint32

	// GetMessage blocks for the next message of the calling thread. It
	// reports false when the message is WM_QUIT.
	GetMessage(msg *Msg) (bool, error)
	TranslateMessage(msg *Msg)
	DispatchMessage(msg *Msg) uintptr
	PostQuitMessage(exitCode int32)
	PostThreadMessage(threadID uint32, msg uint32, wParam, lParam uintptr) error
	PostMessage(hwnd HWND, msg uint32, wParam, lParam uintptr) error
	SendMessage(hwnd HWND, msg uint32, wParam, lParam uintptr) uintptr
	GetMessagePos() uint32

	// Callback addresses are never released; callers must cache them.
	NewHookCallback(fn HookProc) uintptr
	NewWindowCallback(fn WindowProc) uintptr
	NewWinEventCallback(fn WinEventProc) uintptr

	SetWindowsHookEx(id int32, proc uintptr) (Handle, error)
	UnhookWindowsHookEx(hook Handle) error
	CallNextHookEx(code int32, wParam, lParam uintptr) uintptr

	SetWinEventHook(eventMin, eventMax uint32, proc uintptr, flags uint32) (Handle, error)
	UnhookWinEvent(hook Handle) error

	RegisterHotKey(id int32, modifiers, vk uint32) error
	UnregisterHotKey(id int32) error

	RegisterClass(name string, proc uintptr) error
	UnregisterClass(name string) error
	CreateWindow(className, caption string, style uint32) (HWND, error)
	DestroyWindow(hwnd HWND) error
	IsWindow(hwnd HWND) bool
	DefWindowProc(hwnd HWND, msg uint32, wParam, lParam uintptr) uintptr
	GetWindowLongPtr(hwnd HWND, index int32) uintptr
	SetWindowLongPtr(hwnd HWND, index int32, value uintptr) error
	GetMenuItemID(menu Handle, pos int32) uint32
}

// ErrUnsupported is returned by Native on platforms without user32.
var ErrUnsupported = errors.New("winapi: not supported on this platform")

// Error is an OS call that reported failure.
type Error struct {
	Op  string
	Err syscall.Errno
}

func (e *Error) Error() string {
	if e.Err == 0 {
		return e.Op + " failed"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	if e.Err == 0 {
		return nil
	}
	return e.Err
}

func LOWORD(v uint32) uint16 { return uint16(v) }
func HIWORD(v uint32) uint16 { return uint16(v >> 16) }

// PointFromParam unpacks signed x/y coordinates the way GET_X_LPARAM and
// GET_Y_LPARAM do.
func PointFromParam(v uint32) Point {
	return Point{X: int32(int16(LOWORD(v))), Y: int32(int16(HIWORD(v)))}
}

// MouseHookData reads the MSLLHOOKSTRUCT an lParam points to. The struct
// lives in memory owned by the caller of the hook procedure.
//
//go:nocheckptr
func MouseHookData(lParam uintptr) MSLLHOOKSTRUCT {
	return *(*MSLLHOOKSTRUCT)(unsafe.Pointer(lParam))
}

// KeyboardHookData reads the KBDLLHOOKSTRUCT an lParam points to.
//
//go:nocheckptr
func KeyboardHookData(lParam uintptr) KBDLLHOOKSTRUCT {
	return *(*KBDLLHOOKSTRUCT)(unsafe.Pointer(lParam))
}
