//go:build windows

package winapi

import (
	"errors"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procGetMessage          = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessage     = user32.NewProc("DispatchMessageW")
	procPostQuitMessage     = user32.NewProc("PostQuitMessage")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	procPostMessage         = user32.NewProc("PostMessageW")
	procSendMessage         = user32.NewProc("SendMessageW")
	procGetMessagePos       = user32.NewProc("GetMessagePos")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procSetWinEventHook     = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent      = user32.NewProc("UnhookWinEvent")
	procRegisterHotKey      = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey    = user32.NewProc("UnregisterHotKey")
	procRegisterClassEx     = user32.NewProc("RegisterClassExW")
	procUnregisterClass     = user32.NewProc("UnregisterClassW")
	procCreateWindowEx      = user32.NewProc("CreateWindowExW")
	procDestroyWindow       = user32.NewProc("DestroyWindow")
	procIsWindow            = user32.NewProc("IsWindow")
	procDefWindowProc       = user32.NewProc("DefWindowProcW")
	procGetWindowLongPtr    = user32.NewProc("GetWindowLongPtrW")
	procSetWindowLongPtr    = user32.NewProc("SetWindowLongPtrW")
	procGetMenuItemID       = user32.NewProc("GetMenuItemID")
	procLoadCursor          = user32.NewProc("LoadCursorW")

	kernel32            = windows.NewLazySystemDLL("kernel32.dll")
	procGetModuleHandle = kernel32.NewProc("GetModuleHandleW")
	procSetLastError    = kernel32.NewProc("SetLastError")
)

const (
	idcArrow    = 32512
	colorWindow = 5
)

type wndClassEx struct {
	Size       uint32
	Style      uint32
	WndProc    uintptr
	ClsExtra   int32
	WndExtra   int32
	Instance   uintptr
	Icon       uintptr
	Cursor     uintptr
	Background uintptr
	MenuName   *uint16
	ClassName  *uint16
	IconSm     uintptr
}

type native struct {
	instance uintptr
}

var (
	nativeOnce sync.Once
	nativeSys  *native
)

// Native returns the System backed by user32.dll.
func Native() (System, error) {
	nativeOnce.Do(func() {
		hMod, _, _ := procGetModuleHandle.Call(0)
		nativeSys = &native{instance: hMod}
	})
	return nativeSys, nil
}

func callError(op string, err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return &Error{Op: op, Err: errno}
	}
	return &Error{Op: op}
}

func (n *native) CurrentThreadID() uint32 {
	return windows.GetCurrentThreadId()
}

func (n *native) GetMessage(msg *Msg) (bool, error) {
	ret, _, err := procGetMessage.Call(uintptr(unsafe.Pointer(msg)), 0, 0, 0)
	switch int32(ret) {
	case -1:
		return false, callError("GetMessageW", err)
	case 0:
		return false, nil
	}
	return true, nil
}

func (n *native) TranslateMessage(msg *Msg) {
	procTranslateMessage.Call(uintptr(unsafe.Pointer(msg)))
}

func (n *native) DispatchMessage(msg *Msg) uintptr {
	ret, _, _ := procDispatchMessage.Call(uintptr(unsafe.Pointer(msg)))
	return ret
}

func (n *native) PostQuitMessage(exitCode int32) {
	procPostQuitMessage.Call(uintptr(exitCode))
}

func (n *native) PostThreadMessage(threadID uint32, msg uint32, wParam, lParam uintptr) error {
	ret, _, err := procPostThreadMessage.Call(uintptr(threadID), uintptr(msg), wParam, lParam)
	if ret == 0 {
		return callError("PostThreadMessageW", err)
	}
	return nil
}

func (n *native) PostMessage(hwnd HWND, msg uint32, wParam, lParam uintptr) error {
	ret, _, err := procPostMessage.Call(uintptr(hwnd), uintptr(msg), wParam, lParam)
	if ret == 0 {
		return callError("PostMessageW", err)
	}
	return nil
}

func (n *native) SendMessage(hwnd HWND, msg uint32, wParam, lParam uintptr) uintptr {
	ret, _, _ := procSendMessage.Call(uintptr(hwnd), uintptr(msg), wParam, lParam)
	return ret
}

func (n *native) GetMessagePos() uint32 {
	ret, _, _ := procGetMessagePos.Call()
	return uint32(ret)
}

func (n *native) NewHookCallback(fn HookProc) uintptr {
	return windows.NewCallback(func(code, wParam, lParam uintptr) uintptr {
		return fn(int32(code), wParam, lParam)
	})
}

func (n *native) NewWindowCallback(fn WindowProc) uintptr {
	return windows.NewCallback(func(hwnd, msg, wParam, lParam uintptr) uintptr {
		return fn(HWND(hwnd), uint32(msg), wParam, lParam)
	})
}

func (n *native) NewWinEventCallback(fn WinEventProc) uintptr {
	return windows.NewCallback(func(hook, event, hwnd, objectID, childID, thread, timestamp uintptr) uintptr {
		fn(Handle(hook), uint32(event), HWND(hwnd), int32(objectID), int32(childID), uint32(thread), uint32(timestamp))
		return 0
	})
}

func (n *native) SetWindowsHookEx(id int32, proc uintptr) (Handle, error) {
	ret, _, err := procSetWindowsHookEx.Call(uintptr(id), proc, n.instance, 0)
	if ret == 0 {
		return 0, callError("SetWindowsHookExW", err)
	}
	return Handle(ret), nil
}

func (n *native) UnhookWindowsHookEx(hook Handle) error {
	ret, _, err := procUnhookWindowsHookEx.Call(uintptr(hook))
	if ret == 0 {
		return callError("UnhookWindowsHookEx", err)
	}
	return nil
}

func (n *native) CallNextHookEx(code int32, wParam, lParam uintptr) uintptr {
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(code), wParam, lParam)
	return ret
}

func (n *native) SetWinEventHook(eventMin, eventMax uint32, proc uintptr, flags uint32) (Handle, error) {
	ret, _, err := procSetWinEventHook.Call(uintptr(eventMin), uintptr(eventMax), 0, proc, 0, 0, uintptr(flags))
	if ret == 0 {
		return 0, callError("SetWinEventHook", err)
	}
	return Handle(ret), nil
}

func (n *native) UnhookWinEvent(hook Handle) error {
	ret, _, err := procUnhookWinEvent.Call(uintptr(hook))
	if ret == 0 {
		return callError("UnhookWinEvent", err)
	}
	return nil
}

func (n *native) RegisterHotKey(id int32, modifiers, vk uint32) error {
	ret, _, err := procRegisterHotKey.Call(0, uintptr(id), uintptr(modifiers), uintptr(vk))
	if ret == 0 {
		return callError("RegisterHotKey", err)
	}
	return nil
}

func (n *native) UnregisterHotKey(id int32) error {
	ret, _, err := procUnregisterHotKey.Call(0, uintptr(id))
	if ret == 0 {
		return callError("UnregisterHotKey", err)
	}
	return nil
}

func (n *native) RegisterClass(name string, proc uintptr) error {
	className, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return err
	}
	cursor, _, _ := procLoadCursor.Call(0, idcArrow)
	wc := wndClassEx{
		WndProc:    proc,
		Instance:   n.instance,
		Cursor:     cursor,
		Background: colorWindow + 1,
		ClassName:  className,
	}
	wc.Size = uint32(unsafe.Sizeof(wc))
	ret, _, err := procRegisterClassEx.Call(uintptr(unsafe.Pointer(&wc)))
	if ret == 0 {
		return callError("RegisterClassExW", err)
	}
	return nil
}

func (n *native) UnregisterClass(name string) error {
	className, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return err
	}
	ret, _, err := procUnregisterClass.Call(uintptr(unsafe.Pointer(className)), n.instance)
	if ret == 0 {
		return callError("UnregisterClassW", err)
	}
	return nil
}

func (n *native) CreateWindow(className, caption string, style uint32) (HWND, error) {
	classPtr, err := windows.UTF16PtrFromString(className)
	if err != nil {
		return 0, err
	}
	captionPtr, err := windows.UTF16PtrFromString(caption)
	if err != nil {
		return 0, err
	}
	ret, _, err := procCreateWindowEx.Call(
		0,
		uintptr(unsafe.Pointer(classPtr)),
		uintptr(unsafe.Pointer(captionPtr)),
		uintptr(style),
		CW_USEDEFAULT, CW_USEDEFAULT, CW_USEDEFAULT, CW_USEDEFAULT,
		0, 0, n.instance, 0,
	)
	if ret == 0 {
		return 0, callError("CreateWindowExW", err)
	}
	return HWND(ret), nil
}

func (n *native) DestroyWindow(hwnd HWND) error {
	ret, _, err := procDestroyWindow.Call(uintptr(hwnd))
	if ret == 0 {
		return callError("DestroyWindow", err)
	}
	return nil
}

func (n *native) IsWindow(hwnd HWND) bool {
	ret, _, _ := procIsWindow.Call(uintptr(hwnd))
	return ret != 0
}

func (n *native) DefWindowProc(hwnd HWND, msg uint32, wParam, lParam uintptr) uintptr {
	ret, _, _ := procDefWindowProc.Call(uintptr(hwnd), uintptr(msg), wParam, lParam)
	return ret
}

func (n *native) GetWindowLongPtr(hwnd HWND, index int32) uintptr {
	ret, _, _ := procGetWindowLongPtr.Call(uintptr(hwnd), uintptr(index))
	return ret
}

func (n *native) SetWindowLongPtr(hwnd HWND, index int32, value uintptr) error {
	// A zero return is ambiguous; only a fresh last error marks failure.
	procSetLastError.Call(0)
	ret, _, err := procSetWindowLongPtr.Call(uintptr(hwnd), uintptr(index), value)
	if ret == 0 {
		var errno syscall.Errno
		if errors.As(err, &errno) && errno != 0 {
			return &Error{Op: "SetWindowLongPtrW", Err: errno}
		}
	}
	return nil
}

func (n *native) GetMenuItemID(menu Handle, pos int32) uint32 {
	ret, _, _ := procGetMenuItemID.Call(uintptr(menu), uintptr(pos))
	return uint32(ret)
}
