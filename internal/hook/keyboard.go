package hook

import (
	"winbridge/internal/hotkey"
	"winbridge/internal/winapi"
)

// KeyAction is what happened in a low-level keyboard event.
type KeyAction uint8

const (
	KeyOther KeyAction = iota
	// KeyDown may repeat while the key is held.
	KeyDown
	KeyUp
	SysKeyDown
	SysKeyUp
)

func (a KeyAction) String() string {
	switch a {
	case KeyDown:
		return "down"
	case KeyUp:
		return "up"
	case SysKeyDown:
		return "sys-down"
	case SysKeyUp:
		return "sys-up"
	default:
		return "other"
	}
}

// Pressed reports whether the action is a key press.
func (a KeyAction) Pressed() bool {
	return a == KeyDown || a == SysKeyDown
}

// KeyFlags are the KBDLLHOOKSTRUCT flags.
type KeyFlags uint32

func (f KeyFlags) Extended() bool { return f&winapi.LLKHF_EXTENDED != 0 }
func (f KeyFlags) Injected() bool { return f&winapi.LLKHF_INJECTED != 0 }
func (f KeyFlags) AltDown() bool  { return f&winapi.LLKHF_ALTDOWN != 0 }
func (f KeyFlags) Released() bool { return f&winapi.LLKHF_UP != 0 }

// KeyboardMessage is a decoded WH_KEYBOARD_LL event.
type KeyboardMessage struct {
	Action KeyAction
	// Code is the raw window message, kept for KeyOther.
	Code      uint32
	Key       hotkey.Key
	ScanCode  uint32
	Flags     KeyFlags
	Timestamp uint32
}

// DecodeKeyboard decodes a low-level keyboard hook payload.
func DecodeKeyboard(wParam, lParam uintptr) KeyboardMessage {
	return decodeKeyboard(uint32(wParam), winapi.KeyboardHookData(lParam))
}

func decodeKeyboard(code uint32, data winapi.KBDLLHOOKSTRUCT) KeyboardMessage {
	m := KeyboardMessage{
		Code:      code,
		Key:       hotkey.Key(data.VkCode),
		ScanCode:  data.ScanCode,
		Flags:     KeyFlags(data.Flags),
		Timestamp: data.Time,
	}
	switch code {
	case winapi.WM_KEYDOWN:
		m.Action = KeyDown
	case winapi.WM_KEYUP:
		m.Action = KeyUp
	case winapi.WM_SYSKEYDOWN:
		m.Action = SysKeyDown
	case winapi.WM_SYSKEYUP:
		m.Action = SysKeyUp
	}
	return m
}
