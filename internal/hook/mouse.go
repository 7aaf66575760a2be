package hook

import (
	"fmt"

	"winbridge/internal/winapi"
)

// MouseAction is what happened in a low-level mouse event.
type MouseAction uint8

const (
	MouseOther MouseAction = iota
	MouseMove
	MouseButtonDown
	MouseButtonUp
	MouseWheel
)

func (a MouseAction) String() string {
	switch a {
	case MouseMove:
		return "move"
	case MouseButtonDown:
		return "button-down"
	case MouseButtonUp:
		return "button-up"
	case MouseWheel:
		return "wheel"
	default:
		return "other"
	}
}

// MouseButton identifies a mouse button.
type MouseButton uint8

const (
	ButtonNone MouseButton = iota
	ButtonLeft
	ButtonRight
	ButtonMiddle
	ButtonX1
	ButtonX2
)

func (b MouseButton) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	case ButtonX1:
		return "x1"
	case ButtonX2:
		return "x2"
	default:
		return "none"
	}
}

// ChordName is the name hotkey.Chords tracks the button under, or "" for
// ButtonNone.
func (b MouseButton) ChordName() string {
	switch b {
	case ButtonLeft:
		return "MOUSE1"
	case ButtonMiddle:
		return "MOUSE2"
	case ButtonRight:
		return "MOUSE3"
	case ButtonX1:
		return "MOUSE4"
	case ButtonX2:
		return "MOUSE5"
	default:
		return ""
	}
}

// ScrollDirection classifies a wheel movement.
type ScrollDirection uint8

const (
	// ScrollContinuous is a movement that is not a whole number of wheel
	// notches, as reported by free-spinning and high resolution wheels.
	ScrollContinuous ScrollDirection = iota
	ScrollUp
	ScrollDown
)

// Scroll is a decoded wheel movement.
type Scroll struct {
	Direction ScrollDirection
	// Count is the number of notches for ScrollUp and ScrollDown.
	Count int
	// Amount is the raw movement for ScrollContinuous.
	Amount int16
}

// ScrollFromRaw decodes the signed wheel movement from HIWORD(mouseData).
func ScrollFromRaw(raw int16) Scroll {
	if raw != 0 && raw%winapi.WHEEL_DELTA == 0 {
		notches := int(raw) / winapi.WHEEL_DELTA
		if notches > 0 {
			return Scroll{Direction: ScrollUp, Count: notches}
		}
		return Scroll{Direction: ScrollDown, Count: -notches}
	}
	return Scroll{Direction: ScrollContinuous, Amount: raw}
}

// Delta returns the signed raw movement the scroll was decoded from.
func (s Scroll) Delta() int16 {
	switch s.Direction {
	case ScrollUp:
		return int16(s.Count * winapi.WHEEL_DELTA)
	case ScrollDown:
		return int16(-s.Count * winapi.WHEEL_DELTA)
	default:
		return s.Amount
	}
}

func (s Scroll) String() string {
	switch s.Direction {
	case ScrollUp:
		return fmt.Sprintf("up x%d", s.Count)
	case ScrollDown:
		return fmt.Sprintf("down x%d", s.Count)
	default:
		return fmt.Sprintf("continuous %d", s.Amount)
	}
}

const llmhfInjected = 0x01

// MouseMessage is a decoded WH_MOUSE_LL event.
type MouseMessage struct {
	Action MouseAction
	Button MouseButton
	Scroll Scroll
	// Code is the raw window message, kept for MouseOther.
	Code      uint32
	Point     winapi.Point
	Injected  bool
	Timestamp uint32
}

// DecodeMouse decodes a low-level mouse hook payload.
func DecodeMouse(wParam, lParam uintptr) MouseMessage {
	data := winapi.MouseHookData(lParam)
	return decodeMouse(uint32(wParam), data)
}

func decodeMouse(code uint32, data winapi.MSLLHOOKSTRUCT) MouseMessage {
	m := MouseMessage{
		Code:      code,
		Point:     data.Pt,
		Injected:  data.Flags&llmhfInjected != 0,
		Timestamp: data.Time,
	}
	high := winapi.HIWORD(data.MouseData)
	switch code {
	case winapi.WM_MOUSEMOVE:
		m.Action = MouseMove
	case winapi.WM_LBUTTONDOWN:
		m.Action, m.Button = MouseButtonDown, ButtonLeft
	case winapi.WM_LBUTTONUP:
		m.Action, m.Button = MouseButtonUp, ButtonLeft
	case winapi.WM_RBUTTONDOWN:
		m.Action, m.Button = MouseButtonDown, ButtonRight
	case winapi.WM_RBUTTONUP:
		m.Action, m.Button = MouseButtonUp, ButtonRight
	case winapi.WM_MBUTTONDOWN:
		m.Action, m.Button = MouseButtonDown, ButtonMiddle
	case winapi.WM_MBUTTONUP:
		m.Action, m.Button = MouseButtonUp, ButtonMiddle
	case winapi.WM_XBUTTONDOWN, winapi.WM_XBUTTONUP:
		m.Button = xButton(high)
		if m.Button == ButtonNone {
			break
		}
		m.Action = MouseButtonDown
		if code == winapi.WM_XBUTTONUP {
			m.Action = MouseButtonUp
		}
	case winapi.WM_MOUSEWHEEL:
		m.Action = MouseWheel
		m.Scroll = ScrollFromRaw(int16(high))
	}
	return m
}

func xButton(n uint16) MouseButton {
	switch n {
	case winapi.XBUTTON1:
		return ButtonX1
	case winapi.XBUTTON2:
		return ButtonX2
	default:
		return ButtonNone
	}
}
