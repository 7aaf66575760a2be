// Package input captures low-level keyboard and mouse events through hooks
// and turns them into flat records for logging.
package input

import (
	"fmt"

	"winbridge/internal/hook"
)

// Event types.
const (
	TypeMouseMove   = "mouse_move"
	TypeMouseButton = "mouse_btn"
	TypeMouseWheel  = "mouse_wheel"
	TypeMouseOther  = "mouse_other"
	TypeKey         = "key"
)

// Event is a keyboard or mouse input event.
type Event struct {
	Type     string `json:"type"`
	X        int32  `json:"x,omitempty"`
	Y        int32  `json:"y,omitempty"`
	Button   string `json:"btn,omitempty"`
	Pressed  bool   `json:"pressed,omitempty"`
	Wheel    int16  `json:"wheel,omitempty"`
	Key      string `json:"key,omitempty"`
	KeyCode  uint16 `json:"keycode,omitempty"`
	ScanCode uint32 `json:"scancode,omitempty"`
	Injected bool   `json:"injected,omitempty"`
	// Blocked is set when the event was swallowed instead of passed on.
	Blocked   bool   `json:"blocked,omitempty"`
	Code      uint32 `json:"code,omitempty"`
	Timestamp uint32 `json:"ts"` // ms since boot
}

// FromMouse converts a decoded mouse hook event.
func FromMouse(m hook.MouseMessage) Event {
	e := Event{
		X:         m.Point.X,
		Y:         m.Point.Y,
		Injected:  m.Injected,
		Timestamp: m.Timestamp,
	}
	switch m.Action {
	case hook.MouseMove:
		e.Type = TypeMouseMove
	case hook.MouseButtonDown, hook.MouseButtonUp:
		e.Type = TypeMouseButton
		e.Button = m.Button.String()
		e.Pressed = m.Action == hook.MouseButtonDown
	case hook.MouseWheel:
		e.Type = TypeMouseWheel
		e.Wheel = m.Scroll.Delta()
	default:
		e.Type = TypeMouseOther
		e.Code = m.Code
	}
	return e
}

// FromKeyboard converts a decoded keyboard hook event.
func FromKeyboard(m hook.KeyboardMessage) Event {
	e := Event{
		Type:      TypeKey,
		Key:       m.Key.String(),
		KeyCode:   uint16(m.Key),
		ScanCode:  m.ScanCode,
		Pressed:   m.Action.Pressed(),
		Injected:  m.Flags.Injected(),
		Timestamp: m.Timestamp,
	}
	if m.Action == hook.KeyOther {
		e.Code = m.Code
	}
	return e
}

func (e Event) String() string {
	var s string
	switch e.Type {
	case TypeMouseMove:
		s = fmt.Sprintf("move (%d,%d)", e.X, e.Y)
	case TypeMouseButton:
		s = fmt.Sprintf("%s %s at (%d,%d)", e.Button, upDown(e.Pressed), e.X, e.Y)
	case TypeMouseWheel:
		s = fmt.Sprintf("wheel %s at (%d,%d)", hook.ScrollFromRaw(e.Wheel), e.X, e.Y)
	case TypeKey:
		s = fmt.Sprintf("key %s %s", e.Key, upDown(e.Pressed))
	default:
		s = fmt.Sprintf("%s %#x", e.Type, e.Code)
	}
	if e.Injected {
		s += " injected"
	}
	if e.Blocked {
		s += " blocked"
	}
	return s
}

func upDown(pressed bool) string {
	if pressed {
		return "down"
	}
	return "up"
}
