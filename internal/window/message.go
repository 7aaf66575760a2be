package window

import (
	"fmt"

	"winbridge/internal/messaging"
	"winbridge/internal/winapi"
)

// Kind classifies a window message.
type Kind uint8

const (
	Other Kind = iota
	// MenuCommand is a menu item chosen from a menu with MNS_NOTIFYBYPOS.
	MenuCommand
	// Close is a request to close the window. Continue lets DefWindowProc
	// destroy it.
	Close
	Destroy
	Minimized
	// IconSelect is a click or keyboard selection on a notification icon.
	IconSelect
	// IconContextSelect is a request for a notification icon's context
	// menu.
	IconContextSelect
	// User is a custom message in the WM_APP range.
	User
)

func (k Kind) String() string {
	switch k {
	case MenuCommand:
		return "menu-command"
	case Close:
		return "close"
	case Destroy:
		return "destroy"
	case Minimized:
		return "minimized"
	case IconSelect:
		return "icon-select"
	case IconContextSelect:
		return "icon-context-select"
	case User:
		return "user"
	default:
		return "other"
	}
}

// Message is a decoded window message.
type Message struct {
	Kind Kind
	// Code, WParam and LParam are the raw message.
	Code   uint32
	WParam uintptr
	LParam uintptr

	// MenuItem is the id of the chosen item for MenuCommand.
	MenuItem uint32
	// Icon is the notification icon id for IconSelect and
	// IconContextSelect.
	Icon uint16
	// Point is the cursor position for IconSelect and IconContextSelect.
	Point winapi.Point
	// UserID is the application defined id of a User message.
	UserID uint8
}

func (m Message) String() string {
	switch m.Kind {
	case MenuCommand:
		return fmt.Sprintf("menu-command item=%d", m.MenuItem)
	case IconSelect, IconContextSelect:
		return fmt.Sprintf("%s icon=%d at (%d,%d)", m.Kind, m.Icon, m.Point.X, m.Point.Y)
	case User:
		return fmt.Sprintf("user id=%d w=%#x l=%#x", m.UserID, m.WParam, m.LParam)
	case Other:
		return fmt.Sprintf("other %#x", m.Code)
	default:
		return m.Kind.String()
	}
}

// decode turns a raw window procedure call into a Message. sys is only used
// for menus and notification icons.
func decode(sys winapi.System, code uint32, wParam, lParam uintptr) Message {
	m := Message{Kind: Other, Code: code, WParam: wParam, LParam: lParam}
	switch {
	case code == winapi.WM_MENUCOMMAND:
		m.Kind = MenuCommand
		m.MenuItem = sys.GetMenuItemID(winapi.Handle(lParam), int32(wParam))
	case code == winapi.WM_CLOSE:
		m.Kind = Close
	case code == winapi.WM_DESTROY:
		m.Kind = Destroy
	case code == winapi.WM_SIZE && wParam == winapi.SIZE_MINIMIZED:
		m.Kind = Minimized
	case code == messaging.NotificationIconMessage:
		switch winapi.LOWORD(uint32(lParam)) {
		case winapi.NIN_SELECT, winapi.NIN_KEYSELECT:
			m.Kind = IconSelect
		case winapi.WM_CONTEXTMENU:
			m.Kind = IconContextSelect
		default:
			return m
		}
		m.Icon = winapi.HIWORD(uint32(lParam))
		m.Point = winapi.PointFromParam(sys.GetMessagePos())
	case code >= messaging.AppMessageBase && code <= messaging.AppMessageBase+0xFF:
		m.Kind = User
		m.UserID = uint8(code - messaging.AppMessageBase)
	}
	return m
}
