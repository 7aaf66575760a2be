package hook

import (
	"fmt"

	"winbridge/internal/closure"
	"winbridge/internal/messaging"
	"winbridge/internal/winapi"
)

// WinEventKind is an accessibility event code.
type WinEventKind uint32

const (
	EventForeground       WinEventKind = 0x0003
	EventMoveSizeStart    WinEventKind = 0x000A
	EventMoveSizeEnd      WinEventKind = 0x000B
	EventMinimizeStart    WinEventKind = 0x0016
	EventMinimizeEnd      WinEventKind = 0x0017
	EventObjectCreate     WinEventKind = 0x8000
	EventObjectDestroy    WinEventKind = 0x8001
	EventObjectShow       WinEventKind = 0x8002
	EventObjectHide       WinEventKind = 0x8003
	EventObjectLocation   WinEventKind = 0x800B
	EventObjectNameChange WinEventKind = 0x800C
)

const (
	eventMin       = 0x00000001
	eventMax       = 0x7FFFFFFF
	objectIDWindow = 0
	childIDSelf    = 0
)

var winEventNames = map[WinEventKind]string{
	EventForeground:       "foreground",
	EventMoveSizeStart:    "move-size-start",
	EventMoveSizeEnd:      "move-size-end",
	EventMinimizeStart:    "minimize-start",
	EventMinimizeEnd:      "minimize-end",
	EventObjectCreate:     "object-create",
	EventObjectDestroy:    "object-destroy",
	EventObjectShow:       "object-show",
	EventObjectHide:       "object-hide",
	EventObjectLocation:   "object-location",
	EventObjectNameChange: "object-name-change",
}

func (k WinEventKind) String() string {
	if name, ok := winEventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%#x)", uint32(k))
}

// WinEventMessage is one accessibility event.
type WinEventMessage struct {
	Kind      WinEventKind
	Window    winapi.HWND
	ObjectID  int32
	ChildID   int32
	Thread    uint32
	Timestamp uint32
}

// IsWindow reports whether the event concerns a window itself rather than
// one of its child objects.
func (m WinEventMessage) IsWindow() bool {
	return m.Window != 0 && m.ObjectID == objectIDWindow && m.ChildID == childIDSelf
}

// WinEvent callbacks carry no thread guarantee, so they live in a process-wide
// store.
var winEventStore = closure.NewGlobalStore[any]("hook: winevent closures")

func winEventTrampoline(sys winapi.System, slot closure.Slot) uintptr {
	key := trampolineKey{sys: sys, category: closure.WinEvent, slot: slot}
	return cachedTrampoline(key, func() uintptr {
		return sys.NewWinEventCallback(func(_ winapi.Handle, event uint32, hwnd winapi.HWND, objectID, childID int32, thread, timestamp uint32) {
			closure.Contain(func() struct{} {
				v, ok := winEventStore.Lookup(slot)
				if !ok {
					panic(fmt.Sprintf("hook: winevent callback called without installed hook in slot %d", slot))
				}
				v.(func(WinEventMessage))(WinEventMessage{
					Kind:      WinEventKind(event),
					Window:    hwnd,
					ObjectID:  objectID,
					ChildID:   childID,
					Thread:    thread,
					Timestamp: timestamp,
				})
				return struct{}{}
			})
		})
	})
}

// AddWinEvent installs an out-of-context WinEvent hook for all events raised
// by other processes. Events are delivered while the installing thread pumps
// its message loop. slot must be unused by other WinEvent hooks in the
// process.
func AddWinEvent(sys winapi.System, slot closure.Slot, fn func(WinEventMessage)) (*Handle, error) {
	proc := winEventTrampoline(sys, slot)
	h, err := Install(winEventStore, slot, fn,
		func() (winapi.Handle, error) {
			return sys.SetWinEventHook(eventMin, eventMax, proc,
				winapi.WINEVENT_OUTOFCONTEXT|winapi.WINEVENT_SKIPOWNPROCESS)
		},
		sys.UnhookWinEvent,
	)
	if err != nil {
		return nil, fmt.Errorf("hook: install winevent hook: %w", err)
	}
	return h, nil
}

// RunWinEvent creates a loop on the calling goroutine's thread, installs a
// WinEvent hook in slot 0 and pumps messages until WM_QUIT.
func RunWinEvent(sys winapi.System, fn func(WinEventMessage)) error {
	loop := messaging.New(sys)
	defer loop.Close()

	h, err := AddWinEvent(sys, 0, fn)
	if err != nil {
		return err
	}
	defer h.Remove()

	return loop.Run(nil)
}

// WinEventRegistrations returns the number of installed WinEvent hooks.
func WinEventRegistrations() int {
	return winEventStore.Len()
}
