package hook

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"winbridge/internal/winapi"
)

func mouseData(high int16) uint32 {
	return uint32(uint16(high)) << 16
}

func TestDecodeMouse(t *testing.T) {
	tests := []struct {
		name   string
		code   uint32
		data   uint32
		action MouseAction
		button MouseButton
	}{
		{"move", winapi.WM_MOUSEMOVE, 0, MouseMove, ButtonNone},
		{"left down", winapi.WM_LBUTTONDOWN, 0, MouseButtonDown, ButtonLeft},
		{"left up", winapi.WM_LBUTTONUP, 0, MouseButtonUp, ButtonLeft},
		{"right down", winapi.WM_RBUTTONDOWN, 0, MouseButtonDown, ButtonRight},
		{"right up", winapi.WM_RBUTTONUP, 0, MouseButtonUp, ButtonRight},
		{"middle down", winapi.WM_MBUTTONDOWN, 0, MouseButtonDown, ButtonMiddle},
		{"middle up", winapi.WM_MBUTTONUP, 0, MouseButtonUp, ButtonMiddle},
		{"x1 down", winapi.WM_XBUTTONDOWN, mouseData(winapi.XBUTTON1), MouseButtonDown, ButtonX1},
		{"x2 up", winapi.WM_XBUTTONUP, mouseData(winapi.XBUTTON2), MouseButtonUp, ButtonX2},
		{"unknown x button", winapi.WM_XBUTTONDOWN, mouseData(3), MouseOther, ButtonNone},
		{"horizontal wheel", 0x020E, mouseData(120), MouseOther, ButtonNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := decodeMouse(tt.code, winapi.MSLLHOOKSTRUCT{MouseData: tt.data, Flags: llmhfInjected})
			assert.Equal(t, tt.action, m.Action)
			assert.Equal(t, tt.button, m.Button)
			assert.Equal(t, tt.code, m.Code)
			assert.True(t, m.Injected)
		})
	}
}

func TestDecodeWheel(t *testing.T) {
	tests := []struct {
		raw  int16
		want Scroll
	}{
		{120, Scroll{Direction: ScrollUp, Count: 1}},
		{360, Scroll{Direction: ScrollUp, Count: 3}},
		{-120, Scroll{Direction: ScrollDown, Count: 1}},
		{-240, Scroll{Direction: ScrollDown, Count: 2}},
		{0, Scroll{Direction: ScrollContinuous}},
		{60, Scroll{Direction: ScrollContinuous, Amount: 60}},
		{-121, Scroll{Direction: ScrollContinuous, Amount: -121}},
	}

	for _, tt := range tests {
		m := decodeMouse(winapi.WM_MOUSEWHEEL, winapi.MSLLHOOKSTRUCT{MouseData: mouseData(tt.raw)})
		assert.Equal(t, MouseWheel, m.Action)
		assert.Equal(t, tt.want, m.Scroll, "raw %d", tt.raw)
	}
}

func TestScrollDeltaRoundTrip(t *testing.T) {
	for raw := math.MinInt16; raw <= math.MaxInt16; raw++ {
		s := ScrollFromRaw(int16(raw))
		if s.Delta() != int16(raw) {
			t.Fatalf("ScrollFromRaw(%d).Delta() = %d", raw, s.Delta())
		}
	}
}

func TestScrollString(t *testing.T) {
	assert.Equal(t, "up x2", ScrollFromRaw(240).String())
	assert.Equal(t, "down x1", ScrollFromRaw(-120).String())
	assert.Equal(t, "continuous 7", ScrollFromRaw(7).String())
}

func TestMouseButtonChordName(t *testing.T) {
	assert.Equal(t, "MOUSE1", ButtonLeft.ChordName())
	assert.Equal(t, "MOUSE2", ButtonMiddle.ChordName())
	assert.Equal(t, "MOUSE3", ButtonRight.ChordName())
	assert.Equal(t, "MOUSE4", ButtonX1.ChordName())
	assert.Equal(t, "MOUSE5", ButtonX2.ChordName())
	assert.Empty(t, ButtonNone.ChordName())
}

func TestDecodeKeyboard(t *testing.T) {
	tests := []struct {
		code   uint32
		action KeyAction
	}{
		{winapi.WM_KEYDOWN, KeyDown},
		{winapi.WM_KEYUP, KeyUp},
		{winapi.WM_SYSKEYDOWN, SysKeyDown},
		{winapi.WM_SYSKEYUP, SysKeyUp},
		{0x0109, KeyOther},
	}

	for _, tt := range tests {
		m := decodeKeyboard(tt.code, winapi.KBDLLHOOKSTRUCT{VkCode: 0x70, Flags: winapi.LLKHF_EXTENDED | winapi.LLKHF_UP})
		assert.Equal(t, tt.action, m.Action, "code %#x", tt.code)
		assert.Equal(t, "F1", m.Key.String())
		assert.True(t, m.Flags.Extended())
		assert.True(t, m.Flags.Released())
	}
	assert.False(t, KeyUp.Pressed())
	assert.Equal(t, "sys-up", SysKeyUp.String())
}
