package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winbridge/internal/hook"
	"winbridge/internal/hotkey"
	"winbridge/internal/messaging"
	"winbridge/internal/winapi"
	"winbridge/internal/winapi/winapitest"
)

func TestFromMouse(t *testing.T) {
	tests := []struct {
		name string
		msg  hook.MouseMessage
		want Event
	}{
		{
			"move",
			hook.MouseMessage{Action: hook.MouseMove, Point: winapi.Point{X: 10, Y: -5}, Timestamp: 7},
			Event{Type: TypeMouseMove, X: 10, Y: -5, Timestamp: 7},
		},
		{
			"button",
			hook.MouseMessage{Action: hook.MouseButtonDown, Button: hook.ButtonLeft},
			Event{Type: TypeMouseButton, Button: "left", Pressed: true},
		},
		{
			"release",
			hook.MouseMessage{Action: hook.MouseButtonUp, Button: hook.ButtonX2, Injected: true},
			Event{Type: TypeMouseButton, Button: "x2", Injected: true},
		},
		{
			"wheel",
			hook.MouseMessage{Action: hook.MouseWheel, Scroll: hook.ScrollFromRaw(-240)},
			Event{Type: TypeMouseWheel, Wheel: -240},
		},
		{
			"other",
			hook.MouseMessage{Code: 0x020E},
			Event{Type: TypeMouseOther, Code: 0x020E},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromMouse(tt.msg))
		})
	}
}

func TestFromKeyboard(t *testing.T) {
	e := FromKeyboard(hook.KeyboardMessage{
		Action:   hook.SysKeyDown,
		Key:      hotkey.KeyA,
		ScanCode: 0x1E,
		Flags:    winapi.LLKHF_INJECTED,
	})
	assert.Equal(t, Event{Type: TypeKey, Key: "A", KeyCode: 0x41, ScanCode: 0x1E, Pressed: true, Injected: true}, e)

	e = FromKeyboard(hook.KeyboardMessage{Code: 0x0109, Key: hotkey.KeyF1})
	assert.False(t, e.Pressed)
	assert.Equal(t, uint32(0x0109), e.Code)
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "move (1,2)", Event{Type: TypeMouseMove, X: 1, Y: 2}.String())
	assert.Equal(t, "right up at (3,4)", Event{Type: TypeMouseButton, Button: "right", X: 3, Y: 4}.String())
	assert.Equal(t, "wheel up x2 at (0,0)", Event{Type: TypeMouseWheel, Wheel: 240}.String())
	assert.Equal(t, "key CAPSLOCK down blocked", Event{Type: TypeKey, Key: "CAPSLOCK", Pressed: true, Blocked: true}.String())
	assert.Equal(t, "mouse_other 0x20e injected", Event{Type: TypeMouseOther, Code: 0x020E, Injected: true}.String())
}

func startCapture(t *testing.T, f *winapitest.Fake, opts Options) *Capture {
	t.Helper()
	c := NewCapture(f, opts)
	require.NoError(t, c.Start())
	t.Cleanup(func() { _ = c.Stop() })
	return c
}

func drain(c *Capture) []Event {
	var got []Event
	for e := range c.Events() {
		got = append(got, e)
	}
	return got
}

func TestCaptureDeliversEvents(t *testing.T) {
	f := winapitest.New()
	c := startCapture(t, f, Options{})
	assert.Equal(t, 1, f.Hooks(winapi.WH_MOUSE_LL))
	assert.Equal(t, 1, f.Hooks(winapi.WH_KEYBOARD_LL))

	ret, ok := f.FireMouse(winapi.WM_MOUSEMOVE, winapi.MSLLHOOKSTRUCT{Pt: winapi.Point{X: 1, Y: 1}})
	require.True(t, ok)
	assert.Equal(t, winapitest.NextHookResult, ret)

	f.FireMouse(winapi.WM_LBUTTONDOWN, winapi.MSLLHOOKSTRUCT{Pt: winapi.Point{X: 10, Y: 20}, Time: 5})
	ret, _ = f.FireKeyboard(winapi.WM_KEYDOWN, winapi.KBDLLHOOKSTRUCT{VkCode: 0x41, Time: 6})
	assert.Equal(t, winapitest.NextHookResult, ret)

	require.NoError(t, c.Stop())
	assert.Equal(t, []Event{
		{Type: TypeMouseButton, X: 10, Y: 20, Button: "left", Pressed: true, Timestamp: 5},
		{Type: TypeKey, Key: "A", KeyCode: 0x41, Pressed: true, Timestamp: 6},
	}, drain(c), "moves are dropped by default")

	assert.Zero(t, f.Hooks(winapi.WH_MOUSE_LL))
	assert.Zero(t, f.Hooks(winapi.WH_KEYBOARD_LL))
	assert.Nil(t, messaging.Current(f))
}

func TestCaptureMoves(t *testing.T) {
	f := winapitest.New()
	c := startCapture(t, f, Options{Moves: true})

	f.FireMouse(winapi.WM_MOUSEMOVE, winapi.MSLLHOOKSTRUCT{Pt: winapi.Point{X: 3, Y: 4}})
	require.NoError(t, c.Stop())
	assert.Equal(t, []Event{{Type: TypeMouseMove, X: 3, Y: 4}}, drain(c))
}

func TestCaptureBlocksKeys(t *testing.T) {
	f := winapitest.New()
	c := startCapture(t, f, Options{Block: map[hotkey.Key]bool{hotkey.KeyCapsLock: true}})

	ret, _ := f.FireKeyboard(winapi.WM_KEYDOWN, winapi.KBDLLHOOKSTRUCT{VkCode: uint32(hotkey.KeyCapsLock)})
	assert.Equal(t, uintptr(1), ret)
	ret, _ = f.FireKeyboard(winapi.WM_KEYDOWN, winapi.KBDLLHOOKSTRUCT{VkCode: uint32(hotkey.KeyA)})
	assert.Equal(t, winapitest.NextHookResult, ret)

	require.NoError(t, c.Stop())
	got := drain(c)
	require.Len(t, got, 2)
	assert.True(t, got[0].Blocked)
	assert.False(t, got[1].Blocked)
}

func TestCaptureFeedsChords(t *testing.T) {
	f := winapitest.New()
	chords := hotkey.NewChords()
	fired := 0
	require.NoError(t, chords.Register("Ctrl+Mouse4", func() { fired++ }))
	startCapture(t, f, Options{Chords: chords})

	f.FireKeyboard(winapi.WM_KEYDOWN, winapi.KBDLLHOOKSTRUCT{VkCode: uint32(hotkey.KeyLCtrl)})
	f.FireMouse(winapi.WM_XBUTTONDOWN, winapi.MSLLHOOKSTRUCT{MouseData: uint32(winapi.XBUTTON1) << 16})
	assert.Equal(t, 1, fired)

	f.FireMouse(winapi.WM_XBUTTONUP, winapi.MSLLHOOKSTRUCT{MouseData: uint32(winapi.XBUTTON1) << 16})
	f.FireMouse(winapi.WM_XBUTTONDOWN, winapi.MSLLHOOKSTRUCT{MouseData: uint32(winapi.XBUTTON1) << 16})
	assert.Equal(t, 2, fired)
}

func TestCaptureCountsDropped(t *testing.T) {
	f := winapitest.New()
	c := startCapture(t, f, Options{Buffer: 1})

	for range 3 {
		f.FireKeyboard(winapi.WM_KEYUP, winapi.KBDLLHOOKSTRUCT{VkCode: 0x41})
	}
	require.NoError(t, c.Stop())
	assert.Len(t, drain(c), 1)
	assert.Equal(t, uint64(2), c.Dropped())
}

func TestCaptureStartTwice(t *testing.T) {
	f := winapitest.New()
	c := startCapture(t, f, Options{})
	assert.Error(t, c.Start())
}

func TestCaptureRestart(t *testing.T) {
	f := winapitest.New()
	c := startCapture(t, f, Options{})
	require.NoError(t, c.Stop())
	require.NoError(t, c.Stop(), "stopping twice is a no-op")

	require.NoError(t, c.Start())
	f.FireKeyboard(winapi.WM_KEYDOWN, winapi.KBDLLHOOKSTRUCT{VkCode: 0x41})
	require.NoError(t, c.Stop())
	assert.Len(t, drain(c), 1)
}

func TestCaptureHookFailure(t *testing.T) {
	f := winapitest.New()
	osErr := &winapi.Error{Op: "SetWindowsHookExW", Err: 5}
	f.FailNextHook(osErr)

	c := NewCapture(f, Options{})
	assert.ErrorIs(t, c.Start(), osErr)
	assert.Zero(t, f.Hooks(winapi.WH_MOUSE_LL))
	assert.Nil(t, messaging.Current(f))
	assert.NoError(t, c.Stop())
}

func TestCaptureLoopError(t *testing.T) {
	f := winapitest.New()
	osErr := &winapi.Error{Op: "GetMessageW", Err: 1400}
	f.FailNextGetMessage(osErr)

	c := NewCapture(f, Options{})
	require.NoError(t, c.Start())
	assert.Empty(t, drain(c), "the channel closes when the loop fails")
	assert.ErrorIs(t, c.Stop(), osErr)
	assert.Zero(t, f.Hooks(winapi.WH_KEYBOARD_LL))
}
