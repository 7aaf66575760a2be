package winapi

import (
	"runtime"
	"syscall"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestPointFromParam(t *testing.T) {
	assert.Equal(t, Point{X: 10, Y: 20}, PointFromParam(20<<16|10))
	assert.Equal(t, Point{X: -1, Y: -2}, PointFromParam(0xFFFEFFFF))
}

func TestHookData(t *testing.T) {
	var pin runtime.Pinner
	defer pin.Unpin()

	mouse := &MSLLHOOKSTRUCT{Pt: Point{X: -5, Y: 7}, MouseData: 120 << 16, Time: 42}
	pin.Pin(mouse)
	assert.Equal(t, *mouse, MouseHookData(uintptr(unsafe.Pointer(mouse))))

	kbd := &KBDLLHOOKSTRUCT{VkCode: 0x14, ScanCode: 0x3A, Flags: LLKHF_INJECTED, Time: 9}
	pin.Pin(kbd)
	assert.Equal(t, *kbd, KeyboardHookData(uintptr(unsafe.Pointer(kbd))))
}

func TestError(t *testing.T) {
	err := &Error{Op: "RegisterHotKey", Err: syscall.Errno(1409)}
	assert.ErrorIs(t, err, syscall.Errno(1409))
	assert.Equal(t, "UnregisterHotKey failed", (&Error{Op: "UnregisterHotKey"}).Error())
	assert.NoError(t, (&Error{Op: "x"}).Unwrap())
}
