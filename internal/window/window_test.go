package window

import (
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winbridge/internal/messaging"
	"winbridge/internal/winapi"
	"winbridge/internal/winapi/winapitest"
)

type recorder struct {
	msgs   []Message
	answer messaging.Answer
}

func (r *recorder) listen(_ *Window, m Message) messaging.Answer {
	r.msgs = append(r.msgs, m)
	return r.answer
}

func (r *recorder) kinds() []Kind {
	var out []Kind
	for _, m := range r.msgs {
		out = append(out, m.Kind)
	}
	return out
}

func setup(t *testing.T) (*winapitest.Fake, *messaging.Loop, *Class) {
	t.Helper()
	f := winapitest.New()
	loop := messaging.New(f)
	t.Cleanup(loop.Close)
	class, err := RegisterClass(f, "winbridge_test")
	require.NoError(t, err)
	return f, loop, class
}

func TestRegisterClass(t *testing.T) {
	f := winapitest.New()

	a, err := RegisterClass(f, "demo")
	require.NoError(t, err)
	b, err := RegisterClass(f, "demo")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a.Name(), "demo_"))
	assert.NotEqual(t, a.Name(), b.Name())
	assert.Len(t, f.Classes(), 2)

	require.NoError(t, a.Unregister())
	assert.Error(t, a.Unregister())
	assert.Equal(t, []string{b.Name()}, f.Classes())
}

func TestCreateMessagesGoToDefWindowProc(t *testing.T) {
	f, loop, class := setup(t)
	r := &recorder{}

	w, err := New(loop, class, "demo", r.listen)
	require.NoError(t, err)
	defer w.Destroy()

	require.Len(t, f.DefWindowCalls(), 1)
	assert.Equal(t, uint32(0x0001), f.DefWindowCalls()[0].Message)
	assert.Empty(t, r.msgs)
	assert.Equal(t, uintptr(w.Slot())+1, f.GetWindowLongPtr(w.Handle(), winapi.GWLP_USERDATA))
	assert.Equal(t, 1, loop.Registrations())
}

func TestWindowAnswers(t *testing.T) {
	tests := []struct {
		name   string
		answer messaging.Answer
		want   uintptr
		def    bool
	}{
		{"continue", messaging.Continue, winapitest.DefWindowResult, true},
		{"block", messaging.Block, 0, false},
		{"pass to target", messaging.PassToTarget, 0, false},
		{"result", messaging.Result(42), 42, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, loop, class := setup(t)
			r := &recorder{answer: tt.answer}
			w, err := New(loop, class, "demo", r.listen)
			require.NoError(t, err)
			defer w.Destroy()

			before := len(f.DefWindowCalls())
			got := f.SendMessage(w.Handle(), winapi.WM_SIZE, winapi.SIZE_MINIMIZED, 0)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.def, len(f.DefWindowCalls()) > before)
			assert.Equal(t, []Kind{Minimized}, r.kinds())
		})
	}
}

func TestDecodeMessages(t *testing.T) {
	f, loop, class := setup(t)
	r := &recorder{answer: messaging.Block}
	w, err := New(loop, class, "demo", r.listen)
	require.NoError(t, err)
	defer w.Destroy()

	const menu = winapi.Handle(0x5000)
	f.SetMenuItem(menu, 2, 1001)
	f.SetMessagePos(-5, 10)

	f.SendMessage(w.Handle(), winapi.WM_MENUCOMMAND, 2, uintptr(menu))
	f.SendMessage(w.Handle(), messaging.NotificationIconMessage, 0, 7<<16|winapi.NIN_SELECT)
	f.SendMessage(w.Handle(), messaging.NotificationIconMessage, 0, 7<<16|winapi.WM_CONTEXTMENU)
	f.SendMessage(w.Handle(), messaging.NotificationIconMessage, 0, 7<<16|0x0200)
	f.SendMessage(w.Handle(), winapi.WM_SIZE, 0, 0)
	f.SendMessage(w.Handle(), messaging.AppMessage(255), 1, 2)

	require.Equal(t, []Kind{MenuCommand, IconSelect, IconContextSelect, Other, Other, User}, r.kinds())
	assert.Equal(t, uint32(1001), r.msgs[0].MenuItem)
	assert.Equal(t, uint16(7), r.msgs[1].Icon)
	assert.Equal(t, winapi.Point{X: -5, Y: 10}, r.msgs[1].Point)
	assert.Equal(t, uint16(7), r.msgs[2].Icon)
	assert.Equal(t, uint32(winapi.WM_SIZE), r.msgs[4].Code)
	assert.Equal(t, uint8(255), r.msgs[5].UserID)
	assert.Equal(t, uintptr(1), r.msgs[5].WParam)
	assert.Equal(t, uintptr(2), r.msgs[5].LParam)

	// Menu and icon messages each woke the loop.
	assert.Equal(t, 3, f.Pending())
}

func TestCloseDestroysThroughDefWindowProc(t *testing.T) {
	f, loop, class := setup(t)
	r := &recorder{}
	w, err := New(loop, class, "demo", r.listen)
	require.NoError(t, err)

	f.SendMessage(w.Handle(), winapi.WM_CLOSE, 0, 0)
	assert.Equal(t, []Kind{Close, Destroy}, r.kinds())
	assert.False(t, w.Alive())

	require.NoError(t, w.Destroy())
	assert.Zero(t, loop.Registrations())
	assert.Equal(t, []Kind{Close, Destroy}, r.kinds(), "no second destroy")
}

func TestBlockedCloseKeepsWindow(t *testing.T) {
	f, loop, class := setup(t)
	w, err := New(loop, class, "demo", func(_ *Window, m Message) messaging.Answer {
		if m.Kind == Close {
			return messaging.Block
		}
		return messaging.Continue
	})
	require.NoError(t, err)
	defer w.Destroy()

	f.SendMessage(w.Handle(), winapi.WM_CLOSE, 0, 0)
	assert.True(t, w.Alive())
}

func TestDestroy(t *testing.T) {
	f, loop, class := setup(t)
	r := &recorder{}
	w, err := New(loop, class, "demo", r.listen)
	require.NoError(t, err)

	require.NoError(t, w.Destroy())
	require.NoError(t, w.Destroy())
	assert.Equal(t, []Kind{Destroy}, r.kinds())
	assert.False(t, f.IsWindow(w.Handle()))
	assert.Zero(t, loop.Registrations())
	require.NoError(t, class.Unregister())
}

func TestSetListener(t *testing.T) {
	f, loop, class := setup(t)
	first, second := &recorder{}, &recorder{answer: messaging.Result(9)}
	w, err := New(loop, class, "demo", first.listen)
	require.NoError(t, err)
	defer w.Destroy()

	f.SendMessage(w.Handle(), winapi.WM_SIZE, winapi.SIZE_MINIMIZED, 0)
	w.SetListener(second.listen)
	assert.Equal(t, uintptr(9), f.SendMessage(w.Handle(), winapi.WM_SIZE, winapi.SIZE_MINIMIZED, 0))
	w.SetListener(nil)
	assert.Equal(t, winapitest.DefWindowResult, f.SendMessage(w.Handle(), winapi.WM_SIZE, winapi.SIZE_MINIMIZED, 0))

	assert.Len(t, first.msgs, 1)
	assert.Len(t, second.msgs, 1)
}

func TestUserMessagesThroughLoop(t *testing.T) {
	f, loop, class := setup(t)

	var got []Message
	w, err := New(loop, class, "demo", func(_ *Window, m Message) messaging.Answer {
		if m.Kind == User {
			got = append(got, m)
			if len(got) == 2 {
				messaging.PostQuit(f)
			}
			return messaging.Block
		}
		return messaging.Continue
	})
	require.NoError(t, err)
	defer w.Destroy()

	require.NoError(t, w.PostUserMessage(3, 11, 22))
	require.NoError(t, w.PostUserMessage(0, 0, 0))

	steps := 0
	require.NoError(t, loop.Run(func() error {
		steps++
		return nil
	}))

	require.Len(t, got, 2)
	assert.Equal(t, uint8(3), got[0].UserID)
	assert.Equal(t, uintptr(11), got[0].WParam)
	assert.Equal(t, uintptr(22), got[0].LParam)
	assert.Equal(t, uint8(0), got[1].UserID)
	assert.Equal(t, 2, steps)
}

func TestCloseThroughLoop(t *testing.T) {
	f, loop, class := setup(t)
	r := &recorder{}
	w, err := New(loop, class, "demo", func(w *Window, m Message) messaging.Answer {
		if m.Kind == Destroy {
			messaging.PostQuit(f)
		}
		return r.listen(w, m)
	})
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, loop.Run(nil))
	require.NoError(t, w.Destroy())

	assert.Equal(t, []Kind{Close, Destroy}, r.kinds())
}

func TestNewFailsForUnknownClass(t *testing.T) {
	f, loop, class := setup(t)
	require.NoError(t, class.Unregister())

	w, err := New(loop, class, "demo", nil)
	assert.Nil(t, w)
	assert.Error(t, err)
	assert.Zero(t, loop.Registrations())
	assert.Empty(t, f.Classes())
}

func TestPostToDestroyedWindow(t *testing.T) {
	_, loop, class := setup(t)
	w, err := New(loop, class, "demo", nil)
	require.NoError(t, err)
	require.NoError(t, w.Destroy())

	var osErr *winapi.Error
	assert.ErrorAs(t, w.PostUserMessage(1, 0, 0), &osErr)
}

func TestMessageString(t *testing.T) {
	assert.Equal(t, "menu-command item=4", Message{Kind: MenuCommand, MenuItem: 4}.String())
	assert.Equal(t, "icon-select icon=1 at (2,3)", Message{Kind: IconSelect, Icon: 1, Point: winapi.Point{X: 2, Y: 3}}.String())
	assert.Equal(t, "user id=5 w=0x1 l=0x2", Message{Kind: User, UserID: 5, WParam: 1, LParam: 2}.String())
	assert.Equal(t, "close", Message{Kind: Close}.String())
	assert.Equal(t, "other 0x5", Message{Code: 5}.String())
}

const crashEnv = "WINBRIDGE_WINDOW_CRASH"

func TestListenerPanicExits(t *testing.T) {
	if os.Getenv(crashEnv) == "1" {
		_, loop, class := setup(t)
		w, err := New(loop, class, "demo", func(*Window, Message) messaging.Answer {
			panic("listener boom")
		})
		require.NoError(t, err)
		loop.System().SendMessage(w.Handle(), winapi.WM_CLOSE, 0, 0)
		t.Fatal("window procedure returned after a panic")
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestListenerPanicExits$")
	cmd.Env = append(os.Environ(), crashEnv+"=1")
	out, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr, string(out))
	assert.Equal(t, 2, exitErr.ExitCode())
	assert.Contains(t, string(out), "panic in OS callback, aborting")
	assert.Contains(t, string(out), "listener boom")
}
