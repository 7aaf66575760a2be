package input

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"winbridge/internal/hook"
	"winbridge/internal/hotkey"
	"winbridge/internal/messaging"
	"winbridge/internal/winapi"
)

const defaultBuffer = 1000

// Options configure a Capture.
type Options struct {
	// Moves includes mouse moves, which are dropped by default.
	Moves bool
	// Block lists keys whose events are swallowed instead of passed on.
	Block map[hotkey.Key]bool
	// Chords, if set, is fed every key and mouse button transition.
	Chords *hotkey.Chords
	// Buffer is the capacity of the event channel. Zero means 1000.
	Buffer int
}

// Capture hooks the mouse and keyboard on a dedicated message loop thread.
//
// Hook callbacks must return quickly or the OS drops the hook, so events are
// handed over without blocking. When the reader falls behind they are counted
// as dropped.
type Capture struct {
	sys     winapi.System
	opts    Options
	dropped atomic.Uint64

	mu      sync.Mutex
	running bool
	thread  uint32
	events  chan Event
	done    chan error
}

// NewCapture creates a stopped capture.
func NewCapture(sys winapi.System, opts Options) *Capture {
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	return &Capture{sys: sys, opts: opts}
}

// Start creates the loop thread and returns once both hooks are installed.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return errors.New("input: capture already running")
	}
	c.events = make(chan Event, c.opts.Buffer)
	c.done = make(chan error, 1)

	ready := make(chan error, 1)
	go c.run(ready)
	if err := <-ready; err != nil {
		return err
	}
	c.running = true
	slog.Debug("input capture started", "thread", c.thread, "moves", c.opts.Moves, "blocked", len(c.opts.Block))
	return nil
}

func (c *Capture) run(ready chan<- error) {
	started := false
	err := c.pump(func() {
		started = true
		ready <- nil
	})
	close(c.events)
	if !started {
		ready <- err
		return
	}
	c.done <- err
}

// pump owns the loop and both hooks; all of them are released before it
// returns.
func (c *Capture) pump(started func()) error {
	loop := messaging.New(c.sys)
	defer loop.Close()

	mouse, err := hook.AddMouse(loop, 0, c.onMouse)
	if err != nil {
		return fmt.Errorf("input: hook mouse: %w", err)
	}
	defer mouse.Remove()

	keyboard, err := hook.AddKeyboard(loop, 0, c.onKeyboard)
	if err != nil {
		return fmt.Errorf("input: hook keyboard: %w", err)
	}
	defer keyboard.Remove()

	c.thread = loop.ThreadID()
	started()
	return loop.Run(nil)
}

// Stop quits the loop thread, waits for the hooks to be removed and returns
// the loop's error. The event channel is closed by then.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	select {
	case err := <-c.done:
		c.running = false
		return err
	default:
	}
	if err := messaging.PostThreadQuit(c.sys, c.thread); err != nil {
		return fmt.Errorf("input: stop: %w", err)
	}
	err := <-c.done
	c.running = false
	slog.Debug("input capture stopped", "dropped", c.dropped.Load())
	return err
}

// Events returns the channel of the current run. It is closed when the loop
// thread exits.
func (c *Capture) Events() <-chan Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

// Dropped returns how many events were discarded because the channel was full.
func (c *Capture) Dropped() uint64 {
	return c.dropped.Load()
}

func (c *Capture) emit(e Event) {
	select {
	case c.events <- e:
	default:
		c.dropped.Add(1)
	}
}

func (c *Capture) onMouse(m hook.MouseMessage) messaging.Answer {
	pressed := m.Action == hook.MouseButtonDown
	if c.opts.Chords != nil && (pressed || m.Action == hook.MouseButtonUp) {
		c.opts.Chords.Update(m.Button.ChordName(), pressed)
	}
	if m.Action == hook.MouseMove && !c.opts.Moves {
		return messaging.Continue
	}
	c.emit(FromMouse(m))
	return messaging.Continue
}

func (c *Capture) onKeyboard(m hook.KeyboardMessage) messaging.Answer {
	if c.opts.Chords != nil && m.Action != hook.KeyOther {
		c.opts.Chords.Update(hotkey.ChordName(m.Key), m.Action.Pressed())
	}
	e := FromKeyboard(m)
	answer := messaging.Continue
	if c.opts.Block[m.Key] {
		e.Blocked = true
		answer = messaging.Block
	}
	c.emit(e)
	return answer
}
