package hotkey

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Chords matches held keys and mouse buttons against chords such as
// "Ctrl+Alt+1" or "Mouse4+Mouse5". It is fed from low-level hook events, so
// unlike a Set it can match mouse buttons and combinations the OS refuses to
// register as hotkeys.
type Chords struct {
	mu     sync.Mutex
	chords []*chord
	held   map[string]bool
}

type chord struct {
	parts    []string
	original string
	callback func()
	fired    bool
}

// NewChords creates an empty matcher.
func NewChords() *Chords {
	return &Chords{held: make(map[string]bool)}
}

// Register adds a chord. Each part must be a key name, a modifier or
// MOUSE1 to MOUSE5.
func (c *Chords) Register(spec string, callback func()) error {
	if strings.TrimSpace(spec) == "" {
		return fmt.Errorf("hotkey: empty chord")
	}
	parts := strings.Split(strings.ToUpper(spec), "+")
	for i, p := range parts {
		name, err := chordPart(strings.TrimSpace(p))
		if err != nil {
			return fmt.Errorf("hotkey: chord %q: %w", spec, err)
		}
		parts[i] = name
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.chords = append(c.chords, &chord{parts: parts, original: spec, callback: callback})
	return nil
}

func chordPart(p string) (string, error) {
	switch p {
	case "MOUSE1", "MOUSE2", "MOUSE3", "MOUSE4", "MOUSE5":
		return p, nil
	}
	if mod, ok := modifiersByName[p]; ok {
		return strings.ToUpper(mod.String()), nil
	}
	k, err := ParseKey(p)
	if err != nil {
		return "", err
	}
	return ChordName(k), nil
}

// ChordName is the name a key is tracked under. Left and right modifier
// variants collapse into one name.
func ChordName(k Key) string {
	switch k {
	case KeyCtrl, KeyLCtrl, KeyRCtrl:
		return "CTRL"
	case KeyAlt, KeyLAlt, KeyRAlt:
		return "ALT"
	case KeyShift, KeyLShift, KeyRShift:
		return "SHIFT"
	case KeyLWin, KeyRWin:
		return "WIN"
	}
	return k.String()
}

// Clear removes all chords.
func (c *Chords) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chords = nil
}

// Update records a press or release of the named key or button and runs the
// callbacks of chords that just became fully held. A chord fires once per
// press; it re-arms when any of its parts is released.
func (c *Chords) Update(name string, down bool) {
	name = strings.ToUpper(name)

	c.mu.Lock()
	if down {
		c.held[name] = true
	} else {
		delete(c.held, name)
	}
	var fire []*chord
	for _, ch := range c.chords {
		match := true
		for _, part := range ch.parts {
			if !c.held[part] {
				match = false
				break
			}
		}
		switch {
		case match && !ch.fired && down:
			ch.fired = true
			fire = append(fire, ch)
		case !match:
			ch.fired = false
		}
	}
	c.mu.Unlock()

	for _, ch := range fire {
		slog.Debug("chord triggered", "chord", ch.original)
		ch.callback()
	}
}
