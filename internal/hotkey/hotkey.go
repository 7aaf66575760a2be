// Package hotkey registers global system-wide hotkeys and parses key
// combinations such as "Ctrl+Alt+S".
package hotkey

import (
	"fmt"
	"strings"

	"winbridge/internal/winapi"
)

// Modifier is a set of RegisterHotKey modifier flags.
type Modifier uint32

const (
	Alt   Modifier = winapi.MOD_ALT
	Ctrl  Modifier = winapi.MOD_CONTROL
	Shift Modifier = winapi.MOD_SHIFT
	Win   Modifier = winapi.MOD_WIN
)

var modifierNames = []struct {
	mod  Modifier
	name string
}{
	{Ctrl, "Ctrl"},
	{Alt, "Alt"},
	{Shift, "Shift"},
	{Win, "Win"},
}

var modifiersByName = map[string]Modifier{
	"CTRL":    Ctrl,
	"CONTROL": Ctrl,
	"ALT":     Alt,
	"SHIFT":   Shift,
	"WIN":     Win,
	"CMD":     Win,
	"SUPER":   Win,
}

func (m Modifier) String() string {
	var parts []string
	for _, n := range modifierNames {
		if m&n.mod != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "+")
}

// Combination is zero or more modifiers plus exactly one key.
type Combination struct {
	Modifiers Modifier
	Key       Key
}

func (c Combination) String() string {
	if c.Modifiers == 0 {
		return c.Key.String()
	}
	return c.Modifiers.String() + "+" + c.Key.String()
}

// ParseCombination parses a hotkey string like "Ctrl+Alt+1". Parts are
// case-insensitive and may appear in any order, but exactly one of them must
// be a non-modifier key.
func ParseCombination(s string) (Combination, error) {
	if strings.TrimSpace(s) == "" {
		return Combination{}, fmt.Errorf("hotkey: empty combination")
	}

	var c Combination
	haveKey := false
	for _, part := range strings.Split(strings.ToUpper(s), "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Combination{}, fmt.Errorf("hotkey: empty part in %q", s)
		}
		if mod, ok := modifiersByName[part]; ok {
			c.Modifiers |= mod
			continue
		}
		key, err := ParseKey(part)
		if err != nil {
			return Combination{}, fmt.Errorf("hotkey: %q: %w", s, err)
		}
		if haveKey {
			return Combination{}, fmt.Errorf("hotkey: %q has more than one key", s)
		}
		c.Key = key
		haveKey = true
	}
	if !haveKey {
		return Combination{}, fmt.Errorf("hotkey: %q has no key", s)
	}
	return c, nil
}
