package hotkey

import (
	"fmt"
	"strings"
)

// Key is a Windows virtual-key code.
type Key uint16

const (
	KeyBackspace   Key = 0x08
	KeyTab         Key = 0x09
	KeyEnter       Key = 0x0D
	KeyShift       Key = 0x10
	KeyCtrl        Key = 0x11
	KeyAlt         Key = 0x12
	KeyPause       Key = 0x13
	KeyCapsLock    Key = 0x14
	KeyEsc         Key = 0x1B
	KeySpace       Key = 0x20
	KeyPageUp      Key = 0x21
	KeyPageDown    Key = 0x22
	KeyEnd         Key = 0x23
	KeyHome        Key = 0x24
	KeyLeft        Key = 0x25
	KeyUp          Key = 0x26
	KeyRight       Key = 0x27
	KeyDown        Key = 0x28
	KeyPrintScreen Key = 0x2C
	KeyInsert      Key = 0x2D
	KeyDelete      Key = 0x2E
	Key0           Key = 0x30
	KeyA           Key = 0x41
	KeyLWin        Key = 0x5B
	KeyRWin        Key = 0x5C
	KeyNumpad0     Key = 0x60
	KeyF1          Key = 0x70
	KeyNumLock     Key = 0x90
	KeyScrollLock  Key = 0x91
	KeyLShift      Key = 0xA0
	KeyRShift      Key = 0xA1
	KeyLCtrl       Key = 0xA2
	KeyRCtrl       Key = 0xA3
	KeyLAlt        Key = 0xA4
	KeyRAlt        Key = 0xA5
	KeyVolumeMute  Key = 0xAD
	KeyVolumeDown  Key = 0xAE
	KeyVolumeUp    Key = 0xAF
	KeyMediaNext   Key = 0xB0
	KeyMediaPrev   Key = 0xB1
	KeyMediaStop   Key = 0xB2
	KeyMediaPlay   Key = 0xB3
	KeyOEM1        Key = 0xBA
	KeyOEMPlus     Key = 0xBB
	KeyOEMComma    Key = 0xBC
	KeyOEMMinus    Key = 0xBD
	KeyOEMPeriod   Key = 0xBE
	KeyOEM2        Key = 0xBF
	KeyOEM3        Key = 0xC0
	KeyOEM4        Key = 0xDB
	KeyOEM5        Key = 0xDC
	KeyOEM6        Key = 0xDD
	KeyOEM7        Key = 0xDE
)

var keyNames = map[Key]string{
	KeyBackspace:   "BACKSPACE",
	KeyTab:         "TAB",
	KeyEnter:       "ENTER",
	KeyShift:       "SHIFT",
	KeyCtrl:        "CTRL",
	KeyAlt:         "ALT",
	KeyPause:       "PAUSE",
	KeyCapsLock:    "CAPSLOCK",
	KeyEsc:         "ESC",
	KeySpace:       "SPACE",
	KeyPageUp:      "PAGEUP",
	KeyPageDown:    "PAGEDOWN",
	KeyEnd:         "END",
	KeyHome:        "HOME",
	KeyLeft:        "LEFT",
	KeyUp:          "UP",
	KeyRight:       "RIGHT",
	KeyDown:        "DOWN",
	KeyPrintScreen: "PRINTSCREEN",
	KeyInsert:      "INSERT",
	KeyDelete:      "DELETE",
	KeyLWin:        "LWIN",
	KeyRWin:        "RWIN",
	KeyNumLock:     "NUMLOCK",
	KeyScrollLock:  "SCROLLLOCK",
	KeyLShift:      "LSHIFT",
	KeyRShift:      "RSHIFT",
	KeyLCtrl:       "LCTRL",
	KeyRCtrl:       "RCTRL",
	KeyLAlt:        "LALT",
	KeyRAlt:        "RALT",
	KeyVolumeMute:  "VOLUMEMUTE",
	KeyVolumeDown:  "VOLUMEDOWN",
	KeyVolumeUp:    "VOLUMEUP",
	KeyMediaNext:   "MEDIANEXT",
	KeyMediaPrev:   "MEDIAPREV",
	KeyMediaStop:   "MEDIASTOP",
	KeyMediaPlay:   "MEDIAPLAY",
	KeyOEM1:        "OEM1",
	KeyOEMPlus:     "PLUS",
	KeyOEMComma:    "COMMA",
	KeyOEMMinus:    "MINUS",
	KeyOEMPeriod:   "PERIOD",
	KeyOEM2:        "OEM2",
	KeyOEM3:        "OEM3",
	KeyOEM4:        "OEM4",
	KeyOEM5:        "OEM5",
	KeyOEM6:        "OEM6",
	KeyOEM7:        "OEM7",
}

var (
	keysByName = make(map[string]Key)
	keyAliases = map[string]Key{
		"CONTROL": KeyCtrl,
		"ESCAPE":  KeyEsc,
		"RETURN":  KeyEnter,
		"DEL":     KeyDelete,
		"INS":     KeyInsert,
		"PGUP":    KeyPageUp,
		"PGDN":    KeyPageDown,
		"CMD":     KeyLWin,
		";":       KeyOEM1,
		"/":       KeyOEM2,
		"`":       KeyOEM3,
		"[":       KeyOEM4,
		"\\":      KeyOEM5,
		"]":       KeyOEM6,
		"'":       KeyOEM7,
		",":       KeyOEMComma,
		"-":       KeyOEMMinus,
		".":       KeyOEMPeriod,
		"=":       KeyOEMPlus,
	}
)

func init() {
	for k, name := range keyNames {
		keysByName[name] = k
	}
	for k, name := range rangeNames() {
		keysByName[name] = k
	}
	for alias, k := range keyAliases {
		keysByName[alias] = k
	}
}

func rangeNames() map[Key]string {
	names := make(map[Key]string)
	for i := Key(0); i < 10; i++ {
		names[Key0+i] = string(rune(Key0 + i))
		names[KeyNumpad0+i] = fmt.Sprintf("NUMPAD%d", i)
	}
	for i := Key(0); i < 26; i++ {
		names[KeyA+i] = string(rune(KeyA + i))
	}
	for i := Key(0); i < 24; i++ {
		names[KeyF1+i] = fmt.Sprintf("F%d", i+1)
	}
	return names
}

// String returns the key name, or VK_0xNN for unnamed codes.
func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	switch {
	case k >= Key0 && k <= Key0+9, k >= KeyA && k <= KeyA+25:
		return string(rune(k))
	case k >= KeyNumpad0 && k <= KeyNumpad0+9:
		return fmt.Sprintf("NUMPAD%d", k-KeyNumpad0)
	case k >= KeyF1 && k <= KeyF1+23:
		return fmt.Sprintf("F%d", k-KeyF1+1)
	}
	return fmt.Sprintf("VK_0x%02X", uint16(k))
}

// ParseKey resolves a key name, case-insensitively.
func ParseKey(name string) (Key, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if k, ok := keysByName[name]; ok {
		return k, nil
	}
	var code uint16
	if _, err := fmt.Sscanf(name, "VK_0X%X", &code); err == nil {
		return Key(code), nil
	}
	return 0, fmt.Errorf("hotkey: unknown key %q", name)
}
