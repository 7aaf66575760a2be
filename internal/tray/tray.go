// Package tray shows a notification area icon with a menu using
// getlantern/systray.
//
// systray pumps its own message loop on the goroutine that calls Run, so the
// tray never shares a thread with a messaging.Loop. Menu callbacks run on
// their own goroutines and talk to loops through Loop.Post and Loop.Quit.
package tray

import (
	"log/slog"
	"runtime"
	"sync"

	"github.com/getlantern/systray"
)

// MenuItem represents a menu item
type MenuItem struct {
	ID        int
	Title     string
	Callback  func()
	Checkable bool
	Checked   bool
	item      *systray.MenuItem
}

// Tray manages the system tray icon and menu
type Tray struct {
	title   string
	tooltip string

	mu    sync.Mutex
	items []*MenuItem

	quitCh chan struct{}
	once   sync.Once
}

// New creates a new system tray
func New(title, tooltip string) *Tray {
	return &Tray{
		title:   title,
		tooltip: tooltip,
		quitCh:  make(chan struct{}),
	}
}

// AddMenuItem adds a menu item to the tray. Items must be added before Run.
func (t *Tray) AddMenuItem(title string, callback func()) int {
	return t.add(&MenuItem{Title: title, Callback: callback})
}

// AddCheckboxItem adds an item that shows a check mark when checked.
func (t *Tray) AddCheckboxItem(title string, checked bool, callback func()) int {
	return t.add(&MenuItem{Title: title, Callback: callback, Checkable: true, Checked: checked})
}

func (t *Tray) add(mi *MenuItem) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	mi.ID = len(t.items)
	t.items = append(t.items, mi)
	return mi.ID
}

// AddSeparator adds a separator to the menu
func (t *Tray) AddSeparator() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, nil) // nil indicates separator
}

// SetItemChecked sets the checked state of a checkbox item. It may be called
// from any goroutine, before or after the menu is shown.
func (t *Tray) SetItemChecked(id int, checked bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || id >= len(t.items) || t.items[id] == nil || !t.items[id].Checkable {
		return
	}
	mi := t.items[id]
	mi.Checked = checked
	if mi.item == nil {
		return
	}
	if checked {
		mi.item.Check()
	} else {
		mi.item.Uncheck()
	}
}

// Run shows the icon and blocks until Stop. The icon's window belongs to the
// calling goroutine's thread.
func (t *Tray) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	systray.Run(t.setupMenu, t.onExit)
}

// Done is closed once the tray has exited.
func (t *Tray) Done() <-chan struct{} {
	return t.quitCh
}

func (t *Tray) onExit() {
	t.once.Do(func() { close(t.quitCh) })
	slog.Debug("tray exited")
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	systray.SetTitle(t.title)
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(getIcon())

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, menuItem := range t.items {
		if menuItem == nil {
			systray.AddSeparator()
			continue
		}
		if menuItem.Checkable {
			menuItem.item = systray.AddMenuItemCheckbox(menuItem.Title, "", menuItem.Checked)
		} else {
			menuItem.item = systray.AddMenuItem(menuItem.Title, "")
		}
		if menuItem.Callback == nil {
			continue
		}
		go t.watchClicks(menuItem.Title, menuItem.item.ClickedCh, menuItem.Callback)
	}
	slog.Debug("tray ready", "items", len(t.items))
}

func (t *Tray) watchClicks(title string, clicked <-chan struct{}, callback func()) {
	for {
		select {
		case <-clicked:
			slog.Debug("tray item clicked", "item", title)
			callback()
		case <-t.quitCh:
			return
		}
	}
}

// Stop removes the icon and makes Run return.
func (t *Tray) Stop() {
	systray.Quit()
}

// getIcon returns a placeholder icon (valid 16x16 ICO)
func getIcon() []byte {
	icon := make([]byte, 1118)
	// ICO header
	copy(icon[0:6], []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00})
	// Icon directory: 16x16, 32 bpp, 1096 bytes at offset 22
	copy(icon[6:22], []byte{
		0x10, 0x10, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00,
		0x48, 0x04, 0x00, 0x00,
		0x16, 0x00, 0x00, 0x00,
	})
	// BITMAPINFOHEADER, height doubled for the AND mask
	copy(icon[22:62], []byte{
		0x28, 0x00, 0x00, 0x00,
		0x10, 0x00, 0x00, 0x00,
		0x20, 0x00, 0x00, 0x00,
		0x01, 0x00,
		0x20, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x04, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	})
	return icon
}
