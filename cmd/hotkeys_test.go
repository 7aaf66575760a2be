package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winbridge/internal/config"
	"winbridge/internal/hotkey"
	"winbridge/internal/messaging"
	"winbridge/internal/winapi"
	"winbridge/internal/winapi/winapitest"
)

func testManager(t *testing.T, cfg *config.Config) *config.Manager {
	t.Helper()
	m, err := config.NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	m.Set(cfg)
	return m
}

func TestHotkeyRunnerPressAndReload(t *testing.T) {
	f := winapitest.New()
	loop := messaging.New(f)
	defer loop.Close()

	cfg := config.DefaultConfig()
	mgr := testManager(t, cfg)
	var out bytes.Buffer
	r := newHotkeyRunner(loop, mgr, &out)
	require.NoError(t, r.start())
	assert.Len(t, f.Hotkeys(), 3)

	require.NoError(t, loop.Post(winapi.WM_HOTKEY, 2, 0))

	cfg.Hotkeys = []config.Binding{{Label: "only", Combo: "Win+F4"}}
	mgr.Set(cfg)
	require.NoError(t, loop.Post(messaging.AppMessage(reloadMessage), 0, 0))
	require.NoError(t, loop.Post(winapi.WM_HOTKEY, 1, 0))

	// Tray item 0 is "settings", which the reload unbound.
	require.NoError(t, loop.Post(messaging.AppMessage(menuMessage), 0, 0))
	require.NoError(t, loop.Post(messaging.AppMessage(menuMessage), 9, 0))
	require.NoError(t, loop.Quit())
	require.NoError(t, loop.Run(nil))

	assert.Equal(t, "sleep\nonly\n", out.String())
	hk := f.Hotkeys()
	require.Len(t, hk, 1)
	assert.Equal(t, uint32(hotkey.KeyF1+3), hk[0].VK)

	require.NoError(t, r.close())
	assert.Empty(t, f.Hotkeys())
	assert.Zero(t, loop.Registrations())
}

func TestHotkeyRunnerRestoresOnFailedReload(t *testing.T) {
	f := winapitest.New()
	loop := messaging.New(f)
	defer loop.Close()

	cfg := config.DefaultConfig()
	mgr := testManager(t, cfg)
	r := newHotkeyRunner(loop, mgr, &bytes.Buffer{})
	require.NoError(t, r.start())
	defer r.close()

	f.RejectKey(uint32(hotkey.KeyF1 + 3))
	cfg.Hotkeys = append(cfg.Hotkeys, config.Binding{Label: "taken", Combo: "Win+F4"})
	mgr.Set(cfg)

	require.NoError(t, loop.Post(messaging.AppMessage(reloadMessage), 0, 0))
	require.NoError(t, loop.Quit())
	require.NoError(t, loop.Run(nil))

	assert.Len(t, f.Hotkeys(), 3, "the previous bindings are registered again")
}

func TestHotkeyRunnerSkipsInvalidReload(t *testing.T) {
	f := winapitest.New()
	loop := messaging.New(f)
	defer loop.Close()

	cfg := config.DefaultConfig()
	mgr := testManager(t, cfg)
	r := newHotkeyRunner(loop, mgr, &bytes.Buffer{})
	require.NoError(t, r.start())
	defer r.close()

	cfg.Hotkeys = []config.Binding{{Label: "bad", Combo: "Ctrl+Banana"}}
	mgr.Set(cfg)

	require.NoError(t, loop.Post(messaging.AppMessage(reloadMessage), 0, 0))
	require.NoError(t, loop.Quit())
	require.NoError(t, loop.Run(nil))

	assert.Len(t, f.Hotkeys(), 3)
	assert.Empty(t, f.Unregistered())
}

func TestHotkeyRunnerStartFailure(t *testing.T) {
	f := winapitest.New()
	loop := messaging.New(f)
	defer loop.Close()

	f.RejectKey(uint32(hotkey.KeyEsc))
	r := newHotkeyRunner(loop, testManager(t, config.DefaultConfig()), &bytes.Buffer{})
	assert.Error(t, r.start())
	assert.Empty(t, f.Hotkeys())
	require.NoError(t, r.close())
	assert.Zero(t, loop.Registrations())
}

type checkRecorder map[int]bool

func (c checkRecorder) SetItemChecked(id int, checked bool) { c[id] = checked }

func TestHotkeyRunnerTrayFollowsReload(t *testing.T) {
	f := winapitest.New()
	loop := messaging.New(f)
	defer loop.Close()

	cfg := config.DefaultConfig()
	mgr := testManager(t, cfg)
	var out bytes.Buffer
	r := newHotkeyRunner(loop, mgr, &out)
	require.NoError(t, r.start())
	defer r.close()

	tr := r.buildTray("tip")
	require.NotNil(t, tr)
	require.Len(t, r.items, len(cfg.Hotkeys))

	checks := checkRecorder{}
	r.tray = checks

	kept := cfg.Hotkeys[1]
	cfg.Hotkeys = []config.Binding{kept}
	mgr.Set(cfg)
	require.NoError(t, loop.Post(messaging.AppMessage(reloadMessage), 0, 0))
	require.NoError(t, loop.Post(messaging.AppMessage(menuMessage), 1, 0))
	require.NoError(t, loop.Post(messaging.AppMessage(menuMessage), 2, 0))
	require.NoError(t, loop.Quit())
	require.NoError(t, loop.Run(nil))

	assert.Equal(t, checkRecorder{r.items[0]: false, r.items[1]: true, r.items[2]: false}, checks)
	assert.Equal(t, kept.Label+"\n", out.String())
}
