package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"winbridge/internal/api"
	"winbridge/internal/config"
	"winbridge/internal/hotkey"
	"winbridge/internal/messaging"
	"winbridge/internal/protocol"
	"winbridge/internal/tray"
	"winbridge/internal/winapi"
)

// Thread messages understood by the hotkey loop.
const (
	reloadMessage uint8 = iota
	menuMessage
)

func hotkeysCmd() *cobra.Command {
	var (
		withTray, watch bool
		serve           string
	)
	cmd := &cobra.Command{
		Use:   "hotkeys",
		Short: "Register the configured global hotkeys and print their labels when pressed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loop, err := messaging.NewNative()
			if err != nil {
				return err
			}
			defer loop.Close()

			stream, err := startStream("hotkeys", serve)
			if err != nil {
				return err
			}
			defer stopStream(stream)

			r := newHotkeyRunner(loop, cfgMgr, cmd.OutOrStdout())
			r.stream = stream
			if err := r.start(); err != nil {
				return err
			}
			defer func() {
				if err := r.close(); err != nil {
					slog.Error("unregister hotkeys", "err", err)
				}
			}()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if watch {
				if err := r.watch(ctx); err != nil {
					return err
				}
			}
			trayCfg := cfgMgr.Get().Tray
			if !cmd.Flags().Changed("tray") {
				withTray = trayCfg.Enabled
			}
			if withTray {
				t := r.buildTray(trayCfg.Tooltip)
				go t.Run()
				defer func() {
					t.Stop()
					<-t.Done()
				}()
			}

			release := quitOnSignal(ctx, loop)
			defer release()
			return loop.Run(nil)
		},
	}
	cmd.Flags().BoolVar(&withTray, "tray", false, "show a tray menu with the bindings and a Quit item (default from tray.enabled)")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-register the hotkeys when the configuration file changes")
	addServeFlag(cmd, &serve)
	return cmd
}

// itemChecker is the part of the tray the runner updates after a reload.
type itemChecker interface {
	SetItemChecked(id int, checked bool)
}

// hotkeyRunner owns the active hotkey set of a loop and swaps it on reload.
//
// The tray menu is built from the bindings present at startup. After a
// reload, items whose label is no longer bound are unchecked and ignored;
// bindings added by a reload have no item.
type hotkeyRunner struct {
	loop   *messaging.Loop
	mgr    *config.Manager
	out    io.Writer
	set    *hotkey.Set[string]
	active *hotkey.Active[string]
	bound  map[string]bool
	menu   []string
	tray   itemChecker
	items  []int
	regs   []*messaging.Registration
	stream *api.Server
}

func newHotkeyRunner(loop *messaging.Loop, mgr *config.Manager, out io.Writer) *hotkeyRunner {
	r := &hotkeyRunner{loop: loop, mgr: mgr, out: out}
	r.regs = append(r.regs,
		loop.AddListener(messaging.AppMessage(reloadMessage), r.reload),
		loop.AddListener(messaging.AppMessage(menuMessage), r.menuClicked),
	)
	return r
}

// start activates the configured bindings.
func (r *hotkeyRunner) start() error {
	cfg := r.mgr.Get()
	set, err := cfg.HotkeySet()
	if err != nil {
		return err
	}
	if err := r.activate(set); err != nil {
		return err
	}
	for _, b := range cfg.Hotkeys {
		r.menu = append(r.menu, b.Label)
	}
	return nil
}

func (r *hotkeyRunner) activate(set *hotkey.Set[string]) error {
	active, err := set.Activate(r.loop, r.pressed)
	if err != nil {
		return err
	}
	r.set, r.active = set, active
	r.bound = make(map[string]bool, set.Len())
	for _, label := range set.Labels() {
		r.bound[label] = true
	}
	r.syncTray()
	slog.Info("hotkeys registered", "count", active.Len())
	return nil
}

// syncTray checks the tray items whose label is bound.
func (r *hotkeyRunner) syncTray() {
	if r.tray == nil {
		return
	}
	for i, id := range r.items {
		r.tray.SetItemChecked(id, r.bound[r.menu[i]])
	}
}

func (r *hotkeyRunner) pressed(label string) error {
	return r.report(label, "hotkey")
}

func (r *hotkeyRunner) report(label, origin string) error {
	slog.Debug("hotkey pressed", "label", label, "origin", origin)
	publish(r.stream, protocol.TypeHotkey, protocol.HotkeyPayload{Label: label, Origin: origin})
	_, err := fmt.Fprintln(r.out, label)
	return err
}

// reload replaces the active set with the one in the current configuration.
// If the new set cannot be registered the previous one is restored.
func (r *hotkeyRunner) reload(winapi.Msg) (messaging.Answer, error) {
	set, err := r.mgr.Get().HotkeySet()
	if err != nil {
		slog.Warn("hotkey reload skipped", "err", err)
		return messaging.Block, nil
	}

	previous := r.set
	if err := r.active.Stop(); err != nil {
		return messaging.Block, err
	}
	r.active = nil
	if err := r.activate(set); err != nil {
		slog.Warn("hotkey reload failed, restoring previous bindings", "err", err)
		if err := r.activate(previous); err != nil {
			return messaging.Block, fmt.Errorf("restore hotkeys: %w", err)
		}
	}
	return messaging.Block, nil
}

func (r *hotkeyRunner) menuClicked(msg winapi.Msg) (messaging.Answer, error) {
	i := int(msg.WParam)
	if i >= len(r.menu) {
		return messaging.Block, nil
	}
	label := r.menu[i]
	if !r.bound[label] {
		slog.Info("tray item is no longer bound", "label", label)
		return messaging.Block, nil
	}
	return messaging.Block, r.report(label, "tray")
}

// watch posts a reload message to the loop whenever the configuration file
// changes.
func (r *hotkeyRunner) watch(ctx context.Context) error {
	r.mgr.RegisterChangeCallback(func(*config.Config) {
		if err := r.loop.Post(messaging.AppMessage(reloadMessage), 0, 0); err != nil {
			slog.Warn("post hotkey reload", "err", err)
		}
	})
	return r.mgr.Watch(ctx)
}

// buildTray creates a tray menu whose items act like the matching hotkeys.
// The caller runs it.
func (r *hotkeyRunner) buildTray(tooltip string) *tray.Tray {
	t := tray.New("winbridge", tooltip)
	r.items = r.items[:0]
	for i, label := range r.menu {
		r.items = append(r.items, t.AddCheckboxItem(label, r.bound[label], func() {
			if err := r.loop.Post(messaging.AppMessage(menuMessage), uintptr(i), 0); err != nil {
				slog.Warn("post tray click", "item", label, "err", err)
			}
		}))
	}
	t.AddSeparator()
	t.AddMenuItem("Quit", func() {
		if err := r.loop.Quit(); err != nil {
			slog.Warn("quit from tray", "err", err)
		}
	})
	r.tray = t
	return t
}

// close removes the loop listeners and unregisters the active set. It must
// run on the loop's thread.
func (r *hotkeyRunner) close() error {
	for _, reg := range r.regs {
		reg.Remove()
	}
	r.regs = nil
	if r.active == nil {
		return nil
	}
	err := r.active.Stop()
	r.active = nil
	return err
}
