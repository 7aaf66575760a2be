package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"winbridge/internal/api"
	"winbridge/internal/hook"
	"winbridge/internal/messaging"
	"winbridge/internal/protocol"
)

func windowLogCmd() *cobra.Command {
	var (
		all   bool
		serve string
	)
	cmd := &cobra.Command{
		Use:   "window-log",
		Short: "Print foreground, minimize and move events of top-level windows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loop, err := messaging.NewNative()
			if err != nil {
				return err
			}
			defer loop.Close()

			stream, err := startStream("window-log", serve)
			if err != nil {
				return err
			}
			defer stopStream(stream)

			h, err := hook.AddWinEvent(loop.System(), 0, winEventPrinter(cmd.OutOrStdout(), all, stream))
			if err != nil {
				return err
			}
			defer h.Remove()

			release := quitOnSignal(cmd.Context(), loop)
			defer release()
			return loop.Run(nil)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include events about child objects, not just windows")
	addServeFlag(cmd, &serve)
	return cmd
}

func winEventPrinter(out io.Writer, all bool, stream *api.Server) func(hook.WinEventMessage) {
	return func(m hook.WinEventMessage) {
		if !all && !m.IsWindow() {
			return
		}
		fmt.Fprintf(out, "%10d %-18s hwnd=%#x thread=%d\n", m.Timestamp, m.Kind, m.Window, m.Thread)
		publish(stream, protocol.TypeWinEvent, protocol.WinEventPayload{
			Kind:      m.Kind.String(),
			Window:    uint64(m.Window),
			ObjectID:  m.ObjectID,
			ChildID:   m.ChildID,
			Thread:    m.Thread,
			Timestamp: m.Timestamp,
		})
	}
}
