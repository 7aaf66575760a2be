package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"winbridge/internal/api"
	"winbridge/internal/input"
	"winbridge/internal/network"
	"winbridge/internal/protocol"
)

func addServeFlag(cmd *cobra.Command, addr *string) {
	cmd.Flags().StringVar(addr, "serve", "", "stream events over WebSocket on host:port (default from stream.listen)")
}

// startStream serves the events of source when an address is given or
// configured. It returns nil when streaming is off.
func startStream(source, addr string) (*api.Server, error) {
	cfg := cfgMgr.Get().Stream
	if addr == "" {
		addr = cfg.Listen
	}
	if addr == "" {
		return nil, nil
	}
	s := api.NewServer(source, version, cfg.Token)
	if _, err := s.Start(addr); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func stopStream(s *api.Server) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		slog.Warn("stop event stream", "err", err)
	}
}

func publish(s *api.Server, t protocol.MessageType, payload any) {
	if s == nil {
		return
	}
	if err := s.Publish(t, payload); err != nil {
		slog.Debug("publish event", "type", t, "err", err)
	}
}

func followCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "follow ADDR",
		Short: "Print the events streamed by another winbridge (host:port or ws:// URL)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = cfgMgr.Get().Stream.Token
			}
			c := network.NewWSClient(args[0], token)
			out := cmd.OutOrStdout()
			c.OnMessage = func(m protocol.Message) {
				fmt.Fprintln(out, formatStreamMessage(m))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token (default from stream.token)")
	return cmd
}

func formatStreamMessage(m protocol.Message) string {
	switch m.Type {
	case protocol.TypeHello:
		var p protocol.HelloPayload
		if m.Decode(&p) == nil {
			return fmt.Sprintf("connected to %s (winbridge %s)", p.Source, p.Version)
		}
	case protocol.TypeInput:
		var e input.Event
		if m.Decode(&e) == nil {
			return fmt.Sprintf("%6d %10d %s", m.Seq, e.Timestamp, e)
		}
	case protocol.TypeHotkey:
		var p protocol.HotkeyPayload
		if m.Decode(&p) == nil {
			return fmt.Sprintf("%6d hotkey %s (%s)", m.Seq, p.Label, p.Origin)
		}
	case protocol.TypeWinEvent:
		var p protocol.WinEventPayload
		if m.Decode(&p) == nil {
			return fmt.Sprintf("%6d %10d %-18s hwnd=%#x thread=%d", m.Seq, p.Timestamp, p.Kind, p.Window, p.Thread)
		}
	}
	return fmt.Sprintf("%6d %s %s", m.Seq, m.Type, m.Payload)
}
