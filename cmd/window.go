package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"winbridge/internal/messaging"
	"winbridge/internal/window"
)

// helloMessage is posted to the demo window once it is created.
const helloMessage uint8 = 1

func windowCmd() *cobra.Command {
	var caption string
	cmd := &cobra.Command{
		Use:   "window",
		Short: "Open a window and print the messages it receives until it is closed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loop, err := messaging.NewNative()
			if err != nil {
				return err
			}
			defer loop.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWindow(ctx, loop, caption, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&caption, "caption", "winbridge", "window title")
	return cmd
}

// runWindow shows a window on loop's thread and pumps messages until the
// window is destroyed. Cancelling ctx closes the window.
func runWindow(ctx context.Context, loop *messaging.Loop, caption string, out io.Writer) (err error) {
	class, err := window.RegisterClass(loop.System(), "winbridge")
	if err != nil {
		return err
	}
	defer func() {
		if uerr := class.Unregister(); uerr != nil {
			slog.Warn("unregister window class", "err", uerr)
		}
	}()

	w, err := window.New(loop, class, caption, func(w *window.Window, msg window.Message) messaging.Answer {
		fmt.Fprintln(out, msg)
		if msg.Kind == window.Destroy {
			messaging.PostQuit(loop.System())
		}
		return messaging.Continue
	})
	if err != nil {
		return err
	}
	defer func() {
		if derr := w.Destroy(); derr != nil && err == nil {
			err = derr
		}
	}()
	slog.Info("window open", "hwnd", fmt.Sprintf("%#x", w.Handle()), "class", class.Name())

	if err := w.PostUserMessage(helloMessage, 0, 0); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			if err := w.Close(); err != nil {
				slog.Warn("close window", "err", err)
			}
		case <-done:
		}
	}()
	return loop.Run(nil)
}
