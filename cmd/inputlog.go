package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"winbridge/internal/api"
	"winbridge/internal/config"
	"winbridge/internal/hotkey"
	"winbridge/internal/input"
	"winbridge/internal/protocol"
	"winbridge/internal/winapi"
)

type inputLogOptions struct {
	moves  bool
	json   bool
	block  []string
	chords []string
	serve  string
}

func inputLogCmd() *cobra.Command {
	var opts inputLogOptions
	cmd := &cobra.Command{
		Use:   "input-log",
		Short: "Print low-level mouse and keyboard events",
		Long: `Hooks the mouse and keyboard and prints every event until interrupted.
Keys given with --block (or input.block_keys in the configuration) are
swallowed. Chords such as "Ctrl+Mouse4" are reported when fully held.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := winapi.Native()
			if err != nil {
				return err
			}
			warnIfNotElevated()

			stream, err := startStream("input-log", opts.serve)
			if err != nil {
				return err
			}
			defer stopStream(stream)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runInputLog(ctx, sys, cfgMgr.Get(), opts, cmd.OutOrStdout(), stream)
		},
	}
	cmd.Flags().BoolVar(&opts.moves, "moves", false, "include mouse moves")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print one JSON object per event")
	cmd.Flags().StringSliceVar(&opts.block, "block", nil, "keys to swallow, e.g. CAPSLOCK,F1")
	cmd.Flags().StringSliceVar(&opts.chords, "chord", nil, "chords to report, e.g. Ctrl+Mouse4")
	addServeFlag(cmd, &opts.serve)
	return cmd
}

func captureOptions(cfg *config.Config, opts inputLogOptions) (input.Options, error) {
	cfg.Input.BlockKeys = append(cfg.Input.BlockKeys, opts.block...)
	blocked, err := cfg.BlockedKeys()
	if err != nil {
		return input.Options{}, err
	}
	out := input.Options{
		Moves: opts.moves || cfg.Input.LogMoves,
		Block: blocked,
	}
	if len(opts.chords) > 0 {
		out.Chords = hotkey.NewChords()
		for _, spec := range opts.chords {
			if err := out.Chords.Register(spec, func() {
				slog.Info("chord held", "chord", spec)
			}); err != nil {
				return input.Options{}, err
			}
		}
	}
	return out, nil
}

// runInputLog prints events, and publishes them to stream if not nil, until
// ctx is done or the capture thread exits.
func runInputLog(ctx context.Context, sys winapi.System, cfg *config.Config, opts inputLogOptions, out io.Writer, stream *api.Server) error {
	copts, err := captureOptions(cfg, opts)
	if err != nil {
		return err
	}
	capture := input.NewCapture(sys, copts)
	if err := capture.Start(); err != nil {
		return err
	}
	slog.Info("capturing input", "moves", copts.Moves, "blocked", len(copts.Block))

	write := textPrinter(out)
	if opts.json {
		write = jsonPrinter(out)
	}
	emit := func(e input.Event) {
		write(e)
		publish(stream, protocol.TypeInput, e)
	}

	events := capture.Events()
	for {
		select {
		case <-ctx.Done():
			err := capture.Stop()
			for e := range events {
				emit(e)
			}
			if n := capture.Dropped(); n > 0 {
				slog.Warn("events dropped", "count", n)
			}
			return err
		case e, ok := <-events:
			if !ok {
				return capture.Stop()
			}
			emit(e)
		}
	}
}

func textPrinter(out io.Writer) func(input.Event) {
	return func(e input.Event) {
		fmt.Fprintf(out, "%10d %s\n", e.Timestamp, e)
	}
}

func jsonPrinter(out io.Writer) func(input.Event) {
	enc := json.NewEncoder(out)
	return func(e input.Event) {
		if err := enc.Encode(e); err != nil {
			slog.Warn("encode event", "err", err)
		}
	}
}
