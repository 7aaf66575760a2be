// winbridge - Windows event callback bridge
// Prints low-level input, global hotkeys, window messages and WinEvents.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"winbridge/internal/config"
	"winbridge/internal/logging"
	"winbridge/internal/messaging"
	"winbridge/internal/osutils"
)

var version = "0.1.0"

var (
	configFlag    string
	logLevelFlag  string
	logFormatFlag string

	cfgMgr    *config.Manager
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "winbridge",
	Short:         "Bridge Windows hooks, hotkeys and window messages to the console",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initApp()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "configuration file (default is the per-user config path)")
	flags.StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&logFormatFlag, "log-format", "", "log format: auto, text or json")

	rootCmd.AddCommand(
		inputLogCmd(),
		hotkeysCmd(),
		windowLogCmd(),
		windowCmd(),
		followCmd(),
		configCmd(),
		autostartCmd(),
	)
}

// initApp loads the configuration and sets up logging. A configuration that
// fails to load is reported and the defaults are used, so `config init` can
// still repair it.
func initApp() error {
	mgr, err := config.NewManager(configFlag)
	if err != nil {
		return err
	}
	loadErr := mgr.Load()

	cfg := mgr.Get()
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	if logFormatFlag != "" {
		cfg.Logging.Format = logFormatFlag
	}
	opts, err := cfg.LoggingOptions()
	if err != nil {
		return err
	}
	logCloser, err = logging.Setup(opts)
	if err != nil {
		return err
	}
	if loadErr != nil {
		slog.Warn("using default configuration", "err", loadErr)
	}
	cfgMgr = mgr
	return nil
}

// quitOnSignal posts WM_QUIT to loop when ctx is cancelled or the process is
// interrupted. The returned function releases the signal handler; once it
// returns no WM_QUIT will be posted.
func quitOnSignal(ctx context.Context, loop *messaging.Loop) func() {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			// release cancels ctx too; a released loop may already be gone.
			select {
			case <-done:
				return
			default:
			}
			slog.Debug("shutting down", "thread", loop.ThreadID())
			if err := loop.Quit(); err != nil {
				slog.Warn("quit message loop", "err", err)
			}
		case <-done:
		}
	}()
	return func() {
		close(done)
		stop()
		<-exited
	}
}

func warnIfNotElevated() {
	elevated, err := osutils.Elevated()
	if err != nil {
		slog.Debug("elevation check failed", "err", err)
		return
	}
	if !elevated {
		slog.Warn("not running elevated; input aimed at elevated windows will not reach the hooks")
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("winbridge failed", "err", err)
		os.Exit(1)
	}
}
