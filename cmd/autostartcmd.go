package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"winbridge/internal/autostart"
)

const autostartName = "winbridge"

func autostartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Start the hotkey listener at login",
	}

	var tray bool
	enableCmd := &cobra.Command{
		Use:   "enable",
		Short: "Run `winbridge hotkeys` when the user logs in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(cfgMgr.Path())
			if err != nil {
				return err
			}
			e, err := autostart.ForCurrentExecutable(autostartName, autostartArgs(path, tray)...)
			if err != nil {
				return err
			}
			if err := autostart.Enable(e); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), e.CommandLine())
			return nil
		},
	}
	enableCmd.Flags().BoolVar(&tray, "tray", true, "show the tray icon")

	disableCmd := &cobra.Command{
		Use:   "disable",
		Short: "Stop starting at login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return autostart.Disable(autostartName)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether winbridge starts at login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := autostart.IsEnabled(autostartName)
			if err != nil {
				return err
			}
			state := "disabled"
			if ok {
				state = "enabled"
			}
			fmt.Fprintln(cmd.OutOrStdout(), state)
			return nil
		},
	}

	cmd.AddCommand(enableCmd, disableCmd, statusCmd)
	return cmd
}

func autostartArgs(configPath string, tray bool) []string {
	return []string{"--config", configPath, "hotkeys", fmt.Sprintf("--tray=%t", tray)}
}
