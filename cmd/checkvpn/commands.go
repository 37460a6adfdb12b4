package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/checkvpn/internal/app"
	"github.com/MrSnakeDoc/checkvpn/internal/logger"
	"github.com/MrSnakeDoc/checkvpn/internal/version"
)

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "checkvpn",
		Short: "Watch the public ISP and act when the VPN tunnel is gone",
		Long: `checkvpn periodically checks that the network is reachable, asks public
IP-information services which ISP the traffic leaves through, and runs a
recovery action (reboot, systemd unit restart or command) when that ISP is
the one that should be hidden behind the VPN.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, f)
		},
	}
	f.register(root)

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the watcher until interrupted (same as no subcommand)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDaemon(cmd, f)
			},
		},
		newOnceCmd(f),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}

func runDaemon(cmd *cobra.Command, f *flags) error {
	opts, err := f.options(cmd)
	if err != nil {
		return err
	}
	a, err := app.New(opts)
	if err != nil {
		return err
	}
	if f.runOnce {
		return a.RunOnce()
	}
	return a.Run()
}

func newOnceCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single check cycle and exit with its status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.options(cmd)
			if err != nil {
				return err
			}
			a, err := app.New(opts)
			if err != nil {
				return err
			}
			return a.RunOnce()
		},
	}
}

func newInitCmd() *cobra.Command {
	var (
		path    string
		force   bool
		noFetch bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `init writes a YAML configuration built from the defaults. Unless --no-fetch
is given, the current ISP is detected through ip-api.com and ifconfig.co and
written as the ISP to watch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New("info", true)
			defer func() { _ = log.Sync() }()

			written, isp, err := app.Init(context.Background(), app.InitOptions{
				Path:    path,
				Force:   force,
				NoFetch: noFetch,
				Logger:  log,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (watching ISP %q)\n", written, isp)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", app.DefaultInitTarget, "where to write the configuration")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.Flags().BoolVar(&noFetch, "no-fetch", false, "skip ISP detection and write a placeholder")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
