package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/arming-scheduler/internal/config"
	"github.com/oshokin/arming-scheduler/internal/service/client"
	"github.com/oshokin/arming-scheduler/internal/version"
)

var (
	// options are shared by every subcommand.
	options client.Options

	// rootCmd represents the base command for controlling a running server.
	rootCmd = &cobra.Command{
		Use:   "arming-ctl",
		Short: "Control a running arming server.",
		Long: `Talks to the arming server over its gRPC control API.

The server address is read from the configuration file unless --server is given.
Panel changes are recorded on the server with the local username and hostname.`,
		SilenceUsage: true,
	}
)

// Execute runs the arming-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&options.ServerAddress, "server", "s", "", "gRPC address of the arming server, overrides config")

	rootCmd.AddCommand(panelCmd, reevaluateCmd, reconcileCmd)
}
