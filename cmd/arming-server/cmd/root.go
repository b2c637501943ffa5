package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/arming-scheduler/internal/config"
	"github.com/oshokin/arming-scheduler/internal/service/server"
	"github.com/oshokin/arming-scheduler/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// httpAddress overrides the HTTP API listen address.
	httpAddress string
	// grpcAddress overrides the control API listen address.
	grpcAddress string

	// rootCmd represents the base command for running the arming server.
	rootCmd = &cobra.Command{
		Use:   "arming-server",
		Short: "Run the proevent arming scheduler.",
		Long: `Starts the arming scheduler together with its HTTP and gRPC APIs.

Every reconcile interval the scheduler compares each building's working-hours
window with the global panel flag and arms or disarms the building's proevents.
Disarm and "not armed" events are reported to the monitoring endpoint.

Listen addresses come from the configuration file unless overridden by flags;
an empty host (e.g. :8000) binds all interfaces.
On SIGINT or SIGTERM the scheduler stops between buildings and both APIs drain.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return server.Run(ctx, &server.Options{
				ConfigPath:  configPath,
				HTTPAddress: httpAddress,
				GRPCAddress: grpcAddress,
			})
		},
	}
)

// Execute runs the arming-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&httpAddress, "http-addr", "", "HTTP API listen address, overrides config")
	rootCmd.Flags().StringVar(&grpcAddress, "grpc-addr", "", "gRPC control API listen address, overrides config")
}
