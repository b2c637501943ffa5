package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oshokin/arming-scheduler/internal/service/client"
)

var (
	reevaluateCmd = &cobra.Command{
		Use:   "reevaluate <building-id>",
		Short: "Reconcile one building now.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buildingID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || buildingID <= 0 {
				return fmt.Errorf("invalid building id %q", args[0])
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return client.Reevaluate(ctx, &options, buildingID, cmd.OutOrStdout())
		},
	}

	reconcileCmd = &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass over every building.",
		Long:  "Runs a full pass on the server. Fails when a scheduled pass is already in progress.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return client.Reconcile(ctx, &options, cmd.OutOrStdout())
		},
	}
)
