package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/arming-scheduler/internal/service/client"
)

var errUnknownPanelState = errors.New("panel state must be armed or disarmed")

var (
	panelCmd = &cobra.Command{
		Use:   "panel",
		Short: "Read or change the global panel flag.",
	}

	panelGetCmd = &cobra.Command{
		Use:   "get",
		Short: "Print whether the panel is armed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return client.GetPanel(ctx, &options, cmd.OutOrStdout())
		},
	}

	panelSetCmd = &cobra.Command{
		Use:       "set armed|disarmed",
		Short:     "Arm or disarm the panel.",
		Long:      "Changes the global panel flag. Buildings pick the change up on their next evaluation.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"armed", "disarmed"},
		RunE: func(cmd *cobra.Command, args []string) error {
			armed, err := parsePanelState(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return client.SetPanel(ctx, &options, armed, cmd.OutOrStdout())
		},
	}
)

func parsePanelState(raw string) (bool, error) {
	switch raw {
	case "armed", "arm", "on":
		return true, nil
	case "disarmed", "disarm", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", errUnknownPanelState, raw)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	panelSetCmd.Flags().BoolVarP(&options.Wait, "wait", "w", false, "retry until the server confirms the change")

	panelCmd.AddCommand(panelGetCmd, panelSetCmd)
}
