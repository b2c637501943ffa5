package client

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/oshokin/arming-scheduler/internal/config"
	domain "github.com/oshokin/arming-scheduler/internal/domain/arming"
	"github.com/oshokin/arming-scheduler/internal/logger"
	"github.com/oshokin/arming-scheduler/internal/service/common"
)

// Options configures how arming-ctl reaches the server.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Wait keeps pushing a panel change until the server confirms it.
	Wait bool
}

// defaultPushInterval defines retry delay when pushing panel state to server.
const defaultPushInterval = 1 * time.Second

// target resolves the server address and call timeout.
// An explicit address skips the settings file entirely.
func target(opts *Options) (string, time.Duration, error) {
	if opts.ServerAddress != "" {
		return opts.ServerAddress, config.DefaultTimeout, nil
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return "", 0, err
	}

	return cfg.GRPCAddress, cfg.Timeout, nil
}

func connect(ctx context.Context, opts *Options) (*common.Client, error) {
	address, timeout, err := target(opts)
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Connecting to arming server", "server_address", address)

	return common.Dial(ctx, address, common.WithCallTimeout(timeout))
}

// GetPanel prints the global panel flag.
func GetPanel(ctx context.Context, opts *Options, out io.Writer) error {
	ctx = logger.WithName(ctx, "arming-ctl")

	client, err := connect(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	armed, err := client.PanelArmed(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "panel: %s\n", formatPanel(armed))

	return err
}

// SetPanel changes the global panel flag on behalf of the local user.
// With Wait set it retries until the server reports the requested value.
func SetPanel(ctx context.Context, opts *Options, armed bool, out io.Writer) error {
	ctx = logger.WithName(ctx, "arming-ctl")

	// Identify current user and hostname for audit logging.
	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	client, err := connect(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Pushing desired panel state", "armed", armed, "actor", actor.String())

	// attempt tries once to change panel state, returns (completed, error).
	attempt := func() (bool, error) {
		current, err := client.SetPanelArmed(ctx, actor, armed)
		if err != nil {
			if !opts.Wait {
				return false, err
			}

			logger.ErrorKV(ctx, "SetPanelState failed", "error", err)

			return false, nil
		}

		if current != armed {
			if !opts.Wait {
				return false, fmt.Errorf("server reports panel %s", formatPanel(current))
			}

			return false, nil
		}

		_, err = fmt.Fprintf(out, "panel: %s by %s\n", formatPanel(current), actor)

		return true, err
	}

	if done, err := attempt(); err != nil || done {
		return err
	}

	ticker := time.NewTicker(defaultPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			done, err := attempt()
			if err != nil || done {
				return err
			}
		}
	}
}

// Reevaluate reconciles one building now and prints the outcome.
func Reevaluate(ctx context.Context, opts *Options, buildingID int64, out io.Writer) error {
	ctx = logger.WithName(ctx, "arming-ctl")

	client, err := connect(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	result, err := client.Reevaluate(ctx, buildingID)
	if err != nil {
		return err
	}

	return writeResults(out, []domain.Result{result})
}

// Reconcile runs one pass over every building and prints a row per building.
func Reconcile(ctx context.Context, opts *Options, out io.Writer) error {
	ctx = logger.WithName(ctx, "arming-ctl")

	client, err := connect(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	results, err := client.ReconcileAll(ctx)
	if err != nil {
		return err
	}

	return writeResults(out, results)
}

func writeResults(out io.Writer, results []domain.Result) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "ID\tBUILDING\tACTION\tAFFECTED\tNOTIFIED\tSTATUS")

	for _, r := range results {
		action := string(r.Action)
		if action == "" {
			action = "-"
		}

		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n",
			r.BuildingID, r.Building, action, r.Affected, r.Notified, resultStatus(r))
	}

	return w.Flush()
}

func resultStatus(r domain.Result) string {
	switch {
	case r.Err != nil:
		return "error: " + r.Err.Error()
	case r.Skipped != domain.SkipNone:
		return "skipped: " + string(r.Skipped)
	default:
		return "ok"
	}
}

func formatPanel(armed bool) string {
	if armed {
		return "armed"
	}

	return "disarmed"
}
