//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/arming-scheduler/internal/api/grpc/arming"
	"github.com/oshokin/arming-scheduler/internal/config"
	domain "github.com/oshokin/arming-scheduler/internal/domain/arming"
)

// Client wraps the ArmingControl gRPC client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the arming server.
	conn *grpc.ClientConn
	// api is the ArmingControl client.
	api *api.ArmingControlClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errActorRequired is returned when an actor is not provided but is required for the operation.
	errActorRequired = errors.New("actor must be provided")
)

// Dial creates a client for the arming server at address.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial arming server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewArmingControlClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// PanelArmed retrieves the global panel flag.
func (c *Client) PanelArmed(ctx context.Context) (bool, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetPanelState(callCtx, &emptypb.Empty{})
	if err != nil {
		return false, fmt.Errorf("get panel state: %w", err)
	}

	return resp.GetValue(), nil
}

// SetPanelArmed updates the global panel flag on behalf of actor.
func (c *Client) SetPanelArmed(ctx context.Context, actor *domain.Actor, armed bool) (bool, error) {
	if actor == nil {
		return false, errActorRequired
	}

	callCtx, cancel := c.callContext(api.WithActor(ctx, actor))
	defer cancel()

	resp, err := c.api.SetPanelState(callCtx, wrapperspb.Bool(armed))
	if err != nil {
		return false, fmt.Errorf("set panel state: %w", err)
	}

	return resp.GetValue(), nil
}

// Reevaluate reconciles one building on the server.
func (c *Client) Reevaluate(ctx context.Context, buildingID int64) (domain.Result, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ReevaluateBuilding(callCtx, wrapperspb.Int64(buildingID))
	if err != nil {
		return domain.Result{}, fmt.Errorf("reevaluate building %d: %w", buildingID, err)
	}

	return api.ResultFromStruct(resp)
}

// ReconcileAll runs one pass over all buildings on the server.
func (c *Client) ReconcileAll(ctx context.Context) ([]domain.Result, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ReconcileAll(callCtx, &emptypb.Empty{})
	if err != nil {
		return nil, fmt.Errorf("reconcile all: %w", err)
	}

	return api.ResultsFromList(resp)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
