package server

import (
	"context"
	"fmt"

	domain "github.com/oshokin/arming-scheduler/internal/domain/arming"
	"github.com/oshokin/arming-scheduler/internal/logger"
)

// panelState is the global panel flag.
type panelState interface {
	Armed(ctx context.Context) (bool, error)
	SetArmed(ctx context.Context, armed bool) error
}

// driver runs reconciliation on request.
type driver interface {
	ReconcileOne(ctx context.Context, buildingID int64) (domain.Result, error)
	RunPass(ctx context.Context) ([]domain.Result, error)
}

// service implements the control operations behind the gRPC transport.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	// panel is the shared global panel flag.
	panel panelState
	// loop serializes on-demand work with the periodic passes.
	loop driver
}

// newService creates a control service.
func newService(panel panelState, loop driver) *service {
	return &service{
		panel: panel,
		loop:  loop,
	}
}

// PanelArmed returns the global panel flag.
func (s *service) PanelArmed(ctx context.Context) (bool, error) {
	armed, err := s.panel.Armed(ctx)
	if err != nil {
		return false, fmt.Errorf("read panel state: %w", err)
	}

	logger.InfoKV(ctx, "Panel state requested", "armed", armed)

	return armed, nil
}

// SetPanelArmed stores the global panel flag and records who changed it.
func (s *service) SetPanelArmed(ctx context.Context, actor *domain.Actor, armed bool) error {
	if err := s.panel.SetArmed(ctx, armed); err != nil {
		logger.Errorf(ctx, "Failed to persist panel state: %v", err)

		return fmt.Errorf("persist panel state: %w", err)
	}

	logger.InfoKV(ctx, "Panel state updated", "armed", armed, "actor", actor.String())

	return nil
}

// Reevaluate reconciles one building synchronously.
func (s *service) Reevaluate(ctx context.Context, buildingID int64) (domain.Result, error) {
	return s.loop.ReconcileOne(ctx, buildingID)
}

// ReconcileAll runs one pass over all buildings now.
func (s *service) ReconcileAll(ctx context.Context) ([]domain.Result, error) {
	return s.loop.RunPass(ctx)
}
