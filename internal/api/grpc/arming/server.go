package arming

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/arming-scheduler/internal/domain/arming"
	"github.com/oshokin/arming-scheduler/internal/logger"
	"github.com/oshokin/arming-scheduler/internal/repository/inventory"
	"github.com/oshokin/arming-scheduler/internal/service/scheduler"
)

// Service abstracts the operations the transport layer depends on.
type Service interface {
	PanelArmed(ctx context.Context) (bool, error)
	SetPanelArmed(ctx context.Context, actor *domain.Actor, armed bool) error
	Reevaluate(ctx context.Context, buildingID int64) (domain.Result, error)
	ReconcileAll(ctx context.Context) ([]domain.Result, error)
}

// Server implements ArmingControlServer.
type Server struct {
	// service provides the business logic.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// GetPanelState returns the global panel flag.
func (s *Server) GetPanelState(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	armed, err := s.service.PanelArmed(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to read panel state", "error", err)

		return nil, status.Error(codes.Internal, "unable to read panel state")
	}

	return wrapperspb.Bool(armed), nil
}

// SetPanelState stores the global panel flag on behalf of the calling actor.
func (s *Server) SetPanelState(ctx context.Context, req *wrapperspb.BoolValue) (*wrapperspb.BoolValue, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	if err := s.service.SetPanelArmed(ctx, ActorFromContext(ctx), req.GetValue()); err != nil {
		return nil, status.Error(codes.Internal, "unable to persist panel state")
	}

	// Report the stored value so callers can confirm the change landed.
	armed, err := s.service.PanelArmed(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to read panel state")
	}

	return wrapperspb.Bool(armed), nil
}

// ReevaluateBuilding reconciles one building synchronously.
func (s *Server) ReevaluateBuilding(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if req.GetValue() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "building id must be positive")
	}

	result, err := s.service.Reevaluate(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := ResultToStruct(result)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return out, nil
}

// ReconcileAll runs one pass over all buildings.
func (s *Server) ReconcileAll(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	results, err := s.service.ReconcileAll(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := ResultsToList(results)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, inventory.ErrBuildingNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, scheduler.ErrPassInProgress):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
