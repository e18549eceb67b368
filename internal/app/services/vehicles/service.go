// Package vehicles manages vehicle registration and the approval workflow.
package vehicles

import (
	"context"
	"strings"

	"github.com/petrolink/fuelhub/internal/app/domain/fuel"
	"github.com/petrolink/fuelhub/internal/app/domain/vehicle"
	"github.com/petrolink/fuelhub/internal/app/storage"
	"github.com/petrolink/fuelhub/internal/errors"
	"github.com/petrolink/fuelhub/pkg/logger"
)

// Service manages vehicle records.
type Service struct {
	store storage.VehicleStore
	log   *logger.Logger
}

// New constructs a vehicle service.
func New(store storage.VehicleStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("vehicles")
	}
	return &Service{store: store, log: log}
}

// Register creates a pending vehicle. Registration numbers are unique across
// the platform; a duplicate surfaces as a conflict.
func (s *Service) Register(ctx context.Context, v vehicle.Vehicle) (vehicle.Vehicle, error) {
	v.Registration = strings.ToUpper(strings.TrimSpace(v.Registration))
	if v.Registration == "" {
		return vehicle.Vehicle{}, errors.Validation("registration is required")
	}
	if strings.TrimSpace(v.OwnerID) == "" {
		return vehicle.Vehicle{}, errors.Validation("owner_id is required")
	}
	if _, err := fuel.ParseKind(string(v.FuelKind)); err != nil {
		return vehicle.Vehicle{}, errors.Validation(err.Error())
	}

	created, err := s.store.CreateVehicle(ctx, v)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return vehicle.Vehicle{}, errors.Conflict("registration number already taken")
		}
		return vehicle.Vehicle{}, err
	}
	s.log.WithField("vehicle_id", created.ID).
		WithField("registration", created.Registration).
		WithField("owner_id", created.OwnerID).
		Info("vehicle registered")
	return created, nil
}

// Get returns one vehicle by id.
func (s *Service) Get(ctx context.Context, id string) (vehicle.Vehicle, error) {
	return s.store.GetVehicle(ctx, id)
}

// List returns vehicles, optionally filtered by owner.
func (s *Service) List(ctx context.Context, ownerID string) ([]vehicle.Vehicle, error) {
	return s.store.ListVehicles(ctx, ownerID)
}

// ListPending returns every vehicle awaiting review.
func (s *Service) ListPending(ctx context.Context) ([]vehicle.Vehicle, error) {
	return s.store.ListPendingVehicles(ctx)
}

// Approve moves a pending vehicle to approved. A vehicle that already left
// the pending state surfaces as a conflict; approval is not idempotent.
func (s *Service) Approve(ctx context.Context, id, approverID string) (vehicle.Vehicle, error) {
	v, err := s.store.ApproveVehicle(ctx, id, approverID)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return vehicle.Vehicle{}, errors.Conflict("vehicle is not pending review")
		}
		return vehicle.Vehicle{}, err
	}
	s.log.WithField("vehicle_id", id).WithField("approved_by", approverID).Info("vehicle approved")
	return v, nil
}

// Reject moves a pending vehicle to rejected with a reason.
func (s *Service) Reject(ctx context.Context, id, approverID, reason string) (vehicle.Vehicle, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return vehicle.Vehicle{}, errors.Validation("reason is required")
	}

	v, err := s.store.RejectVehicle(ctx, id, approverID, reason)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return vehicle.Vehicle{}, errors.Conflict("vehicle is not pending review")
		}
		return vehicle.Vehicle{}, err
	}
	s.log.WithField("vehicle_id", id).
		WithField("rejected_by", approverID).
		WithField("reason", reason).
		Info("vehicle rejected")
	return v, nil
}
