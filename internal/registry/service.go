package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"energy-market/energy-ledger-backend/internal/ledger"
	"energy-market/energy-ledger-backend/internal/notifications"
)

// Requests

type RegisterProducerRequest struct {
	Name        string                `json:"name"`
	Location    string                `json:"location"`
	EnergyTypes []ledger.EnergySource `json:"energy_types"`
	CapacityKW  uint64                `json:"capacity_kw"`
}

// Service is the identity and role registry.
type Service interface {
	RegisterProducer(ctx context.Context, addr string, req RegisterProducerRequest) (*ledger.Producer, error)
	GetProducer(ctx context.Context, addr string) (*ledger.Producer, error)
	IsRegisteredProducer(ctx context.Context, addr string) (bool, error)
	AuthorizeAuditor(ctx context.Context, caller, addr string) error
	AddVerifier(ctx context.Context, caller, addr string) error
	IsAuditor(ctx context.Context, addr string) (bool, error)
	IsVerifier(ctx context.Context, addr string) (bool, error)
}

type service struct {
	store     ledger.Store
	logger    *zap.Logger
	publisher notifications.Publisher
}

// NewService creates the registry service.
func NewService(store ledger.Store, logger *zap.Logger, publisher notifications.Publisher) Service {
	return &service{store: store, logger: logger, publisher: publisher}
}

// Authorize checks that addr carries the required capability, as of the
// current transaction. Used by every privileged operation instead of
// per-call role conditionals.
func Authorize(tx ledger.Tx, addr string, required ledger.Role) error {
	role, err := tx.Role(addr)
	if err != nil {
		return err
	}
	if !role.Has(required) {
		return fmt.Errorf("address %s lacks required capability: %w", addr, ledger.ErrUnauthorized)
	}
	return nil
}

// CanVerify reports whether addr may verify certificates: auditors and
// marketplace verifiers both qualify.
func CanVerify(tx ledger.Tx, addr string) error {
	role, err := tx.Role(addr)
	if err != nil {
		return err
	}
	if role.Has(ledger.RoleAuditor) || role.Has(ledger.RoleVerifier) {
		return nil
	}
	return fmt.Errorf("address %s is not an auditor or verifier: %w", addr, ledger.ErrUnauthorized)
}

func (s *service) RegisterProducer(ctx context.Context, addr string, req RegisterProducerRequest) (*ledger.Producer, error) {
	if addr == "" {
		return nil, fmt.Errorf("%w: empty address", ledger.ErrInvalidArgument)
	}
	if req.Name == "" || req.Location == "" {
		return nil, fmt.Errorf("%w: name and location are required", ledger.ErrInvalidArgument)
	}
	if len(req.EnergyTypes) == 0 {
		return nil, fmt.Errorf("%w: at least one energy type is required", ledger.ErrInvalidArgument)
	}
	for _, t := range req.EnergyTypes {
		if !ledger.ValidEnergySource(t) {
			return nil, fmt.Errorf("%w: unknown energy source %q", ledger.ErrInvalidArgument, t)
		}
	}
	if req.CapacityKW == 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", ledger.ErrInvalidArgument)
	}

	producer := &ledger.Producer{
		Address:          addr,
		Name:             req.Name,
		Location:         req.Location,
		EnergyTypes:      datatypes.NewJSONSlice(req.EnergyTypes),
		TotalCapacityKW:  req.CapacityKW,
		RegistrationTime: time.Now().UTC(),
	}

	err := s.store.Update(ctx, func(tx ledger.Tx) error {
		if _, err := tx.Producer(addr); err == nil {
			return fmt.Errorf("producer %s: %w", addr, ledger.ErrAlreadyRegistered)
		}
		return tx.PutProducer(producer)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("producer registered",
		zap.String("address", addr),
		zap.String("name", req.Name),
		zap.Uint64("capacity_kw", req.CapacityKW))
	s.publisher.Publish(notifications.NewEvent(notifications.EventProducerRegistered, producer))
	return producer, nil
}

func (s *service) GetProducer(ctx context.Context, addr string) (*ledger.Producer, error) {
	var producer *ledger.Producer
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		p, err := tx.Producer(addr)
		if err != nil {
			return err
		}
		producer = p
		return nil
	})
	return producer, err
}

func (s *service) IsRegisteredProducer(ctx context.Context, addr string) (bool, error) {
	_, err := s.GetProducer(ctx, addr)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *service) AuthorizeAuditor(ctx context.Context, caller, addr string) error {
	return s.grant(ctx, caller, addr, ledger.RoleAuditor, "auditor authorized")
}

func (s *service) AddVerifier(ctx context.Context, caller, addr string) error {
	return s.grant(ctx, caller, addr, ledger.RoleVerifier, "verifier added")
}

func (s *service) grant(ctx context.Context, caller, addr string, role ledger.Role, msg string) error {
	if addr == "" {
		return fmt.Errorf("%w: empty address", ledger.ErrInvalidArgument)
	}
	err := s.store.Update(ctx, func(tx ledger.Tx) error {
		if err := Authorize(tx, caller, ledger.RoleOwner); err != nil {
			return err
		}
		return tx.GrantRole(addr, role)
	})
	if err != nil {
		return err
	}
	s.logger.Info(msg, zap.String("address", addr), zap.String("granted_by", caller))
	return nil
}

func (s *service) IsAuditor(ctx context.Context, addr string) (bool, error) {
	return s.hasRole(ctx, addr, ledger.RoleAuditor)
}

func (s *service) IsVerifier(ctx context.Context, addr string) (bool, error) {
	return s.hasRole(ctx, addr, ledger.RoleVerifier)
}

func isNotFound(err error) bool {
	return errors.Is(err, ledger.ErrNotFound)
}

func (s *service) hasRole(ctx context.Context, addr string, role ledger.Role) (bool, error) {
	var has bool
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		r, err := tx.Role(addr)
		if err != nil {
			return err
		}
		has = r.Has(role)
		return nil
	})
	return has, err
}
