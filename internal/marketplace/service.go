package marketplace

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"energy-market/energy-ledger-backend/internal/certification"
	"energy-market/energy-ledger-backend/internal/ledger"
	"energy-market/energy-ledger-backend/internal/notifications"
	"energy-market/energy-ledger-backend/internal/token"
	"energy-market/energy-ledger-backend/pkg/workflows"
)

// Requests

type CreateListingRequest struct {
	TokenAmount    *ledger.BigInt      `json:"token_amount"`
	PricePerToken  *ledger.BigInt      `json:"price_per_token"`
	EnergySource   ledger.EnergySource `json:"energy_source"`
	KWHRepresented uint64              `json:"kwh_represented"`
}

// Service is the marketplace: listing lifecycle plus the
// marketplace-routed certificate paths the client uses.
type Service interface {
	CreateListing(ctx context.Context, seller string, req CreateListingRequest) (*ledger.Listing, error)
	BuyListing(ctx context.Context, buyer string, id uint64, payment *ledger.BigInt) (*ledger.Listing, error)
	CancelListing(ctx context.Context, caller string, id uint64) (*ledger.Listing, error)
	GetListing(ctx context.Context, id uint64) (*ledger.Listing, error)
	ProceedsOf(ctx context.Context, addr string) (*ledger.BigInt, error)
	CreateCertificate(ctx context.Context, caller, producer string, req certification.SubmitCertificateRequest) (*ledger.Certificate, error)
	VerifyAndMint(ctx context.Context, caller string, certID uint64, mintAmount *ledger.BigInt) (*ledger.Certificate, error)
}

type service struct {
	store     ledger.Store
	logger    *zap.Logger
	publisher notifications.Publisher
	certs     certification.Service
	account   string
	listingSM *workflows.StateMachine
}

// NewService creates the marketplace service. account is the escrow
// address that holds listed tokens between creation and settlement.
func NewService(store ledger.Store, logger *zap.Logger, publisher notifications.Publisher, certs certification.Service, account string) Service {
	return &service{
		store:     store,
		logger:    logger,
		publisher: publisher,
		certs:     certs,
		account:   account,
		listingSM: workflows.NewListingStateMachine(),
	}
}

// CreateListing escrows the tokens immediately: the seller's pre-approved
// allowance is spent into marketplace custody in the same transaction
// that creates the listing. Escrow-at-creation means a seller cannot
// back two listings with the same tokens; once listed, they are gone
// from the seller's balance until sale or cancellation.
func (s *service) CreateListing(ctx context.Context, seller string, req CreateListingRequest) (*ledger.Listing, error) {
	if req.TokenAmount == nil || req.TokenAmount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: token amount must be positive", ledger.ErrInvalidArgument)
	}
	if req.PricePerToken == nil || req.PricePerToken.Sign() <= 0 {
		return nil, fmt.Errorf("%w: price per token must be positive", ledger.ErrInvalidArgument)
	}
	if !ledger.ValidEnergySource(req.EnergySource) {
		return nil, fmt.Errorf("%q: %w", req.EnergySource, certification.ErrUnknownEnergySource)
	}
	if req.KWHRepresented == 0 {
		return nil, fmt.Errorf("%w: kwh represented must be positive", ledger.ErrInvalidArgument)
	}

	var listing *ledger.Listing
	err := s.store.Update(ctx, func(tx ledger.Tx) error {
		if err := token.TransferFromTx(tx, s.account, seller, s.account, req.TokenAmount); err != nil {
			return err
		}
		id, err := tx.NextListingID()
		if err != nil {
			return err
		}
		listing = &ledger.Listing{
			ID:             id,
			Seller:         seller,
			TokenAmount:    req.TokenAmount.Clone(),
			PricePerToken:  req.PricePerToken.Clone(),
			EnergySource:   req.EnergySource,
			KWHRepresented: req.KWHRepresented,
			Timestamp:      time.Now().UTC(),
			Status:         ledger.ListingActive,
		}
		return tx.PutListing(listing)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("listing created",
		zap.Uint64("id", listing.ID),
		zap.String("seller", seller),
		zap.String("tokens", req.TokenAmount.String()))
	s.publisher.Publish(notifications.NewEvent(notifications.EventListingCreated, listing))
	return listing, nil
}

// BuyListing settles a purchase atomically: escrowed tokens move to the
// buyer, the payment is credited to the seller's proceeds, and the
// listing leaves ACTIVE, all in one transaction. A concurrent second
// buyer finds the listing already SOLD and fails.
func (s *service) BuyListing(ctx context.Context, buyer string, id uint64, payment *ledger.BigInt) (*ledger.Listing, error) {
	if payment == nil || payment.Sign() < 0 {
		return nil, fmt.Errorf("%w: malformed payment", ledger.ErrInvalidArgument)
	}

	var listing *ledger.Listing
	err := s.store.Update(ctx, func(tx ledger.Tx) error {
		l, err := tx.Listing(id)
		if err != nil {
			return err
		}
		if !s.listingSM.CanTransition(string(l.Status), string(ledger.ListingSold)) {
			return fmt.Errorf("listing %d is %s: %w", id, l.Status, ledger.ErrListingNotActive)
		}
		if buyer == l.Seller {
			return fmt.Errorf("%w: seller cannot buy own listing", ledger.ErrInvalidArgument)
		}
		if total := l.TotalPrice(); payment.Cmp(total) < 0 {
			return fmt.Errorf("payment %s below total price %s: %w",
				payment, total, ledger.ErrInsufficientPayment)
		}
		if err := token.TransferTx(tx, s.account, buyer, l.TokenAmount); err != nil {
			return err
		}
		proceeds, err := tx.Proceeds(l.Seller)
		if err != nil {
			return err
		}
		if err := tx.SetProceeds(l.Seller, proceeds.Add(payment)); err != nil {
			return err
		}
		l.Status = ledger.ListingSold
		if err := tx.PutListing(l); err != nil {
			return err
		}
		listing = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("listing sold",
		zap.Uint64("id", id),
		zap.String("buyer", buyer),
		zap.String("seller", listing.Seller),
		zap.String("payment", payment.String()))
	s.publisher.Publish(notifications.NewEvent(notifications.EventListingSold, listing))
	return listing, nil
}

// CancelListing returns the escrowed tokens to the seller and retires
// the listing. Only the seller may cancel.
func (s *service) CancelListing(ctx context.Context, caller string, id uint64) (*ledger.Listing, error) {
	var listing *ledger.Listing
	err := s.store.Update(ctx, func(tx ledger.Tx) error {
		l, err := tx.Listing(id)
		if err != nil {
			return err
		}
		if caller != l.Seller {
			return fmt.Errorf("only the seller may cancel listing %d: %w", id, ledger.ErrUnauthorized)
		}
		if !s.listingSM.CanTransition(string(l.Status), string(ledger.ListingCancelled)) {
			return fmt.Errorf("listing %d is %s: %w", id, l.Status, ledger.ErrListingNotActive)
		}
		if err := token.TransferTx(tx, s.account, l.Seller, l.TokenAmount); err != nil {
			return err
		}
		l.Status = ledger.ListingCancelled
		if err := tx.PutListing(l); err != nil {
			return err
		}
		listing = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("listing cancelled", zap.Uint64("id", id), zap.String("seller", caller))
	s.publisher.Publish(notifications.NewEvent(notifications.EventListingCancelled, listing))
	return listing, nil
}

func (s *service) GetListing(ctx context.Context, id uint64) (*ledger.Listing, error) {
	var listing *ledger.Listing
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		l, err := tx.Listing(id)
		if err != nil {
			return err
		}
		listing = l
		return nil
	})
	return listing, err
}

func (s *service) ProceedsOf(ctx context.Context, addr string) (*ledger.BigInt, error) {
	var proceeds *ledger.BigInt
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		p, err := tx.Proceeds(addr)
		if err != nil {
			return err
		}
		proceeds = p
		return nil
	})
	return proceeds, err
}

// CreateCertificate is the marketplace-routed submission path. The
// caller must be the producer the certificate is for.
func (s *service) CreateCertificate(ctx context.Context, caller, producer string, req certification.SubmitCertificateRequest) (*ledger.Certificate, error) {
	if producer == "" {
		producer = caller
	}
	if caller != producer {
		return nil, fmt.Errorf("certificates can only be created for the calling producer: %w", ledger.ErrUnauthorized)
	}
	return s.certs.SubmitCertificate(ctx, producer, req)
}

// VerifyAndMint is the marketplace-side verification path; the mint
// atomicity lives in the certification service's transaction.
func (s *service) VerifyAndMint(ctx context.Context, caller string, certID uint64, mintAmount *ledger.BigInt) (*ledger.Certificate, error) {
	return s.certs.VerifyCertificate(ctx, caller, certID, mintAmount)
}
