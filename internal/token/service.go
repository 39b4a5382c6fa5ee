package token

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"energy-market/energy-ledger-backend/internal/ledger"
	"energy-market/energy-ledger-backend/internal/registry"
)

// Service is the fungible REC token ledger.
type Service interface {
	Mint(ctx context.Context, caller, to string, amount *ledger.BigInt) error
	BalanceOf(ctx context.Context, addr string) (*ledger.BigInt, error)
	TotalSupply(ctx context.Context) (*ledger.BigInt, error)
	Transfer(ctx context.Context, caller, to string, amount *ledger.BigInt) error
	Approve(ctx context.Context, caller, spender string, amount *ledger.BigInt) error
	Allowance(ctx context.Context, owner, spender string) (*ledger.BigInt, error)
	TransferFrom(ctx context.Context, caller, owner, to string, amount *ledger.BigInt) error
}

type service struct {
	store  ledger.Store
	logger *zap.Logger
}

// NewService creates the token ledger service.
func NewService(store ledger.Store, logger *zap.Logger) Service {
	return &service{store: store, logger: logger}
}

// MintTx creates amount tokens in to's balance inside an open write
// transaction. Callers are responsible for authorization; this is the
// only path that increases total supply.
func MintTx(tx ledger.Tx, to string, amount *ledger.BigInt) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: mint amount must be positive", ledger.ErrInvalidArgument)
	}
	balance, err := tx.Balance(to)
	if err != nil {
		return err
	}
	if err := tx.SetBalance(to, balance.Add(amount)); err != nil {
		return err
	}
	supply, err := tx.TotalSupply()
	if err != nil {
		return err
	}
	return tx.SetTotalSupply(supply.Add(amount))
}

// TransferTx moves amount from one balance to another inside an open
// write transaction.
func TransferTx(tx ledger.Tx, from, to string, amount *ledger.BigInt) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: transfer amount must be positive", ledger.ErrInvalidArgument)
	}
	fromBalance, err := tx.Balance(from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("balance of %s is %s, need %s: %w",
			from, fromBalance, amount, ledger.ErrInsufficientBalance)
	}
	if err := tx.SetBalance(from, fromBalance.Sub(amount)); err != nil {
		return err
	}
	toBalance, err := tx.Balance(to)
	if err != nil {
		return err
	}
	return tx.SetBalance(to, toBalance.Add(amount))
}

// TransferFromTx spends spender's allowance from owner's balance inside
// an open write transaction. Allowance and balances move atomically.
func TransferFromTx(tx ledger.Tx, spender, owner, to string, amount *ledger.BigInt) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: transfer amount must be positive", ledger.ErrInvalidArgument)
	}
	allowance, err := tx.Allowance(owner, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("allowance of %s for %s is %s, need %s: %w",
			owner, spender, allowance, amount, ledger.ErrInsufficientAllowance)
	}
	if err := tx.SetAllowance(owner, spender, allowance.Sub(amount)); err != nil {
		return err
	}
	return TransferTx(tx, owner, to, amount)
}

// Mint is the privileged external mint path: only the market controller
// (the marketplace, after bootstrap) or the owner may call it.
func (s *service) Mint(ctx context.Context, caller, to string, amount *ledger.BigInt) error {
	err := s.store.Update(ctx, func(tx ledger.Tx) error {
		controller, err := tx.MarketController()
		if err != nil {
			return err
		}
		if caller != controller {
			if authErr := registry.Authorize(tx, caller, ledger.RoleOwner); authErr != nil {
				return fmt.Errorf("mint restricted to market controller or owner: %w", ledger.ErrUnauthorized)
			}
		}
		return MintTx(tx, to, amount)
	})
	if err != nil {
		return err
	}
	s.logger.Info("tokens minted",
		zap.String("to", to),
		zap.String("amount", amount.String()),
		zap.String("caller", caller))
	return nil
}

func (s *service) BalanceOf(ctx context.Context, addr string) (*ledger.BigInt, error) {
	var balance *ledger.BigInt
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		b, err := tx.Balance(addr)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	return balance, err
}

func (s *service) TotalSupply(ctx context.Context) (*ledger.BigInt, error) {
	var supply *ledger.BigInt
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		v, err := tx.TotalSupply()
		if err != nil {
			return err
		}
		supply = v
		return nil
	})
	return supply, err
}

func (s *service) Transfer(ctx context.Context, caller, to string, amount *ledger.BigInt) error {
	return s.store.Update(ctx, func(tx ledger.Tx) error {
		return TransferTx(tx, caller, to, amount)
	})
}

// Approve overwrites any prior allowance with amount. Replace semantics,
// not increment, so a stale approval cannot stack with a new one.
func (s *service) Approve(ctx context.Context, caller, spender string, amount *ledger.BigInt) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: allowance must be non-negative", ledger.ErrInvalidArgument)
	}
	if spender == "" {
		return fmt.Errorf("%w: empty spender", ledger.ErrInvalidArgument)
	}
	return s.store.Update(ctx, func(tx ledger.Tx) error {
		return tx.SetAllowance(caller, spender, amount)
	})
}

func (s *service) Allowance(ctx context.Context, owner, spender string) (*ledger.BigInt, error) {
	var allowance *ledger.BigInt
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		a, err := tx.Allowance(owner, spender)
		if err != nil {
			return err
		}
		allowance = a
		return nil
	})
	return allowance, err
}

func (s *service) TransferFrom(ctx context.Context, caller, owner, to string, amount *ledger.BigInt) error {
	return s.store.Update(ctx, func(tx ledger.Tx) error {
		return TransferFromTx(tx, caller, owner, to, amount)
	})
}
