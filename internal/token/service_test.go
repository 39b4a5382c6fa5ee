package token

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"energy-market/energy-ledger-backend/internal/ledger"
)

const (
	ownerAddr      = "0xowner"
	controllerAddr = "market-escrow"
)

func newTestService(t *testing.T) (Service, ledger.Store) {
	t.Helper()
	store := ledger.NewMemStore()
	err := store.Update(context.Background(), func(tx ledger.Tx) error {
		if err := tx.SetOwner(ownerAddr); err != nil {
			return err
		}
		if err := tx.GrantRole(ownerAddr, ledger.RoleOwner); err != nil {
			return err
		}
		return tx.SetMarketController(controllerAddr)
	})
	require.NoError(t, err)
	return NewService(store, zap.NewNop()), store
}

func balanceOf(t *testing.T, svc Service, addr string) *ledger.BigInt {
	t.Helper()
	b, err := svc.BalanceOf(context.Background(), addr)
	require.NoError(t, err)
	return b
}

func TestMintByController(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Mint(ctx, controllerAddr, "alice", ledger.Tokens(50)))

	assert.Equal(t, 0, balanceOf(t, svc, "alice").Cmp(ledger.Tokens(50)))

	supply, err := svc.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, supply.Cmp(ledger.Tokens(50)))
}

func TestMintByOwner(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.Mint(context.Background(), ownerAddr, "alice", ledger.Tokens(1)))
	assert.Equal(t, 0, balanceOf(t, svc, "alice").Cmp(ledger.Tokens(1)))
}

func TestMintUnauthorized(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Mint(ctx, "0xrando", "0xrando", ledger.Tokens(1000))
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)

	assert.Equal(t, 0, balanceOf(t, svc, "0xrando").Sign())
	supply, err := svc.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, supply.Sign())
}

func TestMintRejectsNonPositiveAmount(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Mint(context.Background(), controllerAddr, "alice", ledger.Zero())
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	err = svc.Mint(context.Background(), controllerAddr, "alice", nil)
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
}

func TestTransfer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Mint(ctx, controllerAddr, "alice", ledger.Tokens(10)))
	require.NoError(t, svc.Transfer(ctx, "alice", "bob", ledger.Tokens(4)))

	assert.Equal(t, 0, balanceOf(t, svc, "alice").Cmp(ledger.Tokens(6)))
	assert.Equal(t, 0, balanceOf(t, svc, "bob").Cmp(ledger.Tokens(4)))
}

func TestTransferInsufficientBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Mint(ctx, controllerAddr, "alice", ledger.Tokens(1)))

	err := svc.Transfer(ctx, "alice", "bob", ledger.Tokens(2))
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	// Nothing moved.
	assert.Equal(t, 0, balanceOf(t, svc, "alice").Cmp(ledger.Tokens(1)))
	assert.Equal(t, 0, balanceOf(t, svc, "bob").Sign())
}

func TestApproveReplacesAllowance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Approve(ctx, "alice", "spender", ledger.Tokens(10)))
	require.NoError(t, svc.Approve(ctx, "alice", "spender", ledger.Tokens(3)))

	allowance, err := svc.Allowance(ctx, "alice", "spender")
	require.NoError(t, err)
	assert.Equal(t, 0, allowance.Cmp(ledger.Tokens(3)))

	// Approving zero revokes.
	require.NoError(t, svc.Approve(ctx, "alice", "spender", ledger.Zero()))
	allowance, err = svc.Allowance(ctx, "alice", "spender")
	require.NoError(t, err)
	assert.Equal(t, 0, allowance.Sign())
}

func TestApproveValidation(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Approve(context.Background(), "alice", "", ledger.Tokens(1))
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	err = svc.Approve(context.Background(), "alice", "spender", nil)
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
}

func TestTransferFrom(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Mint(ctx, controllerAddr, "alice", ledger.Tokens(10)))
	require.NoError(t, svc.Approve(ctx, "alice", "spender", ledger.Tokens(5)))

	require.NoError(t, svc.TransferFrom(ctx, "spender", "alice", "carol", ledger.Tokens(5)))

	assert.Equal(t, 0, balanceOf(t, svc, "alice").Cmp(ledger.Tokens(5)))
	assert.Equal(t, 0, balanceOf(t, svc, "carol").Cmp(ledger.Tokens(5)))

	// Allowance fully consumed; a second spend fails.
	allowance, err := svc.Allowance(ctx, "alice", "spender")
	require.NoError(t, err)
	assert.Equal(t, 0, allowance.Sign())

	err = svc.TransferFrom(ctx, "spender", "alice", "carol", ledger.Tokens(1))
	assert.ErrorIs(t, err, ledger.ErrInsufficientAllowance)
}

func TestTransferFromInsufficientBalanceKeepsAllowance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Mint(ctx, controllerAddr, "alice", ledger.Tokens(2)))
	require.NoError(t, svc.Approve(ctx, "alice", "spender", ledger.Tokens(5)))

	err := svc.TransferFrom(ctx, "spender", "alice", "carol", ledger.Tokens(5))
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	// The whole transaction rolled back, allowance included.
	allowance, err := svc.Allowance(ctx, "alice", "spender")
	require.NoError(t, err)
	assert.Equal(t, 0, allowance.Cmp(ledger.Tokens(5)))
}
