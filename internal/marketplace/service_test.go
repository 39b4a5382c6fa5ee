package marketplace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"energy-market/energy-ledger-backend/internal/certification"
	"energy-market/energy-ledger-backend/internal/ledger"
	"energy-market/energy-ledger-backend/internal/notifications"
	"energy-market/energy-ledger-backend/internal/token"
)

const (
	ownerAddr   = "0xowner"
	auditorAddr = "0xauditor"
	sellerAddr  = "0xseller"
	buyerAddr   = "0xbuyer"
	escrowAddr  = "market-escrow"
)

type fixture struct {
	store  ledger.Store
	market Service
	certs  certification.Service
	tokens token.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := ledger.NewMemStore()
	err := store.Update(context.Background(), func(tx ledger.Tx) error {
		if err := tx.SetOwner(ownerAddr); err != nil {
			return err
		}
		if err := tx.GrantRole(ownerAddr, ledger.RoleOwner); err != nil {
			return err
		}
		if err := tx.GrantRole(auditorAddr, ledger.RoleAuditor); err != nil {
			return err
		}
		return tx.SetMarketController(escrowAddr)
	})
	require.NoError(t, err)

	logger := zap.NewNop()
	publisher := notifications.NopPublisher{}
	certs := certification.NewService(store, logger, publisher)
	return &fixture{
		store:  store,
		market: NewService(store, logger, publisher, certs, escrowAddr),
		certs:  certs,
		tokens: token.NewService(store, logger),
	}
}

// sellerWithTokens walks the full issuance path: registration, audit,
// certificate submission, verification with a 50 token mint, and an
// allowance so the market can escrow the seller's tokens.
func (f *fixture) sellerWithTokens(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	err := f.store.Update(ctx, func(tx ledger.Tx) error {
		return tx.PutProducer(&ledger.Producer{
			Address:          sellerAddr,
			Name:             "Sunny Fields",
			Location:         "Lisbon, PT",
			TotalCapacityKW:  1500,
			RegistrationTime: time.Now().UTC(),
		})
	})
	require.NoError(t, err)

	_, err = f.certs.FileAuditReport(ctx, auditorAddr, certification.FileAuditReportRequest{
		Producer: sellerAddr,
		Passed:   true,
	})
	require.NoError(t, err)

	cert, err := f.market.CreateCertificate(ctx, sellerAddr, sellerAddr, certification.SubmitCertificateRequest{
		EnergySource: ledger.SourceSolar,
		KWHProduced:  50000,
		Location:     "Lisbon, PT",
	})
	require.NoError(t, err)

	_, err = f.market.VerifyAndMint(ctx, auditorAddr, cert.ID, ledger.Tokens(50))
	require.NoError(t, err)

	require.NoError(t, f.tokens.Approve(ctx, sellerAddr, escrowAddr, ledger.Tokens(50)))
}

func (f *fixture) balance(t *testing.T, addr string) *ledger.BigInt {
	t.Helper()
	b, err := f.tokens.BalanceOf(context.Background(), addr)
	require.NoError(t, err)
	return b
}

func pricePerToken(t *testing.T) *ledger.BigInt {
	t.Helper()
	// 0.01 value per token in base units.
	p, err := ledger.ParseAmount("10000000000000000")
	require.NoError(t, err)
	return p
}

func listingRequest(t *testing.T) CreateListingRequest {
	return CreateListingRequest{
		TokenAmount:    ledger.Tokens(50),
		PricePerToken:  pricePerToken(t),
		EnergySource:   ledger.SourceSolar,
		KWHRepresented: 50000,
	}
}

func TestFullIssuanceAndSaleFlow(t *testing.T) {
	f := newFixture(t)
	f.sellerWithTokens(t)
	ctx := context.Background()

	assert.Equal(t, 0, f.balance(t, sellerAddr).Cmp(ledger.Tokens(50)))

	listing, err := f.market.CreateListing(ctx, sellerAddr, listingRequest(t))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), listing.ID)
	assert.Equal(t, ledger.ListingActive, listing.Status)

	// Escrow took the tokens at creation.
	assert.Equal(t, 0, f.balance(t, sellerAddr).Sign())
	assert.Equal(t, 0, f.balance(t, escrowAddr).Cmp(ledger.Tokens(50)))

	// 50 tokens at 0.01 each: total price 0.5 in base units.
	payment, err := ledger.ParseAmount("500000000000000000")
	require.NoError(t, err)

	sold, err := f.market.BuyListing(ctx, buyerAddr, listing.ID, payment)
	require.NoError(t, err)
	assert.Equal(t, ledger.ListingSold, sold.Status)

	assert.Equal(t, 0, f.balance(t, buyerAddr).Cmp(ledger.Tokens(50)))
	assert.Equal(t, 0, f.balance(t, escrowAddr).Sign())

	proceeds, err := f.market.ProceedsOf(ctx, sellerAddr)
	require.NoError(t, err)
	assert.Equal(t, 0, proceeds.Cmp(payment))
}

func TestCreateListingWithoutAllowance(t *testing.T) {
	f := newFixture(t)
	f.sellerWithTokens(t)
	ctx := context.Background()

	require.NoError(t, f.tokens.Approve(ctx, sellerAddr, escrowAddr, ledger.Zero()))

	_, err := f.market.CreateListing(ctx, sellerAddr, listingRequest(t))
	assert.ErrorIs(t, err, ledger.ErrInsufficientAllowance)

	// Nothing escrowed.
	assert.Equal(t, 0, f.balance(t, sellerAddr).Cmp(ledger.Tokens(50)))
}

func TestEscrowPreventsDoubleListing(t *testing.T) {
	f := newFixture(t)
	f.sellerWithTokens(t)
	ctx := context.Background()

	// A generous allowance alone is not enough: the first listing drains
	// the seller's balance, so the second cannot be backed.
	require.NoError(t, f.tokens.Approve(ctx, sellerAddr, escrowAddr, ledger.Tokens(100)))

	_, err := f.market.CreateListing(ctx, sellerAddr, listingRequest(t))
	require.NoError(t, err)

	_, err = f.market.CreateListing(ctx, sellerAddr, listingRequest(t))
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}

func TestBuyListingValidation(t *testing.T) {
	f := newFixture(t)
	f.sellerWithTokens(t)
	ctx := context.Background()

	listing, err := f.market.CreateListing(ctx, sellerAddr, listingRequest(t))
	require.NoError(t, err)

	_, err = f.market.BuyListing(ctx, sellerAddr, listing.ID, ledger.Tokens(1))
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	short, err := ledger.ParseAmount("499999999999999999")
	require.NoError(t, err)
	_, err = f.market.BuyListing(ctx, buyerAddr, listing.ID, short)
	assert.ErrorIs(t, err, ledger.ErrInsufficientPayment)

	_, err = f.market.BuyListing(ctx, buyerAddr, 999, ledger.Tokens(1))
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	// Failed purchases leave the listing for sale.
	got, err := f.market.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.ListingActive, got.Status)
}

func TestBuySoldListing(t *testing.T) {
	f := newFixture(t)
	f.sellerWithTokens(t)
	ctx := context.Background()

	listing, err := f.market.CreateListing(ctx, sellerAddr, listingRequest(t))
	require.NoError(t, err)

	_, err = f.market.BuyListing(ctx, buyerAddr, listing.ID, ledger.Tokens(1))
	require.NoError(t, err)

	_, err = f.market.BuyListing(ctx, "0xother", listing.ID, ledger.Tokens(1))
	assert.ErrorIs(t, err, ledger.ErrListingNotActive)
}

func TestConcurrentBuyersExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	f.sellerWithTokens(t)
	ctx := context.Background()

	listing, err := f.market.CreateListing(ctx, sellerAddr, listingRequest(t))
	require.NoError(t, err)

	const buyers = 16
	results := make(chan error, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			buyer := string(rune('a'+n)) + "-buyer"
			_, err := f.market.BuyListing(ctx, buyer, listing.ID, ledger.Tokens(1))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ledger.ErrListingNotActive):
			losses++
		default:
			t.Fatalf("unexpected purchase error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, buyers-1, losses)

	// Exactly one settlement: escrow drained once, proceeds credited once.
	assert.Equal(t, 0, f.balance(t, escrowAddr).Sign())
	proceeds, err := f.market.ProceedsOf(ctx, sellerAddr)
	require.NoError(t, err)
	assert.Equal(t, 0, proceeds.Cmp(ledger.Tokens(1)))
}

func TestCancelListingRefundsEscrow(t *testing.T) {
	f := newFixture(t)
	f.sellerWithTokens(t)
	ctx := context.Background()

	listing, err := f.market.CreateListing(ctx, sellerAddr, listingRequest(t))
	require.NoError(t, err)

	_, err = f.market.CancelListing(ctx, buyerAddr, listing.ID)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)

	cancelled, err := f.market.CancelListing(ctx, sellerAddr, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.ListingCancelled, cancelled.Status)

	assert.Equal(t, 0, f.balance(t, sellerAddr).Cmp(ledger.Tokens(50)))
	assert.Equal(t, 0, f.balance(t, escrowAddr).Sign())

	// A cancelled listing cannot be bought or re-cancelled.
	_, err = f.market.BuyListing(ctx, buyerAddr, listing.ID, ledger.Tokens(1))
	assert.ErrorIs(t, err, ledger.ErrListingNotActive)

	_, err = f.market.CancelListing(ctx, sellerAddr, listing.ID)
	assert.ErrorIs(t, err, ledger.ErrListingNotActive)
}

func TestCreateListingValidation(t *testing.T) {
	f := newFixture(t)
	f.sellerWithTokens(t)
	ctx := context.Background()

	req := listingRequest(t)
	req.TokenAmount = ledger.Zero()
	_, err := f.market.CreateListing(ctx, sellerAddr, req)
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	req = listingRequest(t)
	req.PricePerToken = nil
	_, err = f.market.CreateListing(ctx, sellerAddr, req)
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	req = listingRequest(t)
	req.EnergySource = "Coal"
	_, err = f.market.CreateListing(ctx, sellerAddr, req)
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	req = listingRequest(t)
	req.KWHRepresented = 0
	_, err = f.market.CreateListing(ctx, sellerAddr, req)
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
}

func TestCreateCertificateForOtherProducer(t *testing.T) {
	f := newFixture(t)
	f.sellerWithTokens(t)

	_, err := f.market.CreateCertificate(context.Background(), buyerAddr, sellerAddr,
		certification.SubmitCertificateRequest{
			EnergySource: ledger.SourceSolar,
			KWHProduced:  100,
			Location:     "Lisbon, PT",
		})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
}
