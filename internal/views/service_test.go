package views

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"energy-market/energy-ledger-backend/internal/ledger"
)

func seedStore(t *testing.T) ledger.Store {
	t.Helper()
	store := ledger.NewMemStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	err := store.Update(context.Background(), func(tx ledger.Tx) error {
		producers := []*ledger.Producer{
			{Address: "0xa", Name: "A", Verified: true, RegistrationTime: base},
			{Address: "0xb", Name: "B", Verified: false, RegistrationTime: base.Add(2 * time.Hour)},
			{Address: "0xc", Name: "C", Verified: false, RegistrationTime: base.Add(time.Hour)},
		}
		for _, p := range producers {
			if err := tx.PutProducer(p); err != nil {
				return err
			}
		}

		certs := []*ledger.Certificate{
			{ID: 1, Producer: "0xa", EnergySource: ledger.SourceSolar, KWHProduced: 1000, Verified: true, TokenAmount: ledger.Tokens(10)},
			{ID: 2, Producer: "0xa", EnergySource: ledger.SourceSolar, KWHProduced: 2000, Verified: false, TokenAmount: ledger.Zero()},
			{ID: 3, Producer: "0xb", EnergySource: ledger.SourceWind, KWHProduced: 500, Verified: true, TokenAmount: ledger.Tokens(5)},
		}
		for _, c := range certs {
			if err := tx.PutCertificate(c); err != nil {
				return err
			}
		}

		price := ledger.Tokens(1)
		listings := []*ledger.Listing{
			{ID: 1, Seller: "0xa", TokenAmount: ledger.Tokens(3), PricePerToken: price, Status: ledger.ListingActive},
			{ID: 2, Seller: "0xa", TokenAmount: ledger.Tokens(4), PricePerToken: price, Status: ledger.ListingSold},
			{ID: 3, Seller: "0xb", TokenAmount: ledger.Tokens(2), PricePerToken: price, Status: ledger.ListingActive},
			{ID: 4, Seller: "0xb", TokenAmount: ledger.Tokens(1), PricePerToken: price, Status: ledger.ListingCancelled},
		}
		for _, l := range listings {
			if err := tx.PutListing(l); err != nil {
				return err
			}
		}

		return tx.SetTotalSupply(ledger.Tokens(15))
	})
	require.NoError(t, err)
	return store
}

func TestActiveListings(t *testing.T) {
	svc := NewService(seedStore(t), zap.NewNop(), time.Minute)

	listings, err := svc.ActiveListings(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, uint64(1), listings[0].ID)
	assert.Equal(t, uint64(3), listings[1].ID)
}

func TestCertificatesOf(t *testing.T) {
	svc := NewService(seedStore(t), zap.NewNop(), time.Minute)
	ctx := context.Background()

	certs, err := svc.CertificatesOf(ctx, "0xa")
	require.NoError(t, err)
	require.Len(t, certs, 2)
	assert.Equal(t, uint64(1), certs[0].ID)
	assert.Equal(t, uint64(2), certs[1].ID)

	none, err := svc.CertificatesOf(ctx, "0xnobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUnverifiedProducersSortedByRegistration(t *testing.T) {
	svc := NewService(seedStore(t), zap.NewNop(), time.Minute)

	producers, err := svc.UnverifiedProducers(context.Background())
	require.NoError(t, err)
	require.Len(t, producers, 2)
	assert.Equal(t, "0xc", producers[0].Address)
	assert.Equal(t, "0xb", producers[1].Address)
}

func TestMarketStats(t *testing.T) {
	svc := NewService(seedStore(t), zap.NewNop(), time.Minute)

	stats, err := svc.MarketStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalSupply.Cmp(ledger.Tokens(15)))
	assert.Equal(t, 2, stats.ActiveListings)
	assert.Equal(t, 0, stats.EscrowedTokens.Cmp(ledger.Tokens(5)))
	assert.Equal(t, uint64(1500), stats.TotalVerifiedKWH)
	assert.Equal(t, 3, stats.Producers)
}

func TestMarketStatsServedFromCache(t *testing.T) {
	store := seedStore(t)
	svc := NewService(store, zap.NewNop(), time.Minute)
	ctx := context.Background()

	first, err := svc.MarketStats(ctx)
	require.NoError(t, err)

	// A mutation after the first read is not visible until the TTL lapses.
	err = store.Update(ctx, func(tx ledger.Tx) error {
		return tx.SetTotalSupply(ledger.Tokens(100))
	})
	require.NoError(t, err)

	second, err := svc.MarketStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.TotalSupply.Cmp(first.TotalSupply))
}
