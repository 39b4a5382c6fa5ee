package views

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"energy-market/energy-ledger-backend/internal/ledger"
)

const statsCacheKey = "market_stats"

// MarketStats is the aggregate snapshot served to dashboards.
type MarketStats struct {
	TotalSupply      *ledger.BigInt `json:"total_supply"`
	ActiveListings   int            `json:"active_listings"`
	EscrowedTokens   *ledger.BigInt `json:"escrowed_tokens"`
	TotalVerifiedKWH uint64         `json:"total_verified_kwh"`
	Producers        int            `json:"producers"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Service is the read-only query layer. Every method runs inside a
// single store View, so callers never observe a half-applied mutation.
type Service interface {
	ActiveListings(ctx context.Context) ([]*ledger.Listing, error)
	CertificatesOf(ctx context.Context, producer string) ([]*ledger.Certificate, error)
	UnverifiedProducers(ctx context.Context) ([]*ledger.Producer, error)
	MarketStats(ctx context.Context) (*MarketStats, error)
}

type service struct {
	store  ledger.Store
	logger *zap.Logger
	cache  *StatsCache
}

// NewService creates the views service. statsTTL bounds how stale the
// cached MarketStats may be.
func NewService(store ledger.Store, logger *zap.Logger, statsTTL time.Duration) Service {
	return &service{
		store:  store,
		logger: logger,
		cache:  NewStatsCache(statsTTL),
	}
}

func (s *service) ActiveListings(ctx context.Context) ([]*ledger.Listing, error) {
	var listings []*ledger.Listing
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		return tx.EachListing(func(l *ledger.Listing) error {
			if l.Active() {
				listings = append(listings, l)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].ID < listings[j].ID })
	return listings, nil
}

func (s *service) CertificatesOf(ctx context.Context, producer string) ([]*ledger.Certificate, error) {
	var certs []*ledger.Certificate
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		return tx.EachCertificate(func(c *ledger.Certificate) error {
			if c.Producer == producer {
				certs = append(certs, c)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(certs, func(i, j int) bool { return certs[i].ID < certs[j].ID })
	return certs, nil
}

func (s *service) UnverifiedProducers(ctx context.Context) ([]*ledger.Producer, error) {
	var producers []*ledger.Producer
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		return tx.EachProducer(func(p *ledger.Producer) error {
			if !p.Verified {
				producers = append(producers, p)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(producers, func(i, j int) bool {
		return producers[i].RegistrationTime.Before(producers[j].RegistrationTime)
	})
	return producers, nil
}

// MarketStats serves the cached aggregate, recomputing on miss within a
// single snapshot.
func (s *service) MarketStats(ctx context.Context) (*MarketStats, error) {
	if cached, ok := s.cache.Get(statsCacheKey); ok {
		return cached.(*MarketStats), nil
	}

	stats := &MarketStats{
		EscrowedTokens: ledger.Zero(),
		UpdatedAt:      time.Now().UTC(),
	}
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		supply, err := tx.TotalSupply()
		if err != nil {
			return err
		}
		stats.TotalSupply = supply

		if err := tx.EachListing(func(l *ledger.Listing) error {
			if l.Active() {
				stats.ActiveListings++
				stats.EscrowedTokens = stats.EscrowedTokens.Add(l.TokenAmount)
			}
			return nil
		}); err != nil {
			return err
		}

		if err := tx.EachCertificate(func(c *ledger.Certificate) error {
			if c.Verified {
				stats.TotalVerifiedKWH += c.KWHProduced
			}
			return nil
		}); err != nil {
			return err
		}

		return tx.EachProducer(func(*ledger.Producer) error {
			stats.Producers++
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.cache.Set(statsCacheKey, stats)
	return stats, nil
}
