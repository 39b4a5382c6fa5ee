package main

import (
	"context"
	"flag"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"energy-market/energy-ledger-backend/internal/config"
	"energy-market/energy-ledger-backend/internal/ledger"
)

// One-shot setup for a fresh ledger: assigns the owner, hands mint
// authority to the market escrow account and seeds the initial auditors.
func main() {
	var (
		configPath = flag.String("config", "config.json", "path to config file")
		auditors   = flag.String("auditors", "", "comma separated auditor addresses to authorize")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Market.OwnerAddress == "" {
		logger.Fatal("market.owner_address must be set before bootstrapping")
	}

	store, err := ledger.OpenPg(cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	err = store.Update(context.Background(), func(tx ledger.Tx) error {
		if owner, err := tx.Owner(); err == nil && owner != "" && owner != cfg.Market.OwnerAddress {
			logger.Warn("Ledger already has an owner, replacing",
				zap.String("current", owner),
				zap.String("new", cfg.Market.OwnerAddress))
		}

		if err := tx.SetOwner(cfg.Market.OwnerAddress); err != nil {
			return err
		}
		if err := tx.GrantRole(cfg.Market.OwnerAddress, ledger.RoleOwner); err != nil {
			return err
		}
		logger.Info("Owner assigned", zap.String("address", cfg.Market.OwnerAddress))

		if err := tx.SetMarketController(cfg.Market.EscrowAddress); err != nil {
			return err
		}
		logger.Info("Mint authority granted to market account",
			zap.String("address", cfg.Market.EscrowAddress))

		for _, addr := range splitAddresses(*auditors) {
			if err := tx.GrantRole(addr, ledger.RoleAuditor); err != nil {
				return err
			}
			logger.Info("Auditor authorized", zap.String("address", addr))
		}
		return nil
	})
	if err != nil {
		logger.Fatal("Bootstrap failed", zap.Error(err))
	}

	logger.Info("Bootstrap complete")
}

func splitAddresses(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
