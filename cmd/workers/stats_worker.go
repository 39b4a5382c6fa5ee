package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"energy-market/energy-ledger-backend/internal/config"
)

// StatsWorker periodically rebuilds the market_stats aggregates that
// the views layer and external dashboards read.
type StatsWorker struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewStatsWorker creates a new stats worker
func NewStatsWorker(db *sqlx.DB, logger *zap.Logger) *StatsWorker {
	return &StatsWorker{db: db, logger: logger}
}

type statRow struct {
	Name  string `db:"name"`
	Value string `db:"value"`
}

// Refresh recomputes every aggregate and upserts it into market_stats.
func (w *StatsWorker) Refresh() {
	queries := map[string]string{
		"producers_total":      `SELECT COUNT(*)::text FROM producers`,
		"producers_verified":   `SELECT COUNT(*)::text FROM producers WHERE verified`,
		"certificates_total":   `SELECT COUNT(*)::text FROM certificates`,
		"certificates_pending": `SELECT COUNT(*)::text FROM certificates WHERE NOT verified`,
		"kwh_certified":        `SELECT COALESCE(SUM(kwh_produced), 0)::text FROM certificates WHERE verified`,
		"listings_active":      `SELECT COUNT(*)::text FROM listings WHERE status = 'ACTIVE'`,
		"tokens_escrowed":      `SELECT COALESCE(SUM(token_amount), 0)::text FROM listings WHERE status = 'ACTIVE'`,
		"total_supply":         `SELECT COALESCE((SELECT value FROM meta WHERE key = 'total_supply'), '0')`,
	}

	tx, err := w.db.Beginx()
	if err != nil {
		w.logger.Error("Failed to begin stats transaction", zap.Error(err))
		return
	}
	defer tx.Rollback()

	for name, query := range queries {
		var value string
		if err := tx.Get(&value, query); err != nil {
			w.logger.Error("Stats query failed", zap.String("stat", name), zap.Error(err))
			return
		}
		_, err := tx.Exec(`
			INSERT INTO market_stats (name, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
			name, value)
		if err != nil {
			w.logger.Error("Failed to upsert stat", zap.String("stat", name), zap.Error(err))
			return
		}
	}

	if err := tx.Commit(); err != nil {
		w.logger.Error("Failed to commit stats refresh", zap.Error(err))
		return
	}

	w.logger.Info("Market stats refreshed", zap.Int("stats", len(queries)))
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		panic(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	worker := NewStatsWorker(db, logger)

	schedule := os.Getenv("STATS_CRON")
	if schedule == "" {
		schedule = "@every 1m"
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, worker.Refresh); err != nil {
		logger.Fatal("Invalid stats schedule", zap.String("schedule", schedule), zap.Error(err))
	}

	logger.Info("Starting stats worker", zap.String("schedule", schedule))
	worker.Refresh()
	c.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Stats worker shutting down")
	<-c.Stop().Done()
}
