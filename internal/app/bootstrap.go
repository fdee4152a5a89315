package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bookwatch/internal/domain"
	"bookwatch/internal/health"
	"bookwatch/internal/infra"
	"bookwatch/internal/infra/ledger"
	"bookwatch/internal/infra/storage"
	"bookwatch/internal/service"
	"bookwatch/internal/watch"

	"github.com/gagliardetto/solana-go"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config   *infra.Config
	Storage  *storage.Storage
	Fetcher  *ledger.Fetcher
	WSClient *ledger.WSClient
	Health   *health.Registry
	Books    *service.BookService
	Disposer *watch.Disposer
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{
		Health:   health.NewRegistry(),
		Books:    service.NewBookService(),
		Disposer: &watch.Disposer{},
	}
}

// Initialize performs core system initialization (config, logger, DB, transport)
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping BookWatch...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (market registry)
	store, err := storage.NewStorage()
	if err != nil {
		return err
	}
	b.Storage = store
	b.Disposer.AddFunc(func() { store.Close() })
	slog.Info("✅ Market registry initialized")

	// 4. Transport
	b.Fetcher = ledger.NewFetcher(cfg.Ledger.RPCURL, cfg.Commitment())
	b.WSClient = ledger.NewWSClient(cfg.Ledger.WSURL, cfg.Commitment())

	return nil
}

// SyncMarkets mirrors the configured markets into the registry and returns
// the active market descriptions to watch.
func (b *Bootstrap) SyncMarkets() ([]domain.Market, error) {
	markets := make([]domain.Market, 0, len(b.Config.Markets))
	for _, mc := range b.Config.Markets {
		bids, err := solana.PublicKeyFromBase58(mc.Bids)
		if err != nil {
			return nil, fmt.Errorf("market %s: bad bids address: %w", mc.Symbol, err)
		}
		asks, err := solana.PublicKeyFromBase58(mc.Asks)
		if err != nil {
			return nil, fmt.Errorf("market %s: bad asks address: %w", mc.Symbol, err)
		}

		market := domain.Market{
			Symbol: mc.Symbol,
			Bids:   bids,
			Asks:   asks,
			Scaling: domain.MarketScaling{
				BaseDecimals:  mc.BaseDecimals,
				QuoteDecimals: mc.QuoteDecimals,
				BaseLotSize:   mc.BaseLotSize,
				QuoteLotSize:  mc.QuoteLotSize,
			},
		}
		if err := market.Validate(); err != nil {
			return nil, err
		}

		if err := b.Storage.UpsertMarket(domain.FromMarket(market, true)); err != nil {
			slog.Error("Failed to upsert market", slog.String("symbol", market.Symbol), slog.Any("error", err))
		}
		markets = append(markets, market)
	}

	slog.Info("✨ Market registry synchronized", slog.Int("markets", len(markets)))
	return markets, nil
}

// Start connects the transport and brings up a live book per market.
// Initial loads are synchronous: when Start returns nil, every book already
// has a readable snapshot.
func (b *Bootstrap) Start(ctx context.Context) error {
	markets, err := b.SyncMarkets()
	if err != nil {
		return err
	}

	if err := b.WSClient.Connect(ctx); err != nil {
		return err
	}
	b.Disposer.AddFunc(b.WSClient.Disconnect)

	deps := watch.Deps{
		Fetcher:    b.Fetcher,
		Subscriber: b.WSClient,
		Health:     b.Health,
	}
	if err := b.Books.WatchAll(ctx, deps, markets); err != nil {
		return err
	}
	b.Disposer.AddFunc(b.Books.DisposeAll)

	slog.InfoContext(ctx, "✅ Live books started", slog.Int("markets", len(markets)))
	return nil
}

// RunHealthReporter periodically logs per-feed liveness and a metrics
// snapshot until the context is cancelled.
func (b *Bootstrap) RunHealthReporter(ctx context.Context) {
	interval := time.Duration(b.Config.Health.ReportIntervalSec) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	threshold := time.Duration(b.Config.Health.ThresholdSec) * time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			healthy := true
			for _, status := range b.Health.Report(threshold) {
				if !status.Active {
					healthy = false
					slog.Warn("Feed silent beyond threshold",
						slog.String("feed", status.Name),
						slog.Time("last_active", status.LastActive))
				}
			}

			m := infra.GlobalMetrics.Snapshot()
			slog.Info("Liveness report",
				slog.Bool("healthy", healthy),
				slog.Uint64("updates", m.UpdatesApplied),
				slog.Uint64("decode_failures", m.DecodeFailures),
				slog.Uint64("reconnects", m.Reconnects),
				slog.Int("subscriptions", int(m.ActiveSubscriptions)),
				slog.Bool("ws_connected", m.WSConnected))
		}
	}
}
