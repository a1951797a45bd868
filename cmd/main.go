package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/danmarzab/vega-maker/internal/api"
	"github.com/danmarzab/vega-maker/internal/binance"
	"github.com/danmarzab/vega-maker/internal/config"
	"github.com/danmarzab/vega-maker/internal/logger"
	"github.com/danmarzab/vega-maker/internal/metrics"
	"github.com/danmarzab/vega-maker/internal/notifier"
	"github.com/danmarzab/vega-maker/internal/store"
	"github.com/danmarzab/vega-maker/internal/strategy"
	"github.com/danmarzab/vega-maker/internal/trader"
	"github.com/danmarzab/vega-maker/internal/vega"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file; environment overrides it")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	st := store.New()
	refs := store.NewReferenceStore()

	var notif notifier.Notifier = notifier.NewNoop()
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		notif = notifier.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
	}

	client := vega.NewClient(vega.ClientConfig{
		NodeURL:        cfg.NodeURL,
		TendermintURL:  cfg.TendermintURL,
		WalletURL:      cfg.WalletURL,
		WalletUsername: cfg.WalletUsername,
		WalletPassword: cfg.WalletPassword,
		PartyID:        cfg.PartyID,
	}, log)

	vegaFeed := vega.NewFeedClient(cfg.WSURL, cfg.MarketID, cfg.PartyID, st, m, log)
	binanceFeed := binance.NewFeedClient(cfg.BinanceWSURL, cfg.BinanceMarket, refs, log)
	if err := vegaFeed.Connect(ctx); err != nil {
		log.Warn("initial venue feed connect failed", zap.Error(err))
	}
	if err := binanceFeed.Connect(ctx); err != nil {
		log.Warn("initial reference feed connect failed", zap.Error(err))
	}

	maker := strategy.NewMaker(strategy.MakerConfig{
		MarketID:      cfg.MarketID,
		PartyID:       cfg.PartyID,
		BinanceMarket: cfg.BinanceMarket,
	}, st, refs, client, notif, m, log)

	statusSrv := api.NewServer(cfg.StatusPort, st, refs, m, log)
	go statusSrv.Start()

	t := trader.New(trader.Config{
		MarketID:          cfg.MarketID,
		PartyID:           cfg.PartyID,
		SnapshotInterval:  cfg.SnapshotInterval,
		KeepaliveInterval: cfg.KeepaliveInterval,
		QuoteInterval:     cfg.QuoteInterval,
	}, client, []trader.FeedClient{vegaFeed, binanceFeed}, maker, st, m, log)

	log.Info("starting",
		zap.String("market_id", cfg.MarketID),
		zap.String("party_id", cfg.PartyID),
		zap.String("binance_market", cfg.BinanceMarket),
	)
	t.Run(ctx)

	vegaFeed.Close()
	binanceFeed.Close()
	if err := statusSrv.Shutdown(context.Background()); err != nil {
		log.Warn("status server shutdown", zap.Error(err))
	}
	log.Info("stopped")
}
