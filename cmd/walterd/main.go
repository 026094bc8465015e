// walterd is the wagering decision daemon. It serves the evaluation
// and bet lifecycle API, streams engine events over WebSocket, polls
// an odds board for current lines, and consumes closing lines from a
// Redis stream.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/internal/api"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/internal/config"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/internal/feed/closing"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/internal/feed/odds"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/internal/store/postgres"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/decay"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/edge"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/evaluate"
	enginemetrics "github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/metrics"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/ratings"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/signalagg"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/staking"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/tracker"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/stream"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/teams"
)

var (
	configPath = flag.String("config", "", "Path to YAML config (or WALTERS_CONFIG env)")
	logPretty  = flag.Bool("pretty", false, "Human-readable console logging")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel, *logPretty)
	log.Info().Str("addr", cfg.Addr).Msg("starting walterd")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		ratingStore ratings.Store
		betStore    tracker.Store
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connecting to postgres")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migrating schema")
		}
		ratingStore = postgres.NewRatingStore(pool)
		betStore = postgres.NewBetStore(pool)
		log.Info().Msg("postgres stores ready")
	} else {
		ratingStore = ratings.NewMemoryStore()
		betStore = tracker.NewMemoryStore()
		log.Warn().Msg("no database_url configured, running on in-memory stores")
	}

	// Engine assembly.
	policy := staking.NewPolicy(&staking.Config{
		EdgeScale:        cfg.Staking.EdgeScale,
		MaxStakeFraction: cfg.Staking.MaxStakeFraction,
		PortfolioCap:     cfg.Staking.PortfolioCap,
		PortfolioWarn:    cfg.Staking.PortfolioWarn,
	})
	track := tracker.New(betStore)
	track.OnSettle(policy.Portfolio().Release)

	evalCfg := evaluate.DefaultConfig()
	evalCfg.MinPlayableEdge = cfg.Edge.MinPlayableEdge

	edgeCfg := edge.DefaultConfig()
	edgeCfg.StrongBetEdge = cfg.Edge.StrongBetEdge
	edgeCfg.BetEdge = cfg.Edge.MinPlayableEdge

	hub := stream.NewHub(log)
	go hub.Run(ctx.Done())

	m := enginemetrics.Default()

	server := api.NewServer(api.Deps{
		Log:      log,
		Store:    ratingStore,
		Updater:  ratings.NewUpdater(ratingStore, nil),
		Engine:   evaluate.New(ratingStore, signalagg.New(decay.New(nil)), edge.NewCalculator(edgeCfg), evalCfg),
		Policy:   policy,
		Tracker:  track,
		Resolver: teams.NewResolver(),
		Hub:      hub,
		Metrics:  m,
		Bankroll: decimal.NewFromFloat(cfg.Bankroll),
	})

	// Closing line consumer.
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		consumerName, _ := os.Hostname()
		if consumerName == "" {
			consumerName = "walterd-1"
		}
		consumer := closing.New(rdb, cfg.RedisStream, cfg.RedisGroup, consumerName, track, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("closing line consumer stopped")
			}
		}()
	}

	// Odds board poller.
	if cfg.Odds.BaseURL != "" {
		client := odds.NewClient(cfg.Odds.BaseURL, cfg.Odds.APIKey,
			odds.WithRateLimit(cfg.Odds.RequestsPerSec, 2))
		go pollOdds(ctx, log, client, hub, time.Duration(cfg.Odds.PollSeconds)*time.Second)
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-sigCh
	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("walterd stopped")
}

func newLogger(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(lvl).With().Timestamp().Logger()
}

// pollOdds republishes the current board to stream subscribers on an
// interval. Lines feed evaluations through the API; the poller keeps
// observers current between requests.
func pollOdds(ctx context.Context, log zerolog.Logger, client *odds.Client, hub *stream.Hub, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	leagues := []model.League{model.LeagueNFL, model.LeagueNCAAF, model.LeagueNBA}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, league := range leagues {
			lines, err := client.Spreads(ctx, league)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Error().Err(err).Str("league", string(league)).Msg("polling odds board")
				continue
			}
			for _, line := range lines {
				hub.Broadcast(stream.Event{Type: stream.EventMarketLine, Data: line})
			}
			log.Debug().Str("league", string(league)).Int("lines", len(lines)).Msg("odds refreshed")
		}
	}
}
