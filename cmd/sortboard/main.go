package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/sortboard/internal/api"
	"github.com/xela07ax/sortboard/internal/api/handler"
	"github.com/xela07ax/sortboard/internal/board"
	"github.com/xela07ax/sortboard/internal/domain"
	"github.com/xela07ax/sortboard/internal/infra"
	"github.com/xela07ax/sortboard/internal/ingest"
	"github.com/xela07ax/sortboard/internal/upstream"
)

func main() {
	// 1. Configuration and logging
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 2. Metrics store (the in-memory core)
	reg := prometheus.NewRegistry()
	metrics := board.NewMetrics(reg)

	store := board.NewStore(boardConfig(cfg.Board), boardTemplates(cfg.Dashboards), logger, metrics)

	// Lifecycle context for background goroutines: SIGTERM cancels it.
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Decay/eviction ticker — started explicitly, never on construction
	ticker := board.NewTicker(store, cfg.Board.TickInterval, logger)
	go ticker.Run(appCtx)

	// 4. Optional Redis pub/sub ingestion
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		listener := ingest.NewListener(rdb, cfg.Redis.Channel, store, logger, metrics)
		go listener.Run(appCtx)
	}

	// 5. Optional manual-finish upstream client
	var mfHandler *handler.ManualFinishHandler
	if cfg.Upstream.Enabled {
		mfClient := upstream.NewManualFinishClient(
			cfg.Upstream.ManualFinishURL,
			cfg.Upstream.CacheTTL,
			cfg.Upstream.Timeout,
			logger,
		)
		mfHandler = handler.NewManualFinishHandler(mfClient)
	}

	// 6. HTTP server
	server := api.NewServer(
		logger,
		handler.NewDashboardHandler(store, store),
		handler.NewActionsHandler(store, logger, metrics),
		mfHandler,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("sortboard API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 7. Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("sortboard stopping...")
	cancel() // stop ticker and listener

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	select {
	case <-ticker.Done():
	case <-shutdownCtx.Done():
	}
	logger.Info("sortboard exited properly")
}

func boardConfig(cfg infra.BoardConfig) board.Config {
	out := board.DefaultConfig()
	if cfg.TickInterval > 0 {
		out.TickInterval = cfg.TickInterval
	}
	if cfg.DecayRate > 0 {
		out.DecayRate = cfg.DecayRate
	}
	if cfg.IdleTickFallback > 0 {
		out.IdleTickFallback = cfg.IdleTickFallback
	}
	if cfg.MaxPeople > 0 {
		out.MaxPeople = cfg.MaxPeople
	}
	if cfg.RemovalThreshold > 0 {
		out.RemovalThreshold = cfg.RemovalThreshold
	}
	if cfg.RollingWindow > 0 {
		out.RollingWindow = cfg.RollingWindow
	}
	if cfg.WindowCapacity > 0 {
		out.WindowCapacity = cfg.WindowCapacity
	}
	return out
}

func boardTemplates(dashboards []infra.DashboardConfig) []board.Template {
	templates := make([]board.Template, 0, len(dashboards))
	for _, d := range dashboards {
		t := board.Template{
			Key:           d.Key,
			Title:         d.Title,
			Status:        domain.Status(d.Status),
			IdleThreshold: d.IdleThreshold,
		}
		for _, k := range d.KPIs {
			t.KPIs = append(t.KPIs, domain.KPI{Label: k.Label, Unit: k.Unit})
		}
		templates = append(templates, t)
	}
	return templates
}
