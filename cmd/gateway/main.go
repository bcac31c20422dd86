package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ageniuscoder/mmchat/gateway/internal/auth"
	"github.com/ageniuscoder/mmchat/gateway/internal/bridge"
	"github.com/ageniuscoder/mmchat/gateway/internal/chat"
	"github.com/ageniuscoder/mmchat/gateway/internal/config"
	"github.com/ageniuscoder/mmchat/gateway/internal/conversations"
	"github.com/ageniuscoder/mmchat/gateway/internal/events"
	"github.com/ageniuscoder/mmchat/gateway/internal/logger"
	"github.com/ageniuscoder/mmchat/gateway/internal/metrics"
	"github.com/ageniuscoder/mmchat/gateway/internal/presence"
	"github.com/ageniuscoder/mmchat/gateway/internal/tracer"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// 1. Config and logging
	cfg := config.Load()
	zl := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer zl.Sync()
	if cfg.Auth.JWTSecret == "" {
		zl.Warn("Main", "JWT_SECRET is empty, every handshake will be rejected", nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Tracing and metrics
	shutdownTracer := tracer.Init(cfg.Tracing, "chat-gateway", zl)
	defer shutdownTracer(context.Background())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 3. Domain event publisher
	publisher, err := newPublisher(ctx, cfg.Events)
	if err != nil {
		log.Fatalf("Error connecting event backend: %v", err)
	}
	defer publisher.Close()

	// 4. Core components
	store := bridge.New(cfg.Bridge.BaseURL, cfg.Bridge.Timeout, m, zl)
	registry := presence.NewRegistry()
	hub := chat.NewHub(zl, m)
	router := chat.NewRouter(chat.Deps{
		Hub:       hub,
		Registry:  registry,
		Broker:    conversations.NewBroker(store, hub, registry),
		Store:     store,
		Publisher: publisher,
		Metrics:   m,
		Log:       zl,
	})
	go hub.Run(ctx, router)

	// 5. HTTP surface
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": registry.Len()})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler(reg)))
	chat.RegisterWS(&r.RouterGroup, hub, auth.NewResolver(cfg.Auth.JWTSecret), cfg.Limits, zl)

	srv := &http.Server{Addr: cfg.App.Addr, Handler: r}
	go func() {
		zl.Info("Main", "gateway listening", map[string]interface{}{"addr": cfg.App.Addr, "persistence": cfg.Bridge.BaseURL})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	zl.Info("Main", "shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// srv.Shutdown leaves hijacked sockets alone; the hub closes them once ctx is done
	select {
	case <-hub.Done():
	case <-shutdownCtx.Done():
		zl.Warn("Main", "hub did not stop in time", nil)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("Main", "graceful shutdown failed", map[string]interface{}{"error": err})
	}
}

func newPublisher(ctx context.Context, cfg config.EventsConfig) (events.Publisher, error) {
	switch cfg.Backend {
	case "nats":
		return events.NewNatsPublisher(ctx, cfg.NatsURL)
	case "memory":
		return events.NewChannelPublisher(), nil
	default:
		return events.NopPublisher{}, nil
	}
}
