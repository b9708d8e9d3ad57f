package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	_ "github.com/lib/pq" // Postgres driver

	"github.com/ocx/ledger-intake/internal/api"
	"github.com/ocx/ledger-intake/internal/authn"
	"github.com/ocx/ledger-intake/internal/bridge"
	"github.com/ocx/ledger-intake/internal/claim"
	"github.com/ocx/ledger-intake/internal/config"
	"github.com/ocx/ledger-intake/internal/configcache"
	"github.com/ocx/ledger-intake/internal/dlqadmin"
	"github.com/ocx/ledger-intake/internal/intakequeue"
	"github.com/ocx/ledger-intake/internal/ledgerclient"
	"github.com/ocx/ledger-intake/internal/poolconfig"
	"github.com/ocx/ledger-intake/internal/realtime"
	"github.com/ocx/ledger-intake/internal/slotstore"
	"github.com/ocx/ledger-intake/internal/validator"
	"github.com/ocx/ledger-intake/pb"
)

func main() {
	cfg := config.Get()
	slog.Info("ledger-intake: starting", "env", cfg.Server.Env, "port", cfg.Server.Port)

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	cache := newConfigCache(cfg.Redis)

	bootDefaults := poolconfig.Defaults{
		BatchSize:         cfg.Bridge.DefaultBatchSize,
		VisibilityTimeout: cfg.Bridge.DefaultVisibilityTimeout,
		MaxRetries:        cfg.Bridge.DefaultMaxRetries,
		IsActive:          true,
		CommitRPCName:     cfg.Bridge.DefaultCommitRPCName,
	}

	slots := slotstore.NewPostgresStore(db)
	queue := intakequeue.NewPostgresQueue(db)
	configs := poolconfig.NewPostgresStore(db, cache, time.Duration(cfg.Redis.TTLSec)*time.Second, bootDefaults)

	claimSvc := claim.New(slots, queue)

	ledgerConn, err := grpc.NewClient(cfg.Bridge.LedgerGRPCAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		slog.Error("failed to dial ledger service", "error", err)
		os.Exit(1)
	}
	defer ledgerConn.Close()
	ledger := ledgerclient.New(pb.NewLedgerServiceClient(ledgerConn))

	val := validator.NewClient(10 * time.Second)
	events := newPublisher(cfg)

	worker := bridge.New(queue, slots, configs, val, ledger, events,
		time.Duration(cfg.Bridge.DrainWallClockSec)*time.Second)

	dlq := dlqadmin.New(queue)

	authz := authn.NewChecker(cfg.Security.TriggerTokenHash, cfg.Security.AdminTokenHash)

	server := api.NewServer(claimSvc, worker, dlq, authz, cfg.Server.CORSAllowOrigins)

	mux := http.NewServeMux()
	mux.Handle("/", server.Handler())
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:         ":" + cfg.GetPort(),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}

	go func() {
		slog.Info("ledger-intake: listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	slog.Info("ledger-intake: stopped")
}

func newConfigCache(rc config.RedisConfig) configcache.Cache {
	if rc.Addr == "" {
		slog.Warn("ledger-intake: no redis addr configured, using in-memory config cache")
		return configcache.NewMemCache()
	}

	cache, err := configcache.NewRedisCache(rc.Addr, rc.Password, rc.DB)
	if err != nil {
		slog.Warn("ledger-intake: redis unavailable, falling back to in-memory config cache", "error", err)
		return configcache.NewMemCache()
	}
	return cache
}

func newPublisher(cfg *config.Config) realtime.Publisher {
	hub := realtime.NewHub()
	if !cfg.PubSub.Enabled {
		return hub
	}

	ctx := context.Background()
	client, err := newPubSubClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		slog.Warn("ledger-intake: pubsub unavailable, falling back to in-process hub only", "error", err)
		return hub
	}
	topic := client.Topic(cfg.PubSub.TopicID)
	return realtime.NewPubSubPublisher(topic, hub)
}
