// main wires high-level dependencies, exposes the HTTP router, and keeps
// the server lifecycle small. Business logic lives in the internal
// services packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"spyral/internal/asset"
	assetstore "spyral/internal/asset/store/asset"
	pendingstore "spyral/internal/asset/store/pending"
	"spyral/internal/collab"
	"spyral/internal/events"
	eventskafka "spyral/internal/events/kafka"
	eventsworker "spyral/internal/events/worker"
	jwttoken "spyral/internal/jwt_token"
	"spyral/internal/lifecycle"
	"spyral/internal/platform/config"
	"spyral/internal/platform/httpserver"
	"spyral/internal/platform/logger"
	"spyral/internal/platform/metrics"
	platformredis "spyral/internal/platform/redis"
	"spyral/internal/registry"
	"spyral/internal/revenue"
	httptransport "spyral/internal/transport/http"
	"spyral/internal/verification"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Asset store and event log: postgres when configured, in-memory
	// otherwise. Both share the same database.
	var (
		assets     asset.Store
		eventStore events.Store
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		assets = assetstore.NewPostgres(db)
		eventStore = events.NewPostgresStore(db)
	} else {
		assets = assetstore.NewInMemory()
		eventStore = events.NewInMemoryStore()
	}

	// Pending verification requests: redis when configured.
	var pending asset.PendingStore
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		pending = pendingstore.NewRedis(redisClient)
	} else {
		pending = pendingstore.NewInMemory()
	}

	// Event pipeline: fail-closed log plus optional Kafka fan-out.
	outbox := make(chan events.Event, 1024)
	publisher := events.NewPublisher(eventStore,
		events.WithOutbox(outbox),
		events.WithLogger(log),
	)

	group, ctx := errgroup.WithContext(ctx)
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := eventskafka.New(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("kafka connect failed", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		worker := eventsworker.New(sink, outbox, log)
		group.Go(func() error {
			if err := worker.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	// The registry is an external collaborator; the asset-backed
	// adapter serves development and single-node deployments.
	// TODO: add the HTTP registry client once the registry service
	// publishes its API.
	reg := registry.NewAssetBacked(assets)
	network := verification.NewInMemoryNetwork()
	payout := revenue.NewInMemoryPayout()

	lifecycleSvc := lifecycle.New(assets, reg, publisher, cfg.MinterHolder,
		lifecycle.WithLogger(log),
		lifecycle.WithMetrics(m),
		lifecycle.WithCooldown(cfg.CollaborateCooldown),
	)
	collabSvc := collab.New(assets, reg, publisher, collab.WithLogger(log))
	gateway := verification.New(assets, pending, network, reg, publisher,
		verification.WithLogger(log),
		verification.WithMetrics(m),
		verification.WithThreshold(cfg.MonetizationThreshold),
		verification.WithPendingTTL(cfg.PendingTTL),
	)
	revenueSvc := revenue.New(assets, payout, publisher,
		revenue.WithLogger(log),
		revenue.WithMetrics(m),
	)

	tokens := jwttoken.NewService(cfg.JWTSigningKey, "spyral")
	handler := httptransport.NewHandler(lifecycleSvc, collabSvc, gateway, revenueSvc, publisher, tokens, cfg.NetworkSecret, log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	group.Go(func() error {
		log.Info("starting spyral", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
