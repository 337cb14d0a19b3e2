package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongooptions "go.mongodb.org/mongo-driver/v2/mongo/options"
	"goa.design/clue/log"

	"github.com/nzcrisisline/safetypipeline/internal/audit"
	"github.com/nzcrisisline/safetypipeline/internal/config"
	"github.com/nzcrisisline/safetypipeline/internal/executor"
	"github.com/nzcrisisline/safetypipeline/internal/httpapi"
	"github.com/nzcrisisline/safetypipeline/internal/llm"
	"github.com/nzcrisisline/safetypipeline/internal/model"
	"github.com/nzcrisisline/safetypipeline/internal/orchestrator"
	"github.com/nzcrisisline/safetypipeline/internal/resourceregistry"
	"github.com/nzcrisisline/safetypipeline/internal/telemetry"
)

func main() {
	cfg, err := config.Load(os.Args[1:], "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if cfg.Debug {
		ctx = log.Context(ctx, log.WithDebug())
	}

	obs := telemetry.Observability{
		Logger:  telemetry.NewClueLogger(),
		Metrics: telemetry.NewClueMetrics(),
		Tracer:  telemetry.NewClueTracer(),
	}

	mongoClient, err := mongo.Connect(mongooptions.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal(ctx, fmt.Errorf("connect to mongo: %w", err))
	}
	defer func() { _ = mongoClient.Disconnect(ctx) }()

	registryStore, err := resourceregistry.NewMongoStore(ctx, resourceregistry.MongoStoreOptions{
		Client:   mongoClient,
		Database: cfg.MongoDatabase,
	})
	if err != nil {
		log.Fatal(ctx, fmt.Errorf("build registry store: %w", err))
	}

	var registryCache resourceregistry.Cache = resourceregistry.NoopCache{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		registryCache = resourceregistry.NewRedisCache(rdb)
	}

	registry, err := resourceregistry.New(ctx, resourceregistry.Options{
		Store:         registryStore,
		Cache:         registryCache,
		Observability: obs,
	})
	if err != nil {
		log.Fatal(ctx, fmt.Errorf("load registry: %w", err))
	}
	registry.StartSync(ctx, cfg.RegistrySyncEvery)
	defer registry.StopSync()

	auditStore, err := audit.NewMongoStore(ctx, audit.MongoStoreOptions{
		Client:   mongoClient,
		Database: cfg.MongoDatabase,
	})
	if err != nil {
		log.Fatal(ctx, fmt.Errorf("build audit store: %w", err))
	}

	anthropicClient := sdk.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
	baseModel, err := llm.New(&anthropicClient.Messages, llm.Options{
		DefaultModel: cfg.DefaultModel,
		SmallModel:   cfg.SmallModel,
		MaxTokens:    cfg.ModelMaxTokens,
		Temperature:  cfg.ModelTemperature,
	})
	if err != nil {
		log.Fatal(ctx, fmt.Errorf("build model client: %w", err))
	}

	rateLimiter := llm.NewAdaptiveRateLimiter(cfg.RateLimitInitialTPM, cfg.RateLimitMaxTPM)
	var modelClient model.Client = rateLimiter.Middleware()(baseModel)
	modelClient = llm.WithTimeout(modelClient, cfg.ModelTimeout)

	exec := executor.New(registry)

	orch, err := orchestrator.New(orchestrator.Options{
		Model:         modelClient,
		Executor:      exec,
		Registry:      registry,
		Audit:         auditStore,
		Observability: obs,
	})
	if err != nil {
		log.Fatal(ctx, fmt.Errorf("build orchestrator: %w", err))
	}

	server := httpapi.New(orch, registry, auditStore, obs)

	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf(ctx, "listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	log.Printf(ctx, "exiting (%v)", <-errc)

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	wg.Wait()
	log.Printf(ctx, "exited")
}
