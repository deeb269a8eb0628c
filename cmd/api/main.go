package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/rain-droid/orgIO/internal/agents"
	"github.com/rain-droid/orgIO/internal/api"
	"github.com/rain-droid/orgIO/internal/auth"
	"github.com/rain-droid/orgIO/internal/config"
	"github.com/rain-droid/orgIO/internal/consumer"
	"github.com/rain-droid/orgIO/internal/domain"
	"github.com/rain-droid/orgIO/internal/llm"
	"github.com/rain-droid/orgIO/internal/persistence/memory"
	"github.com/rain-droid/orgIO/internal/persistence/postgres"
	"github.com/rain-droid/orgIO/internal/realtime"
	"github.com/rain-droid/orgIO/internal/relay"
	httptransport "github.com/rain-droid/orgIO/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		store       domain.Store
		healthCheck func(context.Context) error
	)
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		if cfg.PostgresMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				log.Fatalf("failed to migrate postgres: %v", err)
			}
		}
		pgStore := postgres.NewStore(pool)
		store = pgStore
		healthCheck = pgStore.Ping
	} else {
		log.Printf("POSTGRES_URL not set, using in-memory store")
		store = memory.NewStore()
	}

	var client llm.Client = llm.Disabled{}
	if cfg.LLMAPIKey != "" {
		client = llm.NewOpenAI(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMTimeout)
	} else {
		log.Printf("LLM_API_KEY not set, deterministic fallbacks only")
	}
	domainAgents := domain.Agents{
		Summarizer: agents.NewSummarizer(client, agents.WithModel(cfg.LLMSummaryModel)),
		Matcher:    agents.NewMatcher(client, agents.WithModel(cfg.LLMMatchingModel)),
		Analyst:    agents.NewAnalyst(client, agents.WithModel(cfg.LLMAnalysisModel)),
	}

	hub := realtime.NewHub()
	var notifier domain.Notifier = hub

	var wg sync.WaitGroup
	if len(cfg.KafkaBrokers) > 0 {
		publisher := relay.NewPublisher(cfg.KafkaBrokers, cfg.RelayTopic, relay.WithFallback(hub))
		defer publisher.Close()
		notifier = publisher

		groupID := cfg.RelayGroupID
		if groupID == "" {
			groupID = instanceGroupID()
		}
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         groupID,
			Topic:           cfg.RelayTopic,
			MinBytes:        1,
			MaxBytes:        10e6,
			MaxWait:         250 * time.Millisecond,
			CommitInterval:  time.Second,
			StartOffset:     kafka.LastOffset,
			ReadLagInterval: -1,
		})
		proc := consumer.NewProcessor(reader, relay.NewHubHandler(hub, relay.WithMaxAge(cfg.RelayMaxAge)))

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer reader.Close()

			log.Printf("relay consumer started (topic=%s, group=%s)", cfg.RelayTopic, groupID)
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("relay consumer stopped with error: %v", err)
			}
		}()
	}

	serviceOpts := []domain.Option{domain.WithNotifyTimeout(cfg.NotifyTimeout)}
	sessions := domain.NewSessionService(store, domainAgents, notifier, serviceOpts...)
	submissions := domain.NewSubmissionService(store, domainAgents, notifier, serviceOpts...)

	handlerOpts := []api.Option{}
	if healthCheck != nil {
		handlerOpts = append(handlerOpts, api.WithHealthCheck(healthCheck))
	}
	handler := api.NewHandler(sessions, submissions, handlerOpts...)

	resolver := realtime.OrgResolverFunc(func(ctx context.Context, userID string) (string, error) {
		user, err := store.GetUser(ctx, userID)
		if err != nil || user == nil {
			return "", err
		}
		return user.OrgID, nil
	})
	ws := realtime.NewHandler(hub, resolver, realtime.HandlerConfig{
		SendBuffer:     cfg.WSSendBuffer,
		WriteTimeout:   cfg.WSWriteTimeout,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("GET /v1/ws", ws)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	accessLog := log.New(log.Writer(), "[http] ", log.LstdFlags)

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), httptransport.Chain(mux,
		httptransport.RequestLogger(accessLog),
		httptransport.CORS(cfg.CORSAllowedOrigins),
		authMiddleware.Wrap,
	))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("orgio api listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	log.Println("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	wg.Wait()
}

// instanceGroupID gives each process its own consumer group so every instance
// receives every relayed envelope.
func instanceGroupID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "orgio"
	}
	return fmt.Sprintf("orgio-relay-%s-%s", host, uuid.NewString()[:8])
}
