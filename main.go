package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"souschef/internal/agent"
	"souschef/internal/author"
	"souschef/internal/config"
	"souschef/internal/conn"
	"souschef/internal/guidance"
	"souschef/internal/logger"
	"souschef/internal/model"
	"souschef/internal/relay"
	"souschef/internal/storage"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		panic(err)
	}

	log, err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()

	store, bus := buildBackends(ctx, cfg, log)

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal().Msg("OPENAI_API_KEY environment variable is required")
	}

	maxTokens := cfg.Model.MaxTokens
	temperature := float32(cfg.Model.Temperature)
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      apiKey,
		BaseURL:     cfg.Model.BaseURL,
		Model:       cfg.Model.Name,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create chat model")
	}
	client := model.NewChatClient(cm)

	rel := relay.New(bus, store, log)
	authoringAgent := author.New(client, cfg.Generation.MaxCycles, log)
	guidanceAgent := guidance.New(client, authoringAgent, log)
	registry := agent.NewRegistry(authoringAgent, guidanceAgent, store, rel, log)

	manager := conn.NewManager(log)
	handler := conn.NewHandler(manager, rel, registry, store, log)

	mux := http.NewServeMux()
	mux.Handle("/ws", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

// buildBackends connects Redis for sessions and event fan-out, falling back
// to in-process backends when no Redis URL is configured.
func buildBackends(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.Store, relay.Bus) {
	if cfg.Redis.URL == "" {
		log.Warn().Msg("no REDIS_URL configured; using in-memory session store and bus")
		return storage.NewMemoryStore(), relay.NewMemoryBus()
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse REDIS_URL")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}

	ttl := time.Duration(cfg.Redis.TTLMinutes) * time.Minute
	return storage.NewRedisStore(client, ttl), relay.NewRedisBus(client)
}
