// ragna-core is a document Q&A service. Uploaded documents are stored,
// chunked, embedded, and indexed asynchronously; questions are answered
// with retrieval-augmented generation over the indexed chunks.
//
// It runs in three modes: "api" serves HTTP, "worker" runs the
// ingestion poll loop, and "all" runs both in one process.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ardea-labs/ragna-core/internal/adapters/driven/ai"
	"github.com/ardea-labs/ragna-core/internal/adapters/driven/minio"
	"github.com/ardea-labs/ragna-core/internal/adapters/driven/qdrant"
	redisqueue "github.com/ardea-labs/ragna-core/internal/adapters/driven/queue/redis"
	httpserver "github.com/ardea-labs/ragna-core/internal/adapters/driving/http"
	"github.com/ardea-labs/ragna-core/internal/chunker"
	"github.com/ardea-labs/ragna-core/internal/core/services"
	"github.com/ardea-labs/ragna-core/internal/extractors"
	"github.com/ardea-labs/ragna-core/internal/extractors/docx"
	"github.com/ardea-labs/ragna-core/internal/extractors/markdown"
	"github.com/ardea-labs/ragna-core/internal/extractors/pdf"
	"github.com/ardea-labs/ragna-core/internal/extractors/plaintext"
	"github.com/ardea-labs/ragna-core/internal/tokens"
	"github.com/ardea-labs/ragna-core/internal/worker"
)

const version = "0.1.0"

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	logger := newLogger()
	slog.SetDefault(logger)

	mode := getEnv("RUN_MODE", "all")
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}
	if mode != "api" && mode != "worker" && mode != "all" {
		logger.Error("invalid mode, want api|worker|all", "mode", mode)
		os.Exit(1)
	}

	if err := run(mode, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(mode string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Driven adapters.
	blobs, err := minio.NewBlobStore(minio.Config{
		Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		Bucket:    getEnv("MINIO_BUCKET", "documents"),
		UseSSL:    getEnvBool("MINIO_USE_SSL", false),
	})
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
	})
	defer redisClient.Close()

	hostname, _ := os.Hostname()
	consumerName := fmt.Sprintf("%s-%d", hostname, os.Getpid())
	queue, err := redisqueue.NewQueue(redisClient, consumerName,
		time.Duration(getEnvInt("QUEUE_VISIBILITY_TIMEOUT", 300))*time.Second)
	if err != nil {
		return fmt.Errorf("task queue: %w", err)
	}

	dimension := getEnvInt("EMBEDDING_DIMENSION", qdrant.DefaultDimension)
	index, err := qdrant.NewIndex(qdrant.Config{
		URL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		APIKey:     getEnv("QDRANT_API_KEY", ""),
		Collection: getEnv("QDRANT_COLLECTION", "documents"),
		Dimension:  dimension,
	})
	if err != nil {
		return fmt.Errorf("vector index: %w", err)
	}

	embedder, err := ai.NewEmbedder(ai.EmbedderConfig{
		BaseURL:   getEnv("OPENAI_BASE_URL", ""),
		APIKey:    getEnv("OPENAI_API_KEY", ""),
		Model:     getEnv("EMBEDDING_MODEL", "all-MiniLM-L6-v2"),
		Dimension: dimension,
	}, logger)
	if err != nil {
		return fmt.Errorf("embedder: %w", err)
	}

	llm, err := ai.NewLLM(ai.LLMConfig{
		BaseURL:     getEnv("OPENAI_BASE_URL", ""),
		APIKey:      getEnv("OPENAI_API_KEY", ""),
		Model:       getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		MaxTokens:   getEnvInt("OPENAI_MAX_TOKENS", 500),
		Temperature: getEnvFloat("OPENAI_TEMPERATURE", 0.7),
	}, logger)
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}

	// Idempotent bootstrap of all backends.
	bootstrapCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := blobs.EnsureBucket(bootstrapCtx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	if err := queue.EnsureQueue(bootstrapCtx); err != nil {
		return fmt.Errorf("ensure queue: %w", err)
	}
	if err := index.EnsureCollection(bootstrapCtx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	// Core services.
	registry := extractors.NewRegistry(pdf.New(), docx.New(), markdown.New(), plaintext.New())
	split := chunker.New(getEnvInt("CHUNK_SIZE", chunker.DefaultChunkSize),
		getEnvInt("CHUNK_OVERLAP", chunker.DefaultOverlap))
	counter := tokens.NewCounter(getEnv("TIKTOKEN_ENCODING", tokens.DefaultEncoding), logger)

	ingest := services.NewIngestService(blobs, queue, index, registry.Extensions(), logger)
	answer := services.NewAnswerService(embedder, index, llm, counter,
		getEnvInt("CONTEXT_TOKEN_BUDGET", services.DefaultContextTokenBudget), logger)
	processor := services.NewProcessor(blobs, registry, split, embedder, index, logger)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	if mode == "api" || mode == "all" {
		server := httpserver.NewServer(httpserver.Config{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		}, ingest, answer, blobs, queue, index, version, logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Start(ctx); err != nil {
				errCh <- err
				stop()
			}
		}()
	}

	if mode == "worker" || mode == "all" {
		w := worker.New(queue, processor, worker.Config{
			Concurrency: getEnvInt("WORKER_CONCURRENCY", 1),
			ReceiveWait: time.Duration(getEnvInt("QUEUE_RECEIVE_WAIT", 5)) * time.Second,
			BatchSize:   getEnvInt("WORKER_BATCH_SIZE", 1),
		}, logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	logger.Info("started", "mode", mode, "version", version)
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch getEnv("LOG_LEVEL", "info") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if getEnv("LOG_FORMAT", "text") == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
