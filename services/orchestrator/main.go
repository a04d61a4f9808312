// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"

	"github.com/policylab/youthchat/services/intent"
	"github.com/policylab/youthchat/services/llm"
	"github.com/policylab/youthchat/services/orchestrator/datatypes"
	"github.com/policylab/youthchat/services/orchestrator/middleware"
	"github.com/policylab/youthchat/services/orchestrator/observability"
	"github.com/policylab/youthchat/services/orchestrator/onboarding"
	"github.com/policylab/youthchat/services/orchestrator/retrieval"
	"github.com/policylab/youthchat/services/orchestrator/routes"
	"github.com/policylab/youthchat/services/orchestrator/services"
	"github.com/policylab/youthchat/services/orchestrator/session"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "youthchat-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("youthchat-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// newWeaviateClient parses WEAVIATE_SERVICE_URL and connects. Returns nil
// when the variable is unset or invalid, which puts the service in
// lightweight mode.
func newWeaviateClient() *weaviate.Client {
	weaviateURL := strings.Trim(os.Getenv("WEAVIATE_SERVICE_URL"), "\"' ")
	if weaviateURL == "" || !strings.Contains(weaviateURL, "http") {
		slog.Info("WEAVIATE_SERVICE_URL not set or empty. Running in lightweight mode (chat only).")
		return nil
	}

	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		slog.Warn("WEAVIATE_SERVICE_URL is invalid. Running in lightweight mode.",
			"url", weaviateURL, "error", err)
		return nil
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
	if err != nil {
		slog.Error("Failed to create Weaviate client", "error", err)
		return nil
	}
	datatypes.EnsureWeaviateSchema(client)
	return client
}

func newLLMClient() (llm.LLMClient, error) {
	switch backend := os.Getenv("LLM_BACKEND_TYPE"); backend {
	case "openai":
		slog.Info("Using OpenAI LLM backend")
		return llm.NewOpenAIClient()
	case "ollama":
		slog.Info("Using Ollama LLM backend")
		return llm.NewOllamaClient()
	default:
		slog.Warn("LLM_BACKEND_TYPE not set or invalid, defaulting to ollama", "value", backend)
		return llm.NewOllamaClient()
	}
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("Invalid duration in environment, using default",
			"name", name, "value", raw, "default", fallback)
		return fallback
	}
	return d
}

func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("Invalid float in environment, using default",
			"name", name, "value", raw, "default", fallback)
		return fallback
	}
	return f
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	observability.InitMetrics()

	weaviateClient := newWeaviateClient()

	embeddingURL := os.Getenv("EMBEDDING_SERVICE_URL")
	if embeddingURL == "" {
		embeddingURL = "http://localhost:8000"
		slog.Warn("EMBEDDING_SERVICE_URL not set, defaulting", "url", embeddingURL)
	}
	embedder := retrieval.NewEmbeddingClient(embeddingURL)

	llmClient, err := newLLMClient()
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	intentEngine, err := intent.NewEngine()
	if err != nil {
		log.Fatalf("FATAL: Could not initialize the intent engine: %v", err)
	}
	onboardEngine, err := onboarding.NewEngine()
	if err != nil {
		log.Fatalf("FATAL: Could not initialize the onboarding engine: %v", err)
	}

	var index retrieval.SearchIndex
	if weaviateClient != nil {
		index = retrieval.NewWeaviateIndex(weaviateClient)
	} else {
		index = noopIndex{}
	}
	retriever := retrieval.NewRetriever(embedder, index)

	answers := services.NewAnswerService(
		llmClient,
		retriever,
		intentEngine,
		envFloat("RETRIEVAL_MIN_TOP_SCORE", services.DefaultMinTopScore),
		envDuration("GENERATION_TIMEOUT", services.DefaultGenerationTimeout),
	)

	store := session.NewStore()
	observability.RegisterActiveSessions(func() float64 { return float64(store.Len()) })

	// TTL 0 disables the sweep: default retention is process lifetime.
	janitor := session.NewJanitor(store,
		envDuration("SESSION_IDLE_TTL", 0), session.DefaultSweepInterval)
	go janitor.Run(context.Background())

	router := gin.Default()
	router.Use(otelgin.Middleware("youthchat-service"))
	router.Use(middleware.CORS([]string{"*"}))

	routes.SetupRoutes(router, weaviateClient, store, onboardEngine, answers, embedder)

	log.Println("Starting the chat server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// noopIndex stands in for Weaviate in lightweight mode. Every search
// reports no evidence, which routes answers down the low-confidence path.
type noopIndex struct{}

func (noopIndex) Search(ctx context.Context, vector []float32, topK int) ([]retrieval.Hit, error) {
	return nil, nil
}
